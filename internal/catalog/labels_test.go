package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelKindLabel(t *testing.T) {
	tests := []struct {
		kind RelKind
		want string
	}{
		{"r", "ordinary table"},
		{"i", "index"},
		{"S", "sequence"},
		{"v", "view"},
		{"m", "materialized view"},
		{"c", "composite type"},
		{"t", "TOAST table"},
		{"f", "foreign table"},
	}
	for _, tt := range tests {
		got, ok := tt.kind.Label()
		assert.True(t, ok, "kind %q", tt.kind)
		assert.Equal(t, tt.want, got)
	}

	_, ok := RelKind("p").Label()
	assert.False(t, ok, "partitioned tables are unmapped")
}

func TestConTypeLabel(t *testing.T) {
	tests := []struct {
		typ  ConType
		want string
	}{
		{"c", "check constraint"},
		{"f", "foreign key constraint"},
		{"p", "primary key constraint"},
		{"u", "unique constraint"},
		{"t", "constraint trigger"},
		{"x", "exclusion constraint"},
	}
	for _, tt := range tests {
		got, ok := tt.typ.Label()
		assert.True(t, ok, "contype %q", tt.typ)
		assert.Equal(t, tt.want, got)
	}

	_, ok := ConType("n").Label()
	assert.False(t, ok)
}

func TestLabels_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Kind     RelKind `json:"relkind"`
		Unmapped RelKind `json:"unmapped"`
		Type     ConType `json:"contype"`
	}{RelKindView, "I", ConTypeUnique})
	require.NoError(t, err)

	assert.JSONEq(t, `{"relkind":"view","unmapped":null,"contype":"unique constraint"}`, string(b))
}

func TestLabels_UnmarshalJSON(t *testing.T) {
	var v struct {
		FromCode  ConType `json:"a"`
		FromLabel ConType `json:"b"`
		Null      ConType `json:"c"`
		Unknown   RelKind `json:"d"`
	}
	err := json.Unmarshal([]byte(`{"a":"p","b":"foreign key constraint","c":null,"d":"p"}`), &v)
	require.NoError(t, err)

	assert.Equal(t, ConTypePrimaryKey, v.FromCode)
	assert.Equal(t, ConTypeForeignKey, v.FromLabel)
	assert.Equal(t, ConType(""), v.Null)
	assert.Equal(t, RelKind("p"), v.Unknown)

	var k RelKind
	assert.Error(t, json.Unmarshal([]byte(`12`), &k))
}

func TestRelation_JSONSurvivesRoundTrip(t *testing.T) {
	in := Relation{
		ID:          16390,
		Name:        "users",
		Namespace:   "public",
		Owner:       "app",
		Kind:        RelKindTable,
		Attributes:  []Attribute{{RelID: 16390, Name: "id", Num: 1, TypeID: 23, TypeMod: -1, NotNull: true, TypeFmt: "integer"}},
		Constraints: []Constraint{{RelID: 16390, Name: "users_pkey", Type: ConTypePrimaryKey, Key: []int16{1}}},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"relkind":"ordinary table"`)
	assert.Contains(t, string(b), `"contype":"primary key constraint"`)
	assert.Contains(t, string(b), `"confrelname":null`)

	var out Relation
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestRelation_JSONKeepsUnmappedCodes(t *testing.T) {
	in := Relation{
		ID:          16500,
		Name:        "events",
		Namespace:   "public",
		Owner:       "app",
		Kind:        "p",
		Attributes:  []Attribute{},
		Constraints: []Constraint{{RelID: 16500, Name: "events_id_not_null", Type: "n", Key: []int16{1}}},
	}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"relkind":null`)
	assert.Contains(t, string(b), `"relkind_code":"p"`)
	assert.Contains(t, string(b), `"contype":null`)
	assert.Contains(t, string(b), `"contype_code":"n"`)

	var out Relation
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in, out)
}

func TestConstraint_UnmarshalWithoutCode(t *testing.T) {
	var c Constraint
	require.NoError(t, json.Unmarshal([]byte(`{"conname":"a_fkey","contype":"f"}`), &c))
	assert.Equal(t, ConTypeForeignKey, c.Type)

	require.NoError(t, json.Unmarshal([]byte(`{"conname":"a_fkey","contype":"check constraint"}`), &c))
	assert.Equal(t, ConTypeCheck, c.Type)
}
