package catalog

import (
	"encoding/json"
	"strings"
)

// OID is PostgreSQL's catalog-wide object identifier. It is opaque: pgmeta
// passes it through and never interprets it.
type OID uint32

// Database is one row of pg_database.
type Database struct {
	OID        OID    `json:"oid"`
	Name       string `json:"datname"`
	Owner      string `json:"owner"`
	Encoding   string `json:"encoding"`
	Collate    string `json:"datcollate"`
	CType      string `json:"datctype"`
	IsTemplate bool   `json:"datistemplate"`
	AllowConn  bool   `json:"datallowconn"`
	// ConnLimit is -1 for no limit.
	ConnLimit int32 `json:"datconnlimit"`
}

// Relation is a table, index, sequence, view or other pg_class entry with
// its live columns and constraints. It is a snapshot of catalog state at
// query time and is never refreshed.
type Relation struct {
	ID          OID          `json:"relid"`
	Name        string       `json:"relname"`
	Namespace   string       `json:"relnamespace"`
	Owner       string       `json:"relowner"`
	Kind        RelKind      `json:"relkind"`
	Attributes  []Attribute  `json:"attributes"`
	Constraints []Constraint `json:"constraints"`
}

// relation and constraint drop the JSON methods of Relation and Constraint
// so those methods can embed them.
type (
	relation   Relation
	constraint Constraint
)

// MarshalJSON renders relkind as its label and keeps the raw code in
// relkind_code, so unmapped kinds such as partitioned tables survive.
func (r Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		relation
		KindCode string `json:"relkind_code"`
	}{relation(r), string(r.Kind)})
}

// UnmarshalJSON prefers relkind_code over the relkind label.
func (r *Relation) UnmarshalJSON(b []byte) error {
	var v struct {
		relation
		KindCode *string `json:"relkind_code"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = Relation(v.relation)
	if v.KindCode != nil {
		r.Kind = RelKind(*v.KindCode)
	}
	return nil
}

// QualifiedName returns namespace.name.
func (r Relation) QualifiedName() string {
	return r.Namespace + "." + r.Name
}

// Attribute is a live column of a relation. Num is always positive: system
// columns and dropped columns are never returned.
type Attribute struct {
	RelID   OID    `json:"attrelid"`
	Name    string `json:"attname"`
	Num     int16  `json:"attnum"`
	TypeID  OID    `json:"atttypid"`
	TypeMod int32  `json:"atttypmod"`
	NotNull bool   `json:"attnotnull"`
	// Default is the deparsed default expression, nil when there is none.
	Default *string `json:"adsrc"`
	// TypeFmt is format_type(atttypid, atttypmod), e.g. "character varying(20)".
	TypeFmt string `json:"atttypfmt"`
}

// Constraint is one pg_constraint row attached to a relation.
type Constraint struct {
	RelID OID `json:"conrelid"`
	// Name is not necessarily unique within a relation.
	Name string  `json:"conname"`
	Type ConType `json:"contype"`
	// Key holds the 1-based attribute numbers the constraint covers.
	Key []int16 `json:"conkey"`
	// RefRelation is the referenced relation of a foreign key, nil otherwise.
	RefRelation *string `json:"confrelname"`
	// RefColumns is the comma-joined referenced column names of a foreign key.
	RefColumns *string `json:"fkeyattnames"`
	// RefColumnList holds the same names in foreign key order.
	RefColumnList []string `json:"fkeyatts"`
}

// ReferencedColumns returns the referenced column names of a foreign key in
// key order, falling back to splitting RefColumns.
func (c Constraint) ReferencedColumns() []string {
	if c.RefColumnList != nil {
		return c.RefColumnList
	}
	if c.RefColumns == nil || *c.RefColumns == "" {
		return nil
	}
	return strings.Split(*c.RefColumns, ",")
}

// MarshalJSON renders contype as its label and keeps the raw code in
// contype_code.
func (c Constraint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		constraint
		TypeCode string `json:"contype_code"`
	}{constraint(c), string(c.Type)})
}

// UnmarshalJSON prefers contype_code over the contype label. Rows aggregated
// by the server carry only the raw contype.
func (c *Constraint) UnmarshalJSON(b []byte) error {
	var v struct {
		constraint
		TypeCode *string `json:"contype_code"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*c = Constraint(v.constraint)
	if v.TypeCode != nil {
		c.Type = ConType(*v.TypeCode)
	}
	return nil
}
