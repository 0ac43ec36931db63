package snapshot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/filestore"
	"github.com/koustreak/pgmeta/internal/filestore/memstore"
)

type fakeSource struct {
	db      string
	dbs     []catalog.Database
	rels    []catalog.Relation
	relsErr error
}

func (f *fakeSource) CurrentDatabase(context.Context) (string, error) { return f.db, nil }

func (f *fakeSource) Databases(context.Context) ([]catalog.Database, error) { return f.dbs, nil }

func (f *fakeSource) Relations(context.Context) ([]catalog.Relation, error) {
	return f.rels, f.relsErr
}

func appSource() *fakeSource {
	return &fakeSource{
		db:  "app",
		dbs: []catalog.Database{{OID: 16384, Name: "app", Owner: "app", Encoding: "UTF8", AllowConn: true, ConnLimit: -1}},
		rels: []catalog.Relation{{
			ID: 16390, Name: "users", Namespace: "public", Owner: "app", Kind: catalog.RelKindTable,
			Attributes: []catalog.Attribute{
				{RelID: 16390, Name: "id", Num: 1, TypeID: 23, TypeMod: -1, NotNull: true, TypeFmt: "integer"},
			},
			Constraints: []catalog.Constraint{
				{RelID: 16390, Name: "users_pkey", Type: catalog.ConTypePrimaryKey, Key: []int16{1}},
			},
		}},
	}
}

func TestTake(t *testing.T) {
	src := appSource()

	snap, err := Take(context.Background(), src)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, "app", snap.Database)
	assert.Equal(t, src.dbs, snap.Databases)
	assert.Equal(t, src.rels, snap.Relations)
	assert.WithinDuration(t, time.Now(), snap.TakenAt, time.Minute)
}

func TestTake_Error(t *testing.T) {
	src := appSource()
	src.relsErr = errs.New(errs.ErrKindConnectionFailed, "connection refused")

	snap, err := Take(context.Background(), src)
	assert.Nil(t, snap)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestExporter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	exp := NewExporter(store, "snaps", "/pgmeta/", nil)

	snap, err := Take(ctx, appSource())
	require.NoError(t, err)

	key, err := exp.Export(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "pgmeta/app/"+snap.ID.String()+".json", key)

	info, err := store.StatObject(ctx, "snaps", key)
	require.NoError(t, err)
	assert.Equal(t, "application/json", info.ContentType)

	loaded, err := exp.Load(ctx, "app", snap.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Errorf("Load() mismatch (-exported +loaded):\n%s", diff)
	}

	url, err := exp.URL(ctx, "app", snap.ID, time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, key)
}

func TestExporter_List(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	exp := NewExporter(store, "snaps", "pgmeta", nil)

	var ids []uuid.UUID
	for _, db := range []string{"app", "web", "app"} {
		snap := &Snapshot{ID: uuid.New(), Database: db}
		_, err := exp.Export(ctx, snap)
		require.NoError(t, err)
		ids = append(ids, snap.ID)
	}
	// Foreign objects under the prefix are ignored.
	_, err := store.PutObject(ctx, "snaps", "pgmeta/app/notes.txt", strings.NewReader("x"), 1, filestore.PutOptions{})
	require.NoError(t, err)

	app, err := exp.List(ctx, "app")
	require.NoError(t, err)
	require.Len(t, app, 2)
	assert.Equal(t, ids[0], app[0].ID)
	assert.Equal(t, ids[2], app[1].ID)
	assert.Equal(t, "app", app[0].Database)
	assert.Positive(t, app[0].Size)

	all, err := exp.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestExporter_ListMissingBucket(t *testing.T) {
	entries, err := NewExporter(memstore.New(), "snaps", "pgmeta", nil).List(context.Background(), "app")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExporter_LoadMissing(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	require.NoError(t, store.EnsureBucket(ctx, "snaps"))

	_, err := NewExporter(store, "snaps", "pgmeta", nil).Load(ctx, "app", uuid.New())
	assert.True(t, errs.IsNotFound(err))
}

func TestExporter_RejectsBadDatabaseName(t *testing.T) {
	exp := NewExporter(memstore.New(), "snaps", "pgmeta", nil)

	ctx := context.Background()
	for _, db := range []string{"", ".", "..", "a/b"} {
		_, err := exp.Export(ctx, &Snapshot{ID: uuid.New(), Database: db})
		assert.True(t, errs.IsInvalidInput(err), "database %q", db)
	}

	_, err := exp.Load(ctx, "..", uuid.New())
	assert.True(t, errs.IsInvalidInput(err))
	_, err = exp.List(ctx, "..")
	assert.True(t, errs.IsInvalidInput(err))
	_, err = exp.URL(ctx, ".", uuid.New(), time.Minute)
	assert.True(t, errs.IsInvalidInput(err))
}

func TestExporter_DotNamesNeverReachTheStore(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	exp := NewExporter(store, "snaps", "pgmeta", nil)

	_, err := exp.Export(ctx, &Snapshot{ID: uuid.New(), Database: ".."})
	require.Error(t, err)

	_, err = store.ListObjects(ctx, "snaps", filestore.ListOptions{Recursive: true})
	assert.True(t, errs.IsNotFound(err), "bucket was never created")
}

func TestExporter_RoundTripKeepsUnmappedCodes(t *testing.T) {
	ctx := context.Background()
	exp := NewExporter(memstore.New(), "snaps", "pgmeta", nil)

	snap := &Snapshot{
		ID:       uuid.New(),
		TakenAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Database: "app",
		Relations: []catalog.Relation{{
			ID: 16500, Name: "events", Namespace: "public", Owner: "app", Kind: "p",
			Attributes: []catalog.Attribute{
				{RelID: 16500, Name: "id", Num: 1, TypeID: 20, TypeMod: -1, NotNull: true, TypeFmt: "bigint"},
			},
			Constraints: []catalog.Constraint{
				{RelID: 16500, Name: "events_id_not_null", Type: "n", Key: []int16{1}},
			},
		}},
	}
	_, err := exp.Export(ctx, snap)
	require.NoError(t, err)

	loaded, err := exp.Load(ctx, "app", snap.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Relations, 1)
	assert.Equal(t, catalog.RelKind("p"), loaded.Relations[0].Kind)
	assert.Equal(t, catalog.ConType("n"), loaded.Relations[0].Constraints[0].Type)
	if diff := cmp.Diff(snap, loaded); diff != "" {
		t.Errorf("Load() mismatch (-exported +loaded):\n%s", diff)
	}
}

func TestParseKey(t *testing.T) {
	exp := NewExporter(nil, "snaps", "pgmeta", nil)
	id := uuid.New()

	entry, ok := exp.parseKey("pgmeta/app/" + id.String() + ".json")
	require.True(t, ok)
	assert.Equal(t, id, entry.ID)
	assert.Equal(t, "app", entry.Database)

	for _, key := range []string{
		"other/app/" + id.String() + ".json",
		"pgmeta/" + id.String() + ".json",
		"pgmeta/app/nested/" + id.String() + ".json",
		"pgmeta/app/" + id.String() + ".txt",
		"pgmeta/app/{" + id.String() + "}.json",
	} {
		_, ok := exp.parseKey(key)
		assert.False(t, ok, key)
	}
}
