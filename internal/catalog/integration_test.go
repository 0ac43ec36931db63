package catalog_test

import (
	"context"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/pgmeta/internal/catalog"
	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/database/postgres"
)

// liveConfig returns connection settings for a throwaway server, or skips.
func liveConfig(t *testing.T) *database.Config {
	t.Helper()
	host := os.Getenv("PGMETA_TEST_HOST")
	if host == "" {
		t.Skip("PGMETA_TEST_HOST not set")
	}
	cfg := database.DefaultConfig()
	cfg.Host = host
	cfg.User = os.Getenv("PGMETA_TEST_USER")
	cfg.Password = os.Getenv("PGMETA_TEST_PASSWORD")
	if db := os.Getenv("PGMETA_TEST_DATABASE"); db != "" {
		cfg.Database = db
	}
	if p := os.Getenv("PGMETA_TEST_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		require.NoError(t, err)
		cfg.Port = port
	}
	return cfg
}

// exec runs DDL on its own connection.
func exec(t *testing.T, cfg *database.Config, sql string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err := postgres.WithConn(ctx, cfg, func(conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, sql)
		return err
	})
	require.NoError(t, err, sql)
}

// scratchSchema creates a uniquely named schema dropped at cleanup.
func scratchSchema(t *testing.T, cfg *database.Config) string {
	t.Helper()
	name := "pgmeta_it_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	exec(t, cfg, "CREATE SCHEMA "+name)
	t.Cleanup(func() { exec(t, cfg, "DROP SCHEMA "+name+" CASCADE") })
	return name
}

func findRelation(rels []catalog.Relation, ns, name string) *catalog.Relation {
	for i := range rels {
		if rels[i].Namespace == ns && rels[i].Name == name {
			return &rels[i]
		}
	}
	return nil
}

func TestLive_Databases(t *testing.T) {
	cfg := liveConfig(t)
	r := catalog.New(postgres.New(cfg, nil), nil)

	dbs, err := r.Databases(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, dbs)
	assert.True(t, slices.IsSortedFunc(dbs, func(a, b catalog.Database) int {
		return strings.Compare(a.Name, b.Name)
	}))
}

func TestLive_EmptyTable(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()
	r := catalog.New(postgres.New(cfg, nil), nil)
	schema := scratchSchema(t, cfg)

	before, err := r.Relations(ctx)
	require.NoError(t, err)

	exec(t, cfg, "CREATE TABLE "+schema+".a ()")

	after, err := r.Relations(ctx)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)

	a := findRelation(after, schema, "a")
	require.NotNil(t, a)
	assert.Equal(t, catalog.RelKindTable, a.Kind)
	assert.Empty(t, a.Attributes)
	assert.Empty(t, a.Constraints)

	attrs, err := r.Attributes(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, attrs)

	cons, err := r.Constraints(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, cons)

	n, err := r.Count(ctx, schema+".a")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLive_RelationsAgreeWithPointQueries(t *testing.T) {
	cfg := liveConfig(t)
	ctx := context.Background()
	r := catalog.New(postgres.New(cfg, nil), nil)
	schema := scratchSchema(t, cfg)

	exec(t, cfg, "CREATE TABLE "+schema+".parent (id int, tenant int, PRIMARY KEY (tenant, id))")
	exec(t, cfg, "CREATE TABLE "+schema+".child ("+
		"id serial PRIMARY KEY, "+
		"gone int, "+
		"parent_id int, "+
		"tenant_id int, "+
		"note varchar(20) DEFAULT 'x', "+
		"FOREIGN KEY (parent_id, tenant_id) REFERENCES "+schema+".parent (id, tenant))")
	exec(t, cfg, "ALTER TABLE "+schema+".child DROP COLUMN gone")

	rels, err := r.Relations(ctx)
	require.NoError(t, err)

	for _, rel := range rels {
		assert.NotContains(t, catalog.ExcludedNamespaces, rel.Namespace)
	}
	assert.True(t, slices.IsSortedFunc(rels, func(a, b catalog.Relation) int {
		return int(int64(a.ID) - int64(b.ID))
	}))

	child := findRelation(rels, schema, "child")
	require.NotNil(t, child)

	var names []string
	for i, a := range child.Attributes {
		assert.Positive(t, a.Num)
		if i > 0 {
			assert.Greater(t, a.Num, child.Attributes[i-1].Num)
		}
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"id", "parent_id", "tenant_id", "note"}, names)

	attrs, err := r.Attributes(ctx, child.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(child.Attributes, attrs); diff != "" {
		t.Errorf("Attributes() disagrees with Relations() (-relations +attributes):\n%s", diff)
	}

	cons, err := r.Constraints(ctx, child.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(child.Constraints, cons); diff != "" {
		t.Errorf("Constraints() disagrees with Relations() (-relations +constraints):\n%s", diff)
	}

	var fk *catalog.Constraint
	for i := range cons {
		if cons[i].Type == catalog.ConTypeForeignKey {
			fk = &cons[i]
		}
	}
	require.NotNil(t, fk)
	require.NotNil(t, fk.RefRelation)
	assert.Equal(t, schema+".parent", *fk.RefRelation)
	assert.Equal(t, []string{"id", "tenant"}, fk.ReferencedColumns())
	assert.Equal(t, "id,tenant", *fk.RefColumns)

	described, err := r.Describe(ctx, child.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(*child, *described); diff != "" {
		t.Errorf("Describe() disagrees with Relations() (-relations +describe):\n%s", diff)
	}

	again, err := r.Relations(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(rels, again); diff != "" {
		t.Errorf("Relations() is not idempotent (-first +second):\n%s", diff)
	}
}
