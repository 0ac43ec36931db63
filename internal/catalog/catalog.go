// Package catalog reads PostgreSQL system catalogs: databases, relations,
// their columns and constraints, and live row counts.
//
// Every Reader method runs its statements through a database.DB, so each
// one opens and closes its own connection. Results are snapshots taken at
// query time.
package catalog

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/errs"
	"github.com/koustreak/pgmeta/internal/logger"
)

// Reader answers catalog questions against one database.
type Reader struct {
	db  database.DB
	log *logger.Logger
}

// New returns a Reader over db. A nil log discards.
func New(db database.DB, log *logger.Logger) *Reader {
	if log == nil {
		log = logger.Nop()
	}
	return &Reader{db: db, log: log}
}

// Ping checks that the configured server accepts connections.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.Ping(database.WithOp(ctx, "ping"))
}

// CurrentDatabase returns the name of the database the Reader is bound to.
func (r *Reader) CurrentDatabase(ctx context.Context) (string, error) {
	var name string
	if err := r.db.QueryRow(database.WithOp(ctx, "current_database"), currentDatabaseQuery).Scan(&name); err != nil {
		return "", asQueryError(err, "failed to read current database")
	}
	return name, nil
}

// Databases lists every database on the server ordered by name.
func (r *Reader) Databases(ctx context.Context) ([]Database, error) {
	rows, err := r.db.Query(database.WithOp(ctx, "databases"), databasesQuery)
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanDatabase)
}

// Relations lists every relation outside ExcludedNamespaces ordered by
// relid, each with its columns in attnum order and its constraints.
func (r *Reader) Relations(ctx context.Context) ([]Relation, error) {
	rows, err := r.db.Query(database.WithOp(ctx, "relations"), relationsQuery, ExcludedNamespaces)
	if err != nil {
		return nil, err
	}
	rels, err := database.CollectRows(rows, scanRelation)
	if err != nil {
		return nil, err
	}
	r.log.With().Int("relations", len(rels)).Logger().Debug("catalog relations read")
	return rels, nil
}

// Relation returns the pg_class row of one relation with empty column and
// constraint lists; Describe fills them. Unlike Relations it does not
// filter system namespaces.
func (r *Reader) Relation(ctx context.Context, id OID) (*Relation, error) {
	rows, err := r.db.Query(database.WithOp(ctx, "relation"), relationQuery, uint32(id))
	if err != nil {
		return nil, err
	}
	rels, err := database.CollectRows(rows, scanRelation)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return nil, errs.Newf(errs.ErrKindNotFound, "relation %d not found", id)
	}
	return &rels[0], nil
}

// Attributes lists the live columns of relation id in attnum order. An
// unknown id yields an empty list.
func (r *Reader) Attributes(ctx context.Context, id OID) ([]Attribute, error) {
	rows, err := r.db.Query(database.WithOp(ctx, "attributes"), attributesQuery, uint32(id))
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanAttribute)
}

// Constraints lists the constraints attached to relation id. An unknown id
// yields an empty list.
func (r *Reader) Constraints(ctx context.Context, id OID) ([]Constraint, error) {
	rows, err := r.db.Query(database.WithOp(ctx, "constraints"), constraintsQuery, uint32(id))
	if err != nil {
		return nil, err
	}
	return database.CollectRows(rows, scanConstraint)
}

// Describe fetches the relation, its columns and its constraints with three
// concurrent point queries. The first failure cancels the others.
func (r *Reader) Describe(ctx context.Context, id OID) (*Relation, error) {
	var (
		rel   *Relation
		attrs []Attribute
		cons  []Constraint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rel, err = r.Relation(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		attrs, err = r.Attributes(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		cons, err = r.Constraints(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rel.Attributes = attrs
	rel.Constraints = cons
	return rel, nil
}

// Count returns the live row count of table, given as "name" or
// "schema.name". Each part is quoted as an identifier, so the match is
// exact and case-sensitive.
func (r *Reader) Count(ctx context.Context, table string) (int64, error) {
	ident, err := ParseTableName(table)
	if err != nil {
		return 0, err
	}

	var n int64
	sql := "SELECT count(*) FROM " + ident.Sanitize()
	if err := r.db.QueryRow(database.WithOp(ctx, "count"), sql).Scan(&n); err != nil {
		return 0, asQueryError(err, fmt.Sprintf("failed to count %s", table))
	}
	return n, nil
}

// asQueryError keeps classified errors and marks the rest as query failures.
func asQueryError(err error, msg string) error {
	if errs.KindOf(err) != errs.ErrKindUnknown {
		return err
	}
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

func scanDatabase(rows database.Rows) (Database, error) {
	var d Database
	err := rows.Scan(
		(*uint32)(&d.OID),
		&d.Name,
		&d.Owner,
		&d.Encoding,
		&d.Collate,
		&d.CType,
		&d.IsTemplate,
		&d.AllowConn,
		&d.ConnLimit,
	)
	return d, err
}

func scanRelation(rows database.Rows) (Relation, error) {
	var rel Relation
	err := rows.Scan(
		(*uint32)(&rel.ID),
		&rel.Name,
		&rel.Namespace,
		&rel.Owner,
		(*string)(&rel.Kind),
		&rel.Attributes,
		&rel.Constraints,
	)
	if rel.Attributes == nil {
		rel.Attributes = []Attribute{}
	}
	if rel.Constraints == nil {
		rel.Constraints = []Constraint{}
	}
	return rel, err
}

func scanAttribute(rows database.Rows) (Attribute, error) {
	var a Attribute
	err := rows.Scan(
		(*uint32)(&a.RelID),
		&a.Name,
		&a.Num,
		(*uint32)(&a.TypeID),
		&a.TypeMod,
		&a.NotNull,
		&a.Default,
		&a.TypeFmt,
	)
	return a, err
}

func scanConstraint(rows database.Rows) (Constraint, error) {
	var c Constraint
	err := rows.Scan(
		(*uint32)(&c.RelID),
		&c.Name,
		(*string)(&c.Type),
		&c.Key,
		&c.RefRelation,
		&c.RefColumns,
		&c.RefColumnList,
	)
	return c, err
}
