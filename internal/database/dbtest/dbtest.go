// Package dbtest provides an in-memory database.DB for unit tests.
package dbtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/koustreak/pgmeta/internal/database"
)

// Result is the canned outcome of one statement.
type Result struct {
	Columns []string
	Rows    [][]any
	// Err is returned from Query itself.
	Err error
	// IterErr is reported by Rows.Err after the last row.
	IterErr error
}

// JSON is a json or jsonb column value. Scan decodes it into the
// destination with encoding/json, as pgx does.
type JSON string

// Call records one statement the fake received.
type Call struct {
	SQL  string
	Args []any
}

// DB is a database.DB whose answers come from Handler.
type DB struct {
	Handler func(sql string, args []any) Result
	PingErr error

	mu     sync.Mutex
	calls  []Call
	opened int
	closed int
}

var _ database.DB = (*DB)(nil)

// New returns a DB answering every statement with handler.
func New(handler func(sql string, args []any) Result) *DB {
	return &DB{Handler: handler}
}

// Always returns a DB answering every statement with r.
func Always(r Result) *DB {
	return New(func(string, []any) Result { return r })
}

func (d *DB) Ping(context.Context) error { return d.PingErr }

func (d *DB) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	d.mu.Lock()
	d.calls = append(d.calls, Call{SQL: sql, Args: args})
	d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := d.Handler(sql, args)
	if r.Err != nil {
		return nil, r.Err
	}

	d.mu.Lock()
	d.opened++
	d.mu.Unlock()
	return &rows{db: d, res: r, pos: -1}, nil
}

func (d *DB) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return rowFunc(func(dest ...any) error {
		rs, err := d.Query(ctx, sql, args...)
		if err != nil {
			return err
		}
		defer rs.Close()
		if !rs.Next() {
			if err := rs.Err(); err != nil {
				return err
			}
			return ErrNoRows
		}
		return rs.Scan(dest...)
	})
}

// ErrNoRows is returned by QueryRow().Scan when the result is empty.
var ErrNoRows = errors.New("dbtest: no rows in result set")

// Calls returns the statements received so far.
func (d *DB) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Open reports how many result sets are not yet closed.
func (d *DB) Open() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened - d.closed
}

type rowFunc func(dest ...any) error

func (f rowFunc) Scan(dest ...any) error { return f(dest...) }

type rows struct {
	db     *DB
	res    Result
	pos    int
	closed bool
}

func (r *rows) Next() bool {
	if r.closed {
		return false
	}
	r.pos++
	return r.pos < len(r.res.Rows)
}

func (r *rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.res.Rows) {
		return errors.New("dbtest: scan called without a current row")
	}
	row := r.res.Rows[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("dbtest: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		if err := assign(d, row[i]); err != nil {
			return fmt.Errorf("dbtest: column %d: %w", i, err)
		}
	}
	return nil
}

func (r *rows) Columns() []string { return r.res.Columns }

func (r *rows) Fields() []database.Field {
	fields := make([]database.Field, len(r.res.Columns))
	for i, c := range r.res.Columns {
		fields[i] = database.Field{Name: c}
	}
	return fields
}

func (r *rows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.db.mu.Lock()
	r.db.closed++
	r.db.mu.Unlock()
}

func (r *rows) Err() error {
	if r.pos >= len(r.res.Rows) {
		return r.res.IterErr
	}
	return nil
}

// assign stores v into the pointer dest, converting between compatible kinds.
func assign(dest, v any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination %T is not a non-nil pointer", dest)
	}
	if j, ok := v.(JSON); ok {
		return json.Unmarshal([]byte(j), dest)
	}
	target := dv.Elem()
	if v == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	vv := reflect.ValueOf(v)
	switch {
	case vv.Type().AssignableTo(target.Type()):
		target.Set(vv)
	case vv.Type().ConvertibleTo(target.Type()):
		target.Set(vv.Convert(target.Type()))
	case target.Kind() == reflect.Pointer && vv.Type().ConvertibleTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(vv.Convert(target.Type().Elem()))
		target.Set(p)
	default:
		return fmt.Errorf("cannot assign %T to %s", v, target.Type())
	}
	return nil
}
