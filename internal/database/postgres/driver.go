// Package postgres implements database.DB on top of pgx with one connection
// per statement.
package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/koustreak/pgmeta/internal/database"
	"github.com/koustreak/pgmeta/internal/logger"
)

// closeTimeout bounds the Terminate message sent when a connection closes.
const closeTimeout = 5 * time.Second

// Driver is a PostgreSQL implementation of database.DB.
// It holds no connection; every Query, QueryRow and Ping dials the server,
// runs exactly one statement and disconnects. It is safe for concurrent use
// because calls share nothing.
type Driver struct {
	cfg *database.Config
	log *logger.Logger
}

var _ database.DB = (*Driver)(nil)

// New returns a Driver for cfg. It does not connect; a nil log discards.
func New(cfg *database.Config, log *logger.Logger) *Driver {
	if log == nil {
		log = logger.Nop()
	}
	return &Driver{cfg: cfg, log: log}
}

// Config returns the connection settings the driver dials with.
func (d *Driver) Config() *database.Config {
	return d.cfg
}

// WithConn opens a connection for cfg, hands it to fn and closes it on every
// exit path, including a panic in fn.
func WithConn(ctx context.Context, cfg *database.Config, fn func(*pgx.Conn) error) error {
	conn, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeConn(ctx, conn)
	return fn(conn)
}

// Ping connects, round-trips an empty statement and disconnects.
func (d *Driver) Ping(ctx context.Context) error {
	return WithConn(ctx, d.cfg, func(conn *pgx.Conn) error {
		if err := conn.Ping(ctx); err != nil {
			return mapError(err, "ping failed")
		}
		return nil
	})
}

// Query connects and executes sql. The returned Rows own the connection:
// Close releases the result set and disconnects. When the statement cannot
// be started the connection is closed before the error is returned.
func (d *Driver) Query(ctx context.Context, sql string, args ...any) (database.Rows, error) {
	start := time.Now()
	op := database.OpFrom(ctx)

	conn, err := connect(ctx, d.cfg)
	if err != nil {
		d.log.Statement(op, time.Since(start), 0, err)
		return nil, err
	}

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		closeConn(ctx, conn)
		mapped := mapError(err, "query failed")
		d.log.Statement(op, time.Since(start), 0, mapped)
		return nil, mapped
	}

	return &connRows{
		ctx:   ctx,
		conn:  conn,
		rows:  rows,
		log:   d.log,
		op:    op,
		start: start,
	}, nil
}

// QueryRow defers execution until Scan, which runs the statement, scans the
// first row and disconnects before returning.
func (d *Driver) QueryRow(ctx context.Context, sql string, args ...any) database.Row {
	return &lazyRow{d: d, ctx: ctx, sql: sql, args: args}
}

func connect(ctx context.Context, cfg *database.Config) (*pgx.Conn, error) {
	cc, err := connConfig(cfg)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cc)
	if err != nil {
		return nil, mapConnectError(err, "failed to connect to "+cfg.Addr())
	}
	return conn, nil
}

// closeConn closes conn even when ctx is already cancelled.
func closeConn(ctx context.Context, conn *pgx.Conn) {
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
	defer cancel()
	_ = conn.Close(closeCtx)
}

// --- pgx type wrappers ---

// connRows wraps pgx.Rows together with the connection that produced them.
type connRows struct {
	ctx    context.Context
	conn   *pgx.Conn
	rows   pgx.Rows
	log    *logger.Logger
	op     string
	start  time.Time
	n      int
	closed bool
}

func (r *connRows) Next() bool {
	if r.rows.Next() {
		r.n++
		return true
	}
	return false
}

func (r *connRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return mapError(err, "failed to scan row")
	}
	return nil
}

func (r *connRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return mapError(err, "query failed")
	}
	return nil
}

func (r *connRows) Columns() []string {
	descs := r.rows.FieldDescriptions()
	cols := make([]string, len(descs))
	for i, d := range descs {
		cols[i] = d.Name
	}
	return cols
}

func (r *connRows) Fields() []database.Field {
	descs := r.rows.FieldDescriptions()
	fields := make([]database.Field, len(descs))
	for i, d := range descs {
		fields[i] = database.Field{
			Name:         d.Name,
			TableOID:     d.TableOID,
			ColumnNum:    d.TableAttributeNumber,
			DataTypeOID:  d.DataTypeOID,
			DataTypeSize: d.DataTypeSize,
			TypeModifier: d.TypeModifier,
			Format:       d.Format,
		}
	}
	return fields
}

// Close is idempotent.
func (r *connRows) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.rows.Close()
	var err error
	if e := r.rows.Err(); e != nil {
		err = mapError(e, "query failed")
	}
	closeConn(r.ctx, r.conn)
	r.log.Statement(r.op, time.Since(r.start), r.n, err)
}

// lazyRow runs its statement on Scan.
type lazyRow struct {
	d    *Driver
	ctx  context.Context
	sql  string
	args []any
}

func (r *lazyRow) Scan(dest ...any) error {
	rows, err := r.d.Query(r.ctx, r.sql, r.args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return mapError(pgx.ErrNoRows, "no rows in result set")
	}
	return rows.Scan(dest...)
}
