package database

import "context"

// DB is the contract the catalog layer runs its statements through.
// Implementations open a fresh connection per statement; nothing is shared
// between calls.
type DB interface {
	// Ping verifies the server is reachable and accepts the credentials.
	Ping(ctx context.Context) error

	// Query executes one statement that returns rows. The returned Rows own
	// the connection; Close releases both.
	Query(ctx context.Context, sql string, args ...any) (Rows, error)

	// QueryRow executes one statement when Scan is called on the result.
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// Rows is an abstraction over a database result set.
// Callers must always call Close() when done, even on error.
type Rows interface {
	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next() bool

	// Scan copies the current row's columns into the provided destinations.
	Scan(dest ...any) error

	// Columns returns the column names of the result set.
	Columns() []string

	// Fields returns the full column metadata of the result set.
	Fields() []Field

	// Close releases the result set and its connection.
	Close()

	// Err returns any error encountered during iteration.
	Err() error
}

// Row is an abstraction over a single database row.
type Row interface {
	Scan(dest ...any) error
}

// Field describes one column of a result set as reported by the server.
type Field struct {
	Name string `json:"name"`
	// TableOID is the source table, or 0 when the column is computed.
	TableOID uint32 `json:"tableID"`
	// ColumnNum is the attribute number within TableOID, or 0.
	ColumnNum uint16 `json:"columnID"`
	// DataTypeOID references pg_type.oid.
	DataTypeOID  uint32 `json:"dataTypeID"`
	DataTypeSize int16  `json:"dataTypeSize"`
	TypeModifier int32  `json:"dataTypeModifier"`
	// Format is 0 for text and 1 for binary.
	Format int16 `json:"format"`
}
