package dialect

import (
	"context"
	"database/sql"

	"order-etl/internal/schema"
)

// ConnInfo carries the resolved connection parameters a dialect turns into a DSN.
type ConnInfo struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
}

// FileDatabase is implemented by dialects whose database is a local file
// that opening a connection creates.
type FileDatabase interface {
	DatabaseFile(info ConnInfo) string
}

// Dialect abstracts database-specific operations.
type Dialect interface {
	// Connection
	Name() string
	DriverName() string
	DSN(info ConnInfo) string
	DefaultPort() int
	AdminDatabase() string                  // database used to issue CREATE DATABASE, "" if unsupported
	CreateDatabaseQuery(name string) string // "" if the destination has no such statement
	IsUnknownDatabase(err error) bool
	IsDatabaseExists(err error) bool
	ProbeQuery() string

	// Metadata
	TablesQuery() string
	TransactionalDDL() bool

	// Execution Hooks (Global Level)
	BeforeLoad(ctx context.Context, tx *sql.Tx) error
	AfterLoad(ctx context.Context, tx *sql.Tx) error

	// Execution Hooks (Table Level) - For IDENTITY_INSERT etc.
	BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error
	AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error

	// Query Generation
	CreateTableQuery(t *schema.TableSpec) string
	DropTableQuery(table string) string
	RenameTableQuery(from, to string) string
	TruncateQueries(tables []*schema.TableSpec) []string // tables given in load order
	InsertQuery(table string, cols []string, rows int) string
	IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string
	Placeholder(index int) string // Returns ?, $1, @p1, etc.
	QuoteIdentifier(name string) string
	LimitRowQuery(query string, limit int) string

	// Limits
	MaxParams() int
	MaxRowsPerInsert() int

	BindValue(v any) any
}
