package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"order-etl/internal/schema"
)

// SqliteDialect targets modernc.org/sqlite. The database name is a file path.
type SqliteDialect struct{}

func (d *SqliteDialect) Name() string { return "sqlite" }

func (d *SqliteDialect) DriverName() string { return "sqlite" }

func (d *SqliteDialect) DSN(info ConnInfo) string {
	return "file:" + info.Database +
		"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

func (d *SqliteDialect) DefaultPort() int { return 0 }

// DatabaseFile is the path opening info would create.
func (d *SqliteDialect) DatabaseFile(info ConnInfo) string { return info.Database }

// SQLite creates the file on first open, so there is nothing to auto-create.
func (d *SqliteDialect) AdminDatabase() string { return "" }

func (d *SqliteDialect) CreateDatabaseQuery(name string) string { return "" }

func (d *SqliteDialect) IsUnknownDatabase(err error) bool { return false }

func (d *SqliteDialect) IsDatabaseExists(err error) bool { return false }

func (d *SqliteDialect) ProbeQuery() string { return "SELECT 1" }

func (d *SqliteDialect) TablesQuery() string {
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (d *SqliteDialect) TransactionalDDL() bool { return true }

func (d *SqliteDialect) BeforeLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *SqliteDialect) AfterLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *SqliteDialect) BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *SqliteDialect) AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *SqliteDialect) CreateTableQuery(t *schema.TableSpec) string {
	return buildCreateTable(d, t, func(c *schema.Column, identity bool) string {
		if identity {
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
		return d.typeName(c.Type) + nullability(c)
	}, true)
}

func (d *SqliteDialect) typeName(t schema.ColumnType) string {
	switch t {
	case schema.Integer:
		return "INTEGER"
	case schema.Numeric:
		return "NUMERIC"
	case schema.Date:
		return "DATE"
	case schema.Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

func (d *SqliteDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))
}

func (d *SqliteDialect) RenameTableQuery(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdentifier(from), d.QuoteIdentifier(to))
}

// TruncateQueries deletes children first and clears the AUTOINCREMENT counters.
func (d *SqliteDialect) TruncateQueries(tables []*schema.TableSpec) []string {
	queries := deleteInReverse(d, tables)
	var seqs []string
	for _, t := range tables {
		if t.HasIdentity() {
			seqs = append(seqs, sqlLiteral(t.Name))
		}
	}
	if len(seqs) > 0 {
		queries = append(queries, fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name IN (%s)", strings.Join(seqs, ", ")))
	}
	return queries
}

func (d *SqliteDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

// IdentityResetQueries rewrites the sqlite_sequence row so the next id is max+1.
func (d *SqliteDialect) IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string {
	queries := []string{fmt.Sprintf("DELETE FROM sqlite_sequence WHERE name = %s", sqlLiteral(table))}
	if maxValue.Valid {
		queries = append(queries, fmt.Sprintf("INSERT INTO sqlite_sequence (name, seq) VALUES (%s, %d)", sqlLiteral(table), maxValue.Int64))
	}
	return queries
}

func (d *SqliteDialect) Placeholder(index int) string {
	return "?"
}

func (d *SqliteDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *SqliteDialect) LimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(query), limit)
}

// MaxParams is SQLITE_MAX_VARIABLE_NUMBER since 3.32.
func (d *SqliteDialect) MaxParams() int { return 32766 }

func (d *SqliteDialect) MaxRowsPerInsert() int { return 500 }

func (d *SqliteDialect) BindValue(v any) any { return v }

func sqlLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
