package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"order-etl/internal/schema"
)

// SQLSTATE codes used by the connection manager.
const (
	pgInvalidCatalogName = "3D000"
	pgDuplicateDatabase  = "42P04"
)

// PostgresDialect serves both registered postgres drivers: lib/pq
// ("postgres") and pgx's database/sql adapter ("pgx").
type PostgresDialect struct {
	Driver string
}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) DriverName() string {
	if d.Driver == "" {
		return "postgres"
	}
	return d.Driver
}

func (d *PostgresDialect) DSN(info ConnInfo) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(info.User, info.Password),
		Host:     net.JoinHostPort(info.Host, strconv.Itoa(info.Port)),
		Path:     "/" + info.Database,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (d *PostgresDialect) DefaultPort() int { return 5432 }

func (d *PostgresDialect) AdminDatabase() string { return "postgres" }

func (d *PostgresDialect) CreateDatabaseQuery(name string) string {
	return "CREATE DATABASE " + d.QuoteIdentifier(name)
}

func (d *PostgresDialect) IsUnknownDatabase(err error) bool {
	return pgCode(err) == pgInvalidCatalogName
}

func (d *PostgresDialect) IsDatabaseExists(err error) bool {
	return pgCode(err) == pgDuplicateDatabase
}

// pgCode extracts the SQLSTATE from either driver's error type.
func pgCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func (d *PostgresDialect) ProbeQuery() string { return "SELECT 1" }

func (d *PostgresDialect) TablesQuery() string {
	return `SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename`
}

// DDL is transactional in Postgres; truncate, inserts and setval share one transaction.
func (d *PostgresDialect) TransactionalDDL() bool { return true }

func (d *PostgresDialect) BeforeLoad(ctx context.Context, tx *sql.Tx) error {
	// Foreign keys stay IMMEDIATE: a child row inserted before its parent must fail.
	return nil
}

func (d *PostgresDialect) AfterLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *PostgresDialect) BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *PostgresDialect) AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *PostgresDialect) CreateTableQuery(t *schema.TableSpec) string {
	return buildCreateTable(d, t, func(c *schema.Column, identity bool) string {
		if identity {
			return "INTEGER GENERATED BY DEFAULT AS IDENTITY NOT NULL"
		}
		return d.typeName(c.Type) + nullability(c)
	}, false)
}

func (d *PostgresDialect) typeName(t schema.ColumnType) string {
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

func (d *PostgresDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))
}

func (d *PostgresDialect) RenameTableQuery(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdentifier(from), d.QuoteIdentifier(to))
}

// TruncateQueries empties every table in one statement and resets identities.
func (d *PostgresDialect) TruncateQueries(tables []*schema.TableSpec) []string {
	if len(tables) == 0 {
		return nil
	}
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return []string{fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", quoteAll(names, d.QuoteIdentifier))}
}

func (d *PostgresDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

func (d *PostgresDialect) IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string {
	seq := fmt.Sprintf("pg_get_serial_sequence(%s, %s)",
		pq.QuoteLiteral(d.QuoteIdentifier(table)), pq.QuoteLiteral(column))
	if !maxValue.Valid {
		return []string{fmt.Sprintf("SELECT setval(%s, 1, false)", seq)}
	}
	return []string{fmt.Sprintf("SELECT setval(%s, %d, true)", seq, maxValue.Int64)}
}

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index+1)
}

func (d *PostgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgresDialect) LimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(query), limit)
}

func (d *PostgresDialect) MaxParams() int { return 65535 }

func (d *PostgresDialect) MaxRowsPerInsert() int { return 5000 }

func (d *PostgresDialect) BindValue(v any) any { return v }
