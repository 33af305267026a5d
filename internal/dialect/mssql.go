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

	mssql "github.com/microsoft/go-mssqldb"

	"order-etl/internal/schema"
)

// Server error numbers used by the connection manager.
const (
	mssqlCannotOpenDatabase = 4060
	mssqlDatabaseExists     = 1801
)

type MSSQLDialect struct{}

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) DriverName() string { return "sqlserver" }

func (d *MSSQLDialect) DSN(info ConnInfo) string {
	q := url.Values{}
	q.Set("database", info.Database)
	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(info.User, info.Password),
		Host:     net.JoinHostPort(info.Host, strconv.Itoa(info.Port)),
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (d *MSSQLDialect) DefaultPort() int { return 1433 }

func (d *MSSQLDialect) AdminDatabase() string { return "master" }

func (d *MSSQLDialect) CreateDatabaseQuery(name string) string {
	return "CREATE DATABASE " + d.QuoteIdentifier(name)
}

func (d *MSSQLDialect) IsUnknownDatabase(err error) bool {
	if mssqlNumber(err) == mssqlCannotOpenDatabase {
		return true
	}
	// login failures are not always surfaced as mssql.Error
	return err != nil && strings.Contains(err.Error(), "Cannot open database")
}

func (d *MSSQLDialect) IsDatabaseExists(err error) bool {
	return mssqlNumber(err) == mssqlDatabaseExists
}

func mssqlNumber(err error) int32 {
	var msErr mssql.Error
	if errors.As(err, &msErr) {
		return msErr.Number
	}
	var msErrPtr *mssql.Error
	if errors.As(err, &msErrPtr) {
		return msErrPtr.Number
	}
	return 0
}

func (d *MSSQLDialect) ProbeQuery() string { return "SELECT 1" }

func (d *MSSQLDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MSSQLDialect) TransactionalDDL() bool { return true }

func (d *MSSQLDialect) BeforeLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *MSSQLDialect) AfterLoad(ctx context.Context, tx *sql.Tx) error { return nil }

// BeforeTable allows explicit ids in the identity column while the table loads.
func (d *MSSQLDialect) BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	if !t.HasIdentity() {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s ON", d.QuoteIdentifier(t.Name)))
	return err
}

// AfterTable turns IDENTITY_INSERT back off; only one table per session may have it on.
func (d *MSSQLDialect) AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	if !t.HasIdentity() {
		return nil
	}
	_, err := tx.ExecContext(ctx, fmt.Sprintf("SET IDENTITY_INSERT %s OFF", d.QuoteIdentifier(t.Name)))
	return err
}

func (d *MSSQLDialect) CreateTableQuery(t *schema.TableSpec) string {
	return buildCreateTable(d, t, func(c *schema.Column, identity bool) string {
		if identity {
			return "INT IDENTITY(1,1) NOT NULL"
		}
		return d.typeName(c.Type) + nullability(c)
	}, false)
}

func (d *MSSQLDialect) typeName(t schema.ColumnType) string {
	switch t {
	case schema.Integer:
		return "INT"
	case schema.Numeric:
		return "DECIMAL(12,4)"
	case schema.Date:
		return "DATE"
	case schema.Boolean:
		return "BIT"
	default:
		return "NVARCHAR(255)"
	}
}

func (d *MSSQLDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))
}

// RenameTableQuery uses sp_rename, which takes the new name unquoted.
func (d *MSSQLDialect) RenameTableQuery(from, to string) string {
	return fmt.Sprintf("EXEC sp_rename %s, %s", sqlLiteral(from), sqlLiteral(to))
}

// TruncateQueries uses DELETE: TRUNCATE is refused on tables referenced by a foreign key.
func (d *MSSQLDialect) TruncateQueries(tables []*schema.TableSpec) []string {
	return deleteInReverse(d, tables)
}

func (d *MSSQLDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

// IdentityResetQueries reseeds so the next generated value is max+1.
func (d *MSSQLDialect) IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string {
	seed := int64(0)
	if maxValue.Valid {
		seed = maxValue.Int64
	}
	name := strings.ReplaceAll(table, "'", "''")
	return []string{fmt.Sprintf("DBCC CHECKIDENT ('%s', RESEED, %d)", name, seed)}
}

func (d *MSSQLDialect) Placeholder(index int) string {
	return fmt.Sprintf("@p%d", index+1)
}

func (d *MSSQLDialect) QuoteIdentifier(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d *MSSQLDialect) LimitRowQuery(query string, limit int) string {
	// Simple T-SQL TOP injection
	trimmed := strings.TrimSpace(query)
	if strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return fmt.Sprintf("SELECT TOP %d%s", limit, trimmed[len("SELECT"):])
	}
	return trimmed
}

// MaxParams stays under the 2100 parameter limit of a request.
func (d *MSSQLDialect) MaxParams() int { return 2000 }

// MaxRowsPerInsert is the row-constructor limit of a VALUES clause.
func (d *MSSQLDialect) MaxRowsPerInsert() int { return 1000 }

func (d *MSSQLDialect) BindValue(v any) any { return v }
