package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"order-etl/internal/schema"
)

// Server error numbers used by the connection manager.
const (
	mysqlBadDB          = 1049 // ER_BAD_DB_ERROR
	mysqlDBCreateExists = 1007 // ER_DB_CREATE_EXISTS
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) DriverName() string { return "mysql" }

func (d *MysqlDialect) DSN(info ConnInfo) string {
	cfg := mysql.NewConfig()
	cfg.User = info.User
	cfg.Passwd = info.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(info.Host, strconv.Itoa(info.Port))
	cfg.DBName = info.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

func (d *MysqlDialect) DefaultPort() int { return 3306 }

// AdminDatabase is empty: MySQL accepts a connection without a default schema.
func (d *MysqlDialect) AdminDatabase() string { return "" }

func (d *MysqlDialect) CreateDatabaseQuery(name string) string {
	return "CREATE DATABASE " + d.QuoteIdentifier(name)
}

func (d *MysqlDialect) IsUnknownDatabase(err error) bool {
	return mysqlNumber(err) == mysqlBadDB
}

func (d *MysqlDialect) IsDatabaseExists(err error) bool {
	return mysqlNumber(err) == mysqlDBCreateExists
}

func mysqlNumber(err error) uint16 {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number
	}
	return 0
}

func (d *MysqlDialect) ProbeQuery() string { return "SELECT 1" }

func (d *MysqlDialect) TablesQuery() string {
	return `SELECT TABLE_NAME FROM information_schema.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

// DDL commits implicitly in MySQL, so tables are emptied with DELETE inside
// the load transaction instead of TRUNCATE.
func (d *MysqlDialect) TransactionalDDL() bool { return false }

func (d *MysqlDialect) BeforeLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *MysqlDialect) AfterLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *MysqlDialect) BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *MysqlDialect) AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *MysqlDialect) CreateTableQuery(t *schema.TableSpec) string {
	return buildCreateTable(d, t, func(c *schema.Column, identity bool) string {
		if identity {
			return "INT NOT NULL AUTO_INCREMENT"
		}
		return d.typeName(c.Type) + nullability(c)
	}, false) + " ENGINE=InnoDB"
}

func (d *MysqlDialect) typeName(t schema.ColumnType) string {
	switch t {
	case schema.Integer:
		return "INT"
	case schema.Numeric:
		return "DECIMAL(12,4)"
	case schema.Date:
		return "DATE"
	case schema.Boolean:
		return "BOOLEAN"
	default:
		return "VARCHAR(255)"
	}
}

func (d *MysqlDialect) DropTableQuery(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", d.QuoteIdentifier(table))
}

func (d *MysqlDialect) RenameTableQuery(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.QuoteIdentifier(from), d.QuoteIdentifier(to))
}

func (d *MysqlDialect) TruncateQueries(tables []*schema.TableSpec) []string {
	return deleteInReverse(d, tables)
}

func (d *MysqlDialect) InsertQuery(table string, cols []string, rows int) string {
	return multiRowInsert(d, table, cols, rows)
}

// IdentityResetQueries moves AUTO_INCREMENT back to max+1, since the
// DELETE-based truncate keeps the old counter. The ALTER commits implicitly,
// so the loader runs it after the load transaction.
func (d *MysqlDialect) IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string {
	next := int64(1)
	if maxValue.Valid {
		next = maxValue.Int64 + 1
	}
	return []string{fmt.Sprintf("ALTER TABLE %s AUTO_INCREMENT = %d", d.QuoteIdentifier(table), next)}
}

func (d *MysqlDialect) Placeholder(index int) string {
	return "?"
}

func (d *MysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MysqlDialect) LimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("%s LIMIT %d", strings.TrimSpace(query), limit)
}

func (d *MysqlDialect) MaxParams() int { return 65535 }

func (d *MysqlDialect) MaxRowsPerInsert() int { return 1000 }

func (d *MysqlDialect) BindValue(v any) any { return v }
