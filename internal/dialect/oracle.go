package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"order-etl/internal/schema"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) DriverName() string { return "oracle" }

// DSN treats the database name as the service name.
func (d *OracleDialect) DSN(info ConnInfo) string {
	return go_ora.BuildUrl(info.Host, info.Port, info.Database, info.User, info.Password, nil)
}

func (d *OracleDialect) DefaultPort() int { return 1521 }

// Oracle services are provisioned by the DBA; the loader never creates one.
func (d *OracleDialect) AdminDatabase() string { return "" }

func (d *OracleDialect) CreateDatabaseQuery(name string) string { return "" }

func (d *OracleDialect) IsUnknownDatabase(err error) bool { return false }

func (d *OracleDialect) IsDatabaseExists(err error) bool { return false }

func (d *OracleDialect) ProbeQuery() string { return "SELECT 1 FROM DUAL" }

func (d *OracleDialect) TablesQuery() string {
	// USER_TABLES lists tables owned by the current user.
	return `SELECT TABLE_NAME FROM USER_TABLES ORDER BY TABLE_NAME`
}

// DDL commits implicitly, including the identity reset.
func (d *OracleDialect) TransactionalDDL() bool { return false }

// BeforeLoad pins the session formats used to bind dates and decimal strings.
func (d *OracleDialect) BeforeLoad(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		"ALTER SESSION SET NLS_DATE_FORMAT = 'YYYY-MM-DD'",
		"ALTER SESSION SET NLS_TIMESTAMP_FORMAT = 'YYYY-MM-DD HH24:MI:SS'",
		"ALTER SESSION SET NLS_NUMERIC_CHARACTERS = '.,'",
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("failed to set session format: %w", err)
		}
	}
	return nil
}

func (d *OracleDialect) AfterLoad(ctx context.Context, tx *sql.Tx) error { return nil }

func (d *OracleDialect) BeforeTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *OracleDialect) AfterTable(ctx context.Context, tx *sql.Tx, t *schema.TableSpec) error {
	return nil
}

func (d *OracleDialect) CreateTableQuery(t *schema.TableSpec) string {
	return buildCreateTable(d, t, func(c *schema.Column, identity bool) string {
		if identity {
			// ON NULL keeps explicit ids insertable
			return "NUMBER(10) GENERATED BY DEFAULT ON NULL AS IDENTITY NOT NULL"
		}
		return d.typeName(c.Type) + oracleNullability(c)
	}, false)
}

// Oracle rejects an explicit NULL constraint in some positions; omit it.
func oracleNullability(c *schema.Column) string {
	if c.Nullable {
		return ""
	}
	return " NOT NULL"
}

func (d *OracleDialect) typeName(t schema.ColumnType) string {
	switch t {
	case schema.Integer:
		return "NUMBER(10)"
	case schema.Numeric:
		return "NUMBER(12,4)"
	case schema.Date:
		return "DATE"
	case schema.Boolean:
		return "NUMBER(1)"
	default:
		return "VARCHAR2(255)"
	}
}

// DropTableQuery swallows ORA-00942 so a missing table is not an error.
func (d *OracleDialect) DropTableQuery(table string) string {
	return fmt.Sprintf(`BEGIN
  EXECUTE IMMEDIATE 'DROP TABLE %s CASCADE CONSTRAINTS';
EXCEPTION
  WHEN OTHERS THEN
    IF SQLCODE != -942 THEN
      RAISE;
    END IF;
END;`, strings.ReplaceAll(d.QuoteIdentifier(table), "'", "''"))
}

func (d *OracleDialect) RenameTableQuery(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.QuoteIdentifier(from), d.QuoteIdentifier(to))
}

// TruncateQueries uses DELETE: TRUNCATE would commit the load transaction.
func (d *OracleDialect) TruncateQueries(tables []*schema.TableSpec) []string {
	return deleteInReverse(d, tables)
}

// InsertQuery renders INSERT ALL, the multi-row form Oracle accepts.
func (d *OracleDialect) InsertQuery(table string, cols []string, rows int) string {
	var b strings.Builder
	into := fmt.Sprintf(" INTO %s (%s) VALUES ", d.QuoteIdentifier(table), quoteAll(cols, d.QuoteIdentifier))
	b.WriteString("INSERT ALL")
	for r := 0; r < rows; r++ {
		b.WriteString(into)
		b.WriteString("(")
		b.WriteString(GeneratePlaceholders(len(cols), r*len(cols), d.Placeholder))
		b.WriteString(")")
	}
	b.WriteString(" SELECT 1 FROM DUAL")
	return b.String()
}

// IdentityResetQueries moves the identity generator past the loaded ids.
func (d *OracleDialect) IdentityResetQueries(table, column string, maxValue sql.NullInt64) []string {
	start := "LIMIT VALUE"
	if !maxValue.Valid {
		start = "1"
	}
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY (%s GENERATED BY DEFAULT ON NULL AS IDENTITY (START WITH %s))",
		d.QuoteIdentifier(table), d.QuoteIdentifier(column), start)}
}

func (d *OracleDialect) Placeholder(index int) string {
	// Oracle uses :1, :2, etc. (1-based index)
	return fmt.Sprintf(":%d", index+1)
}

func (d *OracleDialect) QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d *OracleDialect) LimitRowQuery(query string, limit int) string {
	return fmt.Sprintf("SELECT * FROM (%s) WHERE ROWNUM <= %d", strings.TrimSpace(query), limit)
}

func (d *OracleDialect) MaxParams() int { return 65535 }

// MaxRowsPerInsert keeps INSERT ALL statements a manageable size for the parser.
func (d *OracleDialect) MaxRowsPerInsert() int { return 500 }

// BindValue maps booleans onto NUMBER(1).
func (d *OracleDialect) BindValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
