package dialect

import (
	"fmt"
	"strings"
)

// GetDialect returns the Dialect for a configured driver name.
func GetDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql":
		return &PostgresDialect{Driver: "postgres"}, nil
	case "pgx":
		return &PostgresDialect{Driver: "pgx"}, nil
	case "mysql", "mariadb":
		return &MysqlDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "sqlite", "sqlite3":
		return &SqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{"postgres", "pgx", "mysql", "sqlserver", "oracle", "sqlite"}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Dialect = (*SqliteDialect)(nil)
var _ FileDatabase = (*SqliteDialect)(nil)
