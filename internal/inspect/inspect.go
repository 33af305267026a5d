// Package inspect reads the destination back for the read-only commands.
// Nothing here writes to the store.
package inspect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-etl/internal/dialect"
)

var (
	ErrInvalidLimit = errors.New("limit must be a positive integer")
	ErrNoSuchTable  = errors.New("no such table")
)

// Inspector lists and samples tables on one connection.
type Inspector struct {
	DB      *sql.DB
	Dialect dialect.Dialect
}

func New(db *sql.DB, d dialect.Dialect) *Inspector {
	return &Inspector{DB: db, Dialect: d}
}

// Row is one previewed row with its columns in select order.
type Row struct {
	Columns []string
	Values  []any
}

// Map returns the row keyed by column name.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// TableOverview is the row count and sample rows of one table.
type TableOverview struct {
	Name  string
	Count int
	Rows  []Row
}

// ListTables returns the user tables in name order.
func (i *Inspector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := i.DB.QueryContext(ctx, i.Dialect.TablesQuery())
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// RowCount returns the number of rows in table.
func (i *Inspector) RowCount(ctx context.Context, table string) (int, error) {
	name, err := i.resolve(ctx, table)
	if err != nil {
		return 0, err
	}
	return i.count(ctx, name)
}

func (i *Inspector) count(ctx context.Context, table string) (int, error) {
	var n int
	q := fmt.Sprintf("SELECT COUNT(*) FROM %s", i.Dialect.QuoteIdentifier(table))
	if err := i.DB.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Preview returns at most limit rows of table. limit must be positive.
func (i *Inspector) Preview(ctx context.Context, table string, limit int) ([]Row, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	name, err := i.resolve(ctx, table)
	if err != nil {
		return nil, err
	}
	return i.preview(ctx, name, limit)
}

func (i *Inspector) preview(ctx context.Context, table string, limit int) ([]Row, error) {
	q := i.Dialect.LimitRowQuery(fmt.Sprintf("SELECT * FROM %s", i.Dialect.QuoteIdentifier(table)), limit)
	rows, err := i.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for j, v := range values {
			values[j] = normalize(v)
		}
		out = append(out, Row{Columns: cols, Values: values})
	}
	return out, rows.Err()
}

// Overview returns every table with its count and up to limit sample rows.
// Empty tables get no preview.
func (i *Inspector) Overview(ctx context.Context, limit int) ([]TableOverview, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	names, err := i.ListTables(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]TableOverview, 0, len(names))
	for _, name := range names {
		n, err := i.count(ctx, name)
		if err != nil {
			return nil, err
		}
		ov := TableOverview{Name: name, Count: n}
		if n > 0 {
			if ov.Rows, err = i.preview(ctx, name, limit); err != nil {
				return nil, err
			}
		}
		out = append(out, ov)
	}
	return out, nil
}

// resolve matches table against the listed tables so only real table names
// reach the generated SQL.
func (i *Inspector) resolve(ctx context.Context, table string) (string, error) {
	names, err := i.ListTables(ctx)
	if err != nil {
		return "", err
	}
	for _, n := range names {
		if n == table {
			return n, nil
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, table) {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoSuchTable, table)
}

// normalize turns driver byte slices into strings for display.
func normalize(v any) any {
	switch x := v.(type) {
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format("2006-01-02")
		}
		return x.Format(time.RFC3339)
	}
	return v
}
