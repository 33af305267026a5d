package dialect

import (
	"fmt"
	"strings"

	"order-etl/internal/schema"
)

// GeneratePlaceholders is a helper function to create a slice of placeholder strings.
// It takes the number of placeholders needed, the index of the first one and a
// function that returns the placeholder for a given index.
// It returns a comma-separated string of the generated placeholders.
func GeneratePlaceholders(count, offset int, placeholderFunc func(int) string) string {
	placeholders := make([]string, count)
	for i := 0; i < count; i++ {
		placeholders[i] = placeholderFunc(offset + i)
	}
	return strings.Join(placeholders, ", ")
}

// BatchRows returns how many rows fit in one INSERT for a table of width cols.
// A positive override is honoured but never exceeds the dialect's limits.
func BatchRows(d Dialect, cols, override int) int {
	if cols <= 0 {
		return 1
	}
	n := d.MaxParams() / cols
	if m := d.MaxRowsPerInsert(); m > 0 && n > m {
		n = m
	}
	if override > 0 && override < n {
		n = override
	}
	if n < 1 {
		n = 1
	}
	return n
}

func quoteAll(names []string, quote func(string) string) string {
	q := make([]string, len(names))
	for i, n := range names {
		q[i] = quote(n)
	}
	return strings.Join(q, ", ")
}

// multiRowInsert renders INSERT INTO t (cols) VALUES (...), (...).
func multiRowInsert(d Dialect, table string, cols []string, rows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", d.QuoteIdentifier(table), quoteAll(cols, d.QuoteIdentifier))
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		b.WriteString(GeneratePlaceholders(len(cols), r*len(cols), d.Placeholder))
		b.WriteString(")")
	}
	return b.String()
}

// deleteInReverse empties tables children first so no foreign key is violated.
// Nullable self references are cleared first for servers that check
// constraints row by row.
func deleteInReverse(d Dialect, tables []*schema.TableSpec) []string {
	queries := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		t := tables[i]
		for _, fk := range t.ForeignKeys {
			if !strings.EqualFold(fk.RefTable, t.Name) {
				continue
			}
			if c, ok := t.Column(fk.Column); ok && c.Nullable {
				queries = append(queries, fmt.Sprintf("UPDATE %s SET %s = NULL",
					d.QuoteIdentifier(t.Name), d.QuoteIdentifier(c.Name)))
			}
		}
		queries = append(queries, fmt.Sprintf("DELETE FROM %s", d.QuoteIdentifier(t.Name)))
	}
	return queries
}

// columnDef renders one column definition; identity marks the table's
// auto-generated column.
type columnDef func(c *schema.Column, identity bool) string

// buildCreateTable renders CREATE TABLE with primary and foreign keys.
// inlineIdentityKey skips the table-level PRIMARY KEY when the identity
// column definition already declares it (SQLite AUTOINCREMENT).
func buildCreateTable(d Dialect, t *schema.TableSpec, def columnDef, inlineIdentityKey bool) string {
	var parts []string
	for _, c := range t.Columns {
		identity := t.HasIdentity() && strings.EqualFold(c.Name, t.Identity)
		parts = append(parts, d.QuoteIdentifier(c.Name)+" "+def(c, identity))
	}
	if len(t.PrimaryKey) > 0 && !(inlineIdentityKey && t.HasIdentity()) {
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", quoteAll(t.PrimaryKey, d.QuoteIdentifier)))
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)",
			d.QuoteIdentifier(fk.Column), d.QuoteIdentifier(fk.RefTable), d.QuoteIdentifier(fk.RefColumn)))
	}
	return fmt.Sprintf("CREATE TABLE %s (\n  %s\n)", d.QuoteIdentifier(t.Name), strings.Join(parts, ",\n  "))
}

func nullability(c *schema.Column) string {
	if c.Nullable {
		return " NULL"
	}
	return " NOT NULL"
}
