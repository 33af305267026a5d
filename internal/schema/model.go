package schema

import "strings"

// ColumnType is the logical type of a destination column.
// Dialects map it to a concrete SQL type.
type ColumnType int

const (
	Integer ColumnType = iota
	Numeric
	Text
	Date
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "integer"
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Date:
		return "date"
	case Boolean:
		return "boolean"
	default:
		return "unknown"
	}
}

type TableSpec struct {
	Name        string
	Columns     []*Column
	PrimaryKey  []string
	ForeignKeys []*ForeignKey
	DependsOn   []string // tables whose rows must exist first
	Identity    string   // auto-generated integer column, "" if none
}

type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// ColumnNames returns the declared column names in destination order.
func (t *TableSpec) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name (case-insensitive).
func (t *TableSpec) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return nil, false
}

func (t *TableSpec) HasIdentity() bool {
	return t.Identity != ""
}

// Row maps a column name to a scalar value: int64, float64, string, bool,
// time.Time, decimal.Decimal or nil.
type Row map[string]any

// Dataset is a named table of rows held in memory between extraction and load.
type Dataset struct {
	Name    string
	Columns []string
	Rows    []Row
}

// NewDataset builds a dataset and derives its column list from the rows when
// columns is empty.
func NewDataset(name string, columns []string, rows []Row) *Dataset {
	ds := &Dataset{Name: name, Columns: columns, Rows: rows}
	if len(ds.Columns) == 0 {
		ds.Columns = deriveColumns(rows)
	}
	return ds
}

// HasColumn reports whether the dataset carries the named column.
func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

func deriveColumns(rows []Row) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range rows {
		for _, k := range sortedKeys(r) {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}

// LoadResult reports one table of a load, in dependency order.
type LoadResult struct {
	TableName string
	Target    int
	Actual    int
	Status    string
	ErrorMsg  string
}
