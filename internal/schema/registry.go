package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrCycle         = errors.New("cyclic table dependencies")
	ErrUnknownTable  = errors.New("unknown table")
	ErrMissingColumn = errors.New("required column missing")
)

// Registry is the static description of the destination schema. The load
// order is computed once, when the registry is built.
type Registry struct {
	tables []*TableSpec
	byName map[string]*TableSpec
	order  []*TableSpec
}

// NewRegistry validates the declared tables and resolves their load order.
// A dependency cycle is reported as ErrCycle.
func NewRegistry(tables ...*TableSpec) (*Registry, error) {
	r := &Registry{byName: make(map[string]*TableSpec, len(tables))}

	for _, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table with empty name")
		}
		key := strings.ToLower(t.Name)
		if _, dup := r.byName[key]; dup {
			return nil, fmt.Errorf("table %s declared twice", t.Name)
		}
		if len(t.Columns) == 0 {
			return nil, fmt.Errorf("table %s has no columns", t.Name)
		}
		r.byName[key] = t
		r.tables = append(r.tables, t)
	}

	for _, t := range r.tables {
		if err := r.validate(t); err != nil {
			return nil, err
		}
	}

	order, err := sortByDependencies(r.tables)
	if err != nil {
		return nil, err
	}
	r.order = order
	return r, nil
}

// MustNewRegistry is NewRegistry for package-level declarations; it panics on
// an invalid or cyclic declaration so the process fails at startup.
func MustNewRegistry(tables ...*TableSpec) *Registry {
	r, err := NewRegistry(tables...)
	if err != nil {
		panic(fmt.Sprintf("invalid table registry: %v", err))
	}
	return r
}

func (r *Registry) validate(t *TableSpec) error {
	for _, dep := range t.DependsOn {
		if strings.EqualFold(dep, t.Name) {
			return fmt.Errorf("table %s depends on itself", t.Name)
		}
		if _, ok := r.byName[strings.ToLower(dep)]; !ok {
			return fmt.Errorf("table %s depends on %w %s", t.Name, ErrUnknownTable, dep)
		}
	}
	for _, pk := range t.PrimaryKey {
		if _, ok := t.Column(pk); !ok {
			return fmt.Errorf("table %s: primary key column %s not declared", t.Name, pk)
		}
	}
	if t.Identity != "" {
		c, ok := t.Column(t.Identity)
		if !ok || c.Type != Integer {
			return fmt.Errorf("table %s: identity column %s must be a declared integer column", t.Name, t.Identity)
		}
	}
	for _, fk := range t.ForeignKeys {
		if _, ok := t.Column(fk.Column); !ok {
			return fmt.Errorf("table %s: foreign key column %s not declared", t.Name, fk.Column)
		}
		// Self references are allowed and do not take part in ordering.
		if strings.EqualFold(fk.RefTable, t.Name) {
			continue
		}
		if !containsFold(t.DependsOn, fk.RefTable) {
			return fmt.Errorf("table %s references %s without declaring the dependency", t.Name, fk.RefTable)
		}
	}
	return nil
}

// LoadOrder returns the tables so that every table appears after all the
// tables it depends on.
func (r *Registry) LoadOrder() []*TableSpec {
	out := make([]*TableSpec, len(r.order))
	copy(out, r.order)
	return out
}

// Tables returns the tables in declaration order.
func (r *Registry) Tables() []*TableSpec {
	out := make([]*TableSpec, len(r.tables))
	copy(out, r.tables)
	return out
}

// Table returns a table by name (case-insensitive).
func (r *Registry) Table(name string) (*TableSpec, bool) {
	t, ok := r.byName[strings.ToLower(name)]
	return t, ok
}

// ColumnsFor returns the destination columns of a table in destination order.
func (r *Registry) ColumnsFor(table string) ([]string, error) {
	t, ok := r.Table(table)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return t.ColumnNames(), nil
}

// Names returns the table names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for _, t := range r.tables {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// sortByDependencies repeatedly takes every table whose dependencies are
// already placed. Ties keep declaration order, so the result is deterministic.
func sortByDependencies(tables []*TableSpec) ([]*TableSpec, error) {
	var sorted []*TableSpec
	processed := make(map[string]bool)

	for len(sorted) < len(tables) {
		added := false

		for _, t := range tables {
			key := strings.ToLower(t.Name)
			if processed[key] {
				continue
			}

			allDepsProcessed := true
			for _, dep := range t.DependsOn {
				if !processed[strings.ToLower(dep)] {
					allDepsProcessed = false
					break
				}
			}

			if allDepsProcessed {
				sorted = append(sorted, t)
				processed[key] = true
				added = true
			}
		}

		if !added {
			var stuck []string
			for _, t := range tables {
				if !processed[strings.ToLower(t.Name)] {
					stuck = append(stuck, t.Name)
				}
			}
			return nil, fmt.Errorf("%w among: %s", ErrCycle, strings.Join(stuck, ", "))
		}
	}

	return sorted, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
