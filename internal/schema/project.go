package schema

import (
	"fmt"
	"math"
	"strings"
)

// Project lays the dataset's rows out in the table's destination column
// order. Extra source columns are dropped and missing values become nil.
// A non-nullable column absent from the dataset is an ErrMissingColumn.
func Project(t *TableSpec, ds *Dataset) ([][]any, error) {
	if ds == nil || len(ds.Rows) == 0 {
		return nil, nil
	}

	// destination column -> source key as spelled in the dataset
	sourceKey := make([]string, len(t.Columns))
	var missing []string
	for i, c := range t.Columns {
		key, ok := lookupColumn(ds, c.Name)
		if !ok {
			if !c.Nullable {
				missing = append(missing, c.Name)
			}
			continue
		}
		sourceKey[i] = key
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, t.Name, strings.Join(missing, ", "))
	}

	out := make([][]any, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		values := make([]any, len(t.Columns))
		for i, key := range sourceKey {
			if key == "" {
				continue
			}
			values[i] = normalizeMissing(row[key])
		}
		out = append(out, values)
	}
	return out, nil
}

func lookupColumn(ds *Dataset, name string) (string, bool) {
	for _, c := range ds.Columns {
		if c == name {
			return c, true
		}
	}
	for _, c := range ds.Columns {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// IsMissing reports whether v is one of the missing-value markers: nil or a
// floating point NaN.
func IsMissing(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

func normalizeMissing(v any) any {
	if IsMissing(v) {
		return nil
	}
	return v
}
