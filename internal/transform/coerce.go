package transform

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"order-etl/internal/schema"
)

// DateLayouts are tried in order when parsing text dates. The source API
// writes day/month/year.
var DateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Coerce converts a raw value to the Go type used for t:
// int64, decimal.Decimal, string, time.Time or bool. Missing values and
// empty strings become nil.
func Coerce(v any, t schema.ColumnType) (any, error) {
	if schema.IsMissing(v) {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if n, ok := v.(json.Number); ok {
		v = n.String()
	}

	switch t {
	case schema.Integer:
		return toInt(v)
	case schema.Numeric:
		return toDecimal(v)
	case schema.Date:
		return toDate(v)
	case schema.Boolean:
		return toBool(v)
	default:
		return cast.ToStringE(v)
	}
}

func toInt(v any) (any, error) {
	if s, ok := v.(string); ok {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i, nil
		}
	} else if i, err := cast.ToInt64E(v); err == nil {
		return i, nil
	}
	// "3.0" as written by tools that widen integer columns with gaps
	d, err := toDecimal(v)
	if err != nil {
		return nil, fmt.Errorf("not an integer: %v", v)
	}
	dec := d.(decimal.Decimal)
	if !dec.Equal(dec.Truncate(0)) {
		return nil, fmt.Errorf("not an integer: %v", v)
	}
	return dec.IntPart(), nil
}

func toDecimal(v any) (any, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return nil, fmt.Errorf("not a number: %q", x)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return nil, fmt.Errorf("not a number: %v", v)
	}
	return decimal.NewFromInt(i), nil
}

func toDate(v any) (any, error) {
	switch x := v.(type) {
	case time.Time:
		return truncateDay(x), nil
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range DateLayouts {
			if tm, err := time.Parse(layout, s); err == nil {
				return truncateDay(tm), nil
			}
		}
		return nil, fmt.Errorf("unrecognised date %q", x)
	}
	return nil, fmt.Errorf("unrecognised date %v", v)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func toBool(v any) (any, error) {
	if s, ok := v.(string); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("not a boolean: %q", s)
		}
		return b, nil
	}
	return cast.ToBoolE(v)
}
