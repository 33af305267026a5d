// Package transform turns raw extracted datasets into the typed relational
// tables of the registry and derives the order summary.
package transform

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"order-etl/internal/schema"
)

// Relational coerces every raw dataset named in reg to its table's column
// types. Undeclared source columns are dropped. Datasets reg does not know
// are ignored; tables with no raw dataset are absent from the result.
func Relational(raw map[string]*schema.Dataset, reg *schema.Registry) (map[string]*schema.Dataset, error) {
	out := make(map[string]*schema.Dataset, len(raw))
	for _, t := range reg.LoadOrder() {
		ds, ok := raw[t.Name]
		if !ok {
			continue
		}
		typed, err := Table(t, ds)
		if err != nil {
			return nil, err
		}
		out[t.Name] = typed
	}
	return out, nil
}

// Table coerces ds to t's declared columns.
func Table(t *schema.TableSpec, ds *schema.Dataset) (*schema.Dataset, error) {
	var cols []*schema.Column
	source := make(map[string]string)
	for _, c := range t.Columns {
		for _, name := range ds.Columns {
			if strings.EqualFold(name, c.Name) {
				cols = append(cols, c)
				source[c.Name] = name
				break
			}
		}
	}

	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}

	rows := make([]schema.Row, 0, len(ds.Rows))
	for i, r := range ds.Rows {
		row := make(schema.Row, len(cols))
		for _, c := range cols {
			v, err := Coerce(r[source[c.Name]], c.Type)
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", t.Name, i+1, c.Name, err)
			}
			row[c.Name] = v
		}
		rows = append(rows, row)
	}
	return schema.NewDataset(t.Name, names, rows), nil
}

// OrderSummary joins orders with their line totals and customer names.
// order_total is the sum of quantity * list_price * (1 - discount) over the
// order's items, 0 when it has none. customer_name is nil when the customer
// is unknown.
func OrderSummary(tables map[string]*schema.Dataset) (*schema.Dataset, error) {
	orders, items, customers := tables[schema.TableOrders], tables[schema.TableOrderItems], tables[schema.TableCustomers]
	if orders == nil || items == nil || customers == nil {
		return nil, fmt.Errorf("order summary needs %s, %s and %s",
			schema.TableOrders, schema.TableOrderItems, schema.TableCustomers)
	}

	totals := make(map[int64]decimal.Decimal)
	for i, r := range items.Rows {
		id, ok := r["order_id"].(int64)
		if !ok {
			return nil, fmt.Errorf("%s row %d: order_id is not an integer", schema.TableOrderItems, i+1)
		}
		qty, err := decimalField(r, "quantity")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", schema.TableOrderItems, i+1, err)
		}
		price, err := decimalField(r, "list_price")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", schema.TableOrderItems, i+1, err)
		}
		discount, err := decimalField(r, "discount")
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", schema.TableOrderItems, i+1, err)
		}
		line := qty.Mul(price).Mul(decimal.NewFromInt(1).Sub(discount))
		totals[id] = totals[id].Add(line)
	}

	names := make(map[int64]string)
	for _, r := range customers.Rows {
		id, ok := r["customer_id"].(int64)
		if !ok {
			continue
		}
		first, _ := r["first_name"].(string)
		last, _ := r["last_name"].(string)
		names[id] = strings.TrimSpace(first + " " + last)
	}

	rows := make([]schema.Row, 0, len(orders.Rows))
	for _, r := range orders.Rows {
		id, ok := r["order_id"].(int64)
		if !ok {
			return nil, fmt.Errorf("%s: order_id is not an integer: %v", schema.TableOrders, r["order_id"])
		}
		var name any
		if cid, ok := r["customer_id"].(int64); ok {
			if n, found := names[cid]; found {
				name = n
			}
		}
		rows = append(rows, schema.Row{
			"order_id":      id,
			"order_date":    r["order_date"],
			"customer_id":   r["customer_id"],
			"customer_name": name,
			"order_total":   totals[id],
		})
	}
	return schema.NewDataset(schema.TableOrderSummary, schema.OrderSummary.ColumnNames(), rows), nil
}

// decimalField reads a numeric field; nil counts as zero.
func decimalField(r schema.Row, name string) (decimal.Decimal, error) {
	if r[name] == nil {
		return decimal.Zero, nil
	}
	v, err := toDecimal(r[name])
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", name, err)
	}
	return v.(decimal.Decimal), nil
}
