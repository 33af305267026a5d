package transform_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"order-etl/internal/schema"
	"order-etl/internal/transform"
)

func TestOrderSummary_Total(t *testing.T) {
	raw := map[string]*schema.Dataset{
		schema.TableOrders: schema.NewDataset(schema.TableOrders, nil, []schema.Row{
			{"order_id": "1", "customer_id": "10", "order_status": "4", "order_date": "01/01/2016",
				"required_date": "03/01/2016", "shipped_date": "", "store_id": "1", "staff_id": "2"},
		}),
		schema.TableOrderItems: schema.NewDataset(schema.TableOrderItems, nil, []schema.Row{
			{"order_id": "1", "item_id": "1", "product_id": "1", "quantity": "2", "list_price": "10.00", "discount": "0.1"},
			{"order_id": "1", "item_id": "2", "product_id": "2", "quantity": "1", "list_price": "5.00", "discount": "0"},
		}),
		schema.TableCustomers: schema.NewDataset(schema.TableCustomers, nil, []schema.Row{
			{"customer_id": "10", "first_name": "Debra", "last_name": "Burks"},
		}),
	}

	tables, err := transform.Relational(raw, schema.BikeStores)
	if err != nil {
		t.Fatalf("Relational() error = %v", err)
	}
	summary, err := transform.OrderSummary(tables)
	if err != nil {
		t.Fatalf("OrderSummary() error = %v", err)
	}

	if summary.Len() != 1 {
		t.Fatalf("got %d rows, want 1", summary.Len())
	}
	row := summary.Rows[0]
	total := row["order_total"].(decimal.Decimal)
	if !total.Equal(decimal.RequireFromString("23.0")) {
		t.Errorf("order_total = %s, want 23.0", total)
	}
	if row["customer_name"] != "Debra Burks" {
		t.Errorf("customer_name = %v", row["customer_name"])
	}
	if d := row["order_date"].(time.Time); d.Month() != time.January || d.Day() != 1 {
		t.Errorf("order_date = %v, want 2016-01-01 (day/month/year)", d)
	}
}

func TestOrderSummary_NoItemsAndUnknownCustomer(t *testing.T) {
	tables := map[string]*schema.Dataset{
		schema.TableOrders: schema.NewDataset(schema.TableOrders, nil, []schema.Row{
			{"order_id": int64(5), "customer_id": int64(99), "order_date": nil},
			{"order_id": int64(6), "customer_id": nil, "order_date": nil},
		}),
		schema.TableOrderItems: schema.NewDataset(schema.TableOrderItems, nil, nil),
		schema.TableCustomers: schema.NewDataset(schema.TableCustomers, nil, []schema.Row{
			{"customer_id": int64(1), "first_name": nil, "last_name": "Solo"},
		}),
	}

	summary, err := transform.OrderSummary(tables)
	if err != nil {
		t.Fatalf("OrderSummary() error = %v", err)
	}
	for _, row := range summary.Rows {
		if !row["order_total"].(decimal.Decimal).IsZero() {
			t.Errorf("order %v total = %v, want 0", row["order_id"], row["order_total"])
		}
		if row["customer_name"] != nil {
			t.Errorf("order %v customer_name = %v, want nil", row["order_id"], row["customer_name"])
		}
	}
	if got := summary.Columns; len(got) != 5 || got[4] != "order_total" {
		t.Errorf("columns = %v", got)
	}
}

func TestOrderSummary_MissingInput(t *testing.T) {
	if _, err := transform.OrderSummary(map[string]*schema.Dataset{}); err == nil {
		t.Error("expected error when inputs are missing")
	}
}

func TestCoerce(t *testing.T) {
	cases := []struct {
		in   any
		typ  schema.ColumnType
		want any
	}{
		{"42", schema.Integer, int64(42)},
		{"08", schema.Integer, int64(8)},
		{"3.0", schema.Integer, int64(3)},
		{json.Number("7"), schema.Integer, int64(7)},
		{float64(9), schema.Integer, int64(9)},
		{"", schema.Integer, nil},
		{nil, schema.Text, nil},
		{"1", schema.Boolean, true},
		{"false", schema.Boolean, false},
		{int64(0), schema.Boolean, false},
		{12345, schema.Text, "12345"},
		{"2016-01-02", schema.Date, time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"02/01/2016", schema.Date, time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"2016-01-02T10:00:00Z", schema.Date, time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		got, err := transform.Coerce(c.in, c.typ)
		if err != nil {
			t.Errorf("Coerce(%v, %s) error = %v", c.in, c.typ, err)
			continue
		}
		if tm, ok := c.want.(time.Time); ok {
			if g, ok := got.(time.Time); !ok || !g.Equal(tm) {
				t.Errorf("Coerce(%v, %s) = %v, want %v", c.in, c.typ, got, c.want)
			}
			continue
		}
		if got != c.want {
			t.Errorf("Coerce(%v, %s) = %#v, want %#v", c.in, c.typ, got, c.want)
		}
	}

	num, err := transform.Coerce("379.99", schema.Numeric)
	if err != nil || !num.(decimal.Decimal).Equal(decimal.RequireFromString("379.99")) {
		t.Errorf("Coerce numeric = %v, %v", num, err)
	}

	for _, bad := range []struct {
		in  any
		typ schema.ColumnType
	}{
		{"abc", schema.Integer},
		{"3.5", schema.Integer},
		{"31/31/2016", schema.Date},
		{"maybe", schema.Boolean},
		{"1,5", schema.Numeric},
	} {
		if _, err := transform.Coerce(bad.in, bad.typ); err == nil {
			t.Errorf("Coerce(%v, %s) expected error", bad.in, bad.typ)
		}
	}
}

func TestRelational_DropsUndeclaredColumns(t *testing.T) {
	raw := map[string]*schema.Dataset{
		schema.TableBrands: schema.NewDataset(schema.TableBrands, nil, []schema.Row{
			{"brand_id": "1", "brand_name": "Trek", "internal_code": "x"},
		}),
		"unrelated": schema.NewDataset("unrelated", nil, []schema.Row{{"a": 1}}),
	}
	tables, err := transform.Relational(raw, schema.BikeStores)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tables["unrelated"]; ok {
		t.Error("unknown dataset must be ignored")
	}
	brands := tables[schema.TableBrands]
	if brands.HasColumn("internal_code") {
		t.Errorf("columns = %v", brands.Columns)
	}
	if brands.Rows[0]["brand_id"] != int64(1) {
		t.Errorf("brand_id = %#v", brands.Rows[0]["brand_id"])
	}
}

func TestRelational_ReportsBadValue(t *testing.T) {
	raw := map[string]*schema.Dataset{
		schema.TableStocks: schema.NewDataset(schema.TableStocks, nil, []schema.Row{
			{"store_id": "1", "product_id": "one", "quantity": "3"},
		}),
	}
	if _, err := transform.Relational(raw, schema.BikeStores); err == nil {
		t.Error("expected coercion error")
	}
}
