package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"order-etl/internal/connect"
	"order-etl/internal/dialect"
	"order-etl/internal/schema"
)

// OpenTestDB returns a file-backed SQLite database with foreign keys enforced.
func OpenTestDB(t *testing.T) (*sql.DB, dialect.Dialect) {
	t.Helper()
	d := &dialect.SqliteDialect{}
	cfg := connect.ConnectionConfig{Database: filepath.Join(t.TempDir(), "etl.db")}
	db, err := connect.Open(context.Background(), d, cfg, connect.Options{AutoCreate: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, d
}

func day(s string) time.Time {
	tm, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return tm
}

// BikeStoresFixture returns a small consistent dataset for every registry
// table. stores holds ids 1..storeCount.
func BikeStoresFixture(storeCount int) map[string]*schema.Dataset {
	var stores, staffs []schema.Row
	for i := 1; i <= storeCount; i++ {
		stores = append(stores, schema.Row{
			"store_id": int64(i), "store_name": "Store " + string(rune('A'+i-1)),
			"phone": nil, "email": "store@example.com", "street": "1 Main St",
			"city": "Springfield", "state": "NY", "zip_code": "10001",
		})
	}
	// managers precede the staff that reference them
	staffs = append(staffs,
		schema.Row{"staff_id": int64(1), "first_name": "Fabiola", "last_name": "Jackson",
			"email": "fabiola@example.com", "phone": "555-0100", "active": true,
			"store_id": int64(1), "manager_id": nil},
		schema.Row{"staff_id": int64(2), "first_name": "Mireya", "last_name": "Copeland",
			"email": "mireya@example.com", "phone": nil, "active": true,
			"store_id": int64(1), "manager_id": int64(1)},
		schema.Row{"staff_id": int64(3), "first_name": "Genna", "last_name": "Serrano",
			"email": "genna@example.com", "phone": nil, "active": false,
			"store_id": int64(1), "manager_id": int64(2)},
	)

	return map[string]*schema.Dataset{
		schema.TableBrands: schema.NewDataset(schema.TableBrands, nil, []schema.Row{
			{"brand_id": int64(1), "brand_name": "Electra"},
			{"brand_id": int64(2), "brand_name": "Trek"},
		}),
		schema.TableCategories: schema.NewDataset(schema.TableCategories, nil, []schema.Row{
			{"category_id": int64(1), "category_name": "Cruisers"},
			{"category_id": int64(2), "category_name": "Mountain"},
		}),
		schema.TableCustomers: schema.NewDataset(schema.TableCustomers, nil, []schema.Row{
			{"customer_id": int64(1), "first_name": "Debra", "last_name": "Burks", "email": "debra@example.com"},
			{"customer_id": int64(2), "first_name": "Kasha", "last_name": "Todd", "email": nil},
		}),
		schema.TableStores: schema.NewDataset(schema.TableStores, nil, stores),
		schema.TableStaffs: schema.NewDataset(schema.TableStaffs, nil, staffs),
		schema.TableProducts: schema.NewDataset(schema.TableProducts, nil, []schema.Row{
			{"product_id": int64(1), "product_name": "Trek 820", "brand_id": int64(2),
				"category_id": int64(2), "model_year": int64(2016), "list_price": decimal.RequireFromString("379.99")},
			{"product_id": int64(2), "product_name": "Electra Townie", "brand_id": int64(1),
				"category_id": int64(1), "model_year": int64(2017), "list_price": decimal.RequireFromString("599.99")},
		}),
		schema.TableOrders: schema.NewDataset(schema.TableOrders, nil, []schema.Row{
			{"order_id": int64(1), "customer_id": int64(1), "order_status": int64(4),
				"order_date": day("2016-01-01"), "required_date": day("2016-01-03"),
				"shipped_date": day("2016-01-03"), "store_id": int64(1), "staff_id": int64(2)},
			{"order_id": int64(2), "customer_id": int64(2), "order_status": int64(1),
				"order_date": day("2016-01-02"), "required_date": day("2016-01-04"),
				"shipped_date": nil, "store_id": int64(1), "staff_id": int64(3)},
		}),
		schema.TableOrderItems: schema.NewDataset(schema.TableOrderItems, nil, []schema.Row{
			{"order_id": int64(1), "item_id": int64(1), "product_id": int64(1), "quantity": int64(1),
				"list_price": decimal.RequireFromString("379.99"), "discount": decimal.RequireFromString("0.2")},
			{"order_id": int64(1), "item_id": int64(2), "product_id": int64(2), "quantity": int64(2),
				"list_price": decimal.RequireFromString("599.99"), "discount": decimal.RequireFromString("0.07")},
			{"order_id": int64(2), "item_id": int64(1), "product_id": int64(2), "quantity": int64(1),
				"list_price": decimal.RequireFromString("599.99"), "discount": decimal.RequireFromString("0")},
		}),
		schema.TableStocks: schema.NewDataset(schema.TableStocks, nil, []schema.Row{
			{"store_id": int64(1), "product_id": int64(1), "quantity": int64(27)},
			{"store_id": int64(1), "product_id": int64(2), "quantity": nil},
		}),
	}
}

// CountRows returns the row count of every registry table.
func CountRows(t *testing.T, db *sql.DB) map[string]int {
	t.Helper()
	counts := make(map[string]int)
	for _, name := range schema.BikeStores.Names() {
		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM "` + name + `"`).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		counts[name] = n
	}
	return counts
}

// Snapshot returns every registry table's rows, ordered by primary key and
// rendered as text, for comparing database contents between loads.
func Snapshot(t *testing.T, db *sql.DB) map[string][]string {
	t.Helper()
	snap := make(map[string][]string)
	for _, tbl := range schema.BikeStores.Tables() {
		keys := make([]string, len(tbl.PrimaryKey))
		for i, k := range tbl.PrimaryKey {
			keys[i] = `"` + k + `"`
		}
		rows, err := db.Query(`SELECT * FROM "` + tbl.Name + `" ORDER BY ` + strings.Join(keys, ", "))
		if err != nil {
			t.Fatalf("snapshot %s: %v", tbl.Name, err)
		}
		cols, err := rows.Columns()
		if err != nil {
			t.Fatal(err)
		}
		for rows.Next() {
			values := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				t.Fatalf("snapshot %s: %v", tbl.Name, err)
			}
			snap[tbl.Name] = append(snap[tbl.Name], fmt.Sprint(values...))
		}
		if err := rows.Err(); err != nil {
			t.Fatal(err)
		}
		rows.Close()
	}
	return snap
}
