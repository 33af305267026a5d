package extract_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"order-etl/internal/cache"
	"order-etl/internal/extract"
	"order-etl/internal/schema"
)

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `[{"order_id": 1, "order_date": "01/01/2016", "shipped_date": null}]`)
	}))
	defer srv.Close()

	src := extract.NewHTTPSource(srv.URL, time.Second)
	ds, err := src.Fetch(context.Background(), "orders")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if ds.Len() != 1 || !ds.HasColumn("order_date") {
		t.Fatalf("unexpected dataset %+v", ds)
	}
	if got := fmt.Sprint(ds.Rows[0]["order_id"]); got != "1" {
		t.Errorf("order_id = %s", got)
	}

	if _, err := src.Fetch(context.Background(), "missing"); err == nil {
		t.Error("expected error for 404")
	}
}

func failingServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestExtract_CacheFallback(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemory()
	if err := store.Put(ctx, cache.DatasetKey("orders"), []byte("order_id,order_date\n7,01/02/2016\n")); err != nil {
		t.Fatal(err)
	}

	ex := extract.NewExtractor(extract.NewHTTPSource(failingServer(t).URL, time.Second), store, []string{"orders"})
	res, err := ex.Extract(ctx)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(res.Degraded) != 1 || res.Degraded[0] != "orders" {
		t.Errorf("Degraded = %v", res.Degraded)
	}
	orders := res.Datasets["orders"]
	if orders.Len() != 1 || orders.Rows[0]["order_id"] != "7" {
		t.Errorf("cached rows = %+v", orders.Rows)
	}
}

func TestExtract_NoCacheFails(t *testing.T) {
	ex := extract.NewExtractor(extract.NewHTTPSource(failingServer(t).URL, time.Second), cache.NewMemory(), []string{"orders"})
	_, err := ex.Extract(context.Background())

	var extErr *extract.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected *ExtractionError, got %v", err)
	}
	if extErr.Dataset != "orders" {
		t.Errorf("Dataset = %s", extErr.Dataset)
	}
}

func TestExtract_WritesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"brand_id": 1, "brand_name": "Electra"}, {"brand_id": 2, "brand_name": "Haro"}]`)
	}))
	defer srv.Close()

	ctx := context.Background()
	store, err := cache.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ex := extract.NewExtractor(extract.NewHTTPSource(srv.URL, time.Second), store, []string{"brands"})
	if _, err := ex.Extract(ctx); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), "brands.csv"))
	if err != nil {
		t.Fatalf("cache file missing: %v", err)
	}
	want := "brand_id,brand_name\n1,Electra\n2,Haro\n"
	if string(data) != want {
		t.Errorf("cache = %q, want %q", data, want)
	}
}

func TestCSVSource(t *testing.T) {
	dir := t.TempDir()
	content := "\ufeffcustomer_id;first_name;phone\n1;Debra;\n2;Kasha;555\n"
	if err := os.WriteFile(filepath.Join(dir, "customers.csv"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &extract.CSVSource{Dir: dir, Delimiter: ';'}
	ds, err := src.Fetch(context.Background(), "customers")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !ds.HasColumn("customer_id") {
		t.Errorf("BOM not stripped: %v", ds.Columns)
	}
	if ds.Rows[0]["phone"] != nil || ds.Rows[1]["phone"] != "555" {
		t.Errorf("rows = %+v", ds.Rows)
	}
}

func TestEncodeCSV_RoundTripsThroughDecode(t *testing.T) {
	day := time.Date(2016, 1, 2, 0, 0, 0, 0, time.UTC)
	ds := schema.NewDataset("orders", []string{"order_id", "order_date", "shipped_date"}, []schema.Row{
		{"order_id": int64(1), "order_date": day, "shipped_date": nil},
	})
	data, err := extract.EncodeCSV(ds)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "1,2016-01-02,\n") {
		t.Errorf("encoded = %q", data)
	}

	back, err := extract.DecodeCSV("orders", strings.NewReader(string(data)), ',')
	if err != nil {
		t.Fatal(err)
	}
	if back.Rows[0]["shipped_date"] != nil || back.Rows[0]["order_date"] != "2016-01-02" {
		t.Errorf("decoded = %+v", back.Rows[0])
	}
}

func TestFakeSource_Consistent(t *testing.T) {
	ctx := context.Background()
	a := extract.NewFakeSource(42, 20)
	b := extract.NewFakeSource(42, 20)

	for _, name := range extract.Datasets {
		da, err := a.Fetch(ctx, name)
		if err != nil {
			t.Fatalf("Fetch(%s) error = %v", name, err)
		}
		db, _ := b.Fetch(ctx, name)
		if da.Len() == 0 || da.Len() != db.Len() {
			t.Errorf("%s: %d vs %d rows", name, da.Len(), db.Len())
		}
	}

	orders, _ := a.Fetch(ctx, schema.TableOrders)
	if orders.Len() != 20 {
		t.Errorf("orders = %d, want 20", orders.Len())
	}

	// every manager precedes the staff that reference it
	staffs, _ := a.Fetch(ctx, schema.TableStaffs)
	seen := make(map[int64]bool)
	for _, r := range staffs.Rows {
		if m, ok := r["manager_id"].(int64); ok && !seen[m] {
			t.Errorf("staff %v references manager %d before it is defined", r["staff_id"], m)
		}
		seen[r["staff_id"].(int64)] = true
	}
}
