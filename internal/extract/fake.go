package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"order-etl/internal/schema"
)

var bikeCategories = []string{
	"Children Bicycles", "Comfort Bicycles", "Cruisers Bicycles",
	"Cyclocross Bicycles", "Electric Bikes", "Mountain Bikes", "Road Bikes",
}

var bikeModels = []string{"Townie", "Fuel EX", "Domane", "Marlin", "Verve", "Crockett", "Slash", "Precaliber"}

// FakeSource generates a consistent BikeStores dataset for offline runs.
// The same seed always yields the same data.
type FakeSource struct {
	Seed   int64
	Orders int

	once sync.Once
	data map[string]*schema.Dataset
}

func NewFakeSource(seed int64, orders int) *FakeSource {
	if orders <= 0 {
		orders = 50
	}
	return &FakeSource{Seed: seed, Orders: orders}
}

func (s *FakeSource) Kind() string { return "fake" }

func (s *FakeSource) Remote() bool { return false }

func (s *FakeSource) Fetch(ctx context.Context, name string) (*schema.Dataset, error) {
	s.once.Do(s.generate)
	ds, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("fake source has no dataset %q", name)
	}
	return ds, nil
}

func (s *FakeSource) generate() {
	f := gofakeit.New(s.Seed)
	data := make(map[string]*schema.Dataset)

	var brands []schema.Row
	brandNames := make([]string, 0, 9)
	for i := 1; i <= 9; i++ {
		name := f.Company()
		brandNames = append(brandNames, name)
		brands = append(brands, schema.Row{"brand_id": int64(i), "brand_name": name})
	}
	data[schema.TableBrands] = schema.NewDataset(schema.TableBrands, []string{"brand_id", "brand_name"}, brands)

	var categories []schema.Row
	for i, name := range bikeCategories {
		categories = append(categories, schema.Row{"category_id": int64(i + 1), "category_name": name})
	}
	data[schema.TableCategories] = schema.NewDataset(schema.TableCategories, []string{"category_id", "category_name"}, categories)

	const storeCount = 3
	var stores []schema.Row
	for i := 1; i <= storeCount; i++ {
		stores = append(stores, schema.Row{
			"store_id": int64(i), "store_name": f.City() + " Bikes",
			"phone": f.Phone(), "email": f.Email(), "street": f.Street(),
			"city": f.City(), "state": f.StateAbr(), "zip_code": f.Zip(),
		})
	}
	data[schema.TableStores] = schema.NewDataset(schema.TableStores, nil, stores)

	// managers first, so every manager_id points at an earlier row
	var staffs []schema.Row
	staffByStore := make(map[int64][]int64)
	nextStaff := int64(1)
	for store := int64(1); store <= storeCount; store++ {
		var manager any
		if store > 1 {
			manager = int64(1)
		}
		staffs = append(staffs, s.staffRow(f, nextStaff, store, manager))
		staffByStore[store] = append(staffByStore[store], nextStaff)
		nextStaff++
	}
	for store := int64(1); store <= storeCount; store++ {
		manager := staffByStore[store][0]
		for j := 0; j < 2; j++ {
			staffs = append(staffs, s.staffRow(f, nextStaff, store, manager))
			staffByStore[store] = append(staffByStore[store], nextStaff)
			nextStaff++
		}
	}
	data[schema.TableStaffs] = schema.NewDataset(schema.TableStaffs, nil, staffs)

	customerCount := s.Orders/2 + 1
	var customers []schema.Row
	for i := 1; i <= customerCount; i++ {
		var phone any
		if f.Bool() {
			phone = f.Phone()
		}
		customers = append(customers, schema.Row{
			"customer_id": int64(i), "first_name": f.FirstName(), "last_name": f.LastName(),
			"phone": phone, "email": f.Email(), "street": f.Street(),
			"city": f.City(), "state": f.StateAbr(), "zip_code": f.Zip(),
		})
	}
	data[schema.TableCustomers] = schema.NewDataset(schema.TableCustomers, nil, customers)

	const productCount = 20
	var products []schema.Row
	prices := make([]string, productCount+1)
	for i := 1; i <= productCount; i++ {
		brand := f.Number(1, len(brandNames))
		year := f.Number(2016, 2019)
		prices[i] = fmt.Sprintf("%.2f", f.Price(89.99, 11999.99))
		products = append(products, schema.Row{
			"product_id":   int64(i),
			"product_name": fmt.Sprintf("%s %s - %d", brandNames[brand-1], f.RandomString(bikeModels), year),
			"brand_id":     int64(brand),
			"category_id":  int64(f.Number(1, len(bikeCategories))),
			"model_year":   int64(year),
			"list_price":   prices[i],
		})
	}
	data[schema.TableProducts] = schema.NewDataset(schema.TableProducts, nil, products)

	var stocks []schema.Row
	for store := 1; store <= storeCount; store++ {
		for product := 1; product <= productCount; product++ {
			stocks = append(stocks, schema.Row{
				"store_id": int64(store), "product_id": int64(product), "quantity": int64(f.Number(0, 30)),
			})
		}
	}
	data[schema.TableStocks] = schema.NewDataset(schema.TableStocks, nil, stocks)

	start := time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2018, 12, 28, 0, 0, 0, 0, time.UTC)
	var orders, items []schema.Row
	for i := 1; i <= s.Orders; i++ {
		store := int64(f.Number(1, storeCount))
		staff := staffByStore[store][f.Number(0, len(staffByStore[store])-1)]
		status := int64(f.Number(1, 4))
		ordered := f.DateRange(start, end).Truncate(24 * time.Hour)

		var shipped any
		if status == 4 {
			shipped = ordered.AddDate(0, 0, f.Number(1, 3)).Format("02/01/2006")
		}
		orders = append(orders, schema.Row{
			"order_id":      int64(i),
			"customer_id":   int64(f.Number(1, customerCount)),
			"order_status":  status,
			"order_date":    ordered.Format("02/01/2006"),
			"required_date": ordered.AddDate(0, 0, 2).Format("02/01/2006"),
			"shipped_date":  shipped,
			"store_id":      store,
			"staff_id":      staff,
		})

		used := make(map[int]bool)
		lines := f.Number(1, 4)
		for item := 1; item <= lines; item++ {
			product := f.Number(1, productCount)
			if used[product] {
				continue
			}
			used[product] = true
			items = append(items, schema.Row{
				"order_id":   int64(i),
				"item_id":    int64(item),
				"product_id": int64(product),
				"quantity":   int64(f.Number(1, 2)),
				"list_price": prices[product],
				"discount":   f.RandomString([]string{"0.05", "0.07", "0.1", "0.2"}),
			})
		}
	}
	data[schema.TableOrders] = schema.NewDataset(schema.TableOrders, nil, orders)
	data[schema.TableOrderItems] = schema.NewDataset(schema.TableOrderItems, nil, items)

	s.data = data
}

func (s *FakeSource) staffRow(f *gofakeit.Faker, id, store int64, manager any) schema.Row {
	first := f.FirstName()
	return schema.Row{
		"staff_id":   id,
		"first_name": first,
		"last_name":  f.LastName(),
		"email":      fmt.Sprintf("%s.%d@bikes.example", first, id),
		"phone":      f.Phone(),
		"active":     int64(1),
		"store_id":   store,
		"manager_id": manager,
	}
}
