package schema

// Dataset names produced by the source reader.
const (
	TableOrders       = "orders"
	TableOrderItems   = "order_items"
	TableCustomers    = "customers"
	TableProducts     = "products"
	TableBrands       = "brands"
	TableCategories   = "categories"
	TableStores       = "stores"
	TableStaffs       = "staffs"
	TableStocks       = "stocks"
	TableOrderSummary = "order_summary"
)

// BikeStores is the destination schema of the pipeline. Declaration order
// follows the source dataset list; the load order is derived from DependsOn.
var BikeStores = MustNewRegistry(
	&TableSpec{
		Name: TableOrders,
		Columns: []*Column{
			{Name: "order_id", Type: Integer},
			{Name: "customer_id", Type: Integer, Nullable: true},
			{Name: "order_status", Type: Integer},
			{Name: "order_date", Type: Date},
			{Name: "required_date", Type: Date},
			{Name: "shipped_date", Type: Date, Nullable: true},
			{Name: "store_id", Type: Integer},
			{Name: "staff_id", Type: Integer},
		},
		PrimaryKey: []string{"order_id"},
		ForeignKeys: []*ForeignKey{
			{Column: "customer_id", RefTable: TableCustomers, RefColumn: "customer_id"},
			{Column: "store_id", RefTable: TableStores, RefColumn: "store_id"},
			{Column: "staff_id", RefTable: TableStaffs, RefColumn: "staff_id"},
		},
		DependsOn: []string{TableCustomers, TableStores, TableStaffs},
	},
	&TableSpec{
		Name: TableOrderItems,
		Columns: []*Column{
			{Name: "order_id", Type: Integer},
			{Name: "item_id", Type: Integer},
			{Name: "product_id", Type: Integer},
			{Name: "quantity", Type: Integer},
			{Name: "list_price", Type: Numeric},
			{Name: "discount", Type: Numeric},
		},
		PrimaryKey: []string{"order_id", "item_id"},
		ForeignKeys: []*ForeignKey{
			{Column: "order_id", RefTable: TableOrders, RefColumn: "order_id"},
			{Column: "product_id", RefTable: TableProducts, RefColumn: "product_id"},
		},
		DependsOn: []string{TableOrders, TableProducts},
	},
	&TableSpec{
		Name: TableCustomers,
		Columns: []*Column{
			{Name: "customer_id", Type: Integer},
			{Name: "first_name", Type: Text},
			{Name: "last_name", Type: Text},
			{Name: "phone", Type: Text, Nullable: true},
			{Name: "email", Type: Text, Nullable: true},
			{Name: "street", Type: Text, Nullable: true},
			{Name: "city", Type: Text, Nullable: true},
			{Name: "state", Type: Text, Nullable: true},
			{Name: "zip_code", Type: Text, Nullable: true},
		},
		PrimaryKey: []string{"customer_id"},
	},
	&TableSpec{
		Name: TableProducts,
		Columns: []*Column{
			{Name: "product_id", Type: Integer},
			{Name: "product_name", Type: Text},
			{Name: "brand_id", Type: Integer},
			{Name: "category_id", Type: Integer},
			{Name: "model_year", Type: Integer},
			{Name: "list_price", Type: Numeric},
		},
		PrimaryKey: []string{"product_id"},
		ForeignKeys: []*ForeignKey{
			{Column: "brand_id", RefTable: TableBrands, RefColumn: "brand_id"},
			{Column: "category_id", RefTable: TableCategories, RefColumn: "category_id"},
		},
		DependsOn: []string{TableBrands, TableCategories},
	},
	&TableSpec{
		Name: TableBrands,
		Columns: []*Column{
			{Name: "brand_id", Type: Integer},
			{Name: "brand_name", Type: Text},
		},
		PrimaryKey: []string{"brand_id"},
	},
	&TableSpec{
		Name: TableCategories,
		Columns: []*Column{
			{Name: "category_id", Type: Integer},
			{Name: "category_name", Type: Text},
		},
		PrimaryKey: []string{"category_id"},
	},
	&TableSpec{
		Name: TableStores,
		Columns: []*Column{
			{Name: "store_id", Type: Integer},
			{Name: "store_name", Type: Text},
			{Name: "phone", Type: Text, Nullable: true},
			{Name: "email", Type: Text, Nullable: true},
			{Name: "street", Type: Text, Nullable: true},
			{Name: "city", Type: Text, Nullable: true},
			{Name: "state", Type: Text, Nullable: true},
			{Name: "zip_code", Type: Text, Nullable: true},
		},
		PrimaryKey: []string{"store_id"},
		Identity:   "store_id",
	},
	&TableSpec{
		Name: TableStaffs,
		Columns: []*Column{
			{Name: "staff_id", Type: Integer},
			{Name: "first_name", Type: Text},
			{Name: "last_name", Type: Text},
			{Name: "email", Type: Text},
			{Name: "phone", Type: Text, Nullable: true},
			{Name: "active", Type: Boolean},
			{Name: "store_id", Type: Integer},
			{Name: "manager_id", Type: Integer, Nullable: true},
		},
		PrimaryKey: []string{"staff_id"},
		ForeignKeys: []*ForeignKey{
			{Column: "store_id", RefTable: TableStores, RefColumn: "store_id"},
			{Column: "manager_id", RefTable: TableStaffs, RefColumn: "staff_id"},
		},
		DependsOn: []string{TableStores},
		Identity:  "staff_id",
	},
	&TableSpec{
		Name: TableStocks,
		Columns: []*Column{
			{Name: "store_id", Type: Integer},
			{Name: "product_id", Type: Integer},
			{Name: "quantity", Type: Integer, Nullable: true},
		},
		PrimaryKey: []string{"store_id", "product_id"},
		ForeignKeys: []*ForeignKey{
			{Column: "store_id", RefTable: TableStores, RefColumn: "store_id"},
			{Column: "product_id", RefTable: TableProducts, RefColumn: "product_id"},
		},
		DependsOn: []string{TableStores, TableProducts},
	},
)

// OrderSummary is the derived table. It is loaded on its own after the
// relational tables and has no dependencies.
var OrderSummary = &TableSpec{
	Name: TableOrderSummary,
	Columns: []*Column{
		{Name: "order_id", Type: Integer},
		{Name: "order_date", Type: Date, Nullable: true},
		{Name: "customer_id", Type: Integer, Nullable: true},
		{Name: "customer_name", Type: Text, Nullable: true},
		{Name: "order_total", Type: Numeric},
	},
	PrimaryKey: []string{"order_id"},
}
