package csvfile

// Profile describes the column layout of a transaction export.
// Optional columns may be left empty or be absent from the file.
type Profile struct {
	Name        string
	IDCol       string
	CustomerCol string
	DateCol     string
	AmountCol   string

	QuantityCol string
	CategoryCol string
	PaymentCol  string
	CountryCol  string

	// StatusCol, when present in the file, keeps only rows whose status is
	// one of KeepStatuses.
	StatusCol    string
	KeepStatuses []string
}

func (p Profile) requiredCols() []string {
	return []string{p.IDCol, p.CustomerCol, p.DateCol, p.AmountCol}
}

// Ecommerce is the canonical transaction export, as written by the generator.
var Ecommerce = Profile{
	Name:        "ecommerce",
	IDCol:       "transaction_id",
	CustomerCol: "customer_id",
	DateCol:     "transaction_date",
	AmountCol:   "amount",
	QuantityCol: "quantity",
	CategoryCol: "category",
	PaymentCol:  "payment_method",
	CountryCol:  "country",
}

// Orders is an order-table export. Only completed orders count as purchases.
var Orders = Profile{
	Name:         "orders",
	IDCol:        "order_id",
	CustomerCol:  "customer_id",
	DateCol:      "order_date",
	AmountCol:    "total_amount",
	QuantityCol:  "quantity",
	CategoryCol:  "category",
	PaymentCol:   "payment_method",
	CountryCol:   "country",
	StatusCol:    "status",
	KeepStatuses: []string{"completed"},
}
