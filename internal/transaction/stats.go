package transaction

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// Breakdown is the activity of one group of transactions.
type Breakdown struct {
	Key             string // "2006-01" for months, the category name for categories
	Transactions    int
	UniqueCustomers int
	Revenue         decimal.Decimal
}

// MonthlyTrends groups txs by calendar month, oldest first.
func MonthlyTrends(txs []*Transaction) []Breakdown {
	out := breakdown(txs, func(t *Transaction) string { return t.Date.Format("2006-01") })

	slices.SortFunc(out, func(a, b Breakdown) int {
		return cmp.Compare(a.Key, b.Key)
	})

	return out
}

// CategoryBreakdown groups txs by category, highest revenue first.
func CategoryBreakdown(txs []*Transaction) []Breakdown {
	out := breakdown(txs, func(t *Transaction) string { return t.Category })

	slices.SortFunc(out, func(a, b Breakdown) int {
		return cmp.Or(b.Revenue.Cmp(a.Revenue), cmp.Compare(a.Key, b.Key))
	})

	return out
}

func breakdown(txs []*Transaction, key func(*Transaction) string) []Breakdown {
	type group struct {
		count     int
		customers map[string]struct{}
		revenue   decimal.Decimal
	}

	groups := make(map[string]*group)

	for _, t := range txs {
		k := key(t)

		g, ok := groups[k]
		if !ok {
			g = &group{customers: make(map[string]struct{}), revenue: decimal.Zero}
			groups[k] = g
		}

		g.count++
		g.customers[t.CustomerID] = struct{}{}
		g.revenue = g.revenue.Add(t.Amount)
	}

	out := make([]Breakdown, 0, len(groups))
	for k, g := range groups {
		out = append(out, Breakdown{
			Key:             k,
			Transactions:    g.count,
			UniqueCustomers: len(g.customers),
			Revenue:         g.revenue,
		})
	}

	return out
}
