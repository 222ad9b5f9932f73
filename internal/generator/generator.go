package generator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

// Profile is a latent spending behaviour. Amounts are drawn from Gamma(Shape, Scale).
type Profile struct {
	Name   string
	Weight float64
	Shape  float64
	Scale  float64
}

var Profiles = []Profile{
	{Name: "High Value", Weight: 0.15, Shape: 5, Scale: 50},
	{Name: "Medium Value", Weight: 0.25, Shape: 3, Scale: 30},
	{Name: "Low Value", Weight: 0.30, Shape: 2, Scale: 15},
	{Name: "At Risk", Weight: 0.20, Shape: 2, Scale: 20},
	{Name: "New", Weight: 0.10, Shape: 2, Scale: 25},
}

var (
	Categories     = []string{"Electronics", "Clothing", "Home & Garden", "Sports", "Books", "Beauty", "Toys", "Food & Beverage"}
	PaymentMethods = []string{"Credit Card", "Debit Card", "PayPal", "Cash on Delivery"}
	Countries      = []string{"USA", "UK", "Canada", "Australia", "Germany", "France"}
)

const maxQuantity = 5

type Config struct {
	Customers    int
	Transactions int
	Start        time.Time
	End          time.Time
	Seed         uint64
}

func DefaultConfig() Config {
	return Config{
		Customers:    5000,
		Transactions: 50000,
		Start:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:          time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Seed:         42,
	}
}

func (c Config) validate() error {
	var errs []error

	if c.Customers <= 0 {
		errs = append(errs, fmt.Errorf("customers must be positive, got %d", c.Customers))
	}

	if c.Transactions < 0 {
		errs = append(errs, fmt.Errorf("transactions must not be negative, got %d", c.Transactions))
	}

	if c.End.Before(c.Start) {
		errs = append(errs, fmt.Errorf("end %s is before start %s", c.End.Format(time.DateOnly), c.Start.Format(time.DateOnly)))
	}

	return errors.Join(errs...)
}

// Progress is called after every generated transaction with the running count.
type Progress func(done int)

// Generate draws a synthetic purchase history. Each customer is assigned a
// profile once, each transaction picks a customer uniformly and a day in
// [Start, End] uniformly. The output is sorted by date and identical for equal configs.
func Generate(ctx context.Context, cfg Config, progress Progress) ([]*transaction.Transaction, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	weights := make([]float64, len(Profiles))
	amounts := make([]distuv.Gamma, len(Profiles))

	for i, p := range Profiles {
		weights[i] = p.Weight
		amounts[i] = distuv.Gamma{Alpha: p.Shape, Beta: 1 / p.Scale, Src: src}
	}

	picker := distuv.NewCategorical(weights, src)

	customerProfiles := make([]int, cfg.Customers)
	for i := range customerProfiles {
		customerProfiles[i] = int(picker.Rand())
	}

	days := int(cfg.End.Sub(cfg.Start).Hours()/24) + 1
	txs := make([]*transaction.Transaction, cfg.Transactions)

	for i := range txs {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		customer := rng.IntN(cfg.Customers)
		amount := amounts[customerProfiles[customer]].Rand()

		txs[i] = &transaction.Transaction{
			ID:            fmt.Sprintf("TXN%06d", i+1),
			CustomerID:    fmt.Sprintf("CUST%05d", customer+1),
			Date:          cfg.Start.AddDate(0, 0, rng.IntN(days)),
			Amount:        decimal.NewFromFloat(amount).Round(2),
			Quantity:      1 + rng.IntN(maxQuantity),
			Category:      Categories[rng.IntN(len(Categories))],
			PaymentMethod: PaymentMethods[rng.IntN(len(PaymentMethods))],
			Country:       Countries[rng.IntN(len(Countries))],
		}

		if progress != nil {
			progress(i + 1)
		}
	}

	slices.SortStableFunc(txs, func(a, b *transaction.Transaction) int {
		return cmp.Compare(a.Date.Unix(), b.Date.Unix())
	})

	return txs, nil
}
