package rfm

import (
	"cmp"
	"context"
	"hash/fnv"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const day = 24 * time.Hour

// AnalysisDate returns the reference instant shared by every customer:
// the latest transaction date plus one day.
func AnalysisDate(txs []Transaction) (time.Time, error) {
	if err := validate(txs); err != nil {
		return time.Time{}, err
	}

	return maxDate(txs).Add(day), nil
}

// Aggregate reduces transactions to one CustomerMetrics per customer, sorted by customer ID.
// The result does not depend on the order of txs.
func Aggregate(txs []Transaction) ([]CustomerMetrics, time.Time, error) {
	analysisDate, err := AnalysisDate(txs)
	if err != nil {
		return nil, time.Time{}, err
	}

	metrics := reduce(txs, analysisDate)
	sortByCustomer(metrics)

	return metrics, analysisDate, nil
}

// AggregateParallel is Aggregate with the grouping spread over workers goroutines.
// Transactions are partitioned by a hash of the customer ID so every customer is
// reduced by exactly one worker.
func AggregateParallel(ctx context.Context, txs []Transaction, workers int) ([]CustomerMetrics, time.Time, error) {
	if workers <= 1 {
		return Aggregate(txs)
	}

	analysisDate, err := AnalysisDate(txs)
	if err != nil {
		return nil, time.Time{}, err
	}

	buckets := make([][]Transaction, workers)
	for _, tx := range txs {
		p := partition(tx.CustomerID, workers)
		buckets[p] = append(buckets[p], tx)
	}

	results := make([][]CustomerMetrics, workers)

	g, ctx := errgroup.WithContext(ctx)
	for i, bucket := range buckets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			results[i] = reduce(bucket, analysisDate)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, time.Time{}, err
	}

	metrics := slices.Concat(results...)
	sortByCustomer(metrics)

	return metrics, analysisDate, nil
}

type accumulator struct {
	last  time.Time
	count int
	sum   decimal.Decimal
}

func reduce(txs []Transaction, analysisDate time.Time) []CustomerMetrics {
	groups := make(map[string]*accumulator)

	for _, tx := range txs {
		acc, ok := groups[tx.CustomerID]
		if !ok {
			acc = &accumulator{last: tx.Date, sum: decimal.Zero}
			groups[tx.CustomerID] = acc
		}

		if tx.Date.After(acc.last) {
			acc.last = tx.Date
		}

		acc.count++
		acc.sum = acc.sum.Add(tx.Amount)
	}

	metrics := make([]CustomerMetrics, 0, len(groups))
	for id, acc := range groups {
		metrics = append(metrics, CustomerMetrics{
			CustomerID: id,
			Recency:    wholeDays(analysisDate.Sub(acc.last)),
			Frequency:  acc.count,
			Monetary:   acc.sum,
		})
	}

	return metrics
}

// wholeDays truncates toward negative infinity, so 36h is one day.
func wholeDays(d time.Duration) int {
	days := d / day
	if d%day < 0 {
		days--
	}

	return int(days)
}

func maxDate(txs []Transaction) time.Time {
	latest := txs[0].Date
	for _, tx := range txs[1:] {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}

	return latest
}

func partition(customerID string, n int) int {
	h := fnv.New32a()
	h.Write([]byte(customerID))

	return int(h.Sum32() % uint32(n))
}

func sortByCustomer(metrics []CustomerMetrics) {
	slices.SortFunc(metrics, func(a, b CustomerMetrics) int {
		return cmp.Compare(a.CustomerID, b.CustomerID)
	})
}
