package rfm

import (
	"cmp"
	"math"
	"slices"

	"github.com/shopspring/decimal"
)

// Summarize derives the per-segment table, sorted by total revenue descending,
// and the portfolio metrics. Customers with recency above churnThresholdDays
// count as churned.
func Summarize(customers []ScoredCustomer, churnThresholdDays int) ([]SegmentSummary, Portfolio, error) {
	if len(customers) == 0 {
		return nil, Portfolio{}, ErrInsufficientData
	}

	type bucket struct {
		count     int
		recency   int
		frequency int
		revenue   decimal.Decimal
	}

	var (
		total     = len(customers)
		buckets   = make(map[Segment]*bucket)
		portfolio = Portfolio{TotalCustomers: total, TotalRevenue: decimal.Zero}
		recency   int
	)

	for _, c := range customers {
		b, ok := buckets[c.Segment]
		if !ok {
			b = &bucket{revenue: decimal.Zero}
			buckets[c.Segment] = b
		}

		b.count++
		b.recency += c.Recency
		b.frequency += c.Frequency
		b.revenue = b.revenue.Add(c.Monetary)

		recency += c.Recency
		portfolio.TotalTransactions += c.Frequency
		portfolio.TotalRevenue = portfolio.TotalRevenue.Add(c.Monetary)

		if c.Segment.IsHighValue() {
			portfolio.HighValueCustomers++
		}

		if c.Segment.IsAtRisk() {
			portfolio.AtRiskCustomers++
		}

		if c.Recency > churnThresholdDays {
			portfolio.ChurnedCustomers++
		}
	}

	n := decimal.NewFromInt(int64(total))
	portfolio.AvgCustomerValue = portfolio.TotalRevenue.Div(n)
	portfolio.AvgMonetary = portfolio.AvgCustomerValue
	portfolio.AvgRecency = float64(recency) / float64(total)
	portfolio.AvgFrequency = float64(portfolio.TotalTransactions) / float64(total)
	portfolio.ChurnRate = float64(portfolio.ChurnedCustomers) / float64(total)

	segments := make([]SegmentSummary, 0, len(buckets))
	for seg, b := range buckets {
		segments = append(segments, SegmentSummary{
			Segment:               seg,
			CustomerCount:         b.count,
			AvgRecency:            float64(b.recency) / float64(b.count),
			AvgFrequency:          float64(b.frequency) / float64(b.count),
			TotalRevenue:          b.revenue,
			AvgRevenuePerCustomer: b.revenue.Div(decimal.NewFromInt(int64(b.count))),
			Percentage:            round2(float64(b.count) / float64(total) * 100),
		})
	}

	slices.SortFunc(segments, func(a, b SegmentSummary) int {
		return cmp.Or(
			b.TotalRevenue.Cmp(a.TotalRevenue),
			cmp.Compare(a.Segment.order(), b.Segment.order()),
		)
	})

	return segments, portfolio, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
