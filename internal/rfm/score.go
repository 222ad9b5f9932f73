package rfm

import (
	"cmp"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

const quantiles = 5

var (
	ascendingLabels = []int{1, 2, 3, 4, 5}
	recencyLabels   = []int{5, 4, 3, 2, 1}
)

// Score assigns quintile scores and a segment to every customer.
//
// Recency and monetary are binned on their values, so equal values always share
// a score. Frequency is binned on ranks ordered by (frequency, customer ID), which
// keeps bins balanced when many customers share a small integer count.
// When a metric has too few distinct values the duplicate quantile edges are
// dropped and the remaining k bins take the first k labels.
//
// The output keeps the order of metrics.
func Score(metrics []CustomerMetrics) ([]ScoredCustomer, error) {
	if len(metrics) == 0 {
		return nil, ErrInsufficientData
	}

	var (
		recency   = make([]decimal.Decimal, len(metrics))
		monetary  = make([]decimal.Decimal, len(metrics))
		frequency = frequencyRanks(metrics)
	)

	for i, m := range metrics {
		recency[i] = decimal.NewFromInt(int64(m.Recency))
		monetary[i] = m.Monetary
	}

	rBins := quantileBins(recency)
	fBins := quantileBins(frequency)
	mBins := quantileBins(monetary)

	scored := make([]ScoredCustomer, len(metrics))
	for i, m := range metrics {
		s := Scores{
			R: recencyLabels[rBins[i]],
			F: ascendingLabels[fBins[i]],
			M: ascendingLabels[mBins[i]],
		}

		scored[i] = ScoredCustomer{
			CustomerMetrics: m,
			RScore:          s.R,
			FScore:          s.F,
			MScore:          s.M,
			RFMScore:        s.Total(),
			Segment:         Classify(s),
		}
	}

	return scored, nil
}

// frequencyRanks returns the 1-based rank of every customer ordered by
// frequency and then customer ID.
func frequencyRanks(metrics []CustomerMetrics) []decimal.Decimal {
	order := make([]int, len(metrics))
	for i := range order {
		order[i] = i
	}

	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Or(
			cmp.Compare(metrics[a].Frequency, metrics[b].Frequency),
			cmp.Compare(metrics[a].CustomerID, metrics[b].CustomerID),
		)
	})

	ranks := make([]decimal.Decimal, len(metrics))
	for rank, idx := range order {
		ranks[idx] = decimal.NewFromInt(int64(rank + 1))
	}

	return ranks
}

// quantileBins returns, for every value, the 0-based index of its quantile bin.
// Bins are right-closed and the first one includes the minimum.
func quantileBins(values []decimal.Decimal) []int {
	edges := quantileEdges(values)

	bins := make([]int, len(values))
	if len(edges) == 1 {
		return bins
	}

	for i, v := range values {
		j := sort.Search(len(edges)-1, func(j int) bool {
			return v.LessThanOrEqual(edges[j+1])
		})
		bins[i] = j
	}

	return bins
}

// quantileEdges computes the quintile boundaries with linear interpolation between
// order statistics and drops duplicates. The result is strictly increasing.
func quantileEdges(values []decimal.Decimal) []decimal.Decimal {
	sorted := slices.Clone(values)
	slices.SortFunc(sorted, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	edges := make([]decimal.Decimal, 0, quantiles+1)

	for q := 0; q <= quantiles; q++ {
		edge := quantileAt(sorted, q, quantiles)

		if len(edges) > 0 && edge.Equal(edges[len(edges)-1]) {
			continue
		}

		edges = append(edges, edge)
	}

	return edges
}

// quantileAt returns the q/parts quantile of sorted, interpolating linearly
// between the order statistics around position q/parts*(n-1).
func quantileAt(sorted []decimal.Decimal, q, parts int) decimal.Decimal {
	pos := q * (len(sorted) - 1)
	lo, rem := pos/parts, pos%parts

	v := sorted[lo]
	if rem != 0 {
		frac := decimal.NewFromInt(int64(rem)).Div(decimal.NewFromInt(int64(parts)))
		v = v.Add(sorted[lo+1].Sub(sorted[lo]).Mul(frac))
	}

	return v
}
