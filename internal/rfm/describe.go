package rfm

import (
	"slices"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Stats are the descriptive statistics of one metric.
type Stats struct {
	Count int
	Mean  float64
	Std   float64 // Sample standard deviation, zero for a single value
	Min   float64
	P25   float64
	P50   float64
	P75   float64
	Max   float64
}

// Description summarises the distribution of each metric.
type Description struct {
	Recency   Stats
	Frequency Stats
	Monetary  Stats
}

func Describe(metrics []CustomerMetrics) Description {
	var (
		recency   = make([]float64, len(metrics))
		frequency = make([]float64, len(metrics))
		monetary  = make([]float64, len(metrics))
	)

	for i, m := range metrics {
		recency[i] = float64(m.Recency)
		frequency[i] = float64(m.Frequency)
		monetary[i] = m.Monetary.InexactFloat64()
	}

	return Description{
		Recency:   describe(recency),
		Frequency: describe(frequency),
		Monetary:  describe(monetary),
	}
}

func describe(x []float64) Stats {
	if len(x) == 0 {
		return Stats{}
	}

	slices.Sort(x)

	sorted := make([]decimal.Decimal, len(x))
	for i, v := range x {
		sorted[i] = decimal.NewFromFloat(v)
	}

	// Quartiles use the same interpolation as the score edges.
	s := Stats{
		Count: len(x),
		Min:   x[0],
		Max:   x[len(x)-1],
		P25:   quantileAt(sorted, 1, 4).InexactFloat64(),
		P50:   quantileAt(sorted, 2, 4).InexactFloat64(),
		P75:   quantileAt(sorted, 3, 4).InexactFloat64(),
	}

	if len(x) == 1 {
		s.Mean = x[0]
		return s
	}

	s.Mean, s.Std = stat.MeanStdDev(x, nil)

	return s
}
