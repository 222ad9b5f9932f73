package rfm

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultChurnThresholdDays is the recency above which a customer counts as churned.
const DefaultChurnThresholdDays = 90

// Transaction is the subset of a transaction record consumed by the analysis.
type Transaction struct {
	ID         string
	CustomerID string
	Date       time.Time
	Amount     decimal.Decimal
}

// CustomerMetrics holds the raw recency, frequency and monetary values of one customer.
type CustomerMetrics struct {
	CustomerID string
	Recency    int // Days since the last transaction, relative to the analysis date
	Frequency  int
	Monetary   decimal.Decimal
}

// Scores is the ordinal score triple of a customer. Each score is in [1, 5].
type Scores struct {
	R int
	F int
	M int
}

func (s Scores) Total() int {
	return s.R + s.F + s.M
}

// ScoredCustomer is a customer with its quantile scores and segment.
type ScoredCustomer struct {
	CustomerMetrics
	RScore   int
	FScore   int
	MScore   int
	RFMScore int
	Segment  Segment
}

func (c ScoredCustomer) Scores() Scores {
	return Scores{R: c.RScore, F: c.FScore, M: c.MScore}
}

// SegmentSummary aggregates the customers of one segment.
type SegmentSummary struct {
	Segment               Segment
	CustomerCount         int
	AvgRecency            float64
	AvgFrequency          float64
	TotalRevenue          decimal.Decimal
	AvgRevenuePerCustomer decimal.Decimal
	Percentage            float64 // Share of the customer base, 0-100, two decimals
}

// Portfolio holds the key business metrics of a whole analysis run.
type Portfolio struct {
	TotalCustomers     int
	TotalTransactions  int
	TotalRevenue       decimal.Decimal
	AvgCustomerValue   decimal.Decimal
	HighValueCustomers int
	AtRiskCustomers    int
	ChurnedCustomers   int
	ChurnRate          float64 // Fraction in [0, 1]
	AvgRecency         float64
	AvgFrequency       float64
	AvgMonetary        decimal.Decimal
}

// Options tunes an analysis run.
type Options struct {
	// ChurnThresholdDays defaults to DefaultChurnThresholdDays when zero.
	ChurnThresholdDays int
	// Workers > 1 partitions the aggregation phase across goroutines.
	Workers int
}

func (o Options) churnThreshold() int {
	if o.ChurnThresholdDays <= 0 {
		return DefaultChurnThresholdDays
	}

	return o.ChurnThresholdDays
}

// Result is the complete output of one analysis run.
type Result struct {
	AnalysisDate time.Time
	Customers    []ScoredCustomer
	Segments     []SegmentSummary
	Portfolio    Portfolio
}
