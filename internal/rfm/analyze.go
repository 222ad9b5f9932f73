package rfm

import (
	"context"
	"fmt"
)

// Analyze runs the whole pipeline over one snapshot of transactions.
// Aggregation completes before any score is assigned, since quantile
// scoring needs the full population. Any error aborts the run.
func Analyze(ctx context.Context, txs []Transaction, opts Options) (*Result, error) {
	metrics, analysisDate, err := AggregateParallel(ctx, txs, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("aggregating metrics: %w", err)
	}

	customers, err := Score(metrics)
	if err != nil {
		return nil, fmt.Errorf("scoring customers: %w", err)
	}

	segments, portfolio, err := Summarize(customers, opts.churnThreshold())
	if err != nil {
		return nil, fmt.Errorf("summarizing segments: %w", err)
	}

	return &Result{
		AnalysisDate: analysisDate,
		Customers:    customers,
		Segments:     segments,
		Portfolio:    portfolio,
	}, nil
}
