package analysis

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=analysis
type Repository interface {
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	ListCustomers(ctx context.Context, runID uuid.UUID, filter CustomerFilter) ([]rfm.ScoredCustomer, error)
}

// TransactionSource yields the snapshot a run is computed over.
type TransactionSource interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error)
}

type Options struct {
	ChurnThresholdDays int
	Workers            int
	CacheTTL           time.Duration
}

type Service struct {
	repo  Repository
	txs   TransactionSource
	opts  Options
	cache *ttlCache[uuid.UUID, *Run]
}

func NewService(repo Repository, txs TransactionSource, opts Options) *Service {
	return &Service{
		repo:  repo,
		txs:   txs,
		opts:  opts,
		cache: newTTLCache[uuid.UUID, *Run](opts.CacheTTL),
	}
}

// Run segments the transactions matching filter and persists the result.
// Nothing is stored when the analysis fails.
func (s *Service) Run(ctx context.Context, filter transaction.ListFilter) (*Run, error) {
	txs, err := s.txs.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}

	result, err := rfm.Analyze(ctx, transaction.ToRFM(txs), rfm.Options{
		ChurnThresholdDays: s.opts.ChurnThresholdDays,
		Workers:            s.opts.Workers,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzing %d transactions: %w", len(txs), err)
	}

	threshold := s.opts.ChurnThresholdDays
	if threshold <= 0 {
		threshold = rfm.DefaultChurnThresholdDays
	}

	run := &Run{
		ID:                 uuid.New(),
		AnalysisDate:       result.AnalysisDate,
		ChurnThresholdDays: threshold,
		Filter:             filter,
		Portfolio:          result.Portfolio,
		Segments:           result.Segments,
		Customers:          result.Customers,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.repo.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("saving run: %w", err)
	}

	s.cache.set(run.ID, run)

	return run, nil
}

// Get returns the run with its segment table. Customers are only present when the run is cached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	if run, ok := s.cache.get(id); ok {
		return run, nil
	}

	return s.repo.GetRun(ctx, id)
}

func (s *Service) List(ctx context.Context, limit int) ([]*Run, error) {
	return s.repo.ListRuns(ctx, limit)
}

func (s *Service) Segments(ctx context.Context, id uuid.UUID) ([]rfm.SegmentSummary, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return run.Segments, nil
}

func (s *Service) Customers(ctx context.Context, id uuid.UUID, filter CustomerFilter) ([]rfm.ScoredCustomer, error) {
	if run, ok := s.cache.get(id); ok {
		return FilterCustomers(run.Customers, filter), nil
	}

	return s.repo.ListCustomers(ctx, id, filter)
}

// FilterCustomers applies filter to an in-memory customer table without modifying it.
func FilterCustomers(customers []rfm.ScoredCustomer, filter CustomerFilter) []rfm.ScoredCustomer {
	out := make([]rfm.ScoredCustomer, 0, len(customers))
	for _, c := range customers {
		if len(filter.Segments) > 0 && !slices.Contains(filter.Segments, c.Segment) {
			continue
		}

		out = append(out, c)
	}

	switch filter.OrderBy {
	case OrderByMonetaryDesc:
		slices.SortStableFunc(out, func(a, b rfm.ScoredCustomer) int {
			return cmp.Or(b.Monetary.Cmp(a.Monetary), cmp.Compare(a.CustomerID, b.CustomerID))
		})
	case OrderByCustomerID:
		slices.SortStableFunc(out, func(a, b rfm.ScoredCustomer) int {
			return cmp.Compare(a.CustomerID, b.CustomerID)
		})
	}

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}

	return out
}
