package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectRunColumns = `
	r.id, r.analysis_date, r.churn_threshold_days, r.filter_start, r.filter_end, r.filter_customer_id,
	r.total_customers, r.total_transactions, r.total_revenue, r.avg_customer_value,
	r.high_value_customers, r.at_risk_customers, r.churned_customers, r.churn_rate,
	r.avg_recency, r.avg_frequency, r.created_at
`

func scanRun(s scanner) (*analysis.Run, error) {
	var run analysis.Run

	p := &run.Portfolio

	if err := s.Scan(
		&run.ID, &run.AnalysisDate, &run.ChurnThresholdDays,
		&run.Filter.StartDate, &run.Filter.EndDate, &run.Filter.CustomerID,
		&p.TotalCustomers, &p.TotalTransactions, &p.TotalRevenue, &p.AvgCustomerValue,
		&p.HighValueCustomers, &p.AtRiskCustomers, &p.ChurnedCustomers, &p.ChurnRate,
		&p.AvgRecency, &p.AvgFrequency, &run.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.AvgMonetary = p.AvgCustomerValue

	return &run, nil
}

// SaveRun writes the run, its segment table and its customer scores in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *analysis.Run) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer dbTx.Rollback()

	p := run.Portfolio

	runQuery := `
		INSERT INTO analysis_runs (
			id, analysis_date, churn_threshold_days, filter_start, filter_end, filter_customer_id,
			total_customers, total_transactions, total_revenue, avg_customer_value,
			high_value_customers, at_risk_customers, churned_customers, churn_rate,
			avg_recency, avg_frequency, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	if _, err := dbTx.ExecContext(ctx, runQuery,
		run.ID, run.AnalysisDate, run.ChurnThresholdDays,
		run.Filter.StartDate, run.Filter.EndDate, run.Filter.CustomerID,
		p.TotalCustomers, p.TotalTransactions, p.TotalRevenue, p.AvgCustomerValue,
		p.HighValueCustomers, p.AtRiskCustomers, p.ChurnedCustomers, p.ChurnRate,
		p.AvgRecency, p.AvgFrequency, run.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	segmentQuery := `
		INSERT INTO segment_summaries (
			run_id, position, segment, customer_count, avg_recency, avg_frequency,
			total_revenue, avg_revenue_per_customer, percentage
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	for i, seg := range run.Segments {
		if _, err := dbTx.ExecContext(ctx, segmentQuery,
			run.ID, i, string(seg.Segment), seg.CustomerCount, seg.AvgRecency, seg.AvgFrequency,
			seg.TotalRevenue, seg.AvgRevenuePerCustomer, seg.Percentage,
		); err != nil {
			return fmt.Errorf("inserting segment %s: %w", seg.Segment, err)
		}
	}

	customerQuery := `
		INSERT INTO customer_scores (
			run_id, customer_id, recency, frequency, monetary,
			r_score, f_score, m_score, rfm_score, segment
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	stmt, err := dbTx.PrepareContext(ctx, customerQuery)
	if err != nil {
		return fmt.Errorf("preparing customer insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range run.Customers {
		if _, err := stmt.ExecContext(ctx,
			run.ID, c.CustomerID, c.Recency, c.Frequency, c.Monetary,
			c.RScore, c.FScore, c.MScore, c.RFMScore, string(c.Segment),
		); err != nil {
			return fmt.Errorf("inserting customer %s: %w", c.CustomerID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("committing run: %w", err)
	}

	return nil
}

func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (*analysis.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM analysis_runs r WHERE r.id = $1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, analysis.ErrNotFound
		}

		return nil, fmt.Errorf("getting run: %w", err)
	}

	if run.Segments, err = s.listSegments(ctx, id); err != nil {
		return nil, err
	}

	return run, nil
}

// ListRuns returns the newest runs first, without their segment tables.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*analysis.Run, error) {
	query := `SELECT ` + selectRunColumns + ` FROM analysis_runs r ORDER BY r.created_at DESC`

	var args []any
	if limit > 0 {
		query += ` LIMIT $1`

		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*analysis.Run

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}

func (s *Store) listSegments(ctx context.Context, runID uuid.UUID) ([]rfm.SegmentSummary, error) {
	query := `
		SELECT segment, customer_count, avg_recency, avg_frequency,
			total_revenue, avg_revenue_per_customer, percentage
		FROM segment_summaries
		WHERE run_id = $1
		ORDER BY position ASC
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("listing segments: %w", err)
	}
	defer rows.Close()

	var segments []rfm.SegmentSummary

	for rows.Next() {
		var seg rfm.SegmentSummary
		if err := rows.Scan(
			&seg.Segment, &seg.CustomerCount, &seg.AvgRecency, &seg.AvgFrequency,
			&seg.TotalRevenue, &seg.AvgRevenuePerCustomer, &seg.Percentage,
		); err != nil {
			return nil, fmt.Errorf("scanning segment: %w", err)
		}

		segments = append(segments, seg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating segment rows: %w", err)
	}

	return segments, nil
}

var customerOrderClauses = map[analysis.CustomerOrder]string{
	analysis.OrderByCustomerID:   ` ORDER BY customer_id ASC`,
	analysis.OrderByMonetaryDesc: ` ORDER BY monetary DESC, customer_id ASC`,
}

func (s *Store) ListCustomers(ctx context.Context, runID uuid.UUID, filter analysis.CustomerFilter) ([]rfm.ScoredCustomer, error) {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM analysis_runs WHERE id = $1)`, runID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking run: %w", err)
	}

	if !exists {
		return nil, analysis.ErrNotFound
	}

	query := `
		SELECT customer_id, recency, frequency, monetary, r_score, f_score, m_score, rfm_score, segment
		FROM customer_scores
		WHERE run_id = $1`

	args := []any{runID}

	if len(filter.Segments) > 0 {
		placeholders := make([]string, len(filter.Segments))
		for i, seg := range filter.Segments {
			args = append(args, string(seg))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}

		query += ` AND segment IN (` + strings.Join(placeholders, ", ") + `)`
	}

	order, ok := customerOrderClauses[filter.OrderBy]
	if !ok {
		order = customerOrderClauses[analysis.OrderByCustomerID]
	}

	query += order

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []rfm.ScoredCustomer

	for rows.Next() {
		var c rfm.ScoredCustomer
		if err := rows.Scan(
			&c.CustomerID, &c.Recency, &c.Frequency, &c.Monetary,
			&c.RScore, &c.FScore, &c.MScore, &c.RFMScore, &c.Segment,
		); err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}

		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating customer rows: %w", err)
	}

	return customers, nil
}
