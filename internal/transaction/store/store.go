package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
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

// scanTransaction expects the column order of selectTransactionColumns.
func scanTransaction(s scanner) (*transaction.Transaction, error) {
	var tx transaction.Transaction

	if err := s.Scan(
		&tx.ID, &tx.CustomerID, &tx.Date, &tx.Amount, &tx.Quantity,
		&tx.Category, &tx.PaymentMethod, &tx.Country, &tx.CreatedAt,
	); err != nil {
		return nil, err
	}

	return &tx, nil
}

const selectTransactionColumns = `
	t.transaction_id, t.customer_id, t.transaction_date, t.amount, t.quantity,
	t.category, t.payment_method, t.country, t.created_at
`

func (s *Store) GetTransaction(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.transaction_id = $1`

	tx, err := scanTransaction(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, transaction.ErrNotFound
		}

		return nil, fmt.Errorf("getting transaction: %w", err)
	}

	return tx, nil
}

// where renders the filter as a WHERE clause and its positional arguments.
func where(filter transaction.ListFilter) (string, []any) {
	clause := " WHERE TRUE"

	var args []any

	add := func(cond string, v any) {
		args = append(args, v)
		clause += fmt.Sprintf(" AND "+cond, len(args))
	}

	if filter.CustomerID != nil {
		add("t.customer_id = $%d", *filter.CustomerID)
	}

	if filter.Category != nil {
		add("t.category = $%d", *filter.Category)
	}

	if filter.Country != nil {
		add("t.country = $%d", *filter.Country)
	}

	if filter.StartDate != nil {
		add("t.transaction_date >= $%d", *filter.StartDate)
	}

	if filter.EndDate != nil {
		add("t.transaction_date <= $%d", *filter.EndDate)
	}

	if filter.CreatedBefore != nil {
		add("t.created_at <= $%d", *filter.CreatedBefore)
	}

	return clause, args
}

func (s *Store) ListTransactions(ctx context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
	clause, args := where(filter)
	query := `SELECT ` + selectTransactionColumns + ` FROM transactions t` + clause +
		` ORDER BY t.transaction_date ASC, t.transaction_id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txs []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		txs = append(txs, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transaction rows: %w", err)
	}

	return txs, nil
}

func (s *Store) CountTransactions(ctx context.Context, filter transaction.ListFilter) (int, error) {
	clause, args := where(filter)

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+clause, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting transactions: %w", err)
	}

	return n, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE transaction_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting transaction: %w", err)
	}

	if n == 0 {
		return transaction.ErrNotFound
	}

	return nil
}

func importLockKey(minDate, maxDate time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(minDate.Format(time.DateOnly)))
	h.Write([]byte{0})
	h.Write([]byte(maxDate.Format(time.DateOnly)))

	return int64(h.Sum64())
}

type importTx struct {
	tx *sql.Tx
}

// BeginImport opens a database transaction holding an advisory lock keyed on
// the batch date range, so overlapping uploads of the same file serialize.
func (s *Store) BeginImport(ctx context.Context, minDate, maxDate time.Time) (transaction.ImportTx, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import tx: %w", err)
	}

	lockKey := importLockKey(minDate, maxDate)
	if _, err := dbTx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", lockKey); err != nil {
		dbTx.Rollback()
		return nil, fmt.Errorf("acquiring import lock: %w", err)
	}

	return &importTx{tx: dbTx}, nil
}

func (itx *importTx) Commit() error   { return itx.tx.Commit() }
func (itx *importTx) Rollback() error { return itx.tx.Rollback() }

func (itx *importTx) FindDuplicates(ctx context.Context, params []transaction.CreateParams) ([]*transaction.Transaction, error) {
	if len(params) == 0 {
		return nil, nil
	}

	ids := make([]string, len(params))
	for i, p := range params {
		ids[i] = p.ID
	}

	query := `SELECT ` + selectTransactionColumns + `
		FROM transactions t
		WHERE t.transaction_id = ANY($1)
		ORDER BY t.transaction_id ASC`

	rows, err := itx.tx.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("finding duplicates: %w", err)
	}
	defer rows.Close()

	var duplicates []*transaction.Transaction

	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}

		duplicates = append(duplicates, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating duplicate rows: %w", err)
	}

	return duplicates, nil
}

// CreateTransactions inserts txs, skipping IDs that already exist.
func (itx *importTx) CreateTransactions(ctx context.Context, txs []*transaction.Transaction) error {
	query := `
		INSERT INTO transactions (transaction_id, customer_id, transaction_date, amount, quantity, category, payment_method, country, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (transaction_id) DO NOTHING
		RETURNING created_at
	`

	for _, tx := range txs {
		err := itx.tx.QueryRowContext(ctx, query,
			tx.ID,
			tx.CustomerID,
			tx.Date,
			tx.Amount,
			tx.Quantity,
			tx.Category,
			tx.PaymentMethod,
			tx.Country,
		).Scan(&tx.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}

		if err != nil {
			return fmt.Errorf("creating transaction %s: %w", tx.ID, err)
		}
	}

	return nil
}
