package rfm_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

func TestAnalyze(t *testing.T) {
	txs := sampleTransactions(1500)

	result, err := rfm.Analyze(context.Background(), txs, rfm.Options{Workers: 4})
	require.NoError(t, err)

	customers := map[string]struct{}{}
	for _, tx := range txs {
		customers[tx.CustomerID] = struct{}{}
	}

	require.Len(t, result.Customers, len(customers))
	assert.Equal(t, len(customers), result.Portfolio.TotalCustomers)
	assert.Equal(t, len(txs), result.Portfolio.TotalTransactions)

	var count int
	for _, s := range result.Segments {
		count += s.CustomerCount
	}

	assert.Equal(t, len(customers), count)

	for i := 1; i < len(result.Segments); i++ {
		assert.GreaterOrEqual(t, result.Segments[i-1].TotalRevenue.Cmp(result.Segments[i].TotalRevenue), 0)
	}

	var latest time.Time
	for _, tx := range txs {
		if tx.Date.After(latest) {
			latest = tx.Date
		}
	}

	assert.True(t, latest.Add(24*time.Hour).Equal(result.AnalysisDate))
}

func TestAnalyze_SingleCustomer(t *testing.T) {
	txs := []rfm.Transaction{
		tx("T1", "SOLO", at(2025, 3, 1, 0), "12.00"),
		tx("T2", "SOLO", at(2025, 3, 5, 0), "8.00"),
	}

	result, err := rfm.Analyze(context.Background(), txs, rfm.Options{})
	require.NoError(t, err)
	require.Len(t, result.Customers, 1)
	require.Len(t, result.Segments, 1)

	assert.Equal(t, 1, result.Segments[0].CustomerCount)
	assert.Equal(t, 100.0, result.Segments[0].Percentage)
	assert.Equal(t, 0.0, result.Portfolio.ChurnRate)
}

func TestAnalyze_Errors(t *testing.T) {
	_, err := rfm.Analyze(context.Background(), nil, rfm.Options{})
	assert.ErrorIs(t, err, rfm.ErrInsufficientData)

	_, err = rfm.Analyze(context.Background(), []rfm.Transaction{
		tx("OK", "A", at(2025, 1, 1, 0), "5"),
		tx("BAD", "B", at(2025, 1, 2, 0), "-5"),
	}, rfm.Options{Workers: 2})

	var integrityErr *rfm.DataIntegrityError
	require.True(t, errors.As(err, &integrityErr))
	assert.Equal(t, "BAD", integrityErr.TransactionID)
}
