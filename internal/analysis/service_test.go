package analysis_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

func snapshot(n int) []*transaction.Transaction {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	txs := make([]*transaction.Transaction, n)
	for i := range txs {
		txs[i] = &transaction.Transaction{
			ID:         fmt.Sprintf("TXN%06d", i+1),
			CustomerID: fmt.Sprintf("CUST%05d", i%12+1),
			Date:       base.AddDate(0, 0, (i*7)%300),
			Amount:     decimal.NewFromInt(int64(10 + (i*13)%90)),
		}
	}

	return txs
}

func TestService_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	source := analysis.NewMockTransactionSource(ctrl)
	svc := analysis.NewService(repo, source, analysis.Options{Workers: 3, CacheTTL: time.Minute})

	filter := transaction.ListFilter{}
	source.EXPECT().List(gomock.Any(), filter).Return(snapshot(60), nil)

	var saved *analysis.Run

	repo.EXPECT().
		SaveRun(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, run *analysis.Run) error {
			saved = run
			return nil
		})

	run, err := svc.Run(context.Background(), filter)
	require.NoError(t, err)

	assert.Same(t, saved, run)
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.Equal(t, rfm.DefaultChurnThresholdDays, run.ChurnThresholdDays)
	assert.Len(t, run.Customers, 12)
	assert.Equal(t, 12, run.Portfolio.TotalCustomers)
	assert.Equal(t, 60, run.Portfolio.TotalTransactions)
	assert.NotEmpty(t, run.Segments)

	// Served from the cache, so the repository is not consulted again.
	got, err := svc.Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Same(t, run, got)

	champions, err := svc.Customers(context.Background(), run.ID, analysis.CustomerFilter{
		OrderBy: analysis.OrderByMonetaryDesc,
		Limit:   3,
	})
	require.NoError(t, err)
	require.Len(t, champions, 3)
	assert.GreaterOrEqual(t, champions[0].Monetary.Cmp(champions[1].Monetary), 0)
}

func TestService_Run_NothingPersistedOnFailure(t *testing.T) {
	type testCase struct {
		name    string
		txs     []*transaction.Transaction
		wantErr func(t *testing.T, err error)
	}

	tests := []testCase{
		{
			name: "Empty Snapshot",
			txs:  nil,
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, rfm.ErrInsufficientData)
			},
		},
		{
			name: "Negative Amount",
			txs: []*transaction.Transaction{
				{ID: "T1", CustomerID: "C1", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-1)},
			},
			wantErr: func(t *testing.T, err error) {
				var integrityErr *rfm.DataIntegrityError
				require.True(t, errors.As(err, &integrityErr))
				assert.Equal(t, "T1", integrityErr.TransactionID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := analysis.NewMockRepository(ctrl)
			source := analysis.NewMockTransactionSource(ctrl)
			svc := analysis.NewService(repo, source, analysis.Options{})

			source.EXPECT().List(gomock.Any(), gomock.Any()).Return(tt.txs, nil)

			run, err := svc.Run(context.Background(), transaction.ListFilter{})
			assert.Nil(t, run)
			tt.wantErr(t, err)
		})
	}
}

func TestService_Run_SaveFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	source := analysis.NewMockTransactionSource(ctrl)
	svc := analysis.NewService(repo, source, analysis.Options{CacheTTL: time.Minute})

	dbErr := errors.New("disk full")

	source.EXPECT().List(gomock.Any(), gomock.Any()).Return(snapshot(10), nil)
	repo.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(dbErr)

	_, err := svc.Run(context.Background(), transaction.ListFilter{})
	assert.ErrorIs(t, err, dbErr)
}

func TestService_Get_FallsBackToRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	svc := analysis.NewService(repo, analysis.NewMockTransactionSource(ctrl), analysis.Options{CacheTTL: time.Minute})

	id := uuid.New()
	stored := &analysis.Run{ID: id, Segments: []rfm.SegmentSummary{{Segment: rfm.SegmentLost, CustomerCount: 1}}}

	repo.EXPECT().GetRun(gomock.Any(), id).Return(stored, nil).Times(2)

	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	segments, err := svc.Segments(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, stored.Segments, segments)

	missing := uuid.New()
	repo.EXPECT().GetRun(gomock.Any(), missing).Return(nil, analysis.ErrNotFound)

	_, err = svc.Segments(context.Background(), missing)
	assert.ErrorIs(t, err, analysis.ErrNotFound)
}

func TestService_Customers_UncachedUsesRepository(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := analysis.NewMockRepository(ctrl)
	svc := analysis.NewService(repo, analysis.NewMockTransactionSource(ctrl), analysis.Options{})

	id := uuid.New()
	filter := analysis.CustomerFilter{Segments: []rfm.Segment{rfm.SegmentAtRisk}}

	repo.EXPECT().
		ListCustomers(gomock.Any(), id, filter).
		Return([]rfm.ScoredCustomer{{Segment: rfm.SegmentAtRisk}}, nil)

	got, err := svc.Customers(context.Background(), id, filter)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFilterCustomers(t *testing.T) {
	customer := func(id string, monetary int64, segment rfm.Segment) rfm.ScoredCustomer {
		return rfm.ScoredCustomer{
			CustomerMetrics: rfm.CustomerMetrics{CustomerID: id, Monetary: decimal.NewFromInt(monetary)},
			Segment:         segment,
		}
	}

	customers := []rfm.ScoredCustomer{
		customer("C", 50, rfm.SegmentAtRisk),
		customer("A", 10, rfm.SegmentChampions),
		customer("B", 90, rfm.SegmentNeedAttention),
		customer("D", 90, rfm.SegmentAtRisk),
	}

	type testCase struct {
		name   string
		filter analysis.CustomerFilter
		want   []string
	}

	tests := []testCase{
		{
			name:   "No Filter Keeps Order",
			filter: analysis.CustomerFilter{},
			want:   []string{"C", "A", "B", "D"},
		},
		{
			name:   "By Customer",
			filter: analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID},
			want:   []string{"A", "B", "C", "D"},
		},
		{
			name: "Retention Segments By Monetary",
			filter: analysis.CustomerFilter{
				Segments: []rfm.Segment{rfm.SegmentAtRisk, rfm.SegmentNeedAttention},
				OrderBy:  analysis.OrderByMonetaryDesc,
			},
			want: []string{"B", "D", "C"},
		},
		{
			name:   "Top Two",
			filter: analysis.CustomerFilter{OrderBy: analysis.OrderByMonetaryDesc, Limit: 2},
			want:   []string{"B", "D"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := analysis.FilterCustomers(customers, tt.filter)

			ids := make([]string, len(got))
			for i, c := range got {
				ids[i] = c.CustomerID
			}

			assert.Equal(t, tt.want, ids)
		})
	}

	assert.Equal(t, "C", customers[0].CustomerID, "input is not reordered")
}

func TestRun_SnapshotFilter(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 28, 23, 59, 59, 999999000, time.UTC)

	tests := []struct {
		name   string
		filter transaction.ListFilter
		want   transaction.ListFilter
	}{
		{
			name:   "Unfiltered Run",
			filter: transaction.ListFilter{},
			want:   transaction.ListFilter{CreatedBefore: &created},
		},
		{
			name:   "Keeps Run Filter",
			filter: transaction.ListFilter{CustomerID: new("CUST00001"), EndDate: &end},
			want:   transaction.ListFilter{CustomerID: new("CUST00001"), EndDate: &end, CreatedBefore: &created},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &analysis.Run{Filter: tt.filter, CreatedAt: created}

			assert.Equal(t, tt.want, run.SnapshotFilter())
			assert.Nil(t, run.Filter.CreatedBefore)
		})
	}
}
