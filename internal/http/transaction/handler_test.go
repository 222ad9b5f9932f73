package transaction_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	httptx "github.com/MrJamesThe3rd/rfmseg/internal/http/transaction"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

func newRouter(repo transaction.Repository) http.Handler {
	r := chi.NewRouter()
	r.Route("/transactions", httptx.NewHandler(transaction.NewService(repo)).Routes)

	return r
}

func TestHandler_List(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	want := transaction.ListFilter{CustomerID: new("CUST00001"), StartDate: &start}

	repo.EXPECT().ListTransactions(gomock.Any(), want).Return([]*transaction.Transaction{
		{ID: "TXN000001", CustomerID: "CUST00001", Date: start, Amount: decimal.RequireFromString("12.50"), Quantity: 1},
	}, nil)

	rec := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?customer_id=CUST00001&start_date=2025-01-01", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Total        int `json:"total"`
		Transactions []struct {
			ID     string `json:"transaction_id"`
			Amount string `json:"amount"`
		} `json:"transactions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Transactions, 1)
	assert.Equal(t, "TXN000001", body.Transactions[0].ID)
	assert.Equal(t, "12.5", body.Transactions[0].Amount)
}

func TestHandler_List_EndDateIncludesWholeDay(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	afternoon := time.Date(2025, 12, 31, 15, 0, 0, 0, time.UTC)

	var got transaction.ListFilter

	repo.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, filter transaction.ListFilter) ([]*transaction.Transaction, error) {
			got = filter
			return []*transaction.Transaction{
				{ID: "TXN000002", CustomerID: "CUST00001", Date: afternoon, Amount: decimal.RequireFromString("40"), Quantity: 1},
			}, nil
		})

	rec := httptest.NewRecorder()
	newRouter(repo).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?end_date=2025-12-31", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, time.Date(2025, 12, 31, 23, 59, 59, 999999000, time.UTC), *got.EndDate)
	assert.False(t, afternoon.After(*got.EndDate))
}

func TestHandler_List_InvalidDate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rec := httptest.NewRecorder()
	newRouter(transaction.NewMockRepository(ctrl)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/transactions?end_date=31/12/2025", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_GetAndDelete(t *testing.T) {
	type testCase struct {
		name       string
		method     string
		setup      func(repo *transaction.MockRepository)
		wantStatus int
	}

	tests := []testCase{
		{
			name:   "Get Found",
			method: http.MethodGet,
			setup: func(repo *transaction.MockRepository) {
				repo.EXPECT().GetTransaction(gomock.Any(), "TXN000001").Return(&transaction.Transaction{ID: "TXN000001"}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "Get Missing",
			method: http.MethodGet,
			setup: func(repo *transaction.MockRepository) {
				repo.EXPECT().GetTransaction(gomock.Any(), "TXN000001").Return(nil, transaction.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:   "Delete",
			method: http.MethodDelete,
			setup: func(repo *transaction.MockRepository) {
				repo.EXPECT().DeleteTransaction(gomock.Any(), "TXN000001").Return(nil)
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:   "Delete Missing",
			method: http.MethodDelete,
			setup: func(repo *transaction.MockRepository) {
				repo.EXPECT().DeleteTransaction(gomock.Any(), "TXN000001").Return(transaction.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			tt.setup(repo)

			rec := httptest.NewRecorder()
			newRouter(repo).ServeHTTP(rec, httptest.NewRequest(tt.method, "/transactions/TXN000001", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
