package analysis_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	httpanalysis "github.com/MrJamesThe3rd/rfmseg/internal/http/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

func snapshot(n int) []*transaction.Transaction {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	txs := make([]*transaction.Transaction, n)
	for i := range txs {
		txs[i] = &transaction.Transaction{
			ID:         fmt.Sprintf("TXN%06d", i+1),
			CustomerID: fmt.Sprintf("CUST%05d", i%8+1),
			Date:       base.AddDate(0, 0, i*3),
			Amount:     decimal.NewFromInt(int64(5 + i)),
		}
	}

	return txs
}

type fixture struct {
	repo   *analysis.MockRepository
	source *analysis.MockTransactionSource
	router http.Handler
}

func newFixture(t *testing.T, ttl time.Duration) fixture {
	ctrl := gomock.NewController(t)

	repo := analysis.NewMockRepository(ctrl)
	source := analysis.NewMockTransactionSource(ctrl)

	r := chi.NewRouter()
	r.Route("/analyses", httpanalysis.NewHandler(analysis.NewService(repo, source, analysis.Options{CacheTTL: ttl})).Routes)

	return fixture{repo: repo, source: source, router: r}
}

func (f fixture) do(method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, strings.NewReader(body)))

	return rec
}

func TestHandler_Run(t *testing.T) {
	f := newFixture(t, time.Minute)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	f.source.EXPECT().List(gomock.Any(), transaction.ListFilter{StartDate: &start}).Return(snapshot(40), nil)
	f.repo.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil)

	rec := f.do(http.MethodPost, "/analyses", `{"start_date":"2025-01-01"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run struct {
		ID        uuid.UUID `json:"id"`
		Portfolio struct {
			TotalCustomers    int `json:"total_customers"`
			TotalTransactions int `json:"total_transactions"`
		} `json:"portfolio"`
		Segments []struct {
			Segment string `json:"segment"`
		} `json:"segments"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))

	assert.Equal(t, 8, run.Portfolio.TotalCustomers)
	assert.Equal(t, 40, run.Portfolio.TotalTransactions)
	assert.NotEmpty(t, run.Segments)

	// The fresh run is cached, so customer listings need no repository call.
	rec = f.do(http.MethodGet, "/analyses/"+run.ID.String()+"/customers?order=monetary_desc&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var customers []struct {
		CustomerID string `json:"customer_id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&customers))
	assert.Len(t, customers, 2)
}

func TestHandler_Run_EndDateIncludesWholeDay(t *testing.T) {
	f := newFixture(t, time.Minute)

	end := time.Date(2025, 12, 31, 23, 59, 59, 999999000, time.UTC)

	afternoon := time.Date(2025, 12, 31, 15, 0, 0, 0, time.UTC)
	require.False(t, afternoon.After(end))

	txs := snapshot(40)
	txs[len(txs)-1].Date = afternoon

	f.source.EXPECT().List(gomock.Any(), transaction.ListFilter{EndDate: &end}).Return(txs, nil)
	f.repo.EXPECT().SaveRun(gomock.Any(), gomock.Any()).Return(nil)

	rec := f.do(http.MethodPost, "/analyses", `{"end_date":"2025-12-31"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var run struct {
		AnalysisDate time.Time `json:"analysis_date"`
		Filter       struct {
			EndDate *time.Time `json:"end_date"`
		} `json:"filter"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&run))

	assert.True(t, afternoon.AddDate(0, 0, 1).Equal(run.AnalysisDate))
	require.NotNil(t, run.Filter.EndDate)
	assert.True(t, end.Equal(*run.Filter.EndDate))
}

func TestHandler_Run_Errors(t *testing.T) {
	type testCase struct {
		name       string
		body       string
		setup      func(f fixture)
		wantStatus int
	}

	tests := []testCase{
		{
			name: "Empty Snapshot",
			body: "",
			setup: func(f fixture) {
				f.source.EXPECT().List(gomock.Any(), transaction.ListFilter{}).Return(nil, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "Negative Amount",
			body: "{}",
			setup: func(f fixture) {
				f.source.EXPECT().List(gomock.Any(), gomock.Any()).Return([]*transaction.Transaction{
					{ID: "T1", CustomerID: "C1", Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(-3)},
				}, nil)
			},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "Bad Date",
			body:       `{"end_date":"yesterday"}`,
			setup:      func(fixture) {},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			tt.setup(f)

			rec := f.do(http.MethodPost, "/analyses", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHandler_Get(t *testing.T) {
	f := newFixture(t, 0)

	id := uuid.New()
	missing := uuid.New()

	f.repo.EXPECT().GetRun(gomock.Any(), id).Return(&analysis.Run{
		ID:       id,
		Segments: []rfm.SegmentSummary{{Segment: rfm.SegmentLost, CustomerCount: 2, Percentage: 100}},
	}, nil).Times(2)
	f.repo.EXPECT().GetRun(gomock.Any(), missing).Return(nil, analysis.ErrNotFound)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/analyses/"+id.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/analyses/"+missing.String(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/analyses/not-a-uuid", "").Code)

	rec := f.do(http.MethodGet, "/analyses/"+id.String()+"/segments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var segments []struct {
		Segment       string `json:"segment"`
		CustomerCount int    `json:"customer_count"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&segments))
	require.Len(t, segments, 1)
	assert.Equal(t, "Lost", segments[0].Segment)
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t, 0)

	f.repo.EXPECT().ListRuns(gomock.Any(), 5).Return([]*analysis.Run{{ID: uuid.New()}, {ID: uuid.New()}}, nil)

	rec := f.do(http.MethodGet, "/analyses?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&runs))
	assert.Len(t, runs, 2)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/analyses?limit=-1", "").Code)
}

func TestHandler_Customers(t *testing.T) {
	id := uuid.New()

	type testCase struct {
		name       string
		query      string
		setup      func(f fixture)
		wantStatus int
	}

	tests := []testCase{
		{
			name:  "Segment Filter",
			query: "?segment=At+Risk&segment=Lost&order=monetary_desc&limit=10",
			setup: func(f fixture) {
				f.repo.EXPECT().ListCustomers(gomock.Any(), id, analysis.CustomerFilter{
					Segments: []rfm.Segment{rfm.SegmentAtRisk, rfm.SegmentLost},
					OrderBy:  analysis.OrderByMonetaryDesc,
					Limit:    10,
				}).Return([]rfm.ScoredCustomer{{Segment: rfm.SegmentAtRisk}}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:  "Default Order",
			query: "",
			setup: func(f fixture) {
				f.repo.EXPECT().ListCustomers(gomock.Any(), id, analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID}).Return(nil, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Unknown Segment",
			query:      "?segment=VIP",
			setup:      func(fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Unknown Order",
			query:      "?order=recency",
			setup:      func(fixture) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "Run Missing",
			query: "",
			setup: func(f fixture) {
				f.repo.EXPECT().ListCustomers(gomock.Any(), id, gomock.Any()).Return(nil, analysis.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0)
			tt.setup(f)

			rec := f.do(http.MethodGet, "/analyses/"+id.String()+"/customers"+tt.query, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}
