package export_test

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/export"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

var runID = uuid.MustParse("4f1c2b7e-8a59-4d8e-9a9e-2b1d4f6c7a10")

func storedRun() *analysis.Run {
	return &analysis.Run{
		ID:                 runID,
		AnalysisDate:       time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		ChurnThresholdDays: 90,
		Portfolio: rfm.Portfolio{
			TotalCustomers:    2,
			TotalTransactions: 3,
			TotalRevenue:      decimal.NewFromInt(300),
			AvgCustomerValue:  decimal.NewFromInt(150),
		},
		Segments: []rfm.SegmentSummary{
			{Segment: rfm.SegmentChampions, CustomerCount: 1, TotalRevenue: decimal.NewFromInt(250), Percentage: 50},
			{Segment: rfm.SegmentLost, CustomerCount: 1, TotalRevenue: decimal.NewFromInt(50), Percentage: 50},
		},
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func storedCustomers() []rfm.ScoredCustomer {
	return []rfm.ScoredCustomer{
		{CustomerMetrics: rfm.CustomerMetrics{CustomerID: "C1", Recency: 1, Frequency: 2, Monetary: decimal.NewFromInt(250)}, RScore: 5, FScore: 5, MScore: 5, RFMScore: 15, Segment: rfm.SegmentChampions},
		{CustomerMetrics: rfm.CustomerMetrics{CustomerID: "C2", Recency: 200, Frequency: 1, Monetary: decimal.NewFromInt(50)}, RScore: 1, FScore: 1, MScore: 1, RFMScore: 3, Segment: rfm.SegmentLost},
	}
}

type fixture struct {
	runs   *analysis.MockRepository
	txs    *transaction.MockRepository
	router http.Handler
}

func newFixture(t *testing.T, publisher *report.Publisher) fixture {
	ctrl := gomock.NewController(t)

	runs := analysis.NewMockRepository(ctrl)
	txRepo := transaction.NewMockRepository(ctrl)
	txSvc := transaction.NewService(txRepo)
	analyses := analysis.NewService(runs, txSvc, analysis.Options{})

	r := chi.NewRouter()
	r.Route("/export", export.NewHandler(analyses, txSvc, publisher).Routes)

	return fixture{runs: runs, txs: txRepo, router: r}
}

func (f fixture) do(method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	return rec
}

func TestHandler_Workbook(t *testing.T) {
	f := newFixture(t, report.NewPublisher("", ""))

	run := storedRun()

	f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(run, nil)
	f.runs.EXPECT().ListCustomers(gomock.Any(), runID, analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID}).Return(storedCustomers(), nil)
	f.txs.EXPECT().ListTransactions(gomock.Any(), transaction.ListFilter{CreatedBefore: &run.CreatedAt}).Return([]*transaction.Transaction{
		{ID: "T1", CustomerID: "C1", Date: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(250), Category: "Books"},
	}, nil)

	rec := f.do(http.MethodGet, "/export/"+runID.String()+"/workbook")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, report.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Customer_Segmentation_Analysis_20250301_120000.xlsx")

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows(report.SheetRFMData)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestHandler_CSV(t *testing.T) {
	f := newFixture(t, report.NewPublisher("", ""))

	f.runs.EXPECT().ListCustomers(gomock.Any(), runID, gomock.Any()).Return(storedCustomers(), nil)
	f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(storedRun(), nil)

	rec := f.do(http.MethodGet, "/export/"+runID.String()+"/customers.csv")
	require.Equal(t, http.StatusOK, rec.Code)

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "C2", records[2][0])
	assert.Equal(t, "Lost", records[2][8])

	rec = f.do(http.MethodGet, "/export/"+runID.String()+"/segments.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "segment_summary.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Segment,Customer_Count"))
}

func TestHandler_Summary(t *testing.T) {
	f := newFixture(t, report.NewPublisher("", ""))

	f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(storedRun(), nil)

	rec := f.do(http.MethodGet, "/export/"+runID.String()+"/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Text, "Total Customers: 2\n")
}

func TestHandler_Publish(t *testing.T) {
	var calls atomic.Int32

	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer hook-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	type testCase struct {
		name       string
		publisher  *report.Publisher
		setup      func(f fixture)
		wantStatus int
		wantCalls  int32
	}

	tests := []testCase{
		{
			name:      "Published",
			publisher: report.NewPublisher(hook.URL, "hook-token"),
			setup: func(f fixture) {
				f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(storedRun(), nil)
			},
			wantStatus: http.StatusOK,
			wantCalls:  1,
		},
		{
			name:      "Not Configured",
			publisher: report.NewPublisher("", ""),
			setup: func(f fixture) {
				f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(storedRun(), nil)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:      "Run Missing",
			publisher: report.NewPublisher(hook.URL, "hook-token"),
			setup: func(f fixture) {
				f.runs.EXPECT().GetRun(gomock.Any(), runID).Return(nil, analysis.ErrNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls.Store(0)

			f := newFixture(t, tt.publisher)
			tt.setup(f)

			rec := f.do(http.MethodPost, "/export/"+runID.String()+"/publish")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}
