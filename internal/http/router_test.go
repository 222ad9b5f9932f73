package http_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	apihttp "github.com/MrJamesThe3rd/rfmseg/internal/http"
	httpanalysis "github.com/MrJamesThe3rd/rfmseg/internal/http/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/auth"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/export"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/importcsv"
	httptx "github.com/MrJamesThe3rd/rfmseg/internal/http/transaction"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

func newRouter(t *testing.T, opts apihttp.Options) (http.Handler, *transaction.MockRepository) {
	ctrl := gomock.NewController(t)

	txRepo := transaction.NewMockRepository(ctrl)
	txSvc := transaction.NewService(txRepo)
	analyses := analysis.NewService(analysis.NewMockRepository(ctrl), txSvc, analysis.Options{})

	return apihttp.New(
		opts,
		httptx.NewHandler(txSvc),
		importcsv.NewHandler(importer.NewService(), txSvc),
		httpanalysis.NewHandler(analyses),
		export.NewHandler(analyses, txSvc, report.NewPublisher("", "")),
	), txRepo
}

func TestRouter_Auth(t *testing.T) {
	secret := "router-secret"

	token, err := auth.NewToken([]byte(secret), "analyst", "", time.Hour)
	require.NoError(t, err)

	router, txRepo := newRouter(t, apihttp.Options{JWTSecret: secret})

	txRepo.EXPECT().ListTransactions(gomock.Any(), gomock.Any()).Return(nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CORS(t *testing.T) {
	router, _ := newRouter(t, apihttp.Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/transactions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_AnalysesRequireJSON(t *testing.T) {
	router, _ := newRouter(t, apihttp.Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
