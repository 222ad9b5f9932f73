package export

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	httpanalysis "github.com/MrJamesThe3rd/rfmseg/internal/http/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/response"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type Handler struct {
	analyses     *analysis.Service
	transactions *transaction.Service
	publisher    *report.Publisher
}

func NewHandler(analyses *analysis.Service, transactions *transaction.Service, publisher *report.Publisher) *Handler {
	return &Handler{
		analyses:     analyses,
		transactions: transactions,
		publisher:    publisher,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{id}/workbook", h.workbook)
	r.Get("/{id}/customers.csv", h.customersCSV)
	r.Get("/{id}/segments.csv", h.segmentsCSV)
	r.Get("/{id}/summary", h.summary)
	r.Post("/{id}/publish", h.publish)
}

type summaryResponse struct {
	Text string `json:"text"`
}

type publishResponse struct {
	Published bool `json:"published"`
}

// load fetches the run with its full customer table.
func (h *Handler) load(ctx context.Context, id uuid.UUID) (*analysis.Run, []*transaction.Transaction, error) {
	run, err := h.analyses.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	customers, err := h.analyses.Customers(ctx, id, analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID})
	if err != nil {
		return nil, nil, fmt.Errorf("loading customers: %w", err)
	}

	txs, err := h.transactions.List(ctx, run.SnapshotFilter())
	if err != nil {
		return nil, nil, fmt.Errorf("loading transactions: %w", err)
	}

	full := *run
	full.Customers = customers

	return &full, txs, nil
}

func attachment(w http.ResponseWriter, contentType, name string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}

func (h *Handler) workbook(w http.ResponseWriter, r *http.Request) {
	id, err := httpanalysis.URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	run, txs, err := h.load(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	f, err := report.Workbook(report.Data{
		AnalysisDate:       run.AnalysisDate,
		ChurnThresholdDays: run.ChurnThresholdDays,
		Portfolio:          run.Portfolio,
		Segments:           run.Segments,
		Customers:          run.Customers,
		Transactions:       txs,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	defer f.Close()

	attachment(w, report.ContentType, fmt.Sprintf("Customer_Segmentation_Analysis_%s.xlsx", run.CreatedAt.Format("20060102_150405")))

	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}

func (h *Handler) customersCSV(w http.ResponseWriter, r *http.Request) {
	id, err := httpanalysis.URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	customers, err := h.analyses.Customers(r.Context(), id, analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID})
	if err != nil {
		response.Error(w, err)
		return
	}

	attachment(w, "text/csv", "rfm_analysis.csv")

	if err := report.WriteCustomersCSV(w, customers); err != nil {
		slog.Error("failed to write csv", "error", err)
	}
}

func (h *Handler) segmentsCSV(w http.ResponseWriter, r *http.Request) {
	id, err := httpanalysis.URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	segments, err := h.analyses.Segments(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	attachment(w, "text/csv", "segment_summary.csv")

	if err := report.WriteSegmentsCSV(w, segments); err != nil {
		slog.Error("failed to write csv", "error", err)
	}
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, err := httpanalysis.URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	run, err := h.analyses.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, summaryResponse{
		Text: report.GenerateSummary(run.Portfolio, run.ChurnThresholdDays),
	})
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	id, err := httpanalysis.URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	run, err := h.analyses.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	payload := report.NewPayload(run.ID.String(), run.AnalysisDate, run.Portfolio, run.Segments, time.Now())

	if err := h.publisher.Publish(r.Context(), payload); err != nil {
		response.Error(w, err)
		return
	}

	slog.Info("published analysis report", "run_id", run.ID)

	response.JSON(w, http.StatusOK, publishResponse{Published: true})
}
