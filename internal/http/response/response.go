package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer/csvfile"
	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps a service error onto its status code and writes it as JSON.
// Unrecognised errors are logged and reported as internal errors.
func Error(w http.ResponseWriter, err error) {
	status := Status(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)

		msg = "internal error"
	}

	JSON(w, status, errorBody{Error: msg})
}

// Status returns the HTTP status code for err.
func Status(err error) int {
	var (
		integrityErr *rfm.DataIntegrityError
		rowErr       *csvfile.RowError
	)

	switch {
	case errors.Is(err, rfm.ErrInsufficientData), errors.As(err, &integrityErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, transaction.ErrNotFound), errors.Is(err, analysis.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, importer.ErrUnknownFormat), errors.Is(err, csvfile.ErrNoProfile), errors.As(err, &rowErr):
		return http.StatusBadRequest
	case errors.Is(err, report.ErrPublisherDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest reports a malformed request.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorBody{Error: msg})
}
