package transaction

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/rfmseg/internal/http/response"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type Handler struct {
	svc *transaction.Service
}

func NewHandler(svc *transaction.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
}

// ParseFilter reads the customer_id, category, country, start_date and end_date query parameters.
func ParseFilter(q url.Values) (transaction.ListFilter, error) {
	filter := transaction.ListFilter{}

	if s := q.Get("customer_id"); s != "" {
		filter.CustomerID = new(s)
	}

	if s := q.Get("category"); s != "" {
		filter.Category = new(s)
	}

	if s := q.Get("country"); s != "" {
		filter.Country = new(s)
	}

	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, err
		}

		filter.StartDate = new(t)
	}

	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return filter, err
		}

		filter.EndDate = new(transaction.EndOfDay(t))
	}

	return filter, nil
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := ParseFilter(r.URL.Query())
	if err != nil {
		response.BadRequest(w, "invalid date, expected YYYY-MM-DD")
		return
	}

	txs, err := h.svc.List(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, listResponse{
		Total:        len(txs),
		Transactions: toResponseList(txs),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
