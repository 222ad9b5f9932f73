package analysis

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/http/response"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type Handler struct {
	svc *analysis.Service
}

func NewHandler(svc *analysis.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.run)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Get("/{id}/segments", h.segments)
	r.Get("/{id}/customers", h.customers)
}

type runRequest struct {
	CustomerID *string `json:"customer_id,omitempty"`
	StartDate  *string `json:"start_date,omitempty"`
	EndDate    *string `json:"end_date,omitempty"`
}

func (req runRequest) filter() (transaction.ListFilter, error) {
	filter := transaction.ListFilter{CustomerID: req.CustomerID}

	for _, d := range []struct {
		raw *string
		dst **time.Time
		end bool
	}{
		{req.StartDate, &filter.StartDate, false},
		{req.EndDate, &filter.EndDate, true},
	} {
		if d.raw == nil {
			continue
		}

		t, err := time.Parse(time.DateOnly, *d.raw)
		if err != nil {
			return filter, err
		}

		if d.end {
			t = transaction.EndOfDay(t)
		}

		*d.dst = new(t)
	}

	return filter, nil
}

// URLParamID parses the {id} path parameter as a run id.
func URLParamID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	filter, err := req.filter()
	if err != nil {
		response.BadRequest(w, "invalid date, expected YYYY-MM-DD")
		return
	}

	run, err := h.svc.Run(r.Context(), filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toRunResponse(run))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit := 0

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}

		limit = n
	}

	runs, err := h.svc.List(r.Context(), limit)
	if err != nil {
		response.Error(w, err)
		return
	}

	resp := make([]runResponse, len(runs))
	for i, run := range runs {
		resp[i] = toRunResponse(run)
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	run, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toRunResponse(run))
}

func (h *Handler) segments(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	segments, err := h.svc.Segments(r.Context(), id)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toSegmentResponses(segments))
}

// customers lists scored customers. Query: segment (repeatable), order (customer_id|monetary_desc), limit.
func (h *Handler) customers(w http.ResponseWriter, r *http.Request) {
	id, err := URLParamID(r)
	if err != nil {
		response.BadRequest(w, "invalid id")
		return
	}

	q := r.URL.Query()

	filter := analysis.CustomerFilter{OrderBy: analysis.OrderByCustomerID}

	for _, name := range q["segment"] {
		seg, ok := rfm.ParseSegment(name)
		if !ok {
			response.BadRequest(w, "unknown segment: "+name)
			return
		}

		filter.Segments = append(filter.Segments, seg)
	}

	switch order := analysis.CustomerOrder(q.Get("order")); order {
	case "":
	case analysis.OrderByCustomerID, analysis.OrderByMonetaryDesc:
		filter.OrderBy = order
	default:
		response.BadRequest(w, "unknown order: "+string(order))
		return
	}

	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.BadRequest(w, "invalid limit")
			return
		}

		filter.Limit = n
	}

	customers, err := h.svc.Customers(r.Context(), id, filter)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusOK, toCustomerResponses(customers))
}
