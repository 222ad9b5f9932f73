package importcsv

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/http/response"
	"github.com/MrJamesThe3rd/rfmseg/internal/importer"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

const maxUploadSize = 32 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/formats", h.formats)
	r.Post("/", h.importCSV)
	r.Post("/confirm", h.confirmImport)
}

type transactionResponse struct {
	ID         string          `json:"transaction_id"`
	CustomerID string          `json:"customer_id"`
	Date       time.Time       `json:"transaction_date"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

type importSuccessResponse struct {
	Imported     int                   `json:"imported"`
	Transactions []transactionResponse `json:"transactions"`
}

type createParamsDTO struct {
	ID            string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id"`
	Date          time.Time       `json:"transaction_date"`
	Amount        decimal.Decimal `json:"amount"`
	Quantity      int             `json:"quantity"`
	Category      string          `json:"category,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Country       string          `json:"country,omitempty"`
}

type conflictDTO struct {
	Incoming createParamsDTO     `json:"incoming"`
	Existing transactionResponse `json:"existing"`
}

type importConflictResponse struct {
	New       []createParamsDTO `json:"new"`
	Conflicts []conflictDTO     `json:"conflicts"`
}

type confirmRequest struct {
	Params []createParamsDTO `json:"params"`
}

func (h *Handler) formats(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.importSvc.Formats())
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(importer.Format(r.FormValue("format")), file)
	if err != nil {
		response.Error(w, err)
		return
	}

	result, err := h.txSvc.ImportBatch(r.Context(), params)
	if err != nil {
		response.Error(w, err)
		return
	}

	if len(result.Conflicts) > 0 {
		resp := importConflictResponse{
			New:       make([]createParamsDTO, 0, len(result.New)),
			Conflicts: make([]conflictDTO, 0, len(result.Conflicts)),
		}
		for _, p := range result.New {
			resp.New = append(resp.New, toParamsDTO(p))
		}

		for _, c := range result.Conflicts {
			resp.Conflicts = append(resp.Conflicts, conflictDTO{
				Incoming: toParamsDTO(c.Incoming),
				Existing: toTxResponse(c.Existing),
			})
		}

		response.JSON(w, http.StatusConflict, resp)

		return
	}

	response.JSON(w, http.StatusCreated, toSuccessResponse(result.Imported))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body: "+err.Error())
		return
	}

	params := make([]transaction.CreateParams, 0, len(req.Params))
	for _, p := range req.Params {
		if p.Amount.IsNegative() {
			response.BadRequest(w, "negative amount for transaction "+p.ID)
			return
		}

		params = append(params, transaction.CreateParams{
			ID:            p.ID,
			CustomerID:    p.CustomerID,
			Date:          p.Date,
			Amount:        p.Amount,
			Quantity:      p.Quantity,
			Category:      p.Category,
			PaymentMethod: p.PaymentMethod,
			Country:       p.Country,
		})
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		response.Error(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, toSuccessResponse(txs))
}

func toSuccessResponse(txs []*transaction.Transaction) importSuccessResponse {
	responses := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		responses = append(responses, toTxResponse(tx))
	}

	return importSuccessResponse{
		Imported:     len(txs),
		Transactions: responses,
	}
}

func toTxResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		CustomerID: tx.CustomerID,
		Date:       tx.Date,
		Amount:     tx.Amount,
		CreatedAt:  tx.CreatedAt,
	}
}

func toParamsDTO(p transaction.CreateParams) createParamsDTO {
	return createParamsDTO{
		ID:            p.ID,
		CustomerID:    p.CustomerID,
		Date:          p.Date,
		Amount:        p.Amount,
		Quantity:      p.Quantity,
		Category:      p.Category,
		PaymentMethod: p.PaymentMethod,
		Country:       p.Country,
	}
}
