package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

type transactionResponse struct {
	ID            string          `json:"transaction_id"`
	CustomerID    string          `json:"customer_id"`
	Date          time.Time       `json:"transaction_date"`
	Amount        decimal.Decimal `json:"amount"`
	Quantity      int             `json:"quantity"`
	Category      string          `json:"category,omitempty"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Country       string          `json:"country,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type listResponse struct {
	Total        int                   `json:"total"`
	Transactions []transactionResponse `json:"transactions"`
}

func toResponse(tx *transaction.Transaction) transactionResponse {
	return transactionResponse{
		ID:            tx.ID,
		CustomerID:    tx.CustomerID,
		Date:          tx.Date,
		Amount:        tx.Amount,
		Quantity:      tx.Quantity,
		Category:      tx.Category,
		PaymentMethod: tx.PaymentMethod,
		Country:       tx.Country,
		CreatedAt:     tx.CreatedAt,
	}
}

func toResponseList(txs []*transaction.Transaction) []transactionResponse {
	resp := make([]transactionResponse, len(txs))
	for i, tx := range txs {
		resp[i] = toResponse(tx)
	}

	return resp
}
