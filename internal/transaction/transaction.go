package transaction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

// Transaction is one purchase event. ID is the business transaction_id carried by the source data.
type Transaction struct {
	ID            string
	CustomerID    string
	Date          time.Time
	Amount        decimal.Decimal
	Quantity      int
	Category      string
	PaymentMethod string
	Country       string
	CreatedAt     time.Time
}

// RFM returns the fields consumed by the segmentation core.
func (t *Transaction) RFM() rfm.Transaction {
	return rfm.Transaction{
		ID:         t.ID,
		CustomerID: t.CustomerID,
		Date:       t.Date,
		Amount:     t.Amount,
	}
}

func ToRFM(txs []*Transaction) []rfm.Transaction {
	out := make([]rfm.Transaction, len(txs))
	for i, t := range txs {
		out[i] = t.RFM()
	}

	return out
}
