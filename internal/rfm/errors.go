package rfm

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when there is no transaction or customer to analyse.
var ErrInsufficientData = errors.New("insufficient data: at least one transaction is required")

// DataIntegrityError reports a transaction that violates the input contract.
type DataIntegrityError struct {
	TransactionID string
	Field         string
	Reason        string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: transaction %q: %s %s", e.TransactionID, e.Field, e.Reason)
}

func validate(txs []Transaction) error {
	if len(txs) == 0 {
		return ErrInsufficientData
	}

	for _, tx := range txs {
		switch {
		case tx.CustomerID == "":
			return &DataIntegrityError{TransactionID: tx.ID, Field: "customer_id", Reason: "is missing"}
		case tx.Date.IsZero():
			return &DataIntegrityError{TransactionID: tx.ID, Field: "transaction_date", Reason: "is missing"}
		case tx.Amount.IsNegative():
			return &DataIntegrityError{TransactionID: tx.ID, Field: "amount", Reason: "is negative"}
		}
	}

	return nil
}
