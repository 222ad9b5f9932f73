package importer

import (
	"io"

	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

// Format names a supported transaction export layout.
type Format string

const (
	FormatAuto      Format = "auto"
	FormatEcommerce Format = "ecommerce"
	FormatOrders    Format = "orders"
)

type Importer interface {
	Parse(r io.Reader) ([]transaction.CreateParams, error)
}
