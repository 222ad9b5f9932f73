package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

var (
	customerHeader = []string{
		"customer_id", "recency", "frequency", "monetary",
		"r_score", "f_score", "m_score", "rfm_score", "segment",
	}
	segmentHeader = []string{
		"Segment", "Customer_Count", "Avg_Recency", "Avg_Frequency",
		"Total_Revenue", "Avg_Revenue_Per_Customer", "Percentage",
	}
	transactionHeader = []string{
		"transaction_id", "customer_id", "transaction_date", "amount",
		"quantity", "category", "payment_method", "country",
	}
)

// WriteCustomersCSV writes the per-customer scoring table.
func WriteCustomersCSV(w io.Writer, customers []rfm.ScoredCustomer) error {
	return writeCSV(w, customerHeader, len(customers), func(i int) []string {
		c := customers[i]

		return []string{
			c.CustomerID,
			strconv.Itoa(c.Recency),
			strconv.Itoa(c.Frequency),
			c.Monetary.StringFixed(2),
			strconv.Itoa(c.RScore),
			strconv.Itoa(c.FScore),
			strconv.Itoa(c.MScore),
			strconv.Itoa(c.RFMScore),
			string(c.Segment),
		}
	})
}

// WriteSegmentsCSV writes the segment summary in the order given.
func WriteSegmentsCSV(w io.Writer, segments []rfm.SegmentSummary) error {
	return writeCSV(w, segmentHeader, len(segments), func(i int) []string {
		s := segments[i]

		return []string{
			string(s.Segment),
			strconv.Itoa(s.CustomerCount),
			formatFloat(s.AvgRecency),
			formatFloat(s.AvgFrequency),
			s.TotalRevenue.StringFixed(2),
			s.AvgRevenuePerCustomer.StringFixed(2),
			formatFloat(s.Percentage),
		}
	})
}

// WriteTransactionsCSV writes transactions in the layout the ecommerce importer reads back.
func WriteTransactionsCSV(w io.Writer, txs []*transaction.Transaction) error {
	return writeCSV(w, transactionHeader, len(txs), func(i int) []string {
		t := txs[i]

		return []string{
			t.ID,
			t.CustomerID,
			t.Date.Format(time.DateTime),
			t.Amount.StringFixed(2),
			strconv.Itoa(t.Quantity),
			t.Category,
			t.PaymentMethod,
			t.Country,
		}
	})
}

func writeCSV(w io.Writer, header []string, n int, row func(i int) []string) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := range n {
		if err := cw.Write(row(i)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	cw.Flush()

	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}

	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}
