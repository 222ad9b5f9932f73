package report_test

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/rfmseg/internal/report"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
	"github.com/MrJamesThe3rd/rfmseg/internal/transaction"
)

func customer(id string, r, f int, m int64, segment rfm.Segment) rfm.ScoredCustomer {
	return rfm.ScoredCustomer{
		CustomerMetrics: rfm.CustomerMetrics{CustomerID: id, Recency: r, Frequency: f, Monetary: decimal.NewFromInt(m)},
		RScore:          5,
		FScore:          4,
		MScore:          3,
		RFMScore:        12,
		Segment:         segment,
	}
}

func readCSV(t *testing.T, b *bytes.Buffer) [][]string {
	t.Helper()

	records, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)

	return records
}

func TestWriteCustomersCSV(t *testing.T) {
	var buf bytes.Buffer

	err := report.WriteCustomersCSV(&buf, []rfm.ScoredCustomer{customer("C1", 3, 2, 150, rfm.SegmentLoyalCustomers)})
	require.NoError(t, err)

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"customer_id", "recency", "frequency", "monetary", "r_score", "f_score", "m_score", "rfm_score", "segment"}, records[0])
	assert.Equal(t, []string{"C1", "3", "2", "150.00", "5", "4", "3", "12", "Loyal Customers"}, records[1])
}

func TestWriteSegmentsCSV(t *testing.T) {
	var buf bytes.Buffer

	err := report.WriteSegmentsCSV(&buf, []rfm.SegmentSummary{{
		Segment:               rfm.SegmentAtRisk,
		CustomerCount:         3,
		AvgRecency:            100.0 / 3,
		AvgFrequency:          2,
		TotalRevenue:          decimal.NewFromInt(100),
		AvgRevenuePerCustomer: decimal.NewFromInt(100).Div(decimal.NewFromInt(3)),
		Percentage:            33.33,
	}})
	require.NoError(t, err)

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "Segment", records[0][0])
	assert.Equal(t, []string{"At Risk", "3", "33.33", "2.00", "100.00", "33.33", "33.33"}, records[1])
}

func TestWriteTransactionsCSV(t *testing.T) {
	var buf bytes.Buffer

	err := report.WriteTransactionsCSV(&buf, []*transaction.Transaction{{
		ID:            "TXN000001",
		CustomerID:    "CUST00001",
		Date:          time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC),
		Amount:        decimal.RequireFromString("19.9"),
		Quantity:      2,
		Category:      "Books",
		PaymentMethod: "PayPal",
		Country:       "Germany",
	}})
	require.NoError(t, err)

	records := readCSV(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"TXN000001", "CUST00001", "2024-03-05 14:30:00", "19.90", "2", "Books", "PayPal", "Germany"}, records[1])
}

func TestGenerateSummary(t *testing.T) {
	type args struct {
		portfolio rfm.Portfolio
		threshold int
	}

	type testCase struct {
		name string
		args args
		want []string
	}

	tests := []testCase{
		{
			name: "Thousands Grouped",
			args: args{
				portfolio: rfm.Portfolio{
					TotalCustomers:     2000,
					TotalRevenue:       decimal.RequireFromString("512.5"),
					AvgCustomerValue:   decimal.RequireFromString("0.25"),
					HighValueCustomers: 500,
					AtRiskCustomers:    250,
					ChurnRate:          0.125,
				},
				threshold: 90,
			},
			want: []string{
				"Total Customers: 2,000\n",
				"Total Revenue: $512.50\n",
				"Average Customer Value: $0.25\n",
				"High-Value Customers (Champions + Loyal): 500 (25.0%)\n",
				"At-Risk Customers: 250 (12.5%)\n",
				"Churn Rate (>90 days inactive): 12.5%\n",
			},
		},
		{
			name: "Default Threshold",
			args: args{portfolio: rfm.Portfolio{}, threshold: 0},
			want: []string{
				"Total Customers: 0\n",
				"High-Value Customers (Champions + Loyal): 0 (0.0%)\n",
				"Churn Rate (>90 days inactive): 0.0%\n",
			},
		},
		{
			name: "Custom Threshold",
			args: args{portfolio: rfm.Portfolio{TotalCustomers: 4, ChurnRate: 0.5}, threshold: 30},
			want: []string{"Churn Rate (>30 days inactive): 50.0%\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := report.GenerateSummary(tt.args.portfolio, tt.args.threshold)

			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestTimestampedFilename(t *testing.T) {
	now := time.Date(2025, 7, 4, 9, 5, 3, 0, time.UTC)

	got := report.TimestampedFilename("excel", "Customer_Segmentation_Analysis", "xlsx", now)
	assert.Equal(t, filepath.Join("excel", "Customer_Segmentation_Analysis_20250704_090503.xlsx"), got)
	assert.True(t, strings.HasSuffix(got, ".xlsx"))
}
