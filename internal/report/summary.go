package report

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

// GenerateSummary renders the key business metrics of a portfolio as plain text.
func GenerateSummary(p rfm.Portfolio, churnThresholdDays int) string {
	if churnThresholdDays <= 0 {
		churnThresholdDays = rfm.DefaultChurnThresholdDays
	}

	pr := message.NewPrinter(language.English)

	var sb strings.Builder

	sb.WriteString(pr.Sprintf("Total Customers: %d\n", p.TotalCustomers))
	sb.WriteString(pr.Sprintf("Total Revenue: $%.2f\n", p.TotalRevenue.InexactFloat64()))
	sb.WriteString(pr.Sprintf("Average Customer Value: $%.2f\n", p.AvgCustomerValue.InexactFloat64()))
	sb.WriteString(pr.Sprintf("High-Value Customers (Champions + Loyal): %d (%.1f%%)\n",
		p.HighValueCustomers, share(p.HighValueCustomers, p.TotalCustomers)))
	sb.WriteString(pr.Sprintf("At-Risk Customers: %d (%.1f%%)\n",
		p.AtRiskCustomers, share(p.AtRiskCustomers, p.TotalCustomers)))
	sb.WriteString(pr.Sprintf("Churn Rate (>%d days inactive): %.1f%%\n", churnThresholdDays, p.ChurnRate*100))

	return sb.String()
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}

	return float64(n) / float64(total) * 100
}
