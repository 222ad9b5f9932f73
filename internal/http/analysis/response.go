package analysis

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/analysis"
	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

type filterResponse struct {
	CustomerID *string    `json:"customer_id,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
}

type portfolioResponse struct {
	TotalCustomers     int             `json:"total_customers"`
	TotalTransactions  int             `json:"total_transactions"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AvgCustomerValue   decimal.Decimal `json:"avg_customer_value"`
	HighValueCustomers int             `json:"high_value_customers"`
	AtRiskCustomers    int             `json:"at_risk_customers"`
	ChurnedCustomers   int             `json:"churned_customers"`
	ChurnRate          float64         `json:"churn_rate"`
	AvgRecency         float64         `json:"avg_recency"`
	AvgFrequency       float64         `json:"avg_frequency"`
	AvgMonetary        decimal.Decimal `json:"avg_monetary"`
}

type segmentResponse struct {
	Segment               rfm.Segment     `json:"segment"`
	CustomerCount         int             `json:"customer_count"`
	AvgRecency            float64         `json:"avg_recency"`
	AvgFrequency          float64         `json:"avg_frequency"`
	TotalRevenue          decimal.Decimal `json:"total_revenue"`
	AvgRevenuePerCustomer decimal.Decimal `json:"avg_revenue_per_customer"`
	Percentage            float64         `json:"percentage"`
}

type runResponse struct {
	ID                 uuid.UUID         `json:"id"`
	AnalysisDate       time.Time         `json:"analysis_date"`
	ChurnThresholdDays int               `json:"churn_threshold_days"`
	Filter             filterResponse    `json:"filter"`
	Portfolio          portfolioResponse `json:"portfolio"`
	Segments           []segmentResponse `json:"segments,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
}

type customerResponse struct {
	CustomerID string          `json:"customer_id"`
	Recency    int             `json:"recency"`
	Frequency  int             `json:"frequency"`
	Monetary   decimal.Decimal `json:"monetary"`
	RScore     int             `json:"r_score"`
	FScore     int             `json:"f_score"`
	MScore     int             `json:"m_score"`
	RFMScore   int             `json:"rfm_score"`
	Segment    rfm.Segment     `json:"segment"`
}

func toRunResponse(run *analysis.Run) runResponse {
	p := run.Portfolio

	return runResponse{
		ID:                 run.ID,
		AnalysisDate:       run.AnalysisDate,
		ChurnThresholdDays: run.ChurnThresholdDays,
		Filter: filterResponse{
			CustomerID: run.Filter.CustomerID,
			StartDate:  run.Filter.StartDate,
			EndDate:    run.Filter.EndDate,
		},
		Portfolio: portfolioResponse{
			TotalCustomers:     p.TotalCustomers,
			TotalTransactions:  p.TotalTransactions,
			TotalRevenue:       p.TotalRevenue,
			AvgCustomerValue:   p.AvgCustomerValue,
			HighValueCustomers: p.HighValueCustomers,
			AtRiskCustomers:    p.AtRiskCustomers,
			ChurnedCustomers:   p.ChurnedCustomers,
			ChurnRate:          p.ChurnRate,
			AvgRecency:         p.AvgRecency,
			AvgFrequency:       p.AvgFrequency,
			AvgMonetary:        p.AvgMonetary,
		},
		Segments:  toSegmentResponses(run.Segments),
		CreatedAt: run.CreatedAt,
	}
}

func toSegmentResponses(segments []rfm.SegmentSummary) []segmentResponse {
	resp := make([]segmentResponse, len(segments))
	for i, s := range segments {
		resp[i] = segmentResponse{
			Segment:               s.Segment,
			CustomerCount:         s.CustomerCount,
			AvgRecency:            s.AvgRecency,
			AvgFrequency:          s.AvgFrequency,
			TotalRevenue:          s.TotalRevenue,
			AvgRevenuePerCustomer: s.AvgRevenuePerCustomer,
			Percentage:            s.Percentage,
		}
	}

	return resp
}

func toCustomerResponses(customers []rfm.ScoredCustomer) []customerResponse {
	resp := make([]customerResponse, len(customers))
	for i, c := range customers {
		resp[i] = customerResponse{
			CustomerID: c.CustomerID,
			Recency:    c.Recency,
			Frequency:  c.Frequency,
			Monetary:   c.Monetary,
			RScore:     c.RScore,
			FScore:     c.FScore,
			MScore:     c.MScore,
			RFMScore:   c.RFMScore,
			Segment:    c.Segment,
		}
	}

	return resp
}
