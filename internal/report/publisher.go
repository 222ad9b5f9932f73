package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

// ErrPublisherDisabled is returned when no webhook URL is configured.
var ErrPublisherDisabled = errors.New("report webhook is not configured")

// Payload is the JSON document posted to the reporting webhook.
type Payload struct {
	ReportType   string           `json:"report_type"`
	RunID        string           `json:"run_id,omitempty"`
	AnalysisDate string           `json:"analysis_date"`
	Portfolio    PortfolioPayload `json:"portfolio"`
	Segments     []SegmentPayload `json:"segments"`
	GeneratedAt  string           `json:"generated_at"`
}

type PortfolioPayload struct {
	TotalCustomers     int             `json:"total_customers"`
	TotalTransactions  int             `json:"total_transactions"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	AvgCustomerValue   decimal.Decimal `json:"avg_customer_value"`
	HighValueCustomers int             `json:"high_value_customers"`
	AtRiskCustomers    int             `json:"at_risk_customers"`
	ChurnedCustomers   int             `json:"churned_customers"`
	ChurnRate          float64         `json:"churn_rate"`
}

type SegmentPayload struct {
	Segment       string          `json:"segment"`
	CustomerCount int             `json:"customer_count"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	Percentage    float64         `json:"percentage"`
}

// NewPayload builds the webhook document of one analysis run.
func NewPayload(runID string, analysisDate time.Time, p rfm.Portfolio, segments []rfm.SegmentSummary, now time.Time) Payload {
	out := Payload{
		ReportType:   "rfm_segmentation",
		RunID:        runID,
		AnalysisDate: analysisDate.Format(time.DateOnly),
		Portfolio: PortfolioPayload{
			TotalCustomers:     p.TotalCustomers,
			TotalTransactions:  p.TotalTransactions,
			TotalRevenue:       p.TotalRevenue.Round(2),
			AvgCustomerValue:   p.AvgCustomerValue.Round(2),
			HighValueCustomers: p.HighValueCustomers,
			AtRiskCustomers:    p.AtRiskCustomers,
			ChurnedCustomers:   p.ChurnedCustomers,
			ChurnRate:          p.ChurnRate,
		},
		Segments:    make([]SegmentPayload, len(segments)),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}

	for i, s := range segments {
		out.Segments[i] = SegmentPayload{
			Segment:       string(s.Segment),
			CustomerCount: s.CustomerCount,
			TotalRevenue:  s.TotalRevenue.Round(2),
			Percentage:    s.Percentage,
		}
	}

	return out
}

// Publisher posts payloads to a reporting webhook, retrying failed attempts.
type Publisher struct {
	URL      string
	Token    string
	Attempts int
	Delay    time.Duration

	client *http.Client
}

func NewPublisher(url, token string) *Publisher {
	return &Publisher{
		URL:      url,
		Token:    token,
		Attempts: 3,
		Delay:    3 * time.Second,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Publisher) Publish(ctx context.Context, payload Payload) error {
	if p.URL == "" {
		return ErrPublisherDisabled
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	attempts := max(p.Attempts, 1)

	for attempt := 1; ; attempt++ {
		err = p.send(ctx, body)
		if err == nil {
			return nil
		}

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			return fmt.Errorf("publishing report: %w", err)
		}

		if attempt == attempts {
			break
		}

		slog.Warn("report publish attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}

	return fmt.Errorf("publishing report after %d attempts: %w", attempts, err)
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}

	return nil
}

type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string {
	return "unexpected status " + e.status
}

// Client errors other than 429 fail the same way on every attempt.
func (e *statusError) retryable() bool {
	return e.code >= http.StatusInternalServerError || e.code == http.StatusTooManyRequests
}
