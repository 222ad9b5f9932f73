package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/rfmseg/internal/rfm"
)

func testPayload() Payload {
	return NewPayload(
		"run-1",
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		rfm.Portfolio{TotalCustomers: 3, TotalRevenue: decimal.RequireFromString("100.456")},
		[]rfm.SegmentSummary{{Segment: rfm.SegmentChampions, CustomerCount: 3, TotalRevenue: decimal.NewFromInt(100), Percentage: 100}},
		time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	)
}

func TestPublisher_Publish(t *testing.T) {
	var got Payload

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "secret")

	if err := p.Publish(context.Background(), testPayload()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if got.RunID != "run-1" || got.AnalysisDate != "2025-12-31" {
		t.Errorf("unexpected payload header: %+v", got)
	}

	if !got.Portfolio.TotalRevenue.Equal(decimal.RequireFromString("100.46")) {
		t.Errorf("expected revenue rounded to 100.46, got %s", got.Portfolio.TotalRevenue)
	}

	if len(got.Segments) != 1 || got.Segments[0].Segment != "Champions" {
		t.Errorf("unexpected segments: %+v", got.Segments)
	}
}

func TestPublisher_Publish_Retries(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "")
	p.Delay = time.Millisecond

	if err := p.Publish(context.Background(), testPayload()); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestPublisher_Publish_GivesUp(t *testing.T) {
	var calls atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := NewPublisher(ts.URL, "")
	p.Attempts = 2
	p.Delay = time.Millisecond

	if err := p.Publish(context.Background(), testPayload()); err == nil {
		t.Fatal("expected an error")
	}

	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestPublisher_Publish_StatusRetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		{name: "Unauthorized Is Terminal", status: http.StatusUnauthorized, wantCalls: 1},
		{name: "Bad Request Is Terminal", status: http.StatusBadRequest, wantCalls: 1},
		{name: "Not Found Is Terminal", status: http.StatusNotFound, wantCalls: 1},
		{name: "Too Many Requests Is Retried", status: http.StatusTooManyRequests, wantCalls: 3},
		{name: "Service Unavailable Is Retried", status: http.StatusServiceUnavailable, wantCalls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			p := NewPublisher(ts.URL, "")
			p.Delay = time.Millisecond

			err := p.Publish(context.Background(), testPayload())
			if err == nil {
				t.Fatal("expected an error")
			}

			var se *statusError
			if !errors.As(err, &se) || se.code != tt.status {
				t.Errorf("expected status %d in error, got %v", tt.status, err)
			}

			if calls.Load() != tt.wantCalls {
				t.Errorf("expected %d calls, got %d", tt.wantCalls, calls.Load())
			}
		})
	}
}

func TestPublisher_Publish_Disabled(t *testing.T) {
	p := NewPublisher("", "")

	if err := p.Publish(context.Background(), testPayload()); !errors.Is(err, ErrPublisherDisabled) {
		t.Errorf("expected ErrPublisherDisabled, got %v", err)
	}
}
