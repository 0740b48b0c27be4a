package amqp

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"carteira/internal/budget"
)

func TestExponentialBackoff(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // capped
		{10, 30 * time.Second},
		{63, 30 * time.Second}, // overflow guard
	}
	for _, tc := range cases {
		if got := exponentialBackoff(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("Exception (504) Reason: \"channel/connection is not open\""), true},
		{errors.New("message channel closed"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("queue not found"), false},
		{errors.New("access refused"), false},
	}
	for _, tc := range cases {
		if got := isConnectionError(tc.err); got != tc.want {
			t.Fatalf("%v: expected %v, got %v", tc.err, tc.want, got)
		}
	}
}

func TestPlanAlertMessageRoundTrip(t *testing.T) {
	alert := budget.PlanAlert{
		Type:          budget.AlertExceeded,
		CategoryID:    "alimentacao",
		CategoryName:  "Alimentação",
		CurrentAmount: decimal.RequireFromString("1300.00"),
		PlannedAmount: decimal.RequireFromString("1200.00"),
		Percentage:    108.33,
	}
	msg := NewPlanAlertMessage("familia", 7, 3, 2025, alert)

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := PlanAlertMessageFromJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.AlertType != budget.AlertExceeded ||
		back.PlanID != 7 ||
		back.Month != 3 ||
		back.Year != 2025 ||
		back.CurrentAmount != "1300.00" ||
		back.CategoryName != "Alimentação" {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestPlanAlertMessageFromJSONInvalid(t *testing.T) {
	if _, err := PlanAlertMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
