package worker

import (
	"strings"
	"testing"

	"carteira/internal/amqp"
	"carteira/internal/budget"
)

func TestAlertMessage(t *testing.T) {
	cases := []struct {
		alertType budget.AlertType
		name      string
		contains  string
	}{
		{budget.AlertExceeded, "Alimentação", "excedido"},
		{budget.AlertApproachingLimit, "Transporte", "quase no limite"},
		{budget.AlertNoBudget, "Lazer", "sem orçamento"},
	}
	for _, tc := range cases {
		msg := &amqp.PlanAlertMessage{
			AlertType:     tc.alertType,
			CategoryName:  tc.name,
			CurrentAmount: "100.00",
			PlannedAmount: "80.00",
			Percentage:    125,
		}
		got := alertMessage(msg)
		if !strings.Contains(got, tc.contains) || !strings.Contains(got, tc.name) {
			t.Fatalf("%s: unexpected message %q", tc.alertType, got)
		}
	}
}

func TestAlertMessageUnknownCategory(t *testing.T) {
	msg := &amqp.PlanAlertMessage{AlertType: budget.AlertExceeded, CurrentAmount: "10", PlannedAmount: "5"}
	if got := alertMessage(msg); !strings.Contains(got, budget.UnknownCategoryName) {
		t.Fatalf("expected fallback name, got %q", got)
	}
}
