package budget

import (
	"testing"

	"carteira/internal/core"
)

func summaryFor(t *testing.T, plan *core.MonthlyPlan, txs []core.Transaction) *PlanSummary {
	t.Helper()
	s := ComputeSummary(plan, txs, testCategories)
	if s == nil {
		t.Fatal("expected summary")
	}
	return s
}

func TestCheckTransactionAlertNilSummary(t *testing.T) {
	if got := CheckTransactionAlert("alimentacao", dec("10.00"), nil); got != nil {
		t.Fatalf("no plan means no alert, got %+v", got)
	}
}

func TestCheckTransactionAlertWithinBudget(t *testing.T) {
	plan := testPlan(core.CategoryBudget{CategoryID: "alimentacao", PlannedAmount: dec("1200.00")})
	s := summaryFor(t, plan, []core.Transaction{expense("alimentacao", "1100.00", 2)})

	// projected 1150 <= 1200: silent
	if got := CheckTransactionAlert("alimentacao", dec("50.00"), s); got != nil {
		t.Fatalf("expected nil alert within budget, got %+v", got)
	}
	// projected exactly 1200: still silent, the ceiling is inclusive
	if got := CheckTransactionAlert("alimentacao", dec("100.00"), s); got != nil {
		t.Fatalf("expected nil alert at exactly 100%%, got %+v", got)
	}
}

func TestCheckTransactionAlertExceeded(t *testing.T) {
	plan := testPlan(core.CategoryBudget{CategoryID: "alimentacao", PlannedAmount: dec("1200.00")})
	s := summaryFor(t, plan, []core.Transaction{expense("alimentacao", "1100.00", 2)})

	alert := CheckTransactionAlert("alimentacao", dec("200.00"), s)
	if alert == nil {
		t.Fatal("expected EXCEEDED alert")
	}
	if alert.Type != AlertExceeded {
		t.Errorf("expected EXCEEDED, got %s", alert.Type)
	}
	if !alert.CurrentAmount.Equal(dec("1300.00")) {
		t.Errorf("alert must carry the projected total, got %s", alert.CurrentAmount)
	}
	if !alert.PlannedAmount.Equal(dec("1200.00")) {
		t.Errorf("expected planned 1200.00, got %s", alert.PlannedAmount)
	}
	if alert.Percentage < 108.33 || alert.Percentage > 108.34 {
		t.Errorf("expected ~108.33%%, got %f", alert.Percentage)
	}
	if alert.CategoryName != "Alimentação" {
		t.Errorf("expected resolved category name, got %q", alert.CategoryName)
	}
}

func TestCheckTransactionAlertNoBudget(t *testing.T) {
	plan := testPlan(core.CategoryBudget{CategoryID: "alimentacao", PlannedAmount: dec("1200.00")})
	s := summaryFor(t, plan, nil)

	alert := CheckTransactionAlert("lazer", dec("75.00"), s)
	if alert == nil {
		t.Fatal("expected NO_BUDGET alert")
	}
	if alert.Type != AlertNoBudget {
		t.Errorf("expected NO_BUDGET, got %s", alert.Type)
	}
	if alert.CategoryID != "lazer" {
		t.Errorf("expected category lazer, got %s", alert.CategoryID)
	}
	if !alert.CurrentAmount.Equal(dec("75.00")) {
		t.Errorf("expected the prospective amount, got %s", alert.CurrentAmount)
	}
	if !alert.PlannedAmount.IsZero() {
		t.Errorf("expected zero ceiling, got %s", alert.PlannedAmount)
	}
}

func TestCheckTransactionAlertZeroPlanned(t *testing.T) {
	// A budgeted category with a 0 ceiling: any positive spend busts it,
	// and the percentage guard keeps the alert at 0 instead of dividing.
	plan := testPlan(core.CategoryBudget{CategoryID: "alimentacao", PlannedAmount: dec("0")})
	s := summaryFor(t, plan, nil)

	alert := CheckTransactionAlert("alimentacao", dec("1.00"), s)
	if alert == nil {
		t.Fatal("expected EXCEEDED alert on zero ceiling")
	}
	if alert.Type != AlertExceeded {
		t.Errorf("expected EXCEEDED, got %s", alert.Type)
	}
	if alert.Percentage != 0 {
		t.Errorf("zero ceiling must not divide, got %f", alert.Percentage)
	}
}

func TestCheckTransactionAlertReadOnly(t *testing.T) {
	plan := testPlan(core.CategoryBudget{CategoryID: "alimentacao", PlannedAmount: dec("100.00")})
	s := summaryFor(t, plan, []core.Transaction{expense("alimentacao", "90.00", 1)})

	_ = CheckTransactionAlert("alimentacao", dec("50.00"), s)

	if !s.Categories[0].SpentAmount.Equal(dec("90.00")) {
		t.Fatalf("check must not mutate the summary, spent is now %s", s.Categories[0].SpentAmount)
	}
}
