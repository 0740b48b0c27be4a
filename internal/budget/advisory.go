package budget

import (
	"github.com/shopspring/decimal"
)

// CheckTransactionAlert answers the pre-commit advisory question: would
// this prospective expense push its category over budget?
//
// The check is read-only and never blocks: callers surface the alert as
// a dismissible warning and record the transaction regardless.
//
// Absence rules:
//   - nil summary (no plan for the active month) -> nil, silently
//     permissive;
//   - category not budgeted in the plan -> NO_BUDGET alert carrying the
//     prospective amount against a zero ceiling;
//   - projected total within the ceiling -> nil.
//
// When the projection busts the ceiling the alert carries the projected
// totals, not the pre-transaction ones.
func CheckTransactionAlert(categoryID string, amount decimal.Decimal, summary *PlanSummary) *PlanAlert {
	if summary == nil {
		return nil
	}

	var category *CategoryBudgetSummary
	for i := range summary.Categories {
		if summary.Categories[i].CategoryID == categoryID {
			category = &summary.Categories[i]
			break
		}
	}

	if category == nil {
		return &PlanAlert{
			Type:          AlertNoBudget,
			CategoryID:    categoryID,
			CurrentAmount: amount,
			PlannedAmount: decimal.Zero,
			Percentage:    0,
		}
	}

	projected := category.SpentAmount.Add(amount)
	if !projected.GreaterThan(category.PlannedAmount) {
		return nil
	}

	return &PlanAlert{
		Type:          AlertExceeded,
		CategoryID:    category.CategoryID,
		CategoryName:  category.CategoryName,
		CurrentAmount: projected,
		PlannedAmount: category.PlannedAmount,
		Percentage:    percentageOf(projected, category.PlannedAmount).InexactFloat64(),
	}
}
