package budget

import (
	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// ComputeSummary converts a monthly plan plus a transaction set into a
// PlanSummary. It returns nil when plan is nil: without a plan there is
// no partial summary, callers prompt the user to create one.
//
// Only expense-type transactions dated inside the plan's competence
// month contribute to spend. The overall total sums budgeted categories
// only; spend on categories outside the plan is invisible to the
// rollup.
func ComputeSummary(plan *core.MonthlyPlan, transactions []core.Transaction, categories CategoryIndex) *PlanSummary {
	if plan == nil {
		return nil
	}

	spentByCategory := make(map[string]decimal.Decimal, len(plan.CategoryBudgets))
	for _, tx := range transactions {
		if !tx.Type.IsSpend() {
			continue
		}
		if !tx.Date.InCompetence(plan.Month, plan.Year) {
			continue
		}
		spentByCategory[tx.CategoryID] = spentByCategory[tx.CategoryID].Add(tx.Amount)
	}

	summary := &PlanSummary{
		Plan:         *plan,
		TotalPlanned: plan.TotalBudget,
		Categories:   make([]CategoryBudgetSummary, 0, len(plan.CategoryBudgets)),
	}

	totalSpent := decimal.Zero
	for _, cb := range plan.CategoryBudgets {
		spent := spentByCategory[cb.CategoryID]
		pct := percentageOf(spent, cb.PlannedAmount)

		cs := CategoryBudgetSummary{
			CategoryID:     cb.CategoryID,
			CategoryName:   UnknownCategoryName,
			PlannedAmount:  cb.PlannedAmount,
			SpentAmount:    spent,
			PercentageUsed: pct.InexactFloat64(),
			Status:         statusFor(pct),
			IsOverBudget:   spent.GreaterThan(cb.PlannedAmount),
		}
		if cat, ok := categories[cb.CategoryID]; ok {
			cs.CategoryName = cat.Name
			cs.CategoryIcon = cat.Icon
			cs.CategoryColor = cat.Color
		}

		summary.Categories = append(summary.Categories, cs)
		totalSpent = totalSpent.Add(spent)
	}

	summary.TotalSpent = totalSpent
	remaining := plan.TotalBudget.Sub(totalSpent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	summary.TotalRemaining = remaining
	summary.PercentageUsed = percentageOf(totalSpent, plan.TotalBudget).InexactFloat64()
	summary.Alerts = buildAlerts(summary.Categories)

	return summary
}

// buildAlerts emits one alert per EXCEEDED or DANGER category, in list
// order. No dedup or priority beyond that; callers wanting a top-N view
// truncate themselves.
func buildAlerts(categories []CategoryBudgetSummary) []PlanAlert {
	var alerts []PlanAlert
	for _, cs := range categories {
		switch cs.Status {
		case StatusExceeded:
			alerts = append(alerts, categoryAlert(AlertExceeded, cs))
		case StatusDanger:
			alerts = append(alerts, categoryAlert(AlertApproachingLimit, cs))
		}
	}
	return alerts
}

func categoryAlert(t AlertType, cs CategoryBudgetSummary) PlanAlert {
	return PlanAlert{
		Type:          t,
		CategoryID:    cs.CategoryID,
		CategoryName:  cs.CategoryName,
		CurrentAmount: cs.SpentAmount,
		PlannedAmount: cs.PlannedAmount,
		Percentage:    cs.PercentageUsed,
	}
}
