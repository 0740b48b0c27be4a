// Package budget implements the monthly plan aggregation engine: it
// turns a plan plus the month's transactions into per-category and
// overall spend summaries, statuses, and advisory alerts.
//
// Everything in this package is a pure function of its inputs. Nothing
// is cached or persisted; callers recompute on every request, which is
// the freshness strategy for summaries.
package budget

import (
	"github.com/shopspring/decimal"

	"carteira/internal/core"
)

// Status classifies how far a category (or the whole plan) is into its
// ceiling.
type Status string

const (
	StatusSafe     Status = "SAFE"
	StatusWarning  Status = "WARNING"
	StatusDanger   Status = "DANGER"
	StatusExceeded Status = "EXCEEDED"
)

// AlertType tags the advisory alerts produced by the engine.
type AlertType string

const (
	// AlertNoBudget signals spend against a category absent from the plan.
	AlertNoBudget AlertType = "NO_BUDGET"
	// AlertExceeded signals spend past the planned ceiling.
	AlertExceeded AlertType = "EXCEEDED"
	// AlertApproachingLimit signals spend at 90% or more of the ceiling.
	AlertApproachingLimit AlertType = "APPROACHING_LIMIT"
)

// UnknownCategoryName is the display fallback when a plan references a
// category id missing from the directory.
const UnknownCategoryName = "Categoria desconhecida"

// CategoryBudgetSummary is the derived, per-call view of one category
// budget. It is never stored.
type CategoryBudgetSummary struct {
	CategoryID     string          `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	CategoryIcon   string          `json:"category_icon,omitempty"`
	CategoryColor  string          `json:"category_color,omitempty"`
	PlannedAmount  decimal.Decimal `json:"planned_amount"`
	SpentAmount    decimal.Decimal `json:"spent_amount"`
	PercentageUsed float64         `json:"percentage_used"`
	Status         Status          `json:"status"`
	IsOverBudget   bool            `json:"is_over_budget"`
}

// PlanAlert is a transient advisory warning. Alerts are recomputed on
// each request and shown as dismissible warnings; they never block
// anything.
type PlanAlert struct {
	Type          AlertType       `json:"alert_type"`
	CategoryID    string          `json:"category_id"`
	CategoryName  string          `json:"category_name"`
	CurrentAmount decimal.Decimal `json:"current_amount"`
	PlannedAmount decimal.Decimal `json:"planned_amount"`
	Percentage    float64         `json:"percentage"`
}

// PlanSummary is the full derived view of one monthly plan.
type PlanSummary struct {
	Plan           core.MonthlyPlan        `json:"plan"`
	TotalPlanned   decimal.Decimal         `json:"total_planned"`
	TotalSpent     decimal.Decimal         `json:"total_spent"`
	TotalRemaining decimal.Decimal         `json:"total_remaining"`
	PercentageUsed float64                 `json:"percentage_used"`
	Categories     []CategoryBudgetSummary `json:"categories_summary"`
	Alerts         []PlanAlert             `json:"alerts"`
}

// CategoryIndex is the behavior-free id -> category lookup handed to
// the engine. Build it once per call from the directory listing.
type CategoryIndex map[string]core.Category

// NewCategoryIndex builds an index from a directory listing.
func NewCategoryIndex(cats []core.Category) CategoryIndex {
	idx := make(CategoryIndex, len(cats))
	for _, c := range cats {
		idx[c.ID] = c
	}
	return idx
}

var (
	hundred          = decimal.NewFromInt(100)
	dangerThreshold  = decimal.NewFromInt(90)
	warningThreshold = decimal.NewFromInt(70)
)

// statusFor derives the status for a used percentage, first match wins:
// >100 EXCEEDED, >=90 DANGER, >=70 WARNING, otherwise SAFE. 100% exactly
// is DANGER, not EXCEEDED.
func statusFor(percentage decimal.Decimal) Status {
	switch {
	case percentage.GreaterThan(hundred):
		return StatusExceeded
	case percentage.GreaterThanOrEqual(dangerThreshold):
		return StatusDanger
	case percentage.GreaterThanOrEqual(warningThreshold):
		return StatusWarning
	default:
		return StatusSafe
	}
}

// percentageOf returns spent/planned*100, or zero when planned is zero.
// Zero-ceiling categories always report 0% regardless of spend; that is
// deliberate, inherited behavior.
func percentageOf(spent, planned decimal.Decimal) decimal.Decimal {
	if planned.IsZero() {
		return decimal.Zero
	}
	return spent.Div(planned).Mul(hundred)
}
