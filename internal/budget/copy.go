package budget

import (
	"errors"
	"time"

	"carteira/internal/core"
)

// ErrNoPreviousPlan is returned when there is no plan to copy from.
// Callers check existence before offering the copy action.
var ErrNoPreviousPlan = errors.New("no previous plan to copy from")

// CopyFromPrevious builds a new plan for the target month from an
// existing one. The budget list is an independent copy: mutating the
// new plan never touches the source. Identity and timestamps are fresh;
// the store assigns the id on create.
func CopyFromPrevious(previous *core.MonthlyPlan, targetMonth, targetYear int) (*core.MonthlyPlan, error) {
	if previous == nil {
		return nil, ErrNoPreviousPlan
	}
	if targetMonth < 1 || targetMonth > 12 {
		return nil, core.ErrInvalidMonth
	}

	budgets := make([]core.CategoryBudget, len(previous.CategoryBudgets))
	copy(budgets, previous.CategoryBudgets)

	now := time.Now()
	return &core.MonthlyPlan{
		UserID:             previous.UserID,
		Month:              targetMonth,
		Year:               targetYear,
		TotalBudget:        previous.TotalBudget,
		CategoryBudgets:    budgets,
		CopiedFromPrevious: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}
