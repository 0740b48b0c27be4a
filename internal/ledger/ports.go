// Package ledger defines the outbound ports of the service: the plan
// store, the transaction source, the category directory, and the
// notification store. Implementations live in the sqlite and memory
// subpackages; the backend factory picks one at startup.
package ledger

import (
	"context"
	"errors"
	"time"

	"carteira/internal/budget"
	"carteira/internal/core"
)

// ErrDuplicatePlan is returned when a plan already exists for the
// user's competence month.
var ErrDuplicatePlan = errors.New("plan already exists for month")

// Notification is a persisted record of a delivered budget alert.
// Unlike PlanAlert it survives the request; the worker writes one per
// plan, category, alert type, and competence month.
type Notification struct {
	ID         int64            `json:"id"`
	UserID     string           `json:"user_id"`
	PlanID     int64            `json:"plan_id"`
	CategoryID string           `json:"category_id"`
	AlertType  budget.AlertType `json:"alert_type"`
	Message    string           `json:"message"`
	Month      int              `json:"month"`
	Year       int              `json:"year"`
	Read       bool             `json:"read"`
	CreatedAt  time.Time        `json:"created_at"`
}

type (
	// PlanStore owns create/update/read of monthly plans. Absence is a
	// nil plan with a nil error, never an error value.
	PlanStore interface {
		CreatePlan(ctx context.Context, plan *core.MonthlyPlan) (int64, error)
		UpdatePlan(ctx context.Context, plan *core.MonthlyPlan) error
		GetPlan(ctx context.Context, userID string, month, year int) (*core.MonthlyPlan, error)
		ListPlans(ctx context.Context, userID string) ([]core.MonthlyPlan, error)
	}

	// TransactionSource supplies the month's transactions, already
	// loaded; the budget engine never fetches data itself.
	TransactionSource interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
		ListMonthTransactions(ctx context.Context, userID string, month, year int) ([]core.Transaction, error)
	}

	// CategoryDirectory resolves category display data. A missing id is
	// tolerated downstream (fallback name), not an error.
	CategoryDirectory interface {
		Categories(ctx context.Context) ([]core.Category, error)
	}

	// NotificationStore persists delivered alerts. CreateNotification
	// reports false when an equivalent notification already exists for
	// the competence month, so repeated sweeps never re-alert.
	NotificationStore interface {
		CreateNotification(ctx context.Context, n Notification) (bool, error)
		ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		MarkNotificationRead(ctx context.Context, id int64) error
	}
)
