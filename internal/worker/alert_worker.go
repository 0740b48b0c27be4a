// Package worker delivers budget alerts: it consumes alert events from
// the queue, persists notifications, mirrors them to the alert log,
// and periodically sweeps the current month for thresholds crossed
// between requests.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carteira/internal/alertlog"
	"carteira/internal/amqp"
	"carteira/internal/budget"
	"carteira/internal/ledger"
)

type AlertWorker struct {
	plans  ledger.PlanStore
	txs    ledger.TransactionSource
	cats   ledger.CategoryDirectory
	notes  ledger.NotificationStore
	sink   alertlog.Sink // optional
	userID string
}

func NewAlertWorker(plans ledger.PlanStore, txs ledger.TransactionSource, cats ledger.CategoryDirectory, notes ledger.NotificationStore, sink alertlog.Sink, userID string) *AlertWorker {
	return &AlertWorker{
		plans:  plans,
		txs:    txs,
		cats:   cats,
		notes:  notes,
		sink:   sink,
		userID: userID,
	}
}

// HandleAlertMessage processes one alert event. Delivery is
// deduplicated by the notification store, so redelivered or re-swept
// alerts land exactly once per plan, category, type, and month.
func (w *AlertWorker) HandleAlertMessage(ctx context.Context, msg *amqp.PlanAlertMessage) error {
	created, err := w.notes.CreateNotification(ctx, ledger.Notification{
		UserID:     msg.UserID,
		PlanID:     msg.PlanID,
		CategoryID: msg.CategoryID,
		AlertType:  msg.AlertType,
		Message:    alertMessage(msg),
		Month:      msg.Month,
		Year:       msg.Year,
	})
	if err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	if !created {
		slog.DebugContext(ctx, "Alert already notified, skipping",
			"alert_type", string(msg.AlertType),
			"category_id", msg.CategoryID,
			"month", msg.Month,
			"year", msg.Year)
		return nil
	}

	if w.sink != nil {
		entry := alertlog.Entry{
			When:          msg.Timestamp,
			UserID:        msg.UserID,
			Month:         msg.Month,
			Year:          msg.Year,
			AlertType:     msg.AlertType,
			CategoryName:  msg.CategoryName,
			CurrentAmount: msg.CurrentAmount,
			PlannedAmount: msg.PlannedAmount,
			Percentage:    msg.Percentage,
		}
		if err := w.sink.Record(ctx, entry); err != nil {
			// The notification is already stored; the log row is best effort.
			slog.WarnContext(ctx, "Alert log append failed",
				"error", err,
				"alert_type", string(msg.AlertType),
				"category_id", msg.CategoryID)
		}
	}

	return nil
}

// SweepCurrentMonth recomputes the current month's summary and routes
// every active alert through the normal delivery path. Requests that
// crossed a threshold without an advisory check (bulk imports, edits)
// are picked up here.
func (w *AlertWorker) SweepCurrentMonth(ctx context.Context) error {
	now := time.Now()
	month, year := int(now.Month()), now.Year()

	plan, err := w.plans.GetPlan(ctx, w.userID, month, year)
	if err != nil {
		return fmt.Errorf("get current plan: %w", err)
	}
	if plan == nil {
		return nil
	}

	transactions, err := w.txs.ListMonthTransactions(ctx, w.userID, month, year)
	if err != nil {
		return fmt.Errorf("list month transactions: %w", err)
	}

	categories, err := w.cats.Categories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}

	summary := budget.ComputeSummary(plan, transactions, budget.NewCategoryIndex(categories))
	if summary == nil {
		return nil
	}

	for _, alert := range summary.Alerts {
		msg := amqp.NewPlanAlertMessage(w.userID, plan.ID, month, year, alert)
		if err := w.HandleAlertMessage(ctx, msg); err != nil {
			return fmt.Errorf("deliver swept alert for %s: %w", alert.CategoryID, err)
		}
	}

	slog.InfoContext(ctx, "Sweep completed",
		"month", month,
		"year", year,
		"alerts", len(summary.Alerts))

	return nil
}
