// Package alertlog defines the outbound port for the family-visible
// alert history. The worker appends one entry per delivered alert; a
// nil sink disables the feature.
package alertlog

import (
	"context"
	"time"

	"carteira/internal/budget"
)

// Entry is one row of the alert history.
type Entry struct {
	When          time.Time
	UserID        string
	Month         int
	Year          int
	AlertType     budget.AlertType
	CategoryName  string
	CurrentAmount string
	PlannedAmount string
	Percentage    float64
}

// Sink records alert entries somewhere durable and human-readable.
type Sink interface {
	Record(ctx context.Context, e Entry) error
}
