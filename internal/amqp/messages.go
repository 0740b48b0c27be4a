package amqp

import (
	"encoding/json"
	"time"

	"carteira/internal/budget"
)

// PlanAlertMessage carries one budget alert from the API server to the
// notification worker. It holds the full alert payload so the worker
// can act even when it runs against a different backend than the
// publisher.
type PlanAlertMessage struct {
	UserID        string           `json:"user_id"`
	PlanID        int64            `json:"plan_id"`
	Month         int              `json:"month"`
	Year          int              `json:"year"`
	AlertType     budget.AlertType `json:"alert_type"`
	CategoryID    string           `json:"category_id"`
	CategoryName  string           `json:"category_name"`
	CurrentAmount string           `json:"current_amount"`
	PlannedAmount string           `json:"planned_amount"`
	Percentage    float64          `json:"percentage"`
	Timestamp     time.Time        `json:"timestamp"`
}

// NewPlanAlertMessage builds a message from an engine alert and its
// competence coordinates.
func NewPlanAlertMessage(userID string, planID int64, month, year int, alert budget.PlanAlert) *PlanAlertMessage {
	return &PlanAlertMessage{
		UserID:        userID,
		PlanID:        planID,
		Month:         month,
		Year:          year,
		AlertType:     alert.Type,
		CategoryID:    alert.CategoryID,
		CategoryName:  alert.CategoryName,
		CurrentAmount: alert.CurrentAmount.String(),
		PlannedAmount: alert.PlannedAmount.String(),
		Percentage:    alert.Percentage,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *PlanAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PlanAlertMessageFromJSON creates a message from JSON bytes
func PlanAlertMessageFromJSON(data []byte) (*PlanAlertMessage, error) {
	var msg PlanAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
