package worker

import (
	"fmt"

	"carteira/internal/amqp"
	"carteira/internal/budget"
)

// alertMessage renders the user-facing notification text for an alert
// event.
func alertMessage(msg *amqp.PlanAlertMessage) string {
	name := msg.CategoryName
	if name == "" {
		name = budget.UnknownCategoryName
	}
	switch msg.AlertType {
	case budget.AlertExceeded:
		return fmt.Sprintf("Orçamento de %s excedido: %s de %s (%.1f%%)",
			name, msg.CurrentAmount, msg.PlannedAmount, msg.Percentage)
	case budget.AlertApproachingLimit:
		return fmt.Sprintf("Orçamento de %s quase no limite: %s de %s (%.1f%%)",
			name, msg.CurrentAmount, msg.PlannedAmount, msg.Percentage)
	case budget.AlertNoBudget:
		return fmt.Sprintf("Gasto de %s em %s, categoria sem orçamento no plano",
			msg.CurrentAmount, name)
	default:
		return fmt.Sprintf("Alerta de orçamento em %s", name)
	}
}
