package http

import (
	"log/slog"
	"net/http"
	"time"

	"carteira/internal/amqp"
	"carteira/internal/budget"
	"carteira/internal/core"
	applog "carteira/internal/log"
)

type transactionRequest struct {
	CategoryID  string `json:"category_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type,omitempty"`
	Date        string `json:"date,omitempty"`
}

// transactionResponse carries the stored transaction plus the advisory
// alert that fired for it, if any. The alert never blocks the save.
type transactionResponse struct {
	Transaction core.Transaction  `json:"transaction"`
	Alert       *budget.PlanAlert `json:"alert,omitempty"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTransactions(w, r)
	case http.MethodPost:
		s.createTransaction(w, r)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if !validMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	transactions, err := s.txs.ListMonthTransactions(r.Context(), s.userID, month, year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to list transactions",
			applog.FieldError, err, applog.FieldMonth, month, applog.FieldYear, year)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	txType := core.TransactionType(req.Type)
	if req.Type == "" {
		txType = core.Expense
	}

	date := core.NewDate(time.Now().Year(), int(time.Now().Month()), time.Now().Day())
	if req.Date != "" {
		date, err = parseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	tx := core.Transaction{
		UserID:      s.userID,
		CategoryID:  req.CategoryID,
		Description: sanitizeInput(req.Description),
		Amount:      amount,
		Type:        txType,
		Date:        date,
		CreatedAt:   time.Now(),
	}
	if err := tx.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Advisory check against the transaction's competence month,
	// computed before the write so the projection does not double
	// count the new amount.
	var alert *budget.PlanAlert
	if tx.Type.IsSpend() {
		summary, err := s.monthSummary(r.Context(), date.Month(), date.Year())
		if err != nil {
			slog.WarnContext(r.Context(), "Advisory check skipped",
				applog.FieldError, err, applog.FieldCategoryID, tx.CategoryID)
		} else {
			alert = budget.CheckTransactionAlert(tx.CategoryID, amount, summary)
		}
	}

	id, err := s.txs.CreateTransaction(r.Context(), tx)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to save transaction",
			applog.FieldError, err,
			applog.FieldCategoryID, tx.CategoryID,
			applog.FieldTxType, string(tx.Type))
		writeError(w, http.StatusInternalServerError, "failed to save transaction")
		return
	}
	tx.ID = id

	slog.InfoContext(r.Context(), "Transaction created",
		applog.FieldCategoryID, tx.CategoryID,
		applog.FieldAmount, core.FormatAmount(tx.Amount),
		applog.FieldTxType, string(tx.Type),
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldOperation, applog.OpCreate)

	if alert != nil {
		s.publishAlert(r, date.Month(), date.Year(), *alert)
	}

	writeJSON(w, http.StatusCreated, transactionResponse{Transaction: tx, Alert: alert})
}

// publishAlert hands the alert to the notification pipeline. Failures
// are logged and swallowed; the caller already has the alert in the
// response.
func (s *Server) publishAlert(r *http.Request, month, year int, alert budget.PlanAlert) {
	if s.alerts == nil {
		return
	}

	planID := int64(0)
	if plan, err := s.plans.GetPlan(r.Context(), s.userID, month, year); err == nil && plan != nil {
		planID = plan.ID
	}

	msg := amqp.NewPlanAlertMessage(s.userID, planID, month, year, alert)
	if err := s.alerts.PublishPlanAlert(r.Context(), msg); err != nil {
		slog.WarnContext(r.Context(), "Failed to publish alert",
			applog.FieldError, err,
			applog.FieldAlertType, string(alert.Type),
			applog.FieldCategoryID, alert.CategoryID,
			applog.FieldComponent, applog.ComponentHTTP,
			applog.FieldOperation, applog.OpPublish)
	}
}
