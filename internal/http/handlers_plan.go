package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"carteira/internal/budget"
	"carteira/internal/core"
	"carteira/internal/ledger"
	applog "carteira/internal/log"
)

type categoryBudgetRequest struct {
	CategoryID    string `json:"category_id"`
	PlannedAmount string `json:"planned_amount"`
}

type planRequest struct {
	Month           int                     `json:"month"`
	Year            int                     `json:"year"`
	TotalBudget     string                  `json:"total_budget"`
	CategoryBudgets []categoryBudgetRequest `json:"category_budgets"`
}

// toPlan converts the wire request into a domain plan. Amounts arrive
// as strings so clients never round them through floats.
func (pr planRequest) toPlan(userID string) (*core.MonthlyPlan, error) {
	total, err := core.ParseAmount(pr.TotalBudget)
	if err != nil {
		return nil, err
	}

	budgets := make([]core.CategoryBudget, 0, len(pr.CategoryBudgets))
	for _, cb := range pr.CategoryBudgets {
		planned, err := core.ParseAmount(cb.PlannedAmount)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, core.CategoryBudget{
			CategoryID:    cb.CategoryID,
			PlannedAmount: planned,
		})
	}

	now := time.Now()
	plan := &core.MonthlyPlan{
		UserID:          userID,
		Month:           pr.Month,
		Year:            pr.Year,
		TotalBudget:     total,
		CategoryBudgets: budgets,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getPlan(w, r)
	case http.MethodPost:
		s.createPlan(w, r)
	case http.MethodPut:
		s.updatePlan(w, r)
	default:
		methodNotAllowed(w, "GET, POST, PUT")
	}
}

func (s *Server) getPlan(w http.ResponseWriter, r *http.Request) {
	year, month := parseYearMonth(r)
	if !validMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	plan, err := s.plans.GetPlan(r.Context(), s.userID, month, year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to load plan",
			applog.FieldError, err, applog.FieldMonth, month, applog.FieldYear, year)
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	if plan == nil {
		writeError(w, http.StatusNotFound, "no plan for month")
		return
	}

	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := req.toPlan(s.userID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.plans.CreatePlan(r.Context(), plan)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicatePlan) {
			writeError(w, http.StatusConflict, "plan already exists for month")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to create plan",
			applog.FieldError, err, applog.FieldMonth, plan.Month, applog.FieldYear, plan.Year)
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}
	plan.ID = id

	slog.InfoContext(r.Context(), "Plan created",
		applog.FieldPlanID, id,
		applog.FieldMonth, plan.Month,
		applog.FieldYear, plan.Year,
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldOperation, applog.OpCreate)
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) updatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := req.toPlan(s.userID)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	existing, err := s.plans.GetPlan(r.Context(), s.userID, updated.Month, updated.Year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load plan")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "no plan for month")
		return
	}

	existing.TotalBudget = updated.TotalBudget
	existing.CategoryBudgets = updated.CategoryBudgets
	existing.UpdatedAt = time.Now()

	if err := s.plans.UpdatePlan(r.Context(), existing); err != nil {
		slog.ErrorContext(r.Context(), "Failed to update plan",
			applog.FieldError, err, applog.FieldPlanID, existing.ID)
		writeError(w, http.StatusInternalServerError, "failed to update plan")
		return
	}

	writeJSON(w, http.StatusOK, existing)
}

func (s *Server) handlePlanList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	plans, err := s.plans.ListPlans(r.Context(), s.userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}
	if plans == nil {
		plans = []core.MonthlyPlan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

type copyPlanRequest struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// handlePlanCopy rolls the previous month's plan forward into the
// target month. 404 when there is nothing to copy, 409 when the
// target already has a plan.
func (s *Server) handlePlanCopy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req copyPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validMonth(req.Month) || req.Year < 1 {
		writeError(w, http.StatusUnprocessableEntity, "invalid target month")
		return
	}

	prevMonth, prevYear := req.Month-1, req.Year
	if prevMonth < 1 {
		prevMonth, prevYear = 12, req.Year-1
	}

	previous, err := s.plans.GetPlan(r.Context(), s.userID, prevMonth, prevYear)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load previous plan")
		return
	}

	plan, err := budget.CopyFromPrevious(previous, req.Month, req.Year)
	if err != nil {
		if errors.Is(err, budget.ErrNoPreviousPlan) {
			writeError(w, http.StatusNotFound, "no previous plan to copy from")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	id, err := s.plans.CreatePlan(r.Context(), plan)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicatePlan) {
			writeError(w, http.StatusConflict, "plan already exists for month")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}
	plan.ID = id

	slog.InfoContext(r.Context(), "Plan copied from previous month",
		applog.FieldPlanID, id,
		applog.FieldMonth, plan.Month,
		applog.FieldYear, plan.Year,
		applog.FieldComponent, applog.ComponentHTTP,
		applog.FieldOperation, applog.OpCopy)
	writeJSON(w, http.StatusCreated, plan)
}

func (s *Server) handlePlanSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	year, month := parseYearMonth(r)
	if !validMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	summary, err := s.monthSummary(r.Context(), month, year)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute summary",
			applog.FieldError, err, applog.FieldMonth, month, applog.FieldYear, year)
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "no plan for month")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

type checkRequest struct {
	CategoryID string `json:"category_id"`
	Amount     string `json:"amount"`
	Month      int    `json:"month,omitempty"`
	Year       int    `json:"year,omitempty"`
}

// handlePlanCheck is the pre-save advisory: would this amount push a
// category over its ceiling? It never persists anything. 200 with the
// alert when one fires, 204 when the spend fits.
func (s *Server) handlePlanCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST")
		return
	}

	var req checkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	now := time.Now()
	month, year := req.Month, req.Year
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if !validMonth(month) {
		writeError(w, http.StatusBadRequest, "invalid month")
		return
	}

	summary, err := s.monthSummary(r.Context(), month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	alert := budget.CheckTransactionAlert(req.CategoryID, amount, summary)
	if alert == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, alert)
}
