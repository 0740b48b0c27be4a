package http

import (
	"net/http"

	"carteira/internal/budget"
	"carteira/internal/core"
)

// dashboardResponse bundles the month overview: fresh summary plus the
// month's most recent movements.
type dashboardResponse struct {
	Month              int                 `json:"month"`
	Year               int                 `json:"year"`
	Summary            *budget.PlanSummary `json:"summary"`
	RecentTransactions []core.Transaction  `json:"recent_transactions"`
}

const recentTransactionLimit = 10

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusInternalServerError, "failed to compute summary")
		return
	}

	transactions, err := s.txs.ListMonthTransactions(r.Context(), s.userID, month, year)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if len(transactions) > recentTransactionLimit {
		transactions = transactions[:recentTransactionLimit]
	}
	if transactions == nil {
		transactions = []core.Transaction{}
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Month:              month,
		Year:               year,
		Summary:            summary,
		RecentTransactions: transactions,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	categories, err := s.cats.Categories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []core.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}
