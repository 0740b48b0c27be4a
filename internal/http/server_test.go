package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"carteira/internal/amqp"
	"carteira/internal/budget"
	"carteira/internal/core"
	"carteira/internal/ledger"
	"carteira/internal/ledger/memory"
	"carteira/internal/middleware/ratelimit"
)

func mustDec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func notificationFixture() ledger.Notification {
	return ledger.Notification{
		UserID:     "familia",
		PlanID:     1,
		CategoryID: "alimentacao",
		AlertType:  budget.AlertExceeded,
		Message:    "Orçamento de Alimentação excedido",
		Month:      3,
		Year:       2025,
	}
}

type capturedPublisher struct {
	messages []*amqp.PlanAlertMessage
}

func (p *capturedPublisher) PublishPlanAlert(_ context.Context, msg *amqp.PlanAlertMessage) error {
	p.messages = append(p.messages, msg)
	return nil
}

func testServer() (*Server, *memory.Store, *capturedPublisher) {
	store := memory.New([]core.Category{
		{ID: "alimentacao", Name: "Alimentação"},
		{ID: "transporte", Name: "Transporte"},
	})
	pub := &capturedPublisher{}
	srv := NewServer(Options{
		Addr:      ":0",
		Plans:     store,
		Txs:       store,
		Cats:      store,
		Notes:     store,
		Alerts:    pub,
		UserID:    "familia",
		RateLimit: ratelimit.Config{RequestsPerMinute: 1000},
	})
	return srv, store, pub
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func createTestPlan(t *testing.T, srv *Server) {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/plan", planRequest{
		Month:       3,
		Year:        2025,
		TotalBudget: "1600.00",
		CategoryBudgets: []categoryBudgetRequest{
			{CategoryID: "alimentacao", PlannedAmount: "1200.00"},
			{CategoryID: "transporte", PlannedAmount: "400.00"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create plan: expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestPlanCreateAndGet(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	createTestPlan(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/plan?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("get plan: expected 200, got %d", rr.Code)
	}
	plan := decode[core.MonthlyPlan](t, rr)
	if plan.Month != 3 || len(plan.CategoryBudgets) != 2 {
		t.Fatalf("unexpected plan: %+v", plan)
	}

	// duplicate month conflicts
	rr = do(t, srv, http.MethodPost, "/api/plan", planRequest{
		Month: 3, Year: 2025, TotalBudget: "1.00",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate plan: expected 409, got %d", rr.Code)
	}

	// absent month is 404
	rr = do(t, srv, http.MethodGet, "/api/plan?month=4&year=2025", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing plan: expected 404, got %d", rr.Code)
	}
}

func TestPlanValidationErrors(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	cases := []struct {
		name string
		req  planRequest
	}{
		{"bad month", planRequest{Month: 13, Year: 2025, TotalBudget: "100"}},
		{"bad amount", planRequest{Month: 3, Year: 2025, TotalBudget: "abc"}},
		{"negative budget", planRequest{Month: 3, Year: 2025, TotalBudget: "100",
			CategoryBudgets: []categoryBudgetRequest{{CategoryID: "alimentacao", PlannedAmount: "-5"}}}},
		{"duplicate category", planRequest{Month: 3, Year: 2025, TotalBudget: "100",
			CategoryBudgets: []categoryBudgetRequest{
				{CategoryID: "alimentacao", PlannedAmount: "1"},
				{CategoryID: "alimentacao", PlannedAmount: "2"},
			}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/plan", tc.req)
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d (%s)", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPlanSummary(t *testing.T) {
	srv, store, _ := testServer()
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodGet, "/api/plan/summary?month=3&year=2025", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("summary without plan: expected 404, got %d", rr.Code)
	}

	createTestPlan(t, srv)

	_, err := store.CreateTransaction(context.Background(), core.Transaction{
		UserID: "familia", CategoryID: "alimentacao",
		Amount: mustDec("1080.00"), Type: core.Expense, Date: core.NewDate(2025, 3, 10),
	})
	if err != nil {
		t.Fatalf("seed tx: %v", err)
	}

	rr = do(t, srv, http.MethodGet, "/api/plan/summary?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d", rr.Code)
	}
	s := decode[budget.PlanSummary](t, rr)
	if len(s.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(s.Categories))
	}
	if s.Categories[0].Status != budget.StatusDanger {
		t.Fatalf("expected DANGER at 90%%, got %s", s.Categories[0].Status)
	}
	if len(s.Alerts) != 1 || s.Alerts[0].Type != budget.AlertApproachingLimit {
		t.Fatalf("expected one APPROACHING_LIMIT alert, got %+v", s.Alerts)
	}
}

func TestPlanCheck(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	createTestPlan(t, srv)

	// within budget: silent 204
	rr := do(t, srv, http.MethodPost, "/api/plan/check", checkRequest{
		CategoryID: "alimentacao", Amount: "100.00", Month: 3, Year: 2025,
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("within budget: expected 204, got %d", rr.Code)
	}

	// over budget: 200 with the alert
	rr = do(t, srv, http.MethodPost, "/api/plan/check", checkRequest{
		CategoryID: "alimentacao", Amount: "1300.00", Month: 3, Year: 2025,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("over budget: expected 200, got %d", rr.Code)
	}
	alert := decode[budget.PlanAlert](t, rr)
	if alert.Type != budget.AlertExceeded {
		t.Fatalf("expected EXCEEDED, got %s", alert.Type)
	}

	// unbudgeted category
	rr = do(t, srv, http.MethodPost, "/api/plan/check", checkRequest{
		CategoryID: "lazer", Amount: "10.00", Month: 3, Year: 2025,
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("no budget: expected 200, got %d", rr.Code)
	}
	alert = decode[budget.PlanAlert](t, rr)
	if alert.Type != budget.AlertNoBudget {
		t.Fatalf("expected NO_BUDGET, got %s", alert.Type)
	}
}

func TestCreateTransactionWithAlert(t *testing.T) {
	srv, _, pub := testServer()
	defer srv.Shutdown(context.Background())

	createTestPlan(t, srv)

	// fits: saved, no alert
	rr := do(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		CategoryID: "alimentacao", Description: "mercado", Amount: "100.00", Date: "2025-03-05",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	resp := decode[transactionResponse](t, rr)
	if resp.Alert != nil {
		t.Fatalf("expected no alert, got %+v", resp.Alert)
	}
	if resp.Transaction.ID == 0 {
		t.Fatal("expected assigned transaction id")
	}

	// busts the ceiling: still saved, alert in the response and published
	rr = do(t, srv, http.MethodPost, "/api/transactions", transactionRequest{
		CategoryID: "alimentacao", Description: "churrasco", Amount: "1500.00", Date: "2025-03-06",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("alert must not block the save, got %d", rr.Code)
	}
	resp = decode[transactionResponse](t, rr)
	if resp.Alert == nil || resp.Alert.Type != budget.AlertExceeded {
		t.Fatalf("expected EXCEEDED alert, got %+v", resp.Alert)
	}
	if len(pub.messages) != 1 {
		t.Fatalf("expected 1 published alert, got %d", len(pub.messages))
	}
	if pub.messages[0].AlertType != budget.AlertExceeded || pub.messages[0].Month != 3 {
		t.Fatalf("unexpected published message: %+v", pub.messages[0])
	}

	// the month listing sees both
	rr = do(t, srv, http.MethodGet, "/api/transactions?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", rr.Code)
	}
	txs := decode[[]core.Transaction](t, rr)
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	cases := []struct {
		name string
		req  transactionRequest
		code int
	}{
		{"bad amount", transactionRequest{CategoryID: "a", Amount: "x", Date: "2025-03-01"}, http.StatusUnprocessableEntity},
		{"negative amount", transactionRequest{CategoryID: "a", Amount: "-5", Date: "2025-03-01"}, http.StatusUnprocessableEntity},
		{"bad date", transactionRequest{CategoryID: "a", Amount: "5", Date: "03/01/2025"}, http.StatusUnprocessableEntity},
		{"bad type", transactionRequest{CategoryID: "a", Amount: "5", Type: "REFUND", Date: "2025-03-01"}, http.StatusUnprocessableEntity},
		{"empty category", transactionRequest{Amount: "5", Date: "2025-03-01"}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", tc.req)
			if rr.Code != tc.code {
				t.Fatalf("expected %d, got %d (%s)", tc.code, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestPlanCopy(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	// nothing to copy yet
	rr := do(t, srv, http.MethodPost, "/api/plan/copy", copyPlanRequest{Month: 4, Year: 2025})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without previous plan, got %d", rr.Code)
	}

	createTestPlan(t, srv)

	rr = do(t, srv, http.MethodPost, "/api/plan/copy", copyPlanRequest{Month: 4, Year: 2025})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rr.Code, rr.Body.String())
	}
	plan := decode[core.MonthlyPlan](t, rr)
	if plan.Month != 4 || !plan.CopiedFromPrevious {
		t.Fatalf("unexpected copied plan: %+v", plan)
	}
	if len(plan.CategoryBudgets) != 2 {
		t.Fatalf("expected carried budgets, got %d", len(plan.CategoryBudgets))
	}

	// target month now occupied
	rr = do(t, srv, http.MethodPost, "/api/plan/copy", copyPlanRequest{Month: 4, Year: 2025})
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestDashboard(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	createTestPlan(t, srv)

	rr := do(t, srv, http.MethodGet, "/api/dashboard?month=3&year=2025", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	d := decode[dashboardResponse](t, rr)
	if d.Month != 3 || d.Year != 2025 || d.Summary == nil {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	srv, store, _ := testServer()
	defer srv.Shutdown(context.Background())

	_, err := store.CreateNotification(context.Background(), notificationFixture())
	if err != nil {
		t.Fatalf("seed notification: %v", err)
	}

	rr := do(t, srv, http.MethodGet, "/api/notifications?unread=true", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if body == "" || body == "[]\n" {
		t.Fatal("expected the seeded notification")
	}

	rr = do(t, srv, http.MethodPost, "/api/notifications/read?id=1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("mark read: expected 204, got %d", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/notifications?unread=true", nil)
	if rr.Body.String() != "[]\n" {
		t.Fatalf("expected empty unread list, got %s", rr.Body.String())
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _, _ := testServer()
	defer srv.Shutdown(context.Background())

	rr := do(t, srv, http.MethodDelete, "/api/plan", nil)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	if rr.Header().Get("Allow") == "" {
		t.Fatal("expected Allow header")
	}
}
