package http

import (
	"context"
	"net/http"
	"sync"

	"carteira/internal/amqp"
	"carteira/internal/budget"
	"carteira/internal/ledger"
	"carteira/internal/middleware/ratelimit"
	"carteira/internal/middleware/trace"
)

// AlertPublisher pushes alert events to the notification worker. A nil
// publisher disables the pipeline; alerts still reach the API caller.
type AlertPublisher interface {
	PublishPlanAlert(ctx context.Context, msg *amqp.PlanAlertMessage) error
}

type Server struct {
	http.Server

	plans  ledger.PlanStore
	txs    ledger.TransactionSource
	cats   ledger.CategoryDirectory
	notes  ledger.NotificationStore
	alerts AlertPublisher // optional

	userID string

	rateLimiter  *ratelimit.Limiter
	shutdownOnce sync.Once
}

// Options carries the collaborators the server needs.
type Options struct {
	Addr      string
	Plans     ledger.PlanStore
	Txs       ledger.TransactionSource
	Cats      ledger.CategoryDirectory
	Notes     ledger.NotificationStore
	Alerts    AlertPublisher
	UserID    string
	RateLimit ratelimit.Config
}

// NewServer configures routes and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    opts.Addr,
			Handler: mux,
		},
		plans:       opts.Plans,
		txs:         opts.Txs,
		cats:        opts.Cats,
		notes:       opts.Notes,
		alerts:      opts.Alerts,
		userID:      opts.UserID,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/categories", s.wrap(s.handleCategories))
	mux.HandleFunc("/api/transactions", s.wrap(s.handleTransactions))
	mux.HandleFunc("/api/plan", s.wrap(s.handlePlan))
	mux.HandleFunc("/api/plans", s.wrap(s.handlePlanList))
	mux.HandleFunc("/api/plan/copy", s.wrap(s.handlePlanCopy))
	mux.HandleFunc("/api/plan/summary", s.wrap(s.handlePlanSummary))
	mux.HandleFunc("/api/plan/check", s.wrap(s.handlePlanCheck))
	mux.HandleFunc("/api/dashboard", s.wrap(s.handleDashboard))
	mux.HandleFunc("/api/notifications", s.wrap(s.handleNotifications))
	mux.HandleFunc("/api/notifications/read", s.wrap(s.handleNotificationRead))

	tracer := trace.NewMiddleware(clientIP)
	s.Handler = tracer.Middleware(mux)

	return s
}

// wrap applies security headers and write-method rate limiting.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && !s.rateLimiter.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next(w, r)
	}
}

// Shutdown gracefully shuts down the server and its limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// monthSummary loads everything the engine needs and computes a fresh
// summary. A nil result with nil error means no plan for that month.
func (s *Server) monthSummary(ctx context.Context, month, year int) (*budget.PlanSummary, error) {
	plan, err := s.plans.GetPlan(ctx, s.userID, month, year)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, nil
	}

	transactions, err := s.txs.ListMonthTransactions(ctx, s.userID, month, year)
	if err != nil {
		return nil, err
	}

	categories, err := s.cats.Categories(ctx)
	if err != nil {
		return nil, err
	}

	return budget.ComputeSummary(plan, transactions, budget.NewCategoryIndex(categories)), nil
}
