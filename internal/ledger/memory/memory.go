// Package memory is the offline/demo backend: everything lives in
// process memory, seeded from plain-text files under the data
// directory when present.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"carteira/internal/core"
	"carteira/internal/ledger"
)

type Store struct {
	mu            sync.Mutex
	categories    []core.Category
	transactions  []core.Transaction
	plans         []*core.MonthlyPlan
	notifications []ledger.Notification
	nextTxID      int64
	nextPlanID    int64
	nextNoteID    int64
}

func New(categories []core.Category) *Store {
	return &Store{categories: categories}
}

// NewFromFiles seeds the category directory from
// <base>/seed_categories.txt (one "id|name|icon|color" entry per line,
// '#' comments allowed), falling back to built-in defaults.
func NewFromFiles(base string) *Store {
	cats := readCategories(filepath.Join(base, "seed_categories.txt"))
	if len(cats) == 0 {
		cats = []core.Category{
			{ID: "alimentacao", Name: "Alimentação", Icon: "🍽️", Color: "#e74c3c"},
			{ID: "transporte", Name: "Transporte", Icon: "🚌", Color: "#3498db"},
			{ID: "moradia", Name: "Moradia", Icon: "🏠", Color: "#2ecc71"},
			{ID: "lazer", Name: "Lazer", Icon: "🎬", Color: "#9b59b6"},
			{ID: "saude", Name: "Saúde", Icon: "💊", Color: "#1abc9c"},
		}
	}
	return New(cats)
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, len(s.categories))
	copy(out, s.categories)
	return out, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxID++
	tx.ID = s.nextTxID
	tx.CreatedAt = time.Now()
	s.transactions = append(s.transactions, tx)
	return tx.ID, nil
}

func (s *Store) ListMonthTransactions(_ context.Context, userID string, month, year int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	// newest first, matching the sqlite backend
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.UserID == userID && tx.Date.InCompetence(month, year) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *Store) CreatePlan(_ context.Context, plan *core.MonthlyPlan) (int64, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.UserID == plan.UserID && p.Month == plan.Month && p.Year == plan.Year {
			return 0, ledger.ErrDuplicatePlan
		}
	}
	s.nextPlanID++
	stored := clonePlan(plan)
	stored.ID = s.nextPlanID
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.plans = append(s.plans, stored)
	return stored.ID, nil
}

func (s *Store) UpdatePlan(_ context.Context, plan *core.MonthlyPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.plans {
		if p.UserID == plan.UserID && p.Month == plan.Month && p.Year == plan.Year {
			updated := clonePlan(plan)
			updated.ID = p.ID
			updated.CreatedAt = p.CreatedAt
			updated.CopiedFromPrevious = p.CopiedFromPrevious
			updated.UpdatedAt = time.Now()
			s.plans[i] = updated
			return nil
		}
	}
	return nil
}

// GetPlan returns nil without error when no plan exists for the month.
func (s *Store) GetPlan(_ context.Context, userID string, month, year int) (*core.MonthlyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.plans {
		if p.UserID == userID && p.Month == month && p.Year == year {
			return clonePlan(p), nil
		}
	}
	return nil, nil
}

func (s *Store) ListPlans(_ context.Context, userID string) ([]core.MonthlyPlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MonthlyPlan, 0)
	for _, p := range s.plans {
		if p.UserID == userID {
			out = append(out, *clonePlan(p))
		}
	}
	return out, nil
}

func (s *Store) CreateNotification(_ context.Context, n ledger.Notification) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.notifications {
		if existing.PlanID == n.PlanID && existing.CategoryID == n.CategoryID &&
			existing.AlertType == n.AlertType && existing.Month == n.Month && existing.Year == n.Year {
			return false, nil
		}
	}
	s.nextNoteID++
	n.ID = s.nextNoteID
	n.CreatedAt = time.Now()
	s.notifications = append(s.notifications, n)
	return true, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]ledger.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Notification, 0)
	for i := len(s.notifications) - 1; i >= 0; i-- {
		n := s.notifications[i]
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return nil
		}
	}
	return nil
}

// clonePlan copies the plan with an independent budget list so callers
// can mutate their copy freely.
func clonePlan(p *core.MonthlyPlan) *core.MonthlyPlan {
	out := *p
	out.CategoryBudgets = make([]core.CategoryBudget, len(p.CategoryBudgets))
	copy(out.CategoryBudgets, p.CategoryBudgets)
	return &out
}

func readCategories(path string) []core.Category {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.Category
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			continue
		}
		id := strings.TrimSpace(parts[0])
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		c := core.Category{ID: id, Name: strings.TrimSpace(parts[1])}
		if len(parts) > 2 {
			c.Icon = strings.TrimSpace(parts[2])
		}
		if len(parts) > 3 {
			c.Color = strings.TrimSpace(parts[3])
		}
		out = append(out, c)
	}
	return out
}
