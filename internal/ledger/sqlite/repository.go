// Package sqlite is the persistent ledger backend, backed by a local
// SQLite file with embedded migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"carteira/internal/budget"
	"carteira/internal/cache"
	"carteira/internal/core"
	"carteira/internal/ledger"
)

const timeFormat = time.RFC3339

// categoriesTTL bounds staleness of the directory cache; categories
// change via migrations, so minutes of staleness is acceptable.
const categoriesTTL = 5 * time.Minute

type Repository struct {
	db         *sql.DB
	categories *cache.LRUCache[[]core.Category]
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:         db,
		categories: cache.NewLRUCache[[]core.Category](1, categoriesTTL),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Categories implements ledger.CategoryDirectory.
func (r *Repository) Categories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := r.categories.Get("all"); ok {
		return cats, nil
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon, color FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var cats []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	r.categories.Set("all", cats)
	return cats, nil
}

// CreateTransaction implements ledger.TransactionSource.
func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, category_id, description, amount, type, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.CategoryID, tx.Description, tx.Amount.String(), string(tx.Type),
		tx.Date.Format("2006-01-02"), time.Now().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("create transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"category_id", tx.CategoryID,
		"type", string(tx.Type),
		"amount", tx.Amount.String())

	return id, nil
}

// ListMonthTransactions implements ledger.TransactionSource. The date
// window is the competence month, half-open on the right.
func (r *Repository) ListMonthTransactions(ctx context.Context, userID string, month, year int) ([]core.Transaction, error) {
	start, end := monthBounds(month, year)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, description, amount, type, date, created_at
		FROM transactions
		WHERE user_id = ? AND date >= ? AND date < ?
		ORDER BY date DESC, id DESC`,
		userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list month transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// CreatePlan implements ledger.PlanStore. The plan row and its budget
// list are written in one transaction; a competence-month collision
// maps to ledger.ErrDuplicatePlan.
func (r *Repository) CreatePlan(ctx context.Context, plan *core.MonthlyPlan) (int64, error) {
	if err := plan.Validate(); err != nil {
		return 0, err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create plan: %w", err)
	}
	defer dbTx.Rollback()

	now := time.Now().Format(timeFormat)
	res, err := dbTx.ExecContext(ctx, `
		INSERT INTO monthly_plans (user_id, month, year, total_budget, copied_from_previous, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.UserID, plan.Month, plan.Year, plan.TotalBudget.String(),
		boolToInt(plan.CopiedFromPrevious), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ledger.ErrDuplicatePlan
		}
		return 0, fmt.Errorf("insert plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("plan id: %w", err)
	}

	if err := insertBudgets(ctx, dbTx, id, plan.CategoryBudgets); err != nil {
		return 0, err
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create plan: %w", err)
	}

	slog.InfoContext(ctx, "Plan created",
		"id", id,
		"month", plan.Month,
		"year", plan.Year,
		"categories", len(plan.CategoryBudgets))

	return id, nil
}

// UpdatePlan implements ledger.PlanStore. Only the ceiling and the
// budget list change; identity and the copied-from-previous flag stay.
func (r *Repository) UpdatePlan(ctx context.Context, plan *core.MonthlyPlan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update plan: %w", err)
	}
	defer dbTx.Rollback()

	var id int64
	err = dbTx.QueryRowContext(ctx,
		`SELECT id FROM monthly_plans WHERE user_id = ? AND month = ? AND year = ?`,
		plan.UserID, plan.Month, plan.Year).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find plan: %w", err)
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE monthly_plans SET total_budget = ?, updated_at = ? WHERE id = ?`,
		plan.TotalBudget.String(), time.Now().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM category_budgets WHERE plan_id = ?`, id); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}
	if err := insertBudgets(ctx, dbTx, id, plan.CategoryBudgets); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit update plan: %w", err)
	}
	return nil
}

// GetPlan implements ledger.PlanStore; absence is a nil plan, no error.
func (r *Repository) GetPlan(ctx context.Context, userID string, month, year int) (*core.MonthlyPlan, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, month, year, total_budget, copied_from_previous, created_at, updated_at
		FROM monthly_plans WHERE user_id = ? AND month = ? AND year = ?`,
		userID, month, year)

	plan, err := scanPlan(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	budgets, err := r.planBudgets(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	plan.CategoryBudgets = budgets
	return plan, nil
}

// ListPlans implements ledger.PlanStore, newest competence month first.
func (r *Repository) ListPlans(ctx context.Context, userID string) ([]core.MonthlyPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, month, year, total_budget, copied_from_previous, created_at, updated_at
		FROM monthly_plans WHERE user_id = ? ORDER BY year DESC, month DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}

	for i := range out {
		budgets, err := r.planBudgets(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].CategoryBudgets = budgets
	}
	return out, nil
}

// CreateNotification implements ledger.NotificationStore. The unique
// index on (plan, category, alert type, month, year) makes repeated
// alerts a no-op; created reports whether a new row landed.
func (r *Repository) CreateNotification(ctx context.Context, n ledger.Notification) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO notifications
			(user_id, plan_id, category_id, alert_type, message, month, year, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		n.UserID, n.PlanID, n.CategoryID, string(n.AlertType), n.Message,
		n.Month, n.Year, time.Now().Format(timeFormat))
	if err != nil {
		return false, fmt.Errorf("create notification: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("notification rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]ledger.Notification, error) {
	query := `
		SELECT id, user_id, plan_id, category_id, alert_type, message, month, year, is_read, created_at
		FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []ledger.Notification
	for rows.Next() {
		var (
			n         ledger.Notification
			alertType string
			isRead    int
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.PlanID, &n.CategoryID, &alertType,
			&n.Message, &n.Month, &n.Year, &isRead, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.AlertType = budget.AlertType(alertType)
		n.Read = isRead != 0
		n.CreatedAt = parseTime(createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (r *Repository) planBudgets(ctx context.Context, planID int64) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, planned_amount FROM category_budgets
		WHERE plan_id = ? ORDER BY position`,
		planID)
	if err != nil {
		return nil, fmt.Errorf("list category budgets: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryBudget
	for rows.Next() {
		var (
			cb     core.CategoryBudget
			amount string
		)
		if err := rows.Scan(&cb.CategoryID, &amount); err != nil {
			return nil, fmt.Errorf("scan category budget: %w", err)
		}
		cb.PlannedAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse planned amount %q: %w", amount, err)
		}
		out = append(out, cb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category budgets: %w", err)
	}
	return out, nil
}

func insertBudgets(ctx context.Context, dbTx *sql.Tx, planID int64, budgets []core.CategoryBudget) error {
	for i, cb := range budgets {
		_, err := dbTx.ExecContext(ctx, `
			INSERT INTO category_budgets (plan_id, position, category_id, planned_amount)
			VALUES (?, ?, ?, ?)`,
			planID, i, cb.CategoryID, cb.PlannedAmount.String())
		if err != nil {
			return fmt.Errorf("insert category budget %s: %w", cb.CategoryID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row rowScanner) (*core.MonthlyPlan, error) {
	var (
		p           core.MonthlyPlan
		totalBudget string
		copied      int
		createdAt   string
		updatedAt   string
	)
	err := row.Scan(&p.ID, &p.UserID, &p.Month, &p.Year, &totalBudget, &copied, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan plan: %w", err)
	}
	p.TotalBudget, err = decimal.NewFromString(totalBudget)
	if err != nil {
		return nil, fmt.Errorf("parse total budget %q: %w", totalBudget, err)
	}
	p.CopiedFromPrevious = copied != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx        core.Transaction
		amount    string
		txType    string
		date      string
		createdAt string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.CategoryID, &tx.Description, &amount, &txType, &date, &createdAt)
	if err != nil {
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return tx, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Type = core.TransactionType(txType)
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return tx, fmt.Errorf("parse date %q: %w", date, err)
	}
	tx.Date = core.Date{Time: parsed}
	tx.CreatedAt = parseTime(createdAt)
	return tx, nil
}

func monthBounds(month, year int) (string, string) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format("2006-01-02"), end.Format("2006-01-02")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeFormat, s); err == nil {
		return t
	}
	// CURRENT_TIMESTAMP default, written by sqlite itself
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
