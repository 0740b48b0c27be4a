package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income            TransactionType = "INCOME"
	Expense           TransactionType = "EXPENSE"
	CreditCardExpense TransactionType = "CREDIT_CARD_EXPENSE"
	Transfer          TransactionType = "TRANSFER"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one ledger movement. The budget engine only reads
	// expense-type rows; incomes and transfers pass through untouched.
	Transaction struct {
		ID          int64           `json:"id"`
		UserID      string          `json:"user_id"`
		CategoryID  string          `json:"category_id"`
		Description string          `json:"description"`
		Amount      decimal.Decimal `json:"amount"` // non-negative magnitude
		Type        TransactionType `json:"type"`
		Date        Date            `json:"date"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Category struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Icon  string `json:"icon,omitempty"`
		Color string `json:"color,omitempty"`
	}

	// CategoryBudget is the planned ceiling for one category inside a
	// monthly plan. The ceiling is only read during aggregation, never
	// enforced at transaction-write time.
	CategoryBudget struct {
		CategoryID    string          `json:"category_id"`
		PlannedAmount decimal.Decimal `json:"planned_amount"`
	}

	// MonthlyPlan is a user's declared spending ceiling for one
	// competence month, broken down by category. Identity is immutable
	// once created; TotalBudget and CategoryBudgets change via update.
	MonthlyPlan struct {
		ID                 int64            `json:"id"`
		UserID             string           `json:"user_id"`
		Month              int              `json:"month"` // 1-12
		Year               int              `json:"year"`
		TotalBudget        decimal.Decimal  `json:"total_budget"`
		CategoryBudgets    []CategoryBudget `json:"category_budgets"`
		CopiedFromPrevious bool             `json:"copied_from_previous"`
		CreatedAt          time.Time        `json:"created_at"`
		UpdatedAt          time.Time        `json:"updated_at"`
	}
)

var (
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidYear       = errors.New("invalid year")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("amount cannot be negative")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrEmptyCategory     = errors.New("empty category")
	ErrDuplicateCategory = errors.New("duplicate category in plan")
)

// Valid reports whether t is one of the four known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case Income, Expense, CreditCardExpense, Transfer:
		return true
	default:
		return false
	}
}

// IsSpend reports whether transactions of this type count toward
// category spend. Only direct and credit-card expenses do; income and
// transfers never contribute.
func (t TransactionType) IsSpend() bool {
	return t == Expense || t == CreditCardExpense
}

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// InCompetence reports whether the date falls inside the given
// competence month.
func (d Date) InCompetence(month, year int) bool {
	return d.Year() == year && d.Month() == month
}

// DateLayout is the wire format for dates, day precision only.
const DateLayout = "2006-01-02"

// MarshalJSON renders the date as "YYYY-MM-DD".
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON parses a "YYYY-MM-DD" date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (cb CategoryBudget) Validate() error {
	if strings.TrimSpace(cb.CategoryID) == "" {
		return ErrEmptyCategory
	}
	if cb.PlannedAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (p MonthlyPlan) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 {
		return ErrInvalidYear
	}
	if p.TotalBudget.IsNegative() {
		return ErrNegativeAmount
	}
	seen := make(map[string]struct{}, len(p.CategoryBudgets))
	for _, cb := range p.CategoryBudgets {
		if err := cb.Validate(); err != nil {
			return err
		}
		if _, ok := seen[cb.CategoryID]; ok {
			return ErrDuplicateCategory
		}
		seen[cb.CategoryID] = struct{}{}
	}
	return nil
}
