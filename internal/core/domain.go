package core

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// CategoryKind tells whether transactions in a category add to or subtract
// from the balance.
type CategoryKind string

const (
	KindIncome  CategoryKind = "Income"
	KindExpense CategoryKind = "Expense"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidKind   = errors.New("invalid category kind")
	ErrNoCategory    = errors.New("missing category")
)

type (
	// User is the authenticated account as the backend reports it.
	User struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}

	// Category labels transactions. Global categories have a nil UserID;
	// user-created ones are scoped to their owner.
	Category struct {
		ID     int64        `json:"id"`
		Name   string       `json:"name"`
		UserID *int64       `json:"user_id"`
		Kind   CategoryKind `json:"type"`
		Color  string       `json:"color"`
	}

	// Expense is a single transaction. The direction of the cash flow is
	// derived from the referenced category's kind, not stored here.
	Expense struct {
		ID         int64           `json:"id"`
		UserID     int64           `json:"user_id"`
		CategoryID int64           `json:"category_id"`
		Amount     decimal.Decimal `json:"amount"`
		Date       Date            `json:"expense_date"`
		Note       string          `json:"note,omitempty"`
	}

	// Budget is a monthly spending limit for one category. SpentAmount is
	// authoritative from the backend and never recomputed client-side.
	Budget struct {
		ID            int64           `json:"id"`
		CategoryID    int64           `json:"category_id"`
		LimitAmount   decimal.Decimal `json:"limit_amount"`
		SpentAmount   decimal.Decimal `json:"spent_amount"`
		CategoryName  string          `json:"category_name,omitempty"`
		CategoryColor string          `json:"category_color,omitempty"`
	}
)

// IsGlobal reports whether the category is visible to every user.
func (c Category) IsGlobal() bool {
	return c.UserID == nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	switch c.Kind {
	case KindIncome, KindExpense:
	default:
		return ErrInvalidKind
	}
	return nil
}

func (e Expense) Validate() error {
	if e.CategoryID == 0 {
		return ErrNoCategory
	}
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if e.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (b Budget) Validate() error {
	if b.CategoryID == 0 {
		return ErrNoCategory
	}
	if !b.LimitAmount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// expenseWire mirrors Expense but keeps both date spellings the backend
// uses: list responses say "expense_date" while some write paths echo "date".
type expenseWire struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	CategoryID int64           `json:"category_id"`
	Amount     decimal.Decimal `json:"amount"`
	Date       Date            `json:"expense_date"`
	AltDate    Date            `json:"date"`
	Note       string          `json:"note"`
}

// UnmarshalJSON accepts either date key, preferring expense_date.
func (e *Expense) UnmarshalJSON(data []byte) error {
	var w expenseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	d := w.Date
	if d.IsZero() {
		d = w.AltDate
	}
	*e = Expense{
		ID:         w.ID,
		UserID:     w.UserID,
		CategoryID: w.CategoryID,
		Amount:     w.Amount,
		Date:       d,
		Note:       w.Note,
	}
	return nil
}
