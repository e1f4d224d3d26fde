package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending  BudgetStatus = "pending"
	StatusApproved BudgetStatus = "approved"
	StatusDenied   BudgetStatus = "denied"
)

type (
	// BudgetStatus is the lifecycle state of a submitted budget. It is set by
	// the approval workflow; this engine only ever reads it.
	BudgetStatus string

	// LineItem is one planned expense category within a budget. Its identity
	// within the budget is its position in Budget.Items.
	LineItem struct {
		Category   string
		Quantity   int
		UnitAmount decimal.Decimal
		Remarks    string
	}

	// Budget is a submitted funding request. Total is the sum of the line
	// items' budgeted amounts at submission time and is never recomputed.
	Budget struct {
		ID     string
		Name   string
		Items  []LineItem
		Total  decimal.Decimal
		Status BudgetStatus
	}

	// Receipt is a recorded actual expense, candidate for reconciliation
	// against a budget line item.
	Receipt struct {
		ID        string
		Category  string
		Amount    decimal.Decimal
		Date      time.Time
		Remarks   string
		ImageRef  string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrNegativeAmount    = errors.New("negative amount")
	ErrNegativeQuantity  = errors.New("negative quantity")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyName         = errors.New("empty budget name")
	ErrEmptyID           = errors.New("empty id")
	ErrInvalidStatus     = errors.New("invalid budget status")
	ErrInvalidAllocation = errors.New("invalid allocation")
	ErrBudgetNotFound    = errors.New("budget not found")
)

// BudgetedAmount is the planned spend for the line item: quantity times unit
// amount, in exact decimal arithmetic.
func (li LineItem) BudgetedAmount() decimal.Decimal {
	return li.UnitAmount.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

func (li LineItem) Validate() error {
	if strings.TrimSpace(li.Category) == "" {
		return ErrEmptyCategory
	}
	if li.Quantity < 0 {
		return ErrNegativeQuantity
	}
	if li.UnitAmount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (s BudgetStatus) Validate() error {
	switch s {
	case StatusPending, StatusApproved, StatusDenied:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if err := b.Status.Validate(); err != nil {
		return err
	}
	for _, li := range b.Items {
		if err := li.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Item returns the line item at index, or false when the index is out of
// range. Line items are addressed by index throughout the engine.
func (b Budget) Item(index int) (LineItem, bool) {
	if index < 0 || index >= len(b.Items) {
		return LineItem{}, false
	}
	return b.Items[index], true
}

func (r Receipt) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
