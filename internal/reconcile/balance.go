package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"liquidate/internal/ledger"
)

// Figures are the derived balances for one line item. Remaining is negative
// when the item is over budget; the sign carries the display semantics, there
// is no separate over-budget path.
type Figures struct {
	Budgeted  decimal.Decimal
	Actual    decimal.Decimal
	Remaining decimal.Decimal
}

// LineItemFigures derives budgeted, actual and remaining for one line item.
// The figures are a pure function of the budget catalog, the allocation table
// and the ledger at call time.
func (e *Engine) LineItemFigures(ctx context.Context, budgetID string, itemIndex int) (Figures, error) {
	item, err := e.lineItem(ctx, budgetID, itemIndex)
	if err != nil {
		return Figures{}, err
	}

	e.mu.Lock()
	ids := append([]string(nil), e.alloc[key{budgetID: budgetID, index: itemIndex}]...)
	e.mu.Unlock()

	actual, err := e.sumReceipts(ctx, ids)
	if err != nil {
		return Figures{}, err
	}

	budgeted := item.BudgetedAmount()
	return Figures{
		Budgeted:  budgeted,
		Actual:    actual,
		Remaining: budgeted.Sub(actual),
	}, nil
}

// AggregateRemaining sums budgeted minus actual over every line item of every
// budget in the catalog. Line items with no allocation contribute their full
// budgeted amount.
func (e *Engine) AggregateRemaining(ctx context.Context) (decimal.Decimal, error) {
	budgets, err := e.budgets.ListBudgets(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list budgets: %w", err)
	}

	total := decimal.Zero
	for _, b := range budgets {
		for i, item := range b.Items {
			e.mu.Lock()
			ids := append([]string(nil), e.alloc[key{budgetID: b.ID, index: i}]...)
			e.mu.Unlock()

			actual, err := e.sumReceipts(ctx, ids)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(item.BudgetedAmount().Sub(actual))
		}
	}
	return total, nil
}

// sumReceipts totals the amounts of the given receipts. Ids that no longer
// resolve are skipped: the deletion cascade removes them from the table, and
// a lookup racing that removal must not fail the calculation.
func (e *Engine) sumReceipts(ctx context.Context, ids []string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, id := range ids {
		r, err := e.expenses.GetReceipt(ctx, id)
		if err != nil {
			if errors.Is(err, ledger.ErrReceiptNotFound) {
				continue
			}
			return decimal.Zero, fmt.Errorf("get receipt %s: %w", id, err)
		}
		total = total.Add(r.Amount)
	}
	return total, nil
}
