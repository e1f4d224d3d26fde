// Package reconcile implements the budget reconciliation engine: it allocates
// recorded receipts to planned budget line items, derives remaining balances,
// and freezes liquidation reports.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

// key addresses one allocation set. Line items are keyed by (budget id,
// index) so that reconciling several budgets over a session never collides.
type key struct {
	budgetID string
	index    int
}

// Candidate is a receipt offered for allocation to a line item, annotated
// with whether it is already allocated to a different item of the same
// budget.
type Candidate struct {
	Receipt       core.Receipt
	UsedElsewhere bool
}

// Engine owns the allocation table and the report history for one
// reconciliation session. It reads the ledger and the budget catalog through
// its injected ports and never mutates them.
//
// All exported methods are safe for concurrent use; the HTTP surface and the
// deletion-cascade worker may call in from separate goroutines.
type Engine struct {
	expenses ledger.ExpenseReader
	budgets  ledger.BudgetReader

	mu      sync.Mutex
	alloc   map[key][]string // ordered receipt ids, no duplicates
	history []core.LiquidationReport
	lastGen time.Time
}

func New(expenses ledger.ExpenseReader, budgets ledger.BudgetReader) *Engine {
	return &Engine{
		expenses: expenses,
		budgets:  budgets,
		alloc:    make(map[key][]string),
	}
}

// ListCandidateReceipts returns the receipts matching the line item's
// category, in recording order. Receipts allocated to another line item of
// the same budget are flagged UsedElsewhere rather than hidden, so the caller
// can warn instead of silently dropping them.
func (e *Engine) ListCandidateReceipts(ctx context.Context, budgetID string, itemIndex int) ([]Candidate, error) {
	item, err := e.lineItem(ctx, budgetID, itemIndex)
	if err != nil {
		return nil, err
	}

	receipts, err := e.expenses.ListByCategory(ctx, item.Category)
	if err != nil {
		return nil, fmt.Errorf("list receipts by category: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	candidates := make([]Candidate, 0, len(receipts))
	for _, r := range receipts {
		candidates = append(candidates, Candidate{
			Receipt:       r,
			UsedElsewhere: e.usedElsewhereLocked(budgetID, itemIndex, r.ID),
		})
	}
	return candidates, nil
}

// CommitAllocation atomically replaces the allocation set for one line item
// with the desired receipts. Every receipt must exist in the ledger, match
// the line item's category, and not be allocated to a different item of the
// same budget; otherwise the commit fails with core.ErrInvalidAllocation and
// the prior set is untouched. An empty set clears the allocation.
func (e *Engine) CommitAllocation(ctx context.Context, budgetID string, itemIndex int, receiptIDs []string) error {
	item, err := e.lineItem(ctx, budgetID, itemIndex)
	if err != nil {
		return err
	}

	// Validate everything before mutating anything.
	seen := make(map[string]struct{}, len(receiptIDs))
	ids := make([]string, 0, len(receiptIDs))
	for _, id := range receiptIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		r, err := e.expenses.GetReceipt(ctx, id)
		if err != nil {
			if errors.Is(err, ledger.ErrReceiptNotFound) {
				return fmt.Errorf("receipt %s: %w", id, core.ErrInvalidAllocation)
			}
			return fmt.Errorf("get receipt %s: %w", id, err)
		}
		if r.Category != item.Category {
			return fmt.Errorf("receipt %s category %q does not match line item category %q: %w",
				id, r.Category, item.Category, core.ErrInvalidAllocation)
		}
		ids = append(ids, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range ids {
		if e.usedElsewhereLocked(budgetID, itemIndex, id) {
			return fmt.Errorf("receipt %s already allocated to another line item of budget %s: %w",
				id, budgetID, core.ErrInvalidAllocation)
		}
	}

	k := key{budgetID: budgetID, index: itemIndex}
	if len(ids) == 0 {
		delete(e.alloc, k)
	} else {
		e.alloc[k] = ids
	}

	slog.InfoContext(ctx, "Allocation committed",
		"budget_id", budgetID,
		"line_item", itemIndex,
		"receipts", len(ids))
	return nil
}

// OnReceiptDeleted removes the receipt from every allocation set across every
// budget. It is the cascade hook for the expense-recording subsystem and must
// run before balance queries are considered consistent again. Removing an id
// that is nowhere allocated is a no-op.
func (e *Engine) OnReceiptDeleted(ctx context.Context, receiptID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := 0
	for k, ids := range e.alloc {
		kept := ids[:0]
		for _, id := range ids {
			if id == receiptID {
				removed++
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) == 0 {
			delete(e.alloc, k)
		} else {
			e.alloc[k] = kept
		}
	}

	if removed > 0 {
		slog.InfoContext(ctx, "Receipt removed from allocations",
			"receipt_id", receiptID,
			"allocations", removed)
	}
}

// Allocated returns the receipt ids currently allocated to one line item, in
// allocation order. Absent entries are empty sets.
func (e *Engine) Allocated(budgetID string, itemIndex int) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.alloc[key{budgetID: budgetID, index: itemIndex}]...)
}

// usedElsewhereLocked reports whether the receipt appears in the allocation
// table under the same budget at any index other than the target.
func (e *Engine) usedElsewhereLocked(budgetID string, itemIndex int, receiptID string) bool {
	for k, ids := range e.alloc {
		if k.budgetID != budgetID || k.index == itemIndex {
			continue
		}
		for _, id := range ids {
			if id == receiptID {
				return true
			}
		}
	}
	return false
}

// lineItem resolves a (budget id, index) target. Unknown budgets surface
// core.ErrBudgetNotFound; an out-of-range index is an invalid allocation
// target.
func (e *Engine) lineItem(ctx context.Context, budgetID string, itemIndex int) (core.LineItem, error) {
	b, err := e.budgets.GetBudget(ctx, budgetID)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("get budget %s: %w", budgetID, err)
	}
	item, ok := b.Item(itemIndex)
	if !ok {
		return core.LineItem{}, fmt.Errorf("budget %s has no line item %d: %w",
			budgetID, itemIndex, core.ErrInvalidAllocation)
	}
	return item, nil
}
