package reconcile

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

// GenerateReport freezes the current reconciliation state of one budget into
// an immutable liquidation report and appends it to the history. There is no
// completeness precondition: zero, partial and full allocation all produce
// valid interim reports. Fails with core.ErrBudgetNotFound when the budget is
// absent from the catalog.
func (e *Engine) GenerateReport(ctx context.Context, budgetID string) (*core.LiquidationReport, error) {
	b, err := e.budgets.GetBudget(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("get budget %s: %w", budgetID, err)
	}

	lines := make([]core.ReportLine, 0, len(b.Items))
	for i, item := range b.Items {
		e.mu.Lock()
		ids := append([]string(nil), e.alloc[key{budgetID: b.ID, index: i}]...)
		e.mu.Unlock()

		line := core.ReportLine{
			Category: item.Category,
			Remarks:  item.Remarks,
			Budgeted: item.BudgetedAmount(),
			Actual:   decimal.Zero,
		}
		for _, id := range ids {
			r, err := e.expenses.GetReceipt(ctx, id)
			if err != nil {
				if errors.Is(err, ledger.ErrReceiptNotFound) {
					continue
				}
				return nil, fmt.Errorf("get receipt %s: %w", id, err)
			}
			line.Actual = line.Actual.Add(r.Amount)
			line.Receipts = append(line.Receipts, core.ReportReceipt{
				ReceiptID: r.ID,
				Amount:    r.Amount,
				Date:      r.Date,
				Remarks:   r.Remarks,
			})
		}
		line.Remaining = line.Budgeted.Sub(line.Actual)
		lines = append(lines, line)
	}

	aggregate, err := e.AggregateRemaining(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	// Generation timestamps are monotonically non-decreasing across the
	// history, even if the wall clock steps backwards.
	now := time.Now()
	if now.Before(e.lastGen) {
		now = e.lastGen
	}
	e.lastGen = now

	report := core.LiquidationReport{
		ID:                 uuid.NewString(),
		BudgetID:           b.ID,
		BudgetName:         b.Name,
		Status:             b.Status,
		Lines:              lines,
		AggregateRemaining: aggregate,
		GeneratedAt:        now,
	}
	e.history = append(e.history, report)
	e.mu.Unlock()

	slog.InfoContext(ctx, "Liquidation report generated",
		"report_id", report.ID,
		"budget_id", b.ID,
		"budget_name", b.Name,
		"status", string(b.Status),
		"lines", len(lines))

	out := report
	return &out, nil
}

// ReportHistory returns a lazy, restartable sequence over the append-only
// report history, oldest first. The sequence iterates a snapshot taken when
// it is first ranged, so reports generated mid-iteration do not appear.
func (e *Engine) ReportHistory() iter.Seq[core.LiquidationReport] {
	return func(yield func(core.LiquidationReport) bool) {
		e.mu.Lock()
		snapshot := append([]core.LiquidationReport(nil), e.history...)
		e.mu.Unlock()

		for _, r := range snapshot {
			if !yield(r) {
				return
			}
		}
	}
}
