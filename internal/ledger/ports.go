package ledger

import (
	"context"
	"errors"

	"liquidate/internal/core"
)

var (
	// ErrReceiptNotFound is returned for unknown receipt ids.
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrReportNotFound is returned for unknown report ids.
	ErrReportNotFound = errors.New("report not found")
)

// Ports for the external collaborators of the reconciliation engine. The
// engine only ever uses the read views; the write sides belong to the
// expense-recording and fund-request subsystems.
type (
	// ExpenseReader is a read view of the ledger of actual expenses.
	ExpenseReader interface {
		// GetReceipt returns the receipt with the given id, or
		// ErrReceiptNotFound.
		GetReceipt(ctx context.Context, id string) (core.Receipt, error)
		// ListByCategory returns receipts of the given category in recording
		// order. An unknown category yields an empty list, not an error.
		ListByCategory(ctx context.Context, category string) ([]core.Receipt, error)
	}

	// ExpenseRecorder is the write side of the ledger.
	ExpenseRecorder interface {
		AppendReceipt(ctx context.Context, r core.Receipt) (id string, err error)
		// DeleteReceipt removes a receipt. Callers are responsible for running
		// the allocation cascade afterwards.
		DeleteReceipt(ctx context.Context, id string) error
	}

	// BudgetReader is a read view of the budget catalog.
	BudgetReader interface {
		// GetBudget returns the budget with the given id, or
		// core.ErrBudgetNotFound.
		GetBudget(ctx context.Context, id string) (core.Budget, error)
		// ListBudgets returns all submitted budgets in submission order.
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	// BudgetRecorder is the write side of the budget catalog. Budgets are
	// never deleted; only their status moves.
	BudgetRecorder interface {
		AppendBudget(ctx context.Context, b core.Budget) (id string, err error)
		SetBudgetStatus(ctx context.Context, id string, status core.BudgetStatus) error
	}

	// ReportStore persists generated liquidation reports. The engine's
	// in-memory history stays authoritative; persistence is best-effort.
	ReportStore interface {
		AppendReport(ctx context.Context, r core.LiquidationReport) error
		ListReports(ctx context.Context) ([]core.LiquidationReport, error)
		GetReport(ctx context.Context, id string) (core.LiquidationReport, error)
	}
)
