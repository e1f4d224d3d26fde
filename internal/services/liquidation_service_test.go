package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"liquidate/internal/core"
	"liquidate/internal/ledger/memory"
	"liquidate/internal/reconcile"
)

func newFixture(t *testing.T) (*memory.Store, *LiquidationService, string, []string) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()

	budgetID, err := store.AppendBudget(ctx, core.Budget{
		Name: "Fieldwork",
		Items: []core.LineItem{
			{Category: "Transportation", Quantity: 2, UnitAmount: decimal.RequireFromString("500.00")},
		},
		Status: core.StatusApproved,
	})
	if err != nil {
		t.Fatalf("append budget: %v", err)
	}

	var receipts []string
	for _, amount := range []string{"300.00", "250.00"} {
		id, err := store.AppendReceipt(ctx, core.Receipt{
			Category: "Transportation",
			Amount:   decimal.RequireFromString(amount),
			Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("append receipt: %v", err)
		}
		receipts = append(receipts, id)
	}

	engine := reconcile.New(store, store)
	// nil AMQP client: publishing degrades to a logged no-op.
	svc := NewLiquidationService(engine, store, store, nil)
	return store, svc, budgetID, receipts
}

func TestDeleteReceiptCascades(t *testing.T) {
	ctx := context.Background()
	store, svc, budgetID, receipts := newFixture(t)

	if err := svc.Engine().CommitAllocation(ctx, budgetID, 0, receipts); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := svc.DeleteReceipt(ctx, receipts[1]); err != nil {
		t.Fatalf("delete receipt: %v", err)
	}

	if _, err := store.GetReceipt(ctx, receipts[1]); err == nil {
		t.Fatal("receipt should be gone from the ledger")
	}
	got := svc.Engine().Allocated(budgetID, 0)
	if len(got) != 1 || got[0] != receipts[0] {
		t.Fatalf("allocation after cascade = %v", got)
	}
}

func TestDeleteReceiptUnknown(t *testing.T) {
	_, svc, _, _ := newFixture(t)
	if err := svc.DeleteReceipt(context.Background(), "no-such-receipt"); err == nil {
		t.Fatal("expected error deleting unknown receipt")
	}
}

func TestHandleReceiptDeleted(t *testing.T) {
	ctx := context.Background()
	_, svc, budgetID, receipts := newFixture(t)

	if err := svc.Engine().CommitAllocation(ctx, budgetID, 0, receipts); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := svc.HandleReceiptDeleted(ctx, receipts[0]); err != nil {
		t.Fatalf("handle receipt deleted: %v", err)
	}
	got := svc.Engine().Allocated(budgetID, 0)
	if len(got) != 1 || got[0] != receipts[1] {
		t.Fatalf("allocation after cascade = %v", got)
	}
}

func TestGenerateReportPersists(t *testing.T) {
	ctx := context.Background()
	store, svc, budgetID, receipts := newFixture(t)

	if err := svc.Engine().CommitAllocation(ctx, budgetID, 0, receipts); err != nil {
		t.Fatalf("commit: %v", err)
	}

	report, err := svc.GenerateReport(ctx, budgetID)
	if err != nil {
		t.Fatalf("generate report: %v", err)
	}

	persisted, err := store.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("get persisted report: %v", err)
	}
	if persisted.BudgetName != "Fieldwork" {
		t.Fatalf("persisted budget name = %q", persisted.BudgetName)
	}
	if !persisted.Lines[0].Actual.Equal(decimal.RequireFromString("550.00")) {
		t.Fatalf("persisted actual = %s", persisted.Lines[0].Actual)
	}
}

func TestGenerateReportUnknownBudget(t *testing.T) {
	_, svc, _, _ := newFixture(t)
	if _, err := svc.GenerateReport(context.Background(), "no-such-budget"); err == nil {
		t.Fatal("expected error for unknown budget")
	}
}

func TestCloseWithNilComponents(t *testing.T) {
	svc := NewLiquidationService(nil, nil, nil, nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}
