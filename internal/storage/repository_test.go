package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "liquidate.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestReceiptRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.AppendReceipt(ctx, core.Receipt{
		Category: "Transportation",
		Amount:   decimal.RequireFromString("300.00"),
		Date:     time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Remarks:  "bus fare",
	})
	if err != nil {
		t.Fatalf("append receipt: %v", err)
	}

	got, err := repo.GetReceipt(ctx, id)
	if err != nil {
		t.Fatalf("get receipt: %v", err)
	}
	if got.Category != "Transportation" || got.Remarks != "bus fare" {
		t.Fatalf("receipt = %+v", got)
	}
	if !got.Amount.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("amount = %s", got.Amount)
	}

	if _, err := repo.GetReceipt(ctx, "missing"); !errors.Is(err, ledger.ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound, got %v", err)
	}
}

func TestListByCategoryOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, amount := range []string{"300.00", "250.00"} {
		_, err := repo.AppendReceipt(ctx, core.Receipt{
			Category:  "Transportation",
			Amount:    decimal.RequireFromString(amount),
			Date:      base,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := repo.AppendReceipt(ctx, core.Receipt{
		Category:  "Meals",
		Amount:    decimal.RequireFromString("42.00"),
		Date:      base,
		CreatedAt: base,
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := repo.ListByCategory(ctx, "Transportation")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[0].Amount.Equal(decimal.RequireFromString("300.00")) {
		t.Fatalf("order wrong, first = %s", got[0].Amount)
	}

	empty, err := repo.ListByCategory(ctx, "Unknown")
	if err != nil {
		t.Fatalf("list unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty list, got %d", len(empty))
	}
}

func TestDeleteReceipt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.AppendReceipt(ctx, core.Receipt{
		Category: "Transportation",
		Amount:   decimal.RequireFromString("10.00"),
		Date:     time.Now(),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := repo.DeleteReceipt(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetReceipt(ctx, id); !errors.Is(err, ledger.ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound after delete, got %v", err)
	}
	if err := repo.DeleteReceipt(ctx, id); !errors.Is(err, ledger.ErrReceiptNotFound) {
		t.Fatalf("expected ErrReceiptNotFound on second delete, got %v", err)
	}
}

func TestBudgetRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.AppendBudget(ctx, core.Budget{
		Name: "Fieldwork",
		Items: []core.LineItem{
			{Category: "Transportation", Quantity: 2, UnitAmount: decimal.RequireFromString("500.00")},
			{Category: "Meals", Quantity: 4, UnitAmount: decimal.RequireFromString("150.00"), Remarks: "per diem"},
		},
	})
	if err != nil {
		t.Fatalf("append budget: %v", err)
	}

	got, err := repo.GetBudget(ctx, id)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if got.Name != "Fieldwork" || got.Status != core.StatusPending {
		t.Fatalf("budget = %+v", got)
	}
	if !got.Total.Equal(decimal.RequireFromString("1600.00")) {
		t.Fatalf("total = %s", got.Total)
	}
	if len(got.Items) != 2 || got.Items[1].Remarks != "per diem" {
		t.Fatalf("items = %+v", got.Items)
	}

	if err := repo.SetBudgetStatus(ctx, id, core.StatusApproved); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, err = repo.GetBudget(ctx, id)
	if err != nil {
		t.Fatalf("get budget: %v", err)
	}
	if got.Status != core.StatusApproved {
		t.Fatalf("status = %s", got.Status)
	}

	if err := repo.SetBudgetStatus(ctx, "missing", core.StatusDenied); !errors.Is(err, core.ErrBudgetNotFound) {
		t.Fatalf("expected ErrBudgetNotFound, got %v", err)
	}
}

func TestReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	report := core.LiquidationReport{
		ID:         "rep-1",
		BudgetID:   "b-1",
		BudgetName: "Fieldwork",
		Status:     core.StatusApproved,
		Lines: []core.ReportLine{
			{
				Category:  "Transportation",
				Budgeted:  decimal.RequireFromString("1000.00"),
				Actual:    decimal.RequireFromString("550.00"),
				Remaining: decimal.RequireFromString("450.00"),
				Receipts: []core.ReportReceipt{
					{ReceiptID: "r-1", Amount: decimal.RequireFromString("300.00"), Date: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
				},
			},
		},
		AggregateRemaining: decimal.RequireFromString("450.00"),
		GeneratedAt:        time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
	}

	if err := repo.AppendReport(ctx, report); err != nil {
		t.Fatalf("append report: %v", err)
	}

	got, err := repo.GetReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if got.BudgetName != "Fieldwork" {
		t.Fatalf("budget name = %q", got.BudgetName)
	}
	if !got.Lines[0].Remaining.Equal(decimal.RequireFromString("450.00")) {
		t.Fatalf("remaining = %s", got.Lines[0].Remaining)
	}
	if got.Lines[0].Receipts[0].ReceiptID != "r-1" {
		t.Fatalf("receipts = %+v", got.Lines[0].Receipts)
	}

	all, err := repo.ListReports(ctx)
	if err != nil {
		t.Fatalf("list reports: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("len = %d", len(all))
	}

	if _, err := repo.GetReport(ctx, "missing"); !errors.Is(err, ledger.ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound, got %v", err)
	}
}
