package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"liquidate/internal/amqp"
	"liquidate/internal/core"
	"liquidate/internal/ledger/memory"
)

type recordingCanceller struct {
	ids []string
	err error
}

func (c *recordingCanceller) HandleReceiptDeleted(_ context.Context, receiptID string) error {
	c.ids = append(c.ids, receiptID)
	return c.err
}

type recordingExporter struct {
	exported []core.LiquidationReport
	err      error
}

func (e *recordingExporter) ExportReport(_ context.Context, report core.LiquidationReport) error {
	e.exported = append(e.exported, report)
	return e.err
}

func TestCascadeWorkerHandleDeleteMessage(t *testing.T) {
	canceller := &recordingCanceller{}
	w := NewCascadeWorker(canceller)

	msg := &amqp.ReceiptDeletedMessage{ReceiptID: "rcpt-1", Timestamp: time.Now()}
	if err := w.HandleDeleteMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleDeleteMessage() error = %v", err)
	}

	if len(canceller.ids) != 1 || canceller.ids[0] != "rcpt-1" {
		t.Errorf("cascaded ids = %v, want [rcpt-1]", canceller.ids)
	}
}

func TestCascadeWorkerPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	w := NewCascadeWorker(&recordingCanceller{err: wantErr})

	msg := &amqp.ReceiptDeletedMessage{ReceiptID: "rcpt-1", Timestamp: time.Now()}
	if err := w.HandleDeleteMessage(context.Background(), msg); !errors.Is(err, wantErr) {
		t.Errorf("HandleDeleteMessage() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestExportWorkerHandleExportMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	report := core.LiquidationReport{
		ID:         "rep-1",
		BudgetID:   "bud-1",
		BudgetName: "Fieldwork",
		Status:     core.StatusApproved,
	}
	if err := store.AppendReport(ctx, report); err != nil {
		t.Fatalf("AppendReport() error = %v", err)
	}

	exporter := &recordingExporter{}
	w := NewExportWorker(store, exporter)

	msg := &amqp.ReportExportMessage{ReportID: "rep-1", BudgetID: "bud-1"}
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("HandleExportMessage() error = %v", err)
	}

	if len(exporter.exported) != 1 {
		t.Fatalf("exported %d reports, want 1", len(exporter.exported))
	}
	if exporter.exported[0].ID != "rep-1" {
		t.Errorf("exported report id = %q, want rep-1", exporter.exported[0].ID)
	}
}

func TestExportWorkerDropsUnknownReport(t *testing.T) {
	exporter := &recordingExporter{}
	w := NewExportWorker(memory.New(), exporter)

	msg := &amqp.ReportExportMessage{ReportID: "missing", BudgetID: "bud-1"}
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Errorf("HandleExportMessage() error = %v, want nil for unknown report", err)
	}
	if len(exporter.exported) != 0 {
		t.Errorf("exported %d reports, want 0", len(exporter.exported))
	}
}

func TestExportWorkerPropagatesExportError(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.AppendReport(ctx, core.LiquidationReport{ID: "rep-1", BudgetID: "bud-1"}); err != nil {
		t.Fatalf("AppendReport() error = %v", err)
	}

	wantErr := errors.New("sheets unavailable")
	w := NewExportWorker(store, &recordingExporter{err: wantErr})

	msg := &amqp.ReportExportMessage{ReportID: "rep-1", BudgetID: "bud-1"}
	if err := w.HandleExportMessage(ctx, msg); !errors.Is(err, wantErr) {
		t.Errorf("HandleExportMessage() error = %v, want wrapped %v", err, wantErr)
	}
}

func TestExportWorkerSkipsWithoutExporter(t *testing.T) {
	w := NewExportWorker(memory.New(), nil)

	msg := &amqp.ReportExportMessage{ReportID: "rep-1", BudgetID: "bud-1"}
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Errorf("HandleExportMessage() error = %v, want nil when exporter missing", err)
	}
}
