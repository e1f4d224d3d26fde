package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"liquidate/internal/amqp"
	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

// Canceller removes a receipt from every allocation set it appears in.
type Canceller interface {
	HandleReceiptDeleted(ctx context.Context, receiptID string) error
}

// ReportExporter pushes a finished report to an external destination.
type ReportExporter interface {
	ExportReport(ctx context.Context, report core.LiquidationReport) error
}

// CascadeWorker applies receipt deletion events to the reconciliation state.
type CascadeWorker struct {
	canceller Canceller
}

func NewCascadeWorker(canceller Canceller) *CascadeWorker {
	return &CascadeWorker{canceller: canceller}
}

// HandleDeleteMessage processes a single receipt-deleted message from AMQP
func (w *CascadeWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.ReceiptDeletedMessage) error {
	slog.InfoContext(ctx, "Processing receipt delete message",
		"receipt_id", msg.ReceiptID,
		"timestamp", msg.Timestamp)

	if err := w.canceller.HandleReceiptDeleted(ctx, msg.ReceiptID); err != nil {
		slog.ErrorContext(ctx, "Failed to cascade receipt deletion",
			"receipt_id", msg.ReceiptID,
			"error", err)
		return fmt.Errorf("cascade receipt deletion: %w", err)
	}

	slog.InfoContext(ctx, "Receipt deletion cascaded",
		"receipt_id", msg.ReceiptID)

	return nil
}

// ExportWorker ships persisted liquidation reports to Google Sheets.
type ExportWorker struct {
	reports  ledger.ReportStore
	exporter ReportExporter
}

func NewExportWorker(reports ledger.ReportStore, exporter ReportExporter) *ExportWorker {
	return &ExportWorker{
		reports:  reports,
		exporter: exporter,
	}
}

// HandleExportMessage processes a single report-export message from AMQP
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ReportExportMessage) error {
	slog.InfoContext(ctx, "Processing report export message",
		"report_id", msg.ReportID,
		"budget_id", msg.BudgetID)

	if w.exporter == nil {
		slog.WarnContext(ctx, "No exporter configured, skipping report export",
			"report_id", msg.ReportID)
		return nil
	}

	report, err := w.reports.GetReport(ctx, msg.ReportID)
	if err != nil {
		if errors.Is(err, ledger.ErrReportNotFound) {
			// The report never reached the store. Requeueing cannot fix
			// that, so drop the message.
			slog.WarnContext(ctx, "Report not found, dropping export message",
				"report_id", msg.ReportID)
			return nil
		}
		return fmt.Errorf("get report from store: %w", err)
	}

	if err := w.exporter.ExportReport(ctx, report); err != nil {
		slog.ErrorContext(ctx, "Failed to export report",
			"report_id", msg.ReportID,
			"budget_id", msg.BudgetID,
			"error", err)
		return fmt.Errorf("export report: %w", err)
	}

	slog.InfoContext(ctx, "Report exported",
		"report_id", msg.ReportID,
		"budget_id", msg.BudgetID)

	return nil
}
