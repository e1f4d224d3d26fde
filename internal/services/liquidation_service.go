package services

import (
	"context"
	"fmt"
	"log/slog"

	"liquidate/internal/amqp"
	"liquidate/internal/core"
	"liquidate/internal/ledger"
	"liquidate/internal/reconcile"
)

// LiquidationService orchestrates the reconciliation engine, the ledger
// write side, report persistence and AMQP eventing. The engine stays pure;
// everything with a side effect outside the session lives here.
type LiquidationService struct {
	engine     *reconcile.Engine
	expenses   ledger.ExpenseRecorder
	reports    ledger.ReportStore
	amqpClient *amqp.Client
}

func NewLiquidationService(engine *reconcile.Engine, expenses ledger.ExpenseRecorder, reports ledger.ReportStore, amqpClient *amqp.Client) *LiquidationService {
	return &LiquidationService{
		engine:     engine,
		expenses:   expenses,
		reports:    reports,
		amqpClient: amqpClient,
	}
}

// Engine exposes the underlying reconciliation session for read paths.
func (s *LiquidationService) Engine() *reconcile.Engine {
	return s.engine
}

// DeleteReceipt removes a receipt from the ledger, runs the allocation
// cascade locally, and publishes the deletion for any other consumer. The
// local cascade runs before this returns, so balance queries are consistent
// immediately; the publish is best-effort.
func (s *LiquidationService) DeleteReceipt(ctx context.Context, receiptID string) error {
	if err := s.expenses.DeleteReceipt(ctx, receiptID); err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}

	s.engine.OnReceiptDeleted(ctx, receiptID)

	if err := s.publishReceiptDeleted(ctx, receiptID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish receipt deleted message",
			"receipt_id", receiptID, "error", err)
		// Don't fail the request - the local cascade already ran
	}

	return nil
}

// HandleReceiptDeleted is the worker-side cascade hook for deletions that
// happened in another process.
func (s *LiquidationService) HandleReceiptDeleted(ctx context.Context, receiptID string) error {
	s.engine.OnReceiptDeleted(ctx, receiptID)
	return nil
}

// GenerateReport freezes a liquidation report, persists it, and requests an
// export. The engine's in-memory history is authoritative; persistence and
// export failures are logged but do not undo the generation.
func (s *LiquidationService) GenerateReport(ctx context.Context, budgetID string) (*core.LiquidationReport, error) {
	report, err := s.engine.GenerateReport(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	if s.reports != nil {
		if err := s.reports.AppendReport(ctx, *report); err != nil {
			slog.ErrorContext(ctx, "Failed to persist liquidation report",
				"report_id", report.ID, "budget_id", budgetID, "error", err)
		}
	}

	if err := s.publishReportExport(ctx, report.ID, budgetID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish report export message",
			"report_id", report.ID, "budget_id", budgetID, "error", err)
		// Don't fail the request - the report exists in history
	}

	return report, nil
}

func (s *LiquidationService) publishReceiptDeleted(ctx context.Context, receiptID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping receipt deleted message")
		return nil
	}
	return s.amqpClient.PublishReceiptDeleted(ctx, receiptID)
}

func (s *LiquidationService) publishReportExport(ctx context.Context, reportID, budgetID string) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping report export message")
		return nil
	}
	return s.amqpClient.PublishReportExport(ctx, reportID, budgetID)
}

// Close closes the AMQP connection if one is attached.
func (s *LiquidationService) Close() error {
	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			return fmt.Errorf("close liquidation service: %w", err)
		}
	}
	return nil
}
