// Package google exports liquidation reports to a Google Sheets spreadsheet,
// one row per report line item.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"liquidate/internal/core"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// NewFromEnv creates an Exporter using environment variables.
// Required: GOOGLE_SPREADSHEET_ID.
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_REPORT_SHEET_NAME (default "Liquidations").
func NewFromEnv(ctx context.Context) (*Exporter, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_REPORT_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Liquidations"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account
// credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ExportReport appends the report to the spreadsheet, one row per line item.
// Reports with no line items still produce a single summary row so every
// generation leaves a trace in the sheet.
func (e *Exporter) ExportReport(ctx context.Context, report core.LiquidationReport) error {
	if e.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := reportRows(report)
	rng := fmt.Sprintf("%s!A:J", e.sheetName)
	vr := &gsheet.ValueRange{Values: rows}

	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append report rows to sheet %s: %w", e.sheetName, err)
	}

	slog.InfoContext(ctx, "Liquidation report exported to Google Sheets",
		"report_id", report.ID,
		"budget_name", report.BudgetName,
		"rows", len(rows))
	return nil
}

// reportRows flattens a report for the sheet. Columns:
// generated_at, report id, budget name, status, category, budgeted, actual,
// remaining, receipts, aggregate remaining.
func reportRows(report core.LiquidationReport) [][]any {
	generatedAt := report.GeneratedAt.Format("2006-01-02 15:04:05")
	if len(report.Lines) == 0 {
		return [][]any{{
			generatedAt, report.ID, report.BudgetName, string(report.Status),
			"", "", "", "", 0, core.FormatAmount(report.AggregateRemaining),
		}}
	}

	rows := make([][]any, 0, len(report.Lines))
	for _, line := range report.Lines {
		rows = append(rows, []any{
			generatedAt,
			report.ID,
			report.BudgetName,
			string(report.Status),
			line.Category,
			core.FormatAmount(line.Budgeted),
			core.FormatAmount(line.Actual),
			core.FormatAmount(line.Remaining),
			len(line.Receipts),
			core.FormatAmount(report.AggregateRemaining),
		})
	}
	return rows
}
