package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"liquidate/internal/core"
	"liquidate/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteRepository backs the ledger, the budget catalog and the report
// history with a single SQLite database. It implements every port in the
// ledger package.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ ledger.ExpenseReader   = (*SQLiteRepository)(nil)
	_ ledger.ExpenseRecorder = (*SQLiteRepository)(nil)
	_ ledger.BudgetReader    = (*SQLiteRepository)(nil)
	_ ledger.BudgetRecorder  = (*SQLiteRepository)(nil)
	_ ledger.ReportStore     = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AppendReceipt stores a receipt, assigning an id when the caller did not.
func (r *SQLiteRepository) AppendReceipt(ctx context.Context, receipt core.Receipt) (string, error) {
	if receipt.ID == "" {
		receipt.ID = uuid.NewString()
	}
	if receipt.CreatedAt.IsZero() {
		receipt.CreatedAt = time.Now()
	}
	if err := receipt.Validate(); err != nil {
		return "", err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO receipts (id, category, amount, tx_date, remarks, image_ref, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.Category, receipt.Amount.String(), receipt.Date,
		receipt.Remarks, receipt.ImageRef, receipt.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert receipt: %w", err)
	}

	slog.InfoContext(ctx, "Receipt saved to SQLite",
		"id", receipt.ID,
		"category", receipt.Category,
		"amount", receipt.Amount.String())

	return receipt.ID, nil
}

func (r *SQLiteRepository) DeleteReceipt(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrReceiptNotFound
	}

	slog.InfoContext(ctx, "Receipt deleted from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) GetReceipt(ctx context.Context, id string) (core.Receipt, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, category, amount, tx_date, remarks, image_ref, created_at
		 FROM receipts WHERE id = ?`, id)
	receipt, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Receipt{}, ledger.ErrReceiptNotFound
	}
	if err != nil {
		return core.Receipt{}, fmt.Errorf("get receipt: %w", err)
	}
	return receipt, nil
}

// ListByCategory returns matching receipts in recording order.
func (r *SQLiteRepository) ListByCategory(ctx context.Context, category string) ([]core.Receipt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, category, amount, tx_date, remarks, image_ref, created_at
		 FROM receipts WHERE category = ? ORDER BY created_at, id`, category)
	if err != nil {
		return nil, fmt.Errorf("list receipts by category: %w", err)
	}
	defer rows.Close()

	var out []core.Receipt
	for rows.Next() {
		receipt, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, receipt)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReceipt(row rowScanner) (core.Receipt, error) {
	var (
		receipt core.Receipt
		amount  string
	)
	err := row.Scan(&receipt.ID, &receipt.Category, &amount, &receipt.Date,
		&receipt.Remarks, &receipt.ImageRef, &receipt.CreatedAt)
	if err != nil {
		return core.Receipt{}, err
	}
	receipt.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return core.Receipt{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return receipt, nil
}

// AppendBudget stores a budget and its line items in one transaction.
func (r *SQLiteRepository) AppendBudget(ctx context.Context, b core.Budget) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = core.StatusPending
	}
	if b.Total.IsZero() {
		total := decimal.Zero
		for _, li := range b.Items {
			total = total.Add(li.BudgetedAmount())
		}
		b.Total = total
	}
	if err := b.Validate(); err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO budgets (id, name, total, status) VALUES (?, ?, ?, ?)`,
		b.ID, b.Name, b.Total.String(), string(b.Status))
	if err != nil {
		return "", fmt.Errorf("insert budget: %w", err)
	}

	for i, li := range b.Items {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO budget_line_items (budget_id, item_index, category, quantity, unit_amount, remarks)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			b.ID, i, li.Category, li.Quantity, li.UnitAmount.String(), li.Remarks)
		if err != nil {
			return "", fmt.Errorf("insert line item %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit budget: %w", err)
	}

	slog.InfoContext(ctx, "Budget saved to SQLite",
		"id", b.ID,
		"name", b.Name,
		"line_items", len(b.Items))

	return b.ID, nil
}

func (r *SQLiteRepository) SetBudgetStatus(ctx context.Context, id string, status core.BudgetStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update budget status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrBudgetNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, id string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, total, status FROM budgets WHERE id = ?`, id)

	var (
		b     core.Budget
		total string
	)
	err := row.Scan(&b.ID, &b.Name, &total, (*string)(&b.Status))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrBudgetNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	b.Total, err = decimal.NewFromString(total)
	if err != nil {
		return core.Budget{}, fmt.Errorf("parse total %q: %w", total, err)
	}

	b.Items, err = r.lineItems(ctx, id)
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM budgets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan budget id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	budgets := make([]core.Budget, 0, len(ids))
	for _, id := range ids {
		b, err := r.GetBudget(ctx, id)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

func (r *SQLiteRepository) lineItems(ctx context.Context, budgetID string) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT category, quantity, unit_amount, remarks
		 FROM budget_line_items WHERE budget_id = ? ORDER BY item_index`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list line items: %w", err)
	}
	defer rows.Close()

	var items []core.LineItem
	for rows.Next() {
		var (
			li   core.LineItem
			unit string
		)
		if err := rows.Scan(&li.Category, &li.Quantity, &unit, &li.Remarks); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.UnitAmount, err = decimal.NewFromString(unit)
		if err != nil {
			return nil, fmt.Errorf("parse unit amount %q: %w", unit, err)
		}
		items = append(items, li)
	}
	return items, rows.Err()
}

// AppendReport persists a liquidation report. Reports are append-only; there
// is no update or delete path.
func (r *SQLiteRepository) AppendReport(ctx context.Context, report core.LiquidationReport) error {
	lines, err := json.Marshal(report.Lines)
	if err != nil {
		return fmt.Errorf("marshal report lines: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO liquidation_reports (id, budget_id, budget_name, status, aggregate_remaining, lines, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.BudgetID, report.BudgetName, string(report.Status),
		report.AggregateRemaining.String(), string(lines), report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	slog.InfoContext(ctx, "Liquidation report saved to SQLite",
		"id", report.ID,
		"budget_id", report.BudgetID)
	return nil
}

func (r *SQLiteRepository) ListReports(ctx context.Context) ([]core.LiquidationReport, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, budget_name, status, aggregate_remaining, lines, generated_at
		 FROM liquidation_reports ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []core.LiquidationReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetReport(ctx context.Context, id string) (core.LiquidationReport, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, budget_id, budget_name, status, aggregate_remaining, lines, generated_at
		 FROM liquidation_reports WHERE id = ?`, id)
	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LiquidationReport{}, ledger.ErrReportNotFound
	}
	if err != nil {
		return core.LiquidationReport{}, fmt.Errorf("get report: %w", err)
	}
	return report, nil
}

func scanReport(row rowScanner) (core.LiquidationReport, error) {
	var (
		report    core.LiquidationReport
		aggregate string
		lines     string
	)
	err := row.Scan(&report.ID, &report.BudgetID, &report.BudgetName,
		(*string)(&report.Status), &aggregate, &lines, &report.GeneratedAt)
	if err != nil {
		return core.LiquidationReport{}, err
	}
	report.AggregateRemaining, err = decimal.NewFromString(aggregate)
	if err != nil {
		return core.LiquidationReport{}, fmt.Errorf("parse aggregate %q: %w", aggregate, err)
	}
	if err := json.Unmarshal([]byte(lines), &report.Lines); err != nil {
		return core.LiquidationReport{}, fmt.Errorf("unmarshal report lines: %w", err)
	}
	return report, nil
}
