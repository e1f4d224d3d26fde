package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	// ReportReceipt is a receipt as captured inside a liquidation report.
	ReportReceipt struct {
		ReceiptID string
		Amount    decimal.Decimal
		Date      time.Time
		Remarks   string
	}

	// ReportLine holds the reconciliation figures for one budget line item at
	// generation time. Remaining is negative when the item is over budget.
	ReportLine struct {
		Category  string
		Remarks   string
		Budgeted  decimal.Decimal
		Actual    decimal.Decimal
		Remaining decimal.Decimal
		Receipts  []ReportReceipt
	}

	// LiquidationReport is an immutable snapshot of a budget's reconciliation
	// state. The budget name is a first-class field; report identity is never
	// reconstructed from rendered text.
	LiquidationReport struct {
		ID                 string
		BudgetID           string
		BudgetName         string
		Status             BudgetStatus
		Lines              []ReportLine
		AggregateRemaining decimal.Decimal
		GeneratedAt        time.Time
	}
)

// TotalActual sums the actual figures across all report lines.
func (r LiquidationReport) TotalActual() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Actual)
	}
	return total
}

// TotalBudgeted sums the budgeted figures across all report lines.
func (r LiquidationReport) TotalBudgeted() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Budgeted)
	}
	return total
}
