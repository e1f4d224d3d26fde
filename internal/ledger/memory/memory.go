package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

// Store is an in-memory ledger and budget catalog. It is the default dev
// backend and the backend used by tests.
type Store struct {
	mu       sync.Mutex
	receipts []core.Receipt
	budgets  []core.Budget
	reports  []core.LiquidationReport
}

var (
	_ ledger.ExpenseReader   = (*Store)(nil)
	_ ledger.ExpenseRecorder = (*Store)(nil)
	_ ledger.BudgetReader    = (*Store)(nil)
	_ ledger.BudgetRecorder  = (*Store)(nil)
	_ ledger.ReportStore     = (*Store)(nil)
)

func New() *Store {
	return &Store{}
}

// AppendReceipt stores the receipt, assigning an id when the caller did not.
func (s *Store) AppendReceipt(_ context.Context, r core.Receipt) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	if err := r.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return r.ID, nil
}

func (s *Store) DeleteReceipt(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.receipts {
		if r.ID == id {
			s.receipts = append(s.receipts[:i], s.receipts[i+1:]...)
			return nil
		}
	}
	return ledger.ErrReceiptNotFound
}

func (s *Store) GetReceipt(_ context.Context, id string) (core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.receipts {
		if r.ID == id {
			return r, nil
		}
	}
	return core.Receipt{}, ledger.ErrReceiptNotFound
}

// ListByCategory returns matching receipts in recording order.
func (s *Store) ListByCategory(_ context.Context, category string) ([]core.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Receipt
	for _, r := range s.receipts {
		if r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

// AppendBudget stores the budget, assigning an id and the submission total
// when the caller did not.
func (s *Store) AppendBudget(_ context.Context, b core.Budget) (string, error) {
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
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = append(s.budgets, b)
	return b.ID, nil
}

func (s *Store) SetBudgetStatus(_ context.Context, id string, status core.BudgetStatus) error {
	if err := status.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.budgets {
		if s.budgets[i].ID == id {
			s.budgets[i].Status = status
			return nil
		}
	}
	return core.ErrBudgetNotFound
}

func (s *Store) GetBudget(_ context.Context, id string) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID == id {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrBudgetNotFound
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) AppendReport(_ context.Context, r core.LiquidationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return nil
}

func (s *Store) ListReports(_ context.Context) ([]core.LiquidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LiquidationReport(nil), s.reports...), nil
}

func (s *Store) GetReport(_ context.Context, id string) (core.LiquidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return core.LiquidationReport{}, ledger.ErrReportNotFound
}
