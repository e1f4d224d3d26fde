package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"liquidate/internal/ledger/memory"
	"liquidate/internal/reconcile"
	"liquidate/internal/services"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.New()
	engine := reconcile.New(store, store)
	service := services.NewLiquidationService(engine, store, store, nil)
	return NewServer(":0", service, store), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func createFieldworkBudget(t *testing.T, srv *Server) budgetResponse {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/budgets", createBudgetRequest{
		Name: "Fieldwork",
		Items: []lineItemRequest{
			{Category: "Transportation", Quantity: 2, UnitAmount: "500.00"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create budget status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decodeBody[budgetResponse](t, rr)
}

func createReceipt(t *testing.T, srv *Server, category, amount string) receiptResponse {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/receipts", createReceiptRequest{
		Category: category,
		Amount:   amount,
		Date:     "2024-03-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create receipt status=%d body=%s", rr.Code, rr.Body.String())
	}
	return decodeBody[receiptResponse](t, rr)
}

func TestHealthEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := doJSON(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Errorf("%s status=%d", path, rr.Code)
		}
	}
}

func TestBudgetLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	budget := createFieldworkBudget(t, srv)
	if budget.ID == "" {
		t.Fatal("created budget has no id")
	}
	if budget.Status != "pending" {
		t.Errorf("new budget status = %q, want pending", budget.Status)
	}
	if budget.Total != "1000.00" {
		t.Errorf("budget total = %q, want 1000.00", budget.Total)
	}
	if len(budget.Items) != 1 || budget.Items[0].Budgeted != "1000.00" {
		t.Errorf("unexpected items: %+v", budget.Items)
	}

	rr := doJSON(t, srv, http.MethodPut, "/budgets/"+budget.ID+"/status", setStatusRequest{Status: "approved"})
	if rr.Code != http.StatusOK {
		t.Fatalf("set status code=%d body=%s", rr.Code, rr.Body.String())
	}
	updated := decodeBody[budgetResponse](t, rr)
	if updated.Status != "approved" {
		t.Errorf("status = %q, want approved", updated.Status)
	}

	rr = doJSON(t, srv, http.MethodGet, "/budgets", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list budgets code=%d", rr.Code)
	}
	if list := decodeBody[[]budgetResponse](t, rr); len(list) != 1 {
		t.Errorf("listed %d budgets, want 1", len(list))
	}
}

func TestBudgetValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		req  createBudgetRequest
		want int
	}{
		{
			name: "missing name",
			req:  createBudgetRequest{Items: []lineItemRequest{{Category: "Food", Quantity: 1, UnitAmount: "10.00"}}},
			want: http.StatusBadRequest,
		},
		{
			name: "bad amount",
			req:  createBudgetRequest{Name: "X", Items: []lineItemRequest{{Category: "Food", Quantity: 1, UnitAmount: "abc"}}},
			want: http.StatusBadRequest,
		},
		{
			name: "negative quantity",
			req:  createBudgetRequest{Name: "X", Items: []lineItemRequest{{Category: "Food", Quantity: -1, UnitAmount: "10.00"}}},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, srv, http.MethodPost, "/budgets", tt.req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestGetBudgetNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodGet, "/budgets/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestAllocationFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	budget := createFieldworkBudget(t, srv)
	r1 := createReceipt(t, srv, "Transportation", "300.00")
	r2 := createReceipt(t, srv, "Transportation", "250.00")
	createReceipt(t, srv, "Food", "42.00")

	base := fmt.Sprintf("/budgets/%s/items/0", budget.ID)

	rr := doJSON(t, srv, http.MethodGet, base+"/candidates", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("candidates code=%d body=%s", rr.Code, rr.Body.String())
	}
	candidates := decodeBody[[]candidateResponse](t, rr)
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2 (category filter)", len(candidates))
	}

	rr = doJSON(t, srv, http.MethodPut, base+"/allocation", commitAllocationRequest{ReceiptIDs: []string{r1.ID, r2.ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("commit code=%d body=%s", rr.Code, rr.Body.String())
	}
	alloc := decodeBody[allocationResponse](t, rr)
	if alloc.Figures.Actual != "550.00" || alloc.Figures.Remaining != "450.00" {
		t.Errorf("figures = %+v, want actual 550.00 remaining 450.00", alloc.Figures)
	}

	rr = doJSON(t, srv, http.MethodGet, base+"/figures", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("figures code=%d", rr.Code)
	}
	figures := decodeBody[figuresPayload](t, rr)
	if figures.Budgeted != "1000.00" {
		t.Errorf("budgeted = %q, want 1000.00", figures.Budgeted)
	}

	rr = doJSON(t, srv, http.MethodGet, "/figures/remaining", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("aggregate code=%d", rr.Code)
	}
	agg := decodeBody[map[string]string](t, rr)
	if agg["aggregate_remaining"] != "450.00" {
		t.Errorf("aggregate_remaining = %q, want 450.00", agg["aggregate_remaining"])
	}
}

func TestCommitAllocationRejectsWrongCategory(t *testing.T) {
	srv, _ := newTestServer(t)

	budget := createFieldworkBudget(t, srv)
	food := createReceipt(t, srv, "Food", "42.00")

	path := fmt.Sprintf("/budgets/%s/items/0/allocation", budget.ID)
	rr := doJSON(t, srv, http.MethodPut, path, commitAllocationRequest{ReceiptIDs: []string{food.ID}})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422 (body %s)", rr.Code, rr.Body.String())
	}
}

func TestCommitAllocationBadIndex(t *testing.T) {
	srv, _ := newTestServer(t)
	budget := createFieldworkBudget(t, srv)

	path := fmt.Sprintf("/budgets/%s/items/notanumber/allocation", budget.ID)
	rr := doJSON(t, srv, http.MethodPut, path, commitAllocationRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}

	path = fmt.Sprintf("/budgets/%s/items/9/allocation", budget.ID)
	rr = doJSON(t, srv, http.MethodPut, path, commitAllocationRequest{})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("out of range index status = %d, want 422", rr.Code)
	}
}

func TestDeleteReceiptCascades(t *testing.T) {
	srv, _ := newTestServer(t)

	budget := createFieldworkBudget(t, srv)
	r1 := createReceipt(t, srv, "Transportation", "300.00")

	base := fmt.Sprintf("/budgets/%s/items/0", budget.ID)
	rr := doJSON(t, srv, http.MethodPut, base+"/allocation", commitAllocationRequest{ReceiptIDs: []string{r1.ID}})
	if rr.Code != http.StatusOK {
		t.Fatalf("commit code=%d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/receipts/"+r1.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete code=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodGet, base+"/figures", nil)
	figures := decodeBody[figuresPayload](t, rr)
	if figures.Actual != "0.00" || figures.Remaining != "1000.00" {
		t.Errorf("figures after delete = %+v, want actual 0.00 remaining 1000.00", figures)
	}
}

func TestDeleteUnknownReceipt(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := doJSON(t, srv, http.MethodDelete, "/receipts/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestReportGenerationAndHistory(t *testing.T) {
	srv, _ := newTestServer(t)

	budget := createFieldworkBudget(t, srv)
	r1 := createReceipt(t, srv, "Transportation", "300.00")

	base := fmt.Sprintf("/budgets/%s/items/0", budget.ID)
	if rr := doJSON(t, srv, http.MethodPut, base+"/allocation", commitAllocationRequest{ReceiptIDs: []string{r1.ID}}); rr.Code != http.StatusOK {
		t.Fatalf("commit code=%d", rr.Code)
	}

	rr := doJSON(t, srv, http.MethodPost, "/budgets/"+budget.ID+"/reports", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("generate report code=%d body=%s", rr.Code, rr.Body.String())
	}
	report := decodeBody[reportPayload](t, rr)
	if report.BudgetName != "Fieldwork" {
		t.Errorf("budget name = %q, want Fieldwork", report.BudgetName)
	}
	if len(report.Lines) != 1 || report.Lines[0].Actual != "300.00" {
		t.Errorf("unexpected report lines: %+v", report.Lines)
	}

	rr = doJSON(t, srv, http.MethodGet, "/reports", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("history code=%d", rr.Code)
	}
	history := decodeBody[[]reportPayload](t, rr)
	if len(history) != 1 || history[0].ID != report.ID {
		t.Errorf("history = %+v, want single report %s", history, report.ID)
	}

	rr = doJSON(t, srv, http.MethodPost, "/budgets/missing/reports", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("report for unknown budget status = %d, want 404", rr.Code)
	}
}
