package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"liquidate/internal/core"
)

type lineItemRequest struct {
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	UnitAmount string `json:"unit_amount"`
	Remarks    string `json:"remarks,omitempty"`
}

type createBudgetRequest struct {
	Name  string            `json:"name"`
	Items []lineItemRequest `json:"items"`
}

type lineItemResponse struct {
	Index      int    `json:"index"`
	Category   string `json:"category"`
	Quantity   int    `json:"quantity"`
	UnitAmount string `json:"unit_amount"`
	Budgeted   string `json:"budgeted_amount"`
	Remarks    string `json:"remarks,omitempty"`
}

type budgetResponse struct {
	ID     string             `json:"id"`
	Name   string             `json:"name"`
	Status string             `json:"status"`
	Total  string             `json:"total"`
	Items  []lineItemResponse `json:"items"`
}

func toBudgetResponse(b core.Budget) budgetResponse {
	resp := budgetResponse{
		ID:     b.ID,
		Name:   b.Name,
		Status: string(b.Status),
		Total:  core.FormatAmount(b.Total),
		Items:  make([]lineItemResponse, 0, len(b.Items)),
	}
	for i, item := range b.Items {
		resp.Items = append(resp.Items, lineItemResponse{
			Index:      i,
			Category:   item.Category,
			Quantity:   item.Quantity,
			UnitAmount: core.FormatAmount(item.UnitAmount),
			Budgeted:   core.FormatAmount(item.BudgetedAmount()),
			Remarks:    item.Remarks,
		})
	}
	return resp
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req createBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeError(w, core.ErrEmptyName)
		return
	}

	budget := core.Budget{Name: req.Name, Items: make([]core.LineItem, 0, len(req.Items))}
	for _, item := range req.Items {
		unit, err := core.ParseAmount(item.UnitAmount)
		if err != nil {
			writeError(w, err)
			return
		}
		li := core.LineItem{
			Category:   item.Category,
			Quantity:   item.Quantity,
			UnitAmount: unit,
			Remarks:    item.Remarks,
		}
		if err := li.Validate(); err != nil {
			writeError(w, err)
			return
		}
		budget.Items = append(budget.Items, li)
	}

	id, err := s.store.AppendBudget(r.Context(), budget)
	if err != nil {
		writeError(w, err)
		return
	}

	stored, err := s.store.GetBudget(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(stored))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.ListBudgets(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		resp = append(resp, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.cachedBudget(r, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleSetBudgetStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	status := core.BudgetStatus(req.Status)
	if err := status.Validate(); err != nil {
		writeError(w, err)
		return
	}

	if err := s.store.SetBudgetStatus(r.Context(), r.PathValue("id"), status); err != nil {
		writeError(w, err)
		return
	}
	s.invalidateBudget(r.PathValue("id"))

	budget, err := s.store.GetBudget(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(budget))
}

type createReceiptRequest struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Remarks  string `json:"remarks,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
}

type receiptResponse struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Date     string `json:"date"`
	Remarks  string `json:"remarks,omitempty"`
	ImageRef string `json:"image_ref,omitempty"`
}

func toReceiptResponse(rc core.Receipt) receiptResponse {
	return receiptResponse{
		ID:       rc.ID,
		Category: rc.Category,
		Amount:   core.FormatAmount(rc.Amount),
		Date:     rc.Date.Format("2006-01-02"),
		Remarks:  rc.Remarks,
		ImageRef: rc.ImageRef,
	}
}

func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req createReceiptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid date: %v", err)})
		return
	}

	if strings.TrimSpace(req.Category) == "" {
		writeError(w, core.ErrEmptyCategory)
		return
	}

	receipt := core.Receipt{
		Category: req.Category,
		Amount:   amount,
		Date:     date,
		Remarks:  req.Remarks,
		ImageRef: req.ImageRef,
	}

	id, err := s.store.AppendReceipt(r.Context(), receipt)
	if err != nil {
		writeError(w, err)
		return
	}

	stored, err := s.store.GetReceipt(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReceiptResponse(stored))
}

func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
