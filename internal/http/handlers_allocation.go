package http

import (
	"fmt"
	"net/http"

	"liquidate/internal/core"
	"liquidate/internal/reconcile"
)

type candidateResponse struct {
	receiptResponse
	UsedElsewhere bool `json:"used_elsewhere"`
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndexFromPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item index"})
		return
	}

	candidates, err := s.service.Engine().ListCandidateReceipts(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]candidateResponse, 0, len(candidates))
	for _, c := range candidates {
		resp = append(resp, candidateResponse{
			receiptResponse: toReceiptResponse(c.Receipt),
			UsedElsewhere:   c.UsedElsewhere,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type commitAllocationRequest struct {
	ReceiptIDs []string `json:"receipt_ids"`
}

type allocationResponse struct {
	BudgetID   string         `json:"budget_id"`
	ItemIndex  int            `json:"item_index"`
	ReceiptIDs []string       `json:"receipt_ids"`
	Figures    figuresPayload `json:"figures"`
}

type figuresPayload struct {
	Budgeted  string `json:"budgeted"`
	Actual    string `json:"actual"`
	Remaining string `json:"remaining"`
}

func toFiguresPayload(f reconcile.Figures) figuresPayload {
	return figuresPayload{
		Budgeted:  core.FormatAmount(f.Budgeted),
		Actual:    core.FormatAmount(f.Actual),
		Remaining: core.FormatAmount(f.Remaining),
	}
}

func (s *Server) handleCommitAllocation(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndexFromPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item index"})
		return
	}

	var req commitAllocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	engine := s.service.Engine()
	budgetID := r.PathValue("id")
	if err := engine.CommitAllocation(r.Context(), budgetID, index, req.ReceiptIDs); err != nil {
		writeError(w, err)
		return
	}

	figures, err := engine.LineItemFigures(r.Context(), budgetID, index)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, allocationResponse{
		BudgetID:   budgetID,
		ItemIndex:  index,
		ReceiptIDs: engine.Allocated(budgetID, index),
		Figures:    toFiguresPayload(figures),
	})
}

func (s *Server) handleLineItemFigures(w http.ResponseWriter, r *http.Request) {
	index, err := itemIndexFromPath(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid item index"})
		return
	}

	figures, err := s.service.Engine().LineItemFigures(r.Context(), r.PathValue("id"), index)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFiguresPayload(figures))
}

func (s *Server) handleAggregateRemaining(w http.ResponseWriter, r *http.Request) {
	remaining, err := s.service.Engine().AggregateRemaining(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"aggregate_remaining": core.FormatAmount(remaining),
	})
}
