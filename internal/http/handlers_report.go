package http

import (
	"net/http"
	"time"

	"liquidate/internal/core"
)

type reportReceiptPayload struct {
	ReceiptID string `json:"receipt_id"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
	Remarks   string `json:"remarks,omitempty"`
}

type reportLinePayload struct {
	Category  string                 `json:"category"`
	Remarks   string                 `json:"remarks,omitempty"`
	Budgeted  string                 `json:"budgeted"`
	Actual    string                 `json:"actual"`
	Remaining string                 `json:"remaining"`
	Receipts  []reportReceiptPayload `json:"receipts"`
}

type reportPayload struct {
	ID                 string              `json:"id"`
	BudgetID           string              `json:"budget_id"`
	BudgetName         string              `json:"budget_name"`
	Status             string              `json:"status"`
	Lines              []reportLinePayload `json:"lines"`
	AggregateRemaining string              `json:"aggregate_remaining"`
	GeneratedAt        string              `json:"generated_at"`
}

func toReportPayload(report core.LiquidationReport) reportPayload {
	payload := reportPayload{
		ID:                 report.ID,
		BudgetID:           report.BudgetID,
		BudgetName:         report.BudgetName,
		Status:             string(report.Status),
		Lines:              make([]reportLinePayload, 0, len(report.Lines)),
		AggregateRemaining: core.FormatAmount(report.AggregateRemaining),
		GeneratedAt:        report.GeneratedAt.Format(time.RFC3339),
	}
	for _, line := range report.Lines {
		lp := reportLinePayload{
			Category:  line.Category,
			Remarks:   line.Remarks,
			Budgeted:  core.FormatAmount(line.Budgeted),
			Actual:    core.FormatAmount(line.Actual),
			Remaining: core.FormatAmount(line.Remaining),
			Receipts:  make([]reportReceiptPayload, 0, len(line.Receipts)),
		}
		for _, rc := range line.Receipts {
			lp.Receipts = append(lp.Receipts, reportReceiptPayload{
				ReceiptID: rc.ReceiptID,
				Amount:    core.FormatAmount(rc.Amount),
				Date:      rc.Date.Format("2006-01-02"),
				Remarks:   rc.Remarks,
			})
		}
		payload.Lines = append(payload.Lines, lp)
	}
	return payload
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.GenerateReport(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportPayload(*report))
}

func (s *Server) handleReportHistory(w http.ResponseWriter, r *http.Request) {
	resp := make([]reportPayload, 0)
	for report := range s.service.Engine().ReportHistory() {
		resp = append(resp, toReportPayload(report))
	}
	writeJSON(w, http.StatusOK, resp)
}
