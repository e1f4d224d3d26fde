package amqp

import (
	"encoding/json"
	"time"
)

// ReceiptDeletedMessage notifies the reconciliation engine that the recording
// subsystem deleted a receipt. The payload is just the id; the cascade does
// not need the receipt content.
type ReceiptDeletedMessage struct {
	ReceiptID string    `json:"receipt_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReceiptDeletedMessage(receiptID string) *ReceiptDeletedMessage {
	return &ReceiptDeletedMessage{
		ReceiptID: receiptID,
		Timestamp: time.Now(),
	}
}

func (m *ReceiptDeletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReceiptDeletedMessageFromJSON(data []byte) (*ReceiptDeletedMessage, error) {
	var msg ReceiptDeletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ReportExportMessage asks the worker to export a generated liquidation
// report. The worker fetches the full report from the store by id.
type ReportExportMessage struct {
	ReportID  string    `json:"report_id"`
	BudgetID  string    `json:"budget_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewReportExportMessage(reportID, budgetID string) *ReportExportMessage {
	return &ReportExportMessage{
		ReportID:  reportID,
		BudgetID:  budgetID,
		Timestamp: time.Now(),
	}
}

func (m *ReportExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportExportMessageFromJSON(data []byte) (*ReportExportMessage, error) {
	var msg ReportExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
