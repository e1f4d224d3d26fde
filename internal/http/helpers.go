package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"liquidate/internal/core"
	"liquidate/internal/ledger"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps domain sentinels onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrBudgetNotFound),
		errors.Is(err, ledger.ErrReceiptNotFound),
		errors.Is(err, ledger.ErrReportNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidAllocation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrNegativeAmount),
		errors.Is(err, core.ErrNegativeQuantity),
		errors.Is(err, core.ErrEmptyCategory),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEmptyID),
		errors.Is(err, core.ErrInvalidStatus):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// itemIndexFromPath parses the {index} path segment.
func itemIndexFromPath(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("index"))
}
