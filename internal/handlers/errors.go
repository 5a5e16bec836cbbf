package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/validation"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var errorStatuses = []struct {
	err    error
	status int
	code   string
}{
	{services.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{validation.ErrValidation, http.StatusBadRequest, "invalid_input"},
	{services.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
	{services.ErrMatchNotFound, http.StatusNotFound, "match_not_found"},
	{services.ErrMatchFull, http.StatusConflict, "match_full"},
	{services.ErrAlreadyJoined, http.StatusConflict, "already_joined"},
	{services.ErrDuplicateResultDeclaration, http.StatusConflict, "duplicate_result_declaration"},
	{services.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{services.ErrDuplicateDeposit, http.StatusConflict, "duplicate_deposit"},
	{services.ErrNotParticipant, http.StatusForbidden, "not_participant"},
	{services.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{services.ErrLedgerInvariant, http.StatusInternalServerError, "ledger_invariant"},
}

// errorStatus maps a service error to an HTTP status and a machine-readable code.
func errorStatus(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	resp := errorResponse{Error: code}
	if status < http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
