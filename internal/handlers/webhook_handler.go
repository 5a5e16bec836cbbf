package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/validation"
)

type DepositCrediter interface {
	CreditDeposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, providerTxID string) (*services.DepositResult, error)
}

// WebhookHandler receives payment-provider callbacks. Signature checking is
// done by middleware.WebhookSignature.
type WebhookHandler struct {
	Deposits  DepositCrediter
	Validator BodyValidator
	Logger    *slog.Logger
}

type depositRequest struct {
	UserID       uuid.UUID       `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
	ProviderTxID string          `json:"provider_tx_id"`
}

// Deposit handles POST /v1/webhooks/deposits. Redelivery of the same
// provider_tx_id answers 200 with replayed=true.
func (h *WebhookHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeBody(w, r, h.Validator, validation.Deposit, &req) {
		return
	}
	res, err := h.Deposits.CreditDeposit(r.Context(), req.UserID, req.Amount, req.ProviderTxID)
	if err != nil {
		if status, _ := errorStatus(err); status >= http.StatusInternalServerError {
			h.Logger.Error("credit deposit", "provider_tx_id", req.ProviderTxID, "error", err)
		}
		writeError(w, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}
