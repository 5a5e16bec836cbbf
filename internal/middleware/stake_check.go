package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

const ctxStakeKey contextKey = "parsed_stake"

// parsedStake is stored in context so the handler can read the fee
// without re-parsing the body.
type parsedStake struct {
	EntryFee  decimal.Decimal `json:"entry_fee"`
	Teammates []string        `json:"teammates"`
}

// StakeFromCtx returns the entry fee parsed by StakeCheck, or zero if not set.
func StakeFromCtx(ctx context.Context) decimal.Decimal {
	if s, ok := ctx.Value(ctxStakeKey).(*parsedStake); ok {
		return s.EntryFee
	}
	return decimal.Zero
}

// StakeCheck rejects match creation whose entry_fee falls outside [minStake, maxStake].
// Reads the body to extract "entry_fee", then replaces r.Body so downstream
// handlers can re-read it.
func StakeCheck(minStake, maxStake decimal.Decimal) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if PrincipalFromCtx(r.Context()) == nil {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			// Restore body for the handler.
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var peek parsedStake
			if err := json.Unmarshal(bodyBytes, &peek); err != nil {
				http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
				return
			}
			if !peek.EntryFee.IsPositive() {
				http.Error(w, `{"error":"entry_fee must be > 0"}`, http.StatusBadRequest)
				return
			}
			if peek.EntryFee.LessThan(minStake) {
				http.Error(w, fmt.Sprintf(`{"error":"entry_fee %s is below the minimum stake %s"}`, peek.EntryFee, minStake), http.StatusUnprocessableEntity)
				return
			}
			if peek.EntryFee.GreaterThan(maxStake) {
				http.Error(w, fmt.Sprintf(`{"error":"entry_fee %s exceeds the maximum stake %s"}`, peek.EntryFee, maxStake), http.StatusUnprocessableEntity)
				return
			}

			ctx := context.WithValue(r.Context(), ctxStakeKey, &peek)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
