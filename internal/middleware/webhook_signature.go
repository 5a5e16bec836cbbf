package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
)

// SignatureHeader carries hex(HMAC-SHA256(secret, body)), optionally prefixed "sha256=".
const SignatureHeader = "X-Signature"

const maxWebhookBody = 1 << 20

// WebhookSignature authenticates payment-provider callbacks.
func WebhookSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sig := strings.TrimPrefix(r.Header.Get(SignatureHeader), "sha256=")
			if sig == "" || secret == "" {
				http.Error(w, `{"error":"missing signature"}`, http.StatusUnauthorized)
				return
			}

			bodyBytes, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			r.Body.Close()
			if err != nil {
				http.Error(w, `{"error":"failed to read body"}`, http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			got, err := hex.DecodeString(sig)
			if err != nil || !hmac.Equal(got, Sign(secret, bodyBytes)) {
				http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}
