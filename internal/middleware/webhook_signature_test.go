package middleware

import (
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebhookSignature(t *testing.T) {
	const secret = "whsec"
	body := `{"user_id":"u","amount":"10","provider_tx_id":"p-1"}`
	valid := hex.EncodeToString(Sign(secret, []byte(body)))

	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		w.Write(b)
	})

	cases := []struct {
		name string
		sig  string
		want int
	}{
		{"valid", valid, http.StatusOK},
		{"prefixed", "sha256=" + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not hex", "zz", http.StatusUnauthorized},
		{"wrong secret", hex.EncodeToString(Sign("other", []byte(body))), http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			if c.sig != "" {
				req.Header.Set(SignatureHeader, c.sig)
			}
			rec := httptest.NewRecorder()
			WebhookSignature(secret)(echo).ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("expected %d, got %d", c.want, rec.Code)
			}
			if c.want == http.StatusOK && rec.Body.String() != body {
				t.Errorf("body not restored: %q", rec.Body.String())
			}
		})
	}
}

func TestWebhookSignature_NoSecretConfigured(t *testing.T) {
	body := `{}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(SignatureHeader, hex.EncodeToString(Sign("", []byte(body))))
	rec := httptest.NewRecorder()
	WebhookSignature("")(okHandler).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
