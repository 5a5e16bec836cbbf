package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/models"
)

type contextKey string

const ctxPrincipalKey contextKey = "principal"

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

func (p *Principal) IsAdmin() bool { return p != nil && p.Role == models.RoleAdmin }

// TokenValidator is implemented by auth.Service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// JWTAuth validates the Bearer token and stores the caller in the request context.
func JWTAuth(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				http.Error(w, `{"error":"missing or malformed Authorization header"}`, http.StatusUnauthorized)
				return
			}
			userID, role, err := v.ValidateToken(r.Context(), raw)
			if err != nil {
				http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
				return
			}
			ctx := WithPrincipal(r.Context(), &Principal{UserID: userID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromCtx(r.Context())
		if p == nil {
			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		if !p.IsAdmin() {
			http.Error(w, `{"error":"admin role required"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PrincipalFromCtx returns the authenticated caller or nil.
func PrincipalFromCtx(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxPrincipalKey).(*Principal)
	return p
}

// WithPrincipal returns a context carrying the given caller.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipalKey, p)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
