package router

import (
	"net/http"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/auth"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/dashboard"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/history"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/lobby"
)

// New returns an http.Handler that serves API under /api/v1.
func New(authHandler *auth.Handler, lobbyHandler *lobby.Handler, historyHandler *history.Handler, dashHandler *dashboard.Handler) http.Handler {
	mux := http.NewServeMux()
	base := "/api/v1"
	mux.HandleFunc(base+"/auth/register", authHandler.Register)
	mux.HandleFunc(base+"/auth/login", authHandler.Login)
	mux.HandleFunc(base+"/lobby", lobbyHandler.ListOpenMatches)
	mux.HandleFunc(base+"/matches/mine", historyHandler.ListMyMatches)

	mux.HandleFunc(base+"/account/me", methodGET(dashHandler.GetMe))
	mux.HandleFunc(base+"/account/settings", methodPATCH(dashHandler.UpdateSettings))
	mux.HandleFunc(base+"/wallet", methodGET(dashHandler.GetWallet))
	mux.HandleFunc(base+"/transactions", methodGET(dashHandler.ListTransactions))

	return mux
}

func methodGET(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}

func methodPATCH(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
