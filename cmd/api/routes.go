package main

import (
	"log/slog"
	"net/http"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/config"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/handlers"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/middleware"
)

type routeDeps struct {
	Machine   handlers.MatchService
	Ready     handlers.ReadyChecker
	Results   handlers.ResultDeclarer
	Disputes  handlers.DisputeSettler
	Reclaimer handlers.Reclaimer
	Deposits  handlers.DepositCrediter
	Validator handlers.BodyValidator
	Tokens    middleware.TokenValidator
	Config    *config.Config
	Logger    *slog.Logger
}

// RegisterV1Routes adds the /v1/ match, admin and webhook endpoints to the given mux.
// Middleware chain: JWTAuth -> (StakeCheck on POST /v1/matches, RequireAdmin on /v1/admin/) -> handler.
// The deposit webhook is authenticated by WebhookSignature alone.
func RegisterV1Routes(mux *http.ServeMux, d routeDeps) {
	mh := &handlers.MatchHandler{
		Matches:   d.Machine,
		Ready:     d.Ready,
		Results:   d.Results,
		Validator: d.Validator,
		Logger:    d.Logger,
	}
	ah := &handlers.AdminHandler{
		Disputes:    d.Disputes,
		Reclaimer:   d.Reclaimer,
		StaleCutoff: d.Config.StaleCutoff,
		Validator:   d.Validator,
		Logger:      d.Logger,
	}
	wh := &handlers.WebhookHandler{
		Deposits:  d.Deposits,
		Validator: d.Validator,
		Logger:    d.Logger,
	}

	auth := middleware.JWTAuth(d.Tokens)
	stake := middleware.StakeCheck(d.Config.MinStake, d.Config.MaxStake)
	admin := func(h http.HandlerFunc) http.Handler {
		return auth(middleware.RequireAdmin(h))
	}

	// POST /v1/matches: Auth -> Stake -> CreateMatch
	mux.Handle("POST /v1/matches", auth(stake(http.HandlerFunc(mh.CreateMatch))))

	mux.Handle("GET /v1/matches/{id}", auth(http.HandlerFunc(mh.GetMatch)))
	mux.Handle("POST /v1/matches/{id}/join", auth(http.HandlerFunc(mh.JoinMatch)))
	mux.Handle("POST /v1/matches/{id}/ready", auth(http.HandlerFunc(mh.SetReady)))
	mux.Handle("POST /v1/matches/{id}/result", auth(http.HandlerFunc(mh.DeclareResult)))
	mux.Handle("POST /v1/matches/{id}/cancel", auth(http.HandlerFunc(mh.CancelMatch)))
	mux.Handle("GET /v1/matches/{id}/events", auth(http.HandlerFunc(mh.ListEvents)))

	mux.Handle("POST /v1/admin/matches/{id}/resolve", admin(ah.ResolveDispute))
	mux.Handle("POST /v1/admin/reclaim", admin(ah.Reclaim))

	// POST /v1/webhooks/deposits: Signature -> Deposit
	mux.Handle("POST /v1/webhooks/deposits", middleware.WebhookSignature(d.Config.WebhookSecret)(http.HandlerFunc(wh.Deposit)))
}
