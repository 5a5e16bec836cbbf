package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/auth"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/config"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/dashboard"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/events"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/execution"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/history"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/ledger"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/lobby"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/migrations"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/repository"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/router"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/services"
	"github.com/OLETOKEN-pixel/fn-arena-sub001/internal/validation"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.RequireSecrets(); err != nil {
		slog.Error("Missing secrets", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := migrations.Run(cfg.DatabaseURL); err != nil {
			slog.Error("Schema migration failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Schema migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL. Ensure Postgres is running, e.g. docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)
	txRepo := repository.NewTransactionRepo(pool)
	matchRepo := repository.NewMatchRepo(pool)
	participantRepo := repository.NewParticipantRepo(pool)
	resultRepo := repository.NewResultRepo(pool)
	eventRepo := repository.NewEventRepo(pool)

	// Ledger & match engine
	l := ledger.New(walletRepo, txRepo, cfg.FeeRate, logger)
	machine := services.NewMachine(pool, matchRepo, participantRepo, resultRepo, eventRepo, l, logger)
	machine.MaxTeamSize = cfg.MaxTeamSize
	machine.MatchExpiry = cfg.MatchExpiry

	readyCheck := services.NewReadyCheckCoordinator(machine)
	consensus := services.NewResultConsensusResolver(machine)
	disputes := services.NewDisputeResolver(machine, userRepo)
	reclaimer := services.NewStaleMatchReclaimer(machine, walletRepo, participantRepo)
	reclaimer.ReadyCheckCutoff = cfg.ReadyCheckCutoff
	deposits := services.NewWalletService(pool, l, logger)

	validator, err := validation.New()
	if err != nil {
		slog.Error("Schema validator init failed", "error", err)
		os.Exit(1)
	}

	// Stale match sweep runs as a periodic River job
	workers := river.NewWorkers()
	river.AddWorker(workers, execution.NewReclaimStaleWorker(reclaimer, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 4},
		},
		Workers:      workers,
		PeriodicJobs: []*river.PeriodicJob{execution.PeriodicReclaim(cfg.ReclaimInterval, cfg.StaleCutoff)},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Outbox relay to Redis pub/sub (optional)
	var relay *events.Relay
	if cfg.RedisURL != "" {
		rdb, err := events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("Cannot reach Redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		relay = events.NewRelay(eventRepo, events.RedisPublisher{Client: rdb}, logger)
		if err := relay.Start(cfg.EventRelayInterval); err != nil {
			slog.Error("Failed to start event relay", "error", err)
			os.Exit(1)
		}
		slog.Info("Event relay started", "channel", relay.Channel)
	} else {
		slog.Warn("REDIS_URL not set, match events stay in the outbox")
	}

	// Auth, dashboard, lobby & history
	authRepo := auth.NewRepository(pool, walletRepo)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	authHandler := auth.NewHandler(authSvc, logger)

	dashHandler := dashboard.NewHandler(authSvc, userRepo, walletRepo, txRepo, logger)
	lobbyHandler := lobby.NewHandler(lobby.NewService(lobby.NewRepository(pool)), logger)
	historyHandler := history.NewHandler(history.NewService(history.NewRepository(pool)), authSvc, logger)

	apiV1Router := router.New(authHandler, lobbyHandler, historyHandler, dashHandler)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiV1Router)
	RegisterV1Routes(mux, routeDeps{
		Machine:   machine,
		Ready:     readyCheck,
		Results:   consensus,
		Disputes:  disputes,
		Reclaimer: reclaimer,
		Deposits:  deposits,
		Validator: validator,
		Tokens:    authSvc,
		Config:    cfg,
		Logger:    logger,
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(mux)

	// Start River client (processes jobs)
	if err := riverClient.Start(ctx); err != nil {
		slog.Error("River client failed to start", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("Starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}
	if relay != nil {
		if err := relay.Stop(); err != nil {
			slog.Error("Event relay shutdown failed", "error", err)
		}
	}
	if err := riverClient.Stop(shutdownCtx); err != nil {
		slog.Error("River shutdown failed", "error", err)
	}
}
