package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lendflow/internal/admin"
	"lendflow/internal/application"
	apphandler "lendflow/internal/application/handler"
	"lendflow/internal/application/metrics"
	"lendflow/internal/application/service"
	"lendflow/internal/audit"
	"lendflow/internal/collaborators/simulated"
	"lendflow/internal/platform/config"
	"lendflow/internal/platform/httpserver"
	"lendflow/internal/platform/logger"
	platformredis "lendflow/internal/platform/redis"
	"lendflow/internal/session"
	"lendflow/internal/worker"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	appStore, cleanup, err := buildApplicationStore(cfg)
	if err != nil {
		log.Error("failed to open application store", "error", err.Error())
		os.Exit(1)
	}
	defer cleanup()

	sessionStore, err := buildSessionStore(cfg)
	if err != nil {
		log.Error("failed to open session store", "error", err.Error())
		os.Exit(1)
	}

	auditStore := audit.NewInMemoryStore()
	auditPublisher := audit.NewPublisher(auditStore)

	engineMetrics := metrics.New()
	engine := service.New(appStore, sessionStore, service.Collaborators{
		KYC:    simulated.KycVerifier{},
		Income: simulated.IncomeAnalyzer{},
		Risk:   simulated.RiskScorer{},
		Pricer: simulated.OfferPricer{},
		Video:  simulated.VideoKycProvider{},
		Rail:   simulated.DisbursementRail{},
		Ledger: simulated.RepaymentLedger{},
	},
		service.WithLogger(log),
		service.WithMetrics(engineMetrics),
		service.WithAuditPublisher(auditPublisher),
	)

	router := chi.NewRouter()
	apphandler.New(engine, log).Register(router)
	admin.New(engine, auditPublisher, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())

	sweeper := worker.NewOverdueSweeper(engine, log)
	if err := sweeper.Start(cfg.OverdueSweepSpec); err != nil {
		log.Error("failed to start overdue sweeper", "error", err.Error())
		os.Exit(1)
	}
	defer sweeper.Stop()

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting lendflow", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}

// buildApplicationStore selects Postgres when configured, otherwise the
// in-memory registry.
func buildApplicationStore(cfg config.Server) (application.Store, func(), error) {
	if cfg.PostgresURL == "" {
		return application.NewInMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return application.NewPostgresStore(db), func() { db.Close() }, nil
}

// buildSessionStore selects Redis when configured, otherwise in-memory.
func buildSessionStore(cfg config.Server) (session.Store, error) {
	client, err := platformredis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return session.NewInMemoryStore(), nil
	}
	return session.NewRedisStore(client.Client, cfg.SessionTTL), nil
}
