package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"go-chi-calculator/internal/calculator"
	"go-chi-calculator/internal/config"
	"go-chi-calculator/internal/observability"
	"go-chi-calculator/internal/server"
	"go-chi-calculator/internal/session"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Logger
	if err := observability.InitLogger(cfg.LogLevel); err != nil {
		panic(err)
	}
	defer observability.SyncLogger()

	if cfg.ExportLogs {
		logShutdown, err := observability.InitLogging(ctx)
		if err != nil {
			panic(err)
		}
		defer logShutdown(context.Background())
	}

	// Tracing
	traceShutdown, err := observability.InitTracing(ctx)
	if err != nil {
		panic(err)
	}
	defer traceShutdown(context.Background())

	// Metrics
	metricShutdown, err := initMetrics(ctx)
	if err != nil {
		panic(err)
	}
	defer metricShutdown(context.Background())

	// Sessions
	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		observability.Logger.Fatal("opening session store", zap.Error(err))
	}
	defer sessions.Close()
	go sessions.Run(ctx, cfg.SweepInterval)

	// Router
	router := server.NewRouter(calculator.NewHandler(sessions))

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		observability.Logger.Info("server started",
			zap.String("addr", cfg.Addr),
			zap.String("session_store", cfg.SessionStore),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			observability.Logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	waitForShutdown(srv)
}

func openSessions(ctx context.Context, cfg config.Config) (*session.Manager, error) {
	var store session.Store = session.NewMemoryStore()
	if cfg.SessionStore == config.StoreSQLite {
		sqlite, err := session.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store = sqlite
	}

	return session.NewManager(ctx, store, cfg.SessionTTL, observability.Logger)
}

func waitForShutdown(srv *http.Server) {

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	observability.Logger.Info("server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("server shutdown failed", zap.Error(err))
	}
}
