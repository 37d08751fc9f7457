package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/subpool/subpool/internal/auth"
	"github.com/subpool/subpool/internal/clock"
	"github.com/subpool/subpool/internal/config"
	"github.com/subpool/subpool/internal/escalator"
	"github.com/subpool/subpool/internal/handler"
	"github.com/subpool/subpool/internal/lifecycle"
	"github.com/subpool/subpool/internal/metrics"
	"github.com/subpool/subpool/internal/notify"
	"github.com/subpool/subpool/internal/storage/sqlite"
	"github.com/subpool/subpool/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.FromEnv()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", cfg.DBPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	clk := clock.System{}

	dispatcher := notify.NewChannelDispatcher(256)
	notifyWorker := notify.NewWorker(notify.SlogSink{}, dispatcher.Inbox())
	go func() {
		if err := notifyWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("notification worker stopped", "error", err)
		}
	}()

	complaints := lifecycle.NewComplaintLifecycle(store, clk, cfg.Policy, dispatcher, m)
	cancellations := lifecycle.NewCancellationPolicyEvaluator(store, complaints, clk, cfg.Policy, dispatcher, m)

	scan := escalator.New(store, complaints, clk, cfg.ScanInterval, m)
	go func() {
		slog.Info("deadline escalator started", "interval", cfg.ScanInterval)
		if err := scan.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("deadline escalator stopped", "error", err)
		}
	}()

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)
	h := handler.New(authenticator, jwtManager, complaints, cancellations, store)

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: h.Router(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		if err := server.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "address", cfg.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
