package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monetra/backend/internal/config"
	"github.com/monetra/backend/internal/repository"
	"github.com/monetra/backend/internal/service"
	"github.com/monetra/backend/internal/ws"
	"github.com/monetra/backend/pkg/payment"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (for local development)
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := repository.NewDB(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := repository.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	planRepo := repository.NewPlanRepository(db)
	seeded, err := planRepo.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("seed plans: %w", err)
	}
	logger.Info("database connected & migrated", "plans_seeded", seeded)

	var gateway payment.Gateway
	if cfg.Payment.Mock() {
		logger.Warn("RAZORPAY_KEY_ID not set, using mock payment gateway")
		gateway = payment.NewMockGateway()
	} else {
		gateway = payment.NewRazorpayClient(cfg.Payment.BaseURL, cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.GatewayTimeout)
	}

	userRepo := repository.NewUserRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)

	authSvc := service.NewAuthService(cfg.JWTSecret, cfg.JWTTTL, userRepo, logger)
	expenseSvc := service.NewExpenseService(repository.NewExpenseRepository(db), repository.NewBalanceRepository(db))
	hub := ws.NewHub(authSvc, logger)
	paymentSvc := service.NewPaymentService(
		service.Stores{
			Plans:       planRepo,
			Orders:      repository.NewOrderRepository(db),
			Memberships: membershipRepo,
		},
		service.NewTxRunner(db),
		gateway,
		hub,
		service.PaymentOptions{
			KeySecret:      cfg.Payment.KeySecret,
			WebhookSecret:  cfg.Payment.WebhookSecret,
			Currency:       cfg.Payment.Currency,
			GatewayTimeout: cfg.Payment.GatewayTimeout,
		},
		logger,
	)

	sweeper := service.NewSweeperService(membershipRepo, logger)
	if err := sweeper.Start(ctx, cfg.SweepSchedule); err != nil {
		return err
	}

	router := newRouter(ctx, routerDeps{
		auth:         authSvc,
		expenses:     expenseSvc,
		payments:     paymentSvc,
		hub:          hub,
		db:           db,
		corsOrigins:  cfg.CORSOrigins,
		secureCookie: cfg.IsProduction(),
		logger:       logger,
	})

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "env", cfg.Env, "gateway", gateway.Name())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
