package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/pratik-mahalle/paygate/docs"
	"github.com/pratik-mahalle/paygate/internal/api/handlers"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/api/router"
	"github.com/pratik-mahalle/paygate/internal/auth"
	"github.com/pratik-mahalle/paygate/internal/config"
	"github.com/pratik-mahalle/paygate/internal/domain/billing"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/validator"
	"github.com/pratik-mahalle/paygate/internal/providers"
	"github.com/pratik-mahalle/paygate/internal/repository/postgres"
	"github.com/pratik-mahalle/paygate/internal/services"
	"github.com/pratik-mahalle/paygate/internal/worker"
	"github.com/pratik-mahalle/paygate/migrations"
)

var version = "dev"

// @title Paygate API
// @version 1.0
// @description Token sessions and Stripe-backed entitlements.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger.SetGlobal(log)

	if err := run(cfg, log); err != nil {
		log.FatalWithErr(err, "Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	fsys, err := migrations.GetFS(cfg.Database.Driver)
	if err != nil {
		return err
	}
	applied, err := postgres.RunMigrations(ctx, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"driver":  cfg.Database.Driver,
		"applied": applied,
	}).Info("Database ready")

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	credentialStore := postgres.NewCredentialRepository(db)
	ledger := postgres.NewEntitlementRepository(db)

	// Billing provider is optional in development
	var provider billing.Provider
	if cfg.Billing.StripeSecretKey != "" {
		provider = providers.NewStripeProvider(cfg.Billing.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, billing endpoints are disabled")
	}
	webhooks := providers.NewStripeWebhooks(cfg.Billing.WebhookSecret, cfg.Billing.WebhookTolerance)

	// Services
	issuer := auth.NewIssuer(cfg.Auth)
	userService := services.NewUserService(userRepo, provider, cfg.Auth.BCryptCost, log)
	tokenService := services.NewTokenService(issuer, credentialStore, log)
	guard := services.NewEntitlementService(ledger, log)
	paymentService := services.NewPaymentService(userService, provider, ledger, cfg.Billing.Currency, log)
	reconciler := services.NewReconcilerService(webhooks, userRepo, ledger, log)

	// Background workers
	sweeper, err := worker.NewCredentialSweeper(tokenService, cfg.Worker.CredentialSweepSchedule, log)
	if err != nil {
		return err
	}
	go func() {
		if err := sweeper.Start(ctx); err != nil {
			log.ErrorWithErr(err, "Credential sweeper failed")
		}
	}()

	var authLimiter *middleware.RateLimiter
	if cfg.Server.AuthRateLimit > 0 {
		authLimiter = middleware.NewRateLimiter(cfg.Server.AuthRateLimit, cfg.Server.AuthRateBurst)
		go authLimiter.Run(ctx)
	}

	// HTTP
	val := validator.New()
	h := &router.Handlers{
		Health:  handlers.NewHealthHandler(db, version, log),
		Auth:    handlers.NewAuthHandler(userService, tokenService, issuer, cfg, log, val),
		User:    handlers.NewUserHandler(userService, guard, log),
		Payment: handlers.NewPaymentHandler(paymentService, guard, log, val),
		Webhook: handlers.NewWebhookHandler(reconciler, log),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.New(cfg, log, h, router.Deps{Issuer: issuer, Guard: guard, AuthLimiter: authLimiter}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
			"version":     version,
		}).Info("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
