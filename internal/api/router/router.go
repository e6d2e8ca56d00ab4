package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pratik-mahalle/paygate/internal/api/handlers"
	"github.com/pratik-mahalle/paygate/internal/api/middleware"
	"github.com/pratik-mahalle/paygate/internal/auth"
	"github.com/pratik-mahalle/paygate/internal/config"
	"github.com/pratik-mahalle/paygate/internal/domain/entitlement"
	"github.com/pratik-mahalle/paygate/internal/pkg/logger"
	"github.com/pratik-mahalle/paygate/internal/pkg/metrics"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	User    *handlers.UserHandler
	Payment *handlers.PaymentHandler
	Webhook *handlers.WebhookHandler
}

// Deps are the shared components the route middleware needs
type Deps struct {
	Issuer      *auth.Issuer
	Guard       entitlement.Guard
	AuthLimiter *middleware.RateLimiter
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers, deps Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))

	requireAuth := middleware.AuthMiddleware(deps.Issuer)
	requireEntitlement := middleware.RequireEntitlement(deps.Guard)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
		r.Handle("/metrics", metrics.Handler())

		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)

		// Signature-authenticated; must stay outside the JSON auth chain
		r.Post("/api/v1/webhook", h.Webhook.Stripe)
		r.Post("/webhook", h.Webhook.Stripe)
	})

	authRoutes := func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if deps.AuthLimiter != nil {
				r.Use(deps.AuthLimiter.Middleware)
			}
			r.Post("/signup", h.Auth.Signup)
			r.Post("/login", h.Auth.Login)
			r.Post("/refresh", h.Auth.Refresh)
			r.Post("/google", h.Auth.Google)
		})
		r.With(middleware.OptionalAuthMiddleware(deps.Issuer)).Post("/logout", h.Auth.Logout)
		r.With(requireAuth).Get("/me", h.Auth.Me)
	}

	r.Route("/api/v1/auth", authRoutes)
	// Aliases for frontend compatibility
	r.Route("/auth", authRoutes)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)

		r.Route("/api/v1/user", func(r chi.Router) {
			r.Get("/profile", h.User.Profile)
			r.Get("/subscription", h.User.Subscription)
		})

		r.Route("/api/v1/payment", func(r chi.Router) {
			r.Post("/create-payment-intent", h.Payment.CreatePaymentIntent)
			r.Post("/verify-payment", h.Payment.VerifyPayment)
			r.Post("/subscribe", h.Payment.Subscribe)
			r.Post("/update-remaining", h.Payment.UpdateRemaining)
			r.Post("/cancel", h.Payment.Cancel)
			r.Post("/sync-customer", h.Payment.SyncCustomer)
		})

		r.With(requireEntitlement).Get("/api/v1/premium", handlers.Premium)
	})

	return r
}
