package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/monetra/backend/internal/handler"
	appMiddleware "github.com/monetra/backend/internal/middleware"
	"github.com/monetra/backend/internal/service"
	"github.com/monetra/backend/internal/ws"
)

type routerDeps struct {
	auth         *service.AuthService
	expenses     *service.ExpenseService
	payments     *service.PaymentService
	hub          *ws.Hub
	db           handler.Pinger
	corsOrigins  []string
	secureCookie bool
	logger       *slog.Logger
}

func newRouter(ctx context.Context, d routerDeps) http.Handler {
	authHandler := handler.NewAuthHandler(d.auth, d.secureCookie)
	expenseHandler := handler.NewExpenseHandler(d.expenses)
	healthHandler := handler.NewHealthHandler(d.db)
	plansHandler := handler.NewPlansHandler(d.payments)
	paymentHandler := handler.NewPaymentHandler(d.payments)
	webhookHandler := handler.NewWebhookHandler(d.payments)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(appMiddleware.Recovery(d.logger))
	r.Use(appMiddleware.Logger(d.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	r.Use(appMiddleware.NewRateLimiter(ctx, 20, 40).Middleware())

	// Public routes
	r.Get("/", healthHandler.Root)
	r.Get("/health", healthHandler.Check)

	r.Route("/user", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.StrictRateLimiter(ctx))
			r.Post("/signup", authHandler.Signup)
			r.Post("/signin", authHandler.Signin)
		})
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(d.auth))

			r.Get("/me", authHandler.Me)

			r.Post("/add-expense", expenseHandler.Add)
			r.Get("/my-expenses", expenseHandler.List)
			r.Put("/expenses/{id}", expenseHandler.Update)
			r.Delete("/delete-expense/{id}", expenseHandler.Delete)

			r.Get("/balance", expenseHandler.GetBalance)
			r.Put("/balance", expenseHandler.SetBalance)

			r.Group(func(r chi.Router) {
				r.Use(appMiddleware.Premium(d.payments))
				r.Get("/expenses/summary", expenseHandler.Summary)
			})
		})
	})

	r.Route("/premium", func(r chi.Router) {
		r.Get("/memberships", plansHandler.List)
		r.Post("/webhook", webhookHandler.Payment) // gateway callback, signed

		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.Auth(d.auth))
			r.Post("/create-order", paymentHandler.CreateOrder)
			r.Post("/verify-order", paymentHandler.VerifyOrder)
			r.Get("/membership", paymentHandler.Membership)
			r.Get("/orders", paymentHandler.Orders)
		})
	})

	// Live notifications (auth via query param)
	r.Get("/ws/notifications", d.hub.Handle)

	return r
}
