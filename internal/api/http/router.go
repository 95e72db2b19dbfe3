package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-lifecycle/internal/api/http/handlers"
	"github.com/spec-kit/account-lifecycle/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Operator       *handlers.OperatorHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)

	me := app.Group("/accounts/me", cfg.AuthMiddleware.Handle)
	me.Get("/status", cfg.Accounts.Status)
	me.Get("/watch", cfg.Accounts.Watch)
	me.Post("/activate", cfg.Accounts.Activate)

	operator := app.Group("/accounts/:id", cfg.AuthMiddleware.Handle, auth.RequireOperator())
	operator.Post("/review", cfg.Operator.Review)
	operator.Post("/hold", cfg.Operator.Hold)
	operator.Post("/suspend", cfg.Operator.Suspend)
	operator.Post("/suspend/lift", cfg.Operator.LiftSuspension)
}
