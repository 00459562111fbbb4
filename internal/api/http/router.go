package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ecoai-civic/ecoai-client/internal/api/http/handlers"
	"github.com/ecoai-civic/ecoai-client/internal/auth"
	"github.com/ecoai-civic/ecoai-client/internal/guard"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Accounts *handlers.AccountHandler
	Views    *handlers.ViewHandler
	Nav      *handlers.NavHandler
	Proxy    *handlers.ProxyHandler
	Session  *auth.SessionMiddleware
	Guard    *guard.Guard
	Policy   guard.Policy
	Routes   []guard.Route
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/internal/metrics", cfg.Health.Metrics)

	browser := app.Group("", cfg.Session.Handle)

	authGroup := browser.Group("/auth")
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Post("/signup", cfg.Accounts.Signup)
	authGroup.Post("/staff-login", cfg.Accounts.StaffLogin)
	authGroup.Post("/logout", cfg.Accounts.Logout)
	authGroup.Post("/refresh", cfg.Accounts.Refresh)

	browser.Get("/nav", cfg.Nav.Current)
	browser.Get("/nav/stream", cfg.Nav.Stream)

	browser.All("/api/*", cfg.Proxy.Forward)

	routes := cfg.Routes
	if routes == nil {
		routes = guard.Routes
	}
	for _, route := range routes {
		browser.Get(route.Path, guard.Protect(cfg.Guard, cfg.Policy, route, auth.GuardSession), cfg.Views.Render(route))
	}
}
