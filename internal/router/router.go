// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/rvetrov/flight-fare-search/internal/config"
	"github.com/rvetrov/flight-fare-search/internal/handler"
	"github.com/rvetrov/flight-fare-search/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterSearch wires the flight search endpoint. Search needs no
// login; the identity middleware gives every caller a stable requester
// id for deduplication and rate limiting.
func RegisterSearch(e *echo.Echo, s *handler.SearchHandler, jwtSecret string,
	rlCfg config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1/flights")
	g.Use(middleware.RequesterIdentity(jwtSecret))
	g.Use(middleware.NewTokenBucket(rlCfg, rdb))
	g.POST("/search", s.Search)
}

// RegisterTickets exposes persisted scrape results to authenticated
// users.
func RegisterTickets(e *echo.Echo, t *handler.TicketHandler, jwtSecret string) {
	g := e.Group("/v1/tickets")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("", t.List)
}

// RegisterAuth registers authentication routes. Unauthenticated
// operations live under /v1/auth; protected endpoints under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout works with either a bearer token or a refresh token in the
	// body, so it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("ADMIN", "USER"))
	auth.GET("/me", a.Me)
}

// RegisterUsers registers the admin-only account management routes.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, jwtSecret string) {
	g := e.Group("/v1/users")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))
	g.GET("", u.List)
	g.GET("/:id", u.Get)
	g.PATCH("/:id", u.Update)
	g.DELETE("/:id", u.Delete)
}
