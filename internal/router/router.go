// Package router registers the HTTP routes of the API.
package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/handler"
	"github.com/iliyamo/parking-reservation/internal/middleware"
	"github.com/iliyamo/parking-reservation/internal/model"
)

// Deps carries the shared settings every route group needs.  Redis may
// be nil, which disables caching and rate limiting.
type Deps struct {
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
}

// RegisterRoutes registers the probes and the metrics endpoint.  None
// of them require authentication.
func RegisterRoutes(e *echo.Echo, checks map[string]handler.Check, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(checks))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterAuth registers the session endpoints.  Register, login,
// refresh and logout live under /v1/auth and carry no JWT middleware;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, d Deps) {
	g := e.Group("/v1/auth", middleware.NewWriteLimiter(d.RateLimit, d.Redis))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	auth.GET("/me", a.Me)
}

// RegisterPublic registers the lot browsing endpoints.  Responses are
// cached briefly; writes elsewhere purge the cache.
func RegisterPublic(e *echo.Echo, h *handler.ParkingHandler, d Deps) {
	g := e.Group("/v1", middleware.NewRedisCache(d.Cache, d.Redis))
	g.GET("/lots", h.ListLots)
	g.GET("/lots/:id", h.GetLot)
	g.GET("/lots/:id/spots", h.ListSpots)
}

// RegisterUser registers booking and reservation endpoints for any
// signed-in account.
func RegisterUser(e *echo.Echo, h *handler.ParkingHandler, d Deps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	writes := []echo.MiddlewareFunc{
		middleware.NewWriteLimiter(d.RateLimit, d.Redis),
		middleware.PurgeCache(d.Cache, d.Redis),
	}
	g.POST("/lots/:id/book", h.Book, writes...)
	g.POST("/reservations/:id/release", h.Release, writes...)
	g.GET("/reservations/:id", h.GetReservation)
	g.GET("/my-reservations", h.MyReservations)
}

// RegisterAdmin registers lot management and reporting endpoints.
func RegisterAdmin(e *echo.Echo, h *handler.ParkingHandler, d Deps) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.PurgeCache(d.Cache, d.Redis),
	)
	g.POST("/lots", h.CreateLot)
	g.PUT("/lots/:id", h.UpdateLot)
	g.PATCH("/lots/:id", h.UpdateLot)
	g.DELETE("/lots/:id", h.DeleteLot)
	g.GET("/spots/:id", h.GetSpot)
	g.GET("/reservations", h.AdminReservations)
}
