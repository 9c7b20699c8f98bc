// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/sportfield/reservation/internal/config"
	"github.com/sportfield/reservation/internal/handler"
	"github.com/sportfield/reservation/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterRents registers the rent endpoints.  Read endpoints are public
// and sit behind the Redis response cache; mutations require a valid
// access token issued by the auth service.
func RegisterRents(e *echo.Echo, h *handler.RentHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	g := e.Group("/v1/rents")
	g.GET("", h.List, cache)
	g.GET("/fields/:field_id", h.ListByField, cache)
	g.GET("/users/:user_id", h.ListByUser, cache)
	g.GET("/users/:user_id/history", h.ListUserHistory, cache)
	g.GET("/:id", h.Get, cache)

	auth := e.Group("/v1/rents", middleware.JWTAuth(jwtSecret))
	auth.POST("", h.Create)
	auth.PUT("/:id", h.Update)
	auth.DELETE("/:id", h.Delete)
}

// RegisterSchedules registers the schedule endpoints, mirroring the rent
// layout: public cached reads, authenticated mutations.
func RegisterSchedules(e *echo.Echo, h *handler.ScheduleHandler, jwtSecret string, cacheCfg config.CacheConfig, rdb *redis.Client) {
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	g := e.Group("/v1/schedules")
	g.GET("", h.List, cache)
	g.GET("/available", h.ListAvailable, cache)
	g.GET("/:id", h.Get, cache)

	auth := e.Group("/v1/schedules", middleware.JWTAuth(jwtSecret))
	auth.POST("", h.Create)
	auth.PUT("/:id", h.Update)
	auth.DELETE("/:id", h.Delete)
}
