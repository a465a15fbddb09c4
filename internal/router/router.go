// Package router registers every HTTP route and the middleware each group
// runs behind.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/config"
	"github.com/iliyamo/evanto-api/internal/handler"
	"github.com/iliyamo/evanto-api/internal/middleware"
	"github.com/iliyamo/evanto-api/internal/model"
)

// Deps is what the routes need.  Redis may be nil; caching and rate
// limiting are then skipped.
type Deps struct {
	JWTSecret        string
	Redis            *redis.Client
	Cache            config.CacheConfig
	RateLimit        config.RateLimitConfig
	BookingRateLimit config.RateLimitConfig

	Auth      *handler.AuthHandler
	Items     *handler.ItemHandler
	Bookings  *handler.BookingHandler
	Favorites *handler.FavoriteHandler
	Payments  *handler.PaymentHandler
	Profiles  *handler.ProfileHandler
	Geo       *handler.GeoHandler
}

// RegisterRoutes wires the public, auth and protected groups.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerPublic(e, d)
	registerAuth(e, d)
	registerProtected(e, d)
}

func registerPublic(e *echo.Echo, d Deps) {
	cached := func(resource string) echo.MiddlewareFunc {
		return middleware.NewRedisCache(d.Cache, d.Redis, resource)
	}
	v1 := e.Group("/v1")

	v1.GET("/feed", d.Items.Feed, cached(cache.UnifiedItems))
	v1.GET("/feed/search", d.Items.Search, cached(cache.UnifiedItems))
	v1.GET("/events", d.Items.List(model.KindEvent), cached(cache.Events))
	v1.GET("/meetups", d.Items.List(model.KindMeetup), cached(cache.Meetups))
	v1.GET("/items/:kind/:id", d.Items.Get, cached(cache.UnifiedItem))
	v1.GET("/items/:kind/:id/availability", d.Items.Availability, cached(cache.SeatAvailability))
	v1.GET("/items/:kind/:id/calendar.ics", d.Items.Calendar)
	v1.GET("/categories", handler.Categories)
	v1.GET("/geo/reverse", d.Geo.Reverse)
}

func registerAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(d.RateLimit, d.Redis, "auth"))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)
}

func registerProtected(e *echo.Echo, d Deps) {
	g := e.Group("/v1", middleware.JWTAuth(d.JWTSecret))
	// The key strategies include the user, so the limiter runs after JWTAuth.
	writes := middleware.NewTokenBucket(d.RateLimit, d.Redis, "write")
	booking := middleware.NewTokenBucket(d.BookingRateLimit, d.Redis, "booking")

	g.GET("/me", d.Profiles.Me)
	g.PATCH("/me", d.Profiles.Update, writes)
	g.GET("/me/stats", d.Profiles.Stats)

	g.POST("/items/:kind", d.Items.Create, writes)
	g.PATCH("/items/:kind/:id", d.Items.Update, writes)
	g.POST("/items/:kind/:id/cancel", d.Items.Cancel, writes)

	g.POST("/bookings", d.Bookings.Create, booking)
	g.GET("/bookings", d.Bookings.List)
	g.PATCH("/bookings/:id/status", d.Bookings.UpdateStatus, writes)

	g.GET("/favorites", d.Favorites.List)
	g.POST("/favorites/toggle", d.Favorites.Toggle, writes)
	g.PUT("/favorites/:item_id", d.Favorites.Add, writes)
	g.DELETE("/favorites/:item_id", d.Favorites.Remove, writes)

	g.GET("/payment-methods", d.Payments.List)
	g.POST("/payment-methods", d.Payments.Create, writes)
	g.PATCH("/payment-methods/:id", d.Payments.Update, writes)
	g.DELETE("/payment-methods/:id", d.Payments.Delete, writes)
	g.POST("/payment-methods/:id/default", d.Payments.SetDefault, writes)
}
