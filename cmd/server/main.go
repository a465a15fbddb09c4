package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/evanto-api/internal/cache"
	"github.com/iliyamo/evanto-api/internal/config"
	"github.com/iliyamo/evanto-api/internal/database"
	"github.com/iliyamo/evanto-api/internal/geo"
	"github.com/iliyamo/evanto-api/internal/handler"
	"github.com/iliyamo/evanto-api/internal/realtime"
	"github.com/iliyamo/evanto-api/internal/repository"
	"github.com/iliyamo/evanto-api/internal/router"
	"github.com/iliyamo/evanto-api/internal/service"
)

func main() {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(log.INFO)

	cfg, err := config.Load()
	if err != nil {
		e.Logger.Fatal(err)
	}
	if cfg.Env == "dev" {
		e.Logger.SetLevel(log.DEBUG)
	}

	db, err := database.Open(cfg)
	if err != nil {
		e.Logger.Fatalf("mysql: %v", err)
	}
	defer db.Close()

	cacheCfg := config.LoadCacheConfig()
	rdb := config.NewRedisClient()
	if rdb == nil {
		e.Logger.Warn("redis unavailable: caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	inv := cache.NewInvalidator(rdb, cacheCfg.Prefix)

	var pub *realtime.Publisher
	if cfg.RabbitURL != "" {
		pub = realtime.NewPublisher(cfg.RabbitURL, e.Logger)
		defer pub.Close()
	} else {
		e.Logger.Warn("RABBITMQ_URL not set: change feed disabled")
	}

	items := repository.NewItemRepo(db)
	bookings := repository.NewBookingRepo(db)
	profiles := service.NewProfileService(repository.NewUserRepo(db), items, bookings, inv, e.Logger)

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			j := log.JSON{"method": v.Method, "uri": v.URI, "status": v.Status, "latency": v.Latency.String()}
			if v.Error != nil {
				j["error"] = v.Error.Error()
			}
			c.Logger().Infoj(j)
			return nil
		},
	}))
	e.Use(echomw.Recover())

	router.RegisterRoutes(e, router.Deps{
		JWTSecret:        cfg.JWTSecret,
		Redis:            rdb,
		Cache:            cacheCfg,
		RateLimit:        config.LoadRateLimitConfig(),
		BookingRateLimit: config.LoadBookingRateLimitConfig(),

		Auth: handler.NewAuthHandler(cfg, repository.NewAccountRepo(db), repository.NewTokenRepo(db), profiles),
		Items: handler.NewItemHandler(
			service.NewItemService(items, bookings, inv, pub, e.Logger)),
		Bookings: handler.NewBookingHandler(
			service.NewBookingService(db, items, bookings, inv, pub, e.Logger)),
		Favorites: handler.NewFavoriteHandler(
			service.NewFavoriteService(repository.NewFavoriteRepo(db), inv, e.Logger)),
		Payments: handler.NewPaymentHandler(
			service.NewPaymentService(repository.NewPaymentRepo(db), inv, e.Logger)),
		Profiles: handler.NewProfileHandler(profiles),
		Geo:      handler.NewGeoHandler(geo.NewClient(cfg.GeocoderURL, cfg.GeocoderUserAgent)),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RabbitURL != "" {
		consumer := realtime.NewConsumer(cfg.RabbitURL, cfg.ChangeQueue, inv, e.Logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				e.Logger.Errorf("change-consumer: %v", err)
			}
		}()
	}

	go func() {
		addr := ":" + cfg.Port
		e.Logger.Infof("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Error(err)
	}
}
