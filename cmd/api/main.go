package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	validator "github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"

	"github.com/vedamart/backend/internal/app"
	"github.com/vedamart/backend/internal/auth"
	"github.com/vedamart/backend/internal/catalog"
	"github.com/vedamart/backend/internal/checkout"
	"github.com/vedamart/backend/internal/common"
	"github.com/vedamart/backend/internal/config"
	"github.com/vedamart/backend/internal/coupon"
	"github.com/vedamart/backend/internal/health"
	"github.com/vedamart/backend/internal/obs"
	"github.com/vedamart/backend/internal/order"
	"github.com/vedamart/backend/internal/pricing"
	"github.com/vedamart/backend/internal/ratelimit"
	"github.com/vedamart/backend/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "vedamart")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "vedamart-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.MigrateOnStart {
		if err := app.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	pool, err := app.NewPool(ctx, cfg.DatabaseURL, "vedamart-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise database")
	}
	defer pool.Close()

	redisClient, err := app.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise redis")
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if tracingEnabled {
		if err := redisotel.InstrumentTracing(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis tracing")
		}
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	validate := validator.New()

	catalogSvc := &catalog.Service{
		Store:  catalog.Store{Pool: pool},
		Cache:  catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		Logger: logger,
	}
	settingsStore := settings.Store{Pool: pool}
	settingsProvider := settings.Provider{Store: settingsStore}
	couponSvc := &coupon.Service{Store: coupon.Store{DB: pool}}

	engine := &pricing.Engine{
		Variants: catalogSvc,
		Coupons:  couponSvc,
		Config:   settingsProvider,
	}

	checkoutHandler := &checkout.Handlers{Engine: engine, Logger: logger}
	settingsHandler := &settings.Handlers{Store: settingsStore, Provider: settingsProvider}
	couponAdmin := &coupon.AdminHandlers{Store: coupon.Store{DB: pool}, Validate: validate}

	orderSvc := &order.Service{
		Pool:     pool,
		Engine:   engine,
		Coupons:  couponSvc,
		Catalog:  catalogSvc,
		Currency: cfg.CurrencyCode,
		Logger:   logger,
	}
	orderHandler := &order.Handlers{Service: orderSvc, Logger: logger}

	authMiddleware := auth.Middleware{Verifier: auth.Verifier{Secret: []byte(cfg.JWTSecret)}}
	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL, Scope: "orders"}
	couponGuard := ratelimit.Guard{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "ratelimit:coupon:"},
		Config: ratelimit.Config{
			Key:    ratelimit.KeyByUserOrIP,
			Window: cfg.CouponRateWindow,
			Max:    cfg.CouponRateMax,
		},
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("coupon rate limiter unavailable")
		},
	}

	limiterStore, err := app.NewLimiterStore(redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise limiter store")
	}
	globalLimit := app.NewGlobalRateLimiter(limiterStore, cfg.APIRatePerMinute)

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, nil, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(globalLimit)

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Group(func(g chi.Router) {
			g.Use(authMiddleware.RequireAuth)

			g.Post("/checkout/preview", checkoutHandler.Preview)
			g.With(couponGuard.Middleware).Post("/coupons/validate", checkoutHandler.ValidateCoupon)

			g.With(idem.Middleware).Post("/orders", orderHandler.Create)
			g.With(idem.Middleware).Post("/orders/{id}/confirm-payment", orderHandler.ConfirmPayment)
			g.Get("/orders", orderHandler.List)
			g.Get("/orders/{id}", orderHandler.Get)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)

			admin.Get("/settings/pricing", settingsHandler.Get)
			admin.Put("/settings/pricing", settingsHandler.Put)

			admin.Post("/coupons", couponAdmin.Create)
			admin.Get("/coupons", couponAdmin.List)
			admin.Get("/coupons/{id}", couponAdmin.Get)
			admin.Put("/coupons/{id}", couponAdmin.Update)
			admin.Delete("/coupons/{id}", couponAdmin.Delete)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
