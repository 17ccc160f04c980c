package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/hospital-admin/internal/api/router"
	"github.com/wolfman30/hospital-admin/internal/booking"
	appconfig "github.com/wolfman30/hospital-admin/internal/config"
	"github.com/wolfman30/hospital-admin/internal/hospitalapi"
	httpmiddleware "github.com/wolfman30/hospital-admin/internal/http/middleware"
	"github.com/wolfman30/hospital-admin/internal/observability/metrics"
	"github.com/wolfman30/hospital-admin/pkg/logging"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	loc, _ := cfg.BookingLocation()

	logger.Info("starting hospital-admin API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"hospital_api", cfg.HospitalAPIBaseURL,
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	registry, metricsHandler, bookingMetrics := setupMetrics()

	redisClient := connectRedis(ctx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	client := hospitalapi.NewClient(cfg.HospitalAPIBaseURL, logger,
		hospitalapi.WithTimeout(cfg.HospitalAPITimeout),
		hospitalapi.WithToken(cfg.HospitalAPIToken),
	)
	sessions := booking.NewRegistry(booking.Deps{
		Backend:   hospitalapi.NewAdapter(client),
		Navigator: booking.LogNavigator{Logger: logger},
		Guard:     setupSubmitGuard(redisClient, cfg.BookingSubmitGuardTTL),
		Location:  loc,
		Logger:    logger,
		Metrics:   bookingMetrics,
	}, cfg.BookingSessionTTL)
	go sessions.Run(ctx, time.Minute)

	var limiter *httpmiddleware.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		go limiter.Run(ctx, 5*time.Minute)
	}

	checks := map[string]router.Check{}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(sessions, registry, logger).AllowOrigins(cfg.CORSAllowedOrigins...),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		StaffAuthSecret:    cfg.StaffJWTSecret,
		RateLimiter:        limiter,
		TrustProxy:         cfg.TrustProxy,
		Checks:             checks,
	})
	if cfg.StaffJWTSecret == "" {
		logger.Warn("STAFF_JWT_SECRET not set; booking endpoints are unauthenticated")
	}

	// Create HTTP server. No WriteTimeout: the events endpoint holds its
	// connection open and manages its own deadlines.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped", "open_sessions", sessions.Len())
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry with the process collectors and the
// booking families.
func setupMetrics() (*prometheus.Registry, http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(reg)
	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), bookingMetrics
}

// connectRedis returns nil when Redis is not configured or unreachable; the
// submit guard then falls back to process memory.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis unavailable; submit guard is process-local", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", "addr", cfg.RedisAddr)
	return client
}

func setupSubmitGuard(client *redis.Client, ttl time.Duration) booking.SubmitGuard {
	if guard := booking.NewRedisGuard(client, ttl); guard != nil {
		return guard
	}
	return booking.NewMemoryGuard()
}
