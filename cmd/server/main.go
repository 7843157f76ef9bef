package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"kerbside/internal/api"
	"kerbside/internal/availability"
	"kerbside/internal/booking"
	"kerbside/internal/config"
	"kerbside/internal/database"
	"kerbside/internal/events"
	"kerbside/internal/export"
	"kerbside/internal/geo"
	"kerbside/internal/metrics"
	"kerbside/internal/search"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("KERBSIDE_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	loc, err := cfg.BookingLocation()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Booking.Timezone).Msg("invalid booking timezone")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	geocoder := geo.NewClient(cfg.Geocoder.BaseURL, cfg.GeocoderTimeout(),
		cfg.Geocoder.RatePerSecond, cfg.Geocoder.Burst)

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		geocoder.UseRedisCache(rdb, cfg.GeocoderCacheTTL())
	}

	bus := events.NewEventBus()
	bus.Subscribe(booking.EventStatusChanged, func(event events.Event) error {
		// Notification collaborator boundary: delivery happens beyond
		// this process.
		logger.Debug().Str("type", event.Type).RawJSON("payload", event.Payload).Msg("domain event")
		return nil
	})

	resolver := availability.NewResolver(loc)
	bookings := booking.NewService(db, bus, resolver,
		cfg.BookingMinAdvance(), cfg.BookingMaxAdvanceMonths(), &logger)
	ranker := search.NewRanker(db, geocoder, resolver, cfg.SearchMaxResults(), &logger)
	reporter := export.NewReporter(db, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go startCompletionSweep(ctx, bookings, &logger)

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	server := api.NewHTTPServer(bookings, ranker, reporter, cfg.HTTP.APIKey,
		cfg.SearchDefaultRadiusKm(), &logger)
	logger.Info().Msg("kerbside server started")
	if err := server.Start(ctx, cfg.HTTP.Port); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

// startCompletionSweep periodically completes confirmed reservations whose
// window has elapsed.
func startCompletionSweep(ctx context.Context, bookings *booking.Service, logger *zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			completed, err := bookings.CompleteElapsed(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("completion sweep error")
				continue
			}
			if completed > 0 {
				logger.Info().Int("completed", completed).Msg("completion sweep")
			}
		case <-ctx.Done():
			return
		}
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			ctxPing, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
