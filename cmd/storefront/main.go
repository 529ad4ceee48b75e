package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/internal/shop"
	"github.com/pickware/shopware-platform-sub008/pkg/cachekey"
	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/httpcache"
	"github.com/pickware/shopware-platform-sub008/pkg/logging"
	"github.com/pickware/shopware-platform-sub008/pkg/variants"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(logging.FromConfig(cfg.Log))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Variant tracking is optional; the shop serves without Redis.
	var tracker *variants.Tracker
	trackerDone := make(chan struct{})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unavailable, variant tracking disabled")
		close(trackerDone)
	} else {
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
		tracker = variants.NewTracker(redisClient, cfg.Redis, logging.NewLogger("variants"))
		go func() {
			defer close(trackerDone)
			if err := tracker.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("Variant tracker failed")
			}
		}()
	}
	cancel()

	handler, err := newHandler(cfg, redisClient, tracker, logging.NewLogger("storefront"))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build storefront")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Bool("http_cache", cfg.HTTPCache.Enabled).
		Str("rule_id_strategy", cfg.HTTPCache.RuleIDStrategy).
		Bool("legacy_states", cfg.HTTPCache.LegacyStates).
		Msg("Starting storefront server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Server failed")
	}

	<-trackerDone
	logger.Info().Msg("Storefront server stopped")
}

// newHandler wires the caching policy into the demo shop. tracker may be nil.
func newHandler(cfg *config.Config, redisClient *redis.Client, tracker *variants.Tracker, logger zerolog.Logger) (http.Handler, error) {
	carts := shop.NewCartStore()

	opts := httpcache.Options{
		Carts:       carts,
		Maintenance: httpcache.NewConfigMaintenanceResolver(cfg.Maintenance),
		Logger:      logging.NewLogger("http-cache"),
	}
	var estimator shop.VariantEstimator
	if tracker != nil {
		opts.Observer = tracker
		estimator = tracker
	}

	policy, err := httpcache.NewPolicy(cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("create policy: %w", err)
	}

	router := shop.NewRouter(shop.Deps{
		Policy:   policy,
		Carts:    carts,
		Visitors: shop.NewResolver(cfg.Names, carts, shop.DefaultRules()),
		Keys:     cachekey.NewFromConfig(cfg, nil),
		Variants: estimator,
		Proxies:  httpcache.NewTrustedProxies(cfg.HTTPCache.TrustedProxies),
		Logger:   logger,
	})

	mux := http.NewServeMux()
	mux.Handle("/ready", readyHandler(redisClient))
	mux.Handle("/", router)
	return mux, nil
}

// readyHandler reports whether Redis answers.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "OK")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
