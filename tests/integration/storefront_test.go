//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/pickware/shopware-platform-sub008/internal/shop"
	"github.com/pickware/shopware-platform-sub008/pkg/cachekey"
	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/httpcache"
	"github.com/pickware/shopware-platform-sub008/pkg/variants"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

// newStorefront wires the demo shop with the tracker as hash observer.
func newStorefront(t *testing.T, tracker *variants.Tracker) http.Handler {
	t.Helper()

	cfg := config.DefaultConfig()
	carts := shop.NewCartStore()

	policy, err := httpcache.NewPolicy(&cfg, httpcache.Options{
		Carts:    carts,
		Observer: tracker,
		Logger:   zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewPolicy() error = %v", err)
	}

	return shop.NewRouter(shop.Deps{
		Policy:   policy,
		Carts:    carts,
		Visitors: shop.NewResolver(cfg.Names, carts, shop.DefaultRules()),
		Keys:     cachekey.NewFromConfig(&cfg, nil),
		Variants: tracker,
		Logger:   zerolog.Nop(),
	})
}

func get(h http.Handler, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "http://shop.test"+target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestTracker_FlushAndEstimate(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	tracker := variants.NewTracker(redisClient, config.Redis{}, zerolog.Nop())

	for _, hash := range []string{"a", "b", "c", "a", "b"} {
		tracker.Observe("shop.test", hash)
	}
	tracker.Observe("other.test", "a")

	if err := tracker.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := tracker.Pending(); got != 0 {
		t.Errorf("Pending() = %d, want 0", got)
	}

	n, err := tracker.Estimate(ctx, "shop.test")
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Estimate(shop.test) = %d, want 3", n)
	}

	if err := tracker.Reset(ctx, "shop.test"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	n, err = tracker.Estimate(ctx, "shop.test")
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Estimate(shop.test) after Reset = %d, want 0", n)
	}

	n, _ = tracker.Estimate(ctx, "other.test")
	if n != 1 {
		t.Errorf("Estimate(other.test) = %d, want 1", n)
	}
}

func TestTracker_RunFlushesOnShutdown(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := variants.NewTracker(redisClient, config.Redis{FlushInterval: time.Hour}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tracker.Run(ctx) }()

	tracker.Observe("shop.test", "h1")
	tracker.Observe("shop.test", "h2")
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	n, err := tracker.Estimate(context.Background(), "shop.test")
	if err != nil {
		t.Fatalf("Estimate() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Estimate() = %d, want 2", n)
	}
}

func TestStorefront_VariantTracking(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := variants.NewTracker(redisClient, config.Redis{}, zerolog.Nop())
	h := newStorefront(t, tracker)

	customer := &http.Cookie{Name: shop.CustomerCookie, Value: "c1"}
	usd := &http.Cookie{Name: "sw-currency", Value: shop.CurrencyUSD}

	// Anonymous visitors share the base variant and emit no hash.
	rec := get(h, "/listing")
	if got := rec.Header().Get("Cache-Control"); got != "public, s-maxage=7200" {
		t.Errorf("anonymous Cache-Control = %q", got)
	}

	first := get(h, "/listing", customer).Header().Get("sw-cache-hash")
	if first == "" {
		t.Fatal("logged-in visitor should get a context hash")
	}
	if again := get(h, "/detail/p1", customer).Header().Get("sw-cache-hash"); again != first {
		t.Errorf("hash changed between pages: %q != %q", again, first)
	}
	if other := get(h, "/listing", usd).Header().Get("sw-cache-hash"); other == "" || other == first {
		t.Errorf("foreign currency hash = %q, want a distinct non-empty hash", other)
	}

	if err := tracker.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	rec = get(h, "/debug/variants")
	if rec.Code != http.StatusOK {
		t.Fatalf("/debug/variants status = %d, want 200", rec.Code)
	}

	var body struct {
		Host     string `json:"host"`
		Variants int64  `json:"variants"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode /debug/variants: %v", err)
	}
	if body.Host != "shop.test" {
		t.Errorf("host = %q, want shop.test", body.Host)
	}
	if body.Variants != 2 {
		t.Errorf("variants = %d, want 2", body.Variants)
	}
}
