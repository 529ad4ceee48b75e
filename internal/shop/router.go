package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/pkg/cachekey"
	"github.com/pickware/shopware-platform-sub008/pkg/httpcache"
	"github.com/pickware/shopware-platform-sub008/pkg/metrics"
	"github.com/pickware/shopware-platform-sub008/pkg/rulearea"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// VariantEstimator reports the estimated variant count of a host.
type VariantEstimator interface {
	Estimate(ctx context.Context, host string) (int64, error)
}

// Deps are the collaborators of the storefront router.
type Deps struct {
	Policy    *httpcache.Policy
	Carts     *CartStore
	Visitors  *Resolver
	Keys      *cachekey.Generator
	Variants  VariantEstimator          // optional
	Proxies   *httpcache.TrustedProxies // optional
	Logger    zerolog.Logger
	DetailTTL time.Duration
}

type handlers struct {
	Deps
}

// NewRouter wires the storefront routes. Pages carrying a cache directive
// get it attached before the caching policy runs.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{Deps: deps}
	if h.DetailTTL == 0 {
		h.DetailTTL = time.Hour
	}

	r := chi.NewRouter()
	if deps.Proxies != nil {
		// Before RealIP, which rewrites RemoteAddr from client headers.
		r.Use(deps.Proxies.Middleware)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(deps.Visitors.Middleware)

		r.With(h.cached(storefront.DefaultDirective())).Get("/", h.page("home"))
		r.With(h.cached(storefront.DefaultDirective())).Get("/listing", h.page("listing"))
		r.With(h.cached(&storefront.CacheDirective{MaxAge: &h.DetailTTL})).Get("/detail/{productID}", h.detail)
		r.With(h.cached(&storefront.CacheDirective{States: []string{"cart-filled"}})).Get("/checkout/register", h.page("register"))

		r.With(h.uncached).Get("/checkout/cart", h.cart)
		r.With(h.uncached).Post("/checkout/line-item/add", h.addToCart)
		r.With(h.uncached).Post("/account/login", h.login)
		r.With(h.uncached).Post("/account/logout", h.logout)

		r.Get("/debug/cache-key", h.cacheKey)
		r.Get("/debug/variants", h.variants)
	})

	return r
}

// cached attaches a cache directive and runs the caching policy.
func (h *handlers) cached(d *storefront.CacheDirective) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		inner := h.Policy.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner.ServeHTTP(w, r.WithContext(storefront.WithCacheDirective(r.Context(), d)))
		})
	}
}

// uncached runs the caching policy without a directive, which keeps the
// context hash fresh on pages that are never cached.
func (h *handlers) uncached(next http.Handler) http.Handler {
	return h.Policy.Middleware(next)
}

func (h *handlers) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.Logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("cache_control", ww.Header().Get("Cache-Control")).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func (h *handlers) page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vc, _ := storefront.VisitorContextFrom(r)
		writeJSON(w, http.StatusOK, map[string]any{
			"page":      name,
			"currency":  currencyByID[vc.CurrencyID()],
			"logged_in": vc.CustomerLoggedIn(),
			"rules":     vc.RuleIDsByArea([]string{rulearea.AreaProduct}),
		})
	}
}

func (h *handlers) detail(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	if productID == "" || productID == "missing" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
		return
	}
	vc, _ := storefront.VisitorContextFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"page":     "detail",
		"product":  productID,
		"currency": currencyByID[vc.CurrencyID()],
	})
}

func (h *handlers) cart(w http.ResponseWriter, r *http.Request) {
	vc, _ := storefront.VisitorContextFrom(r)
	cart, err := h.Carts.Get(vc.Token())
	if errors.Is(err, ErrCartNotFound) {
		writeJSON(w, http.StatusOK, Cart{Token: vc.Token(), Items: map[string]int{}})
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (h *handlers) addToCart(w http.ResponseWriter, r *http.Request) {
	vc, _ := storefront.VisitorContextFrom(r)

	productID := r.FormValue("product_id")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "product_id is required"})
		return
	}
	quantity := 1
	if q := r.FormValue("quantity"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be a number"})
			return
		}
		quantity = n
	}

	if err := h.Carts.Add(vc.Token(), productID, quantity); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) login(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CustomerCookie,
		Value:    id("customer", r.FormValue("email")),
		Path:     "/",
		Secure:   storefront.IsSecure(r),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CustomerCookie,
		Path:     "/",
		MaxAge:   -1,
		Secure:   storefront.IsSecure(r),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) cacheKey(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("path")
	if target == "" {
		target = "/"
	}
	probe := r.Clone(r.Context())
	u, err := r.URL.Parse(target)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid path: %v", err)})
		return
	}
	probe.URL = u

	writeJSON(w, http.StatusOK, map[string]any{
		"uri":    h.Keys.CanonicalURI(probe),
		"record": h.Keys.Record(probe, nil),
	})
}

func (h *handlers) variants(w http.ResponseWriter, r *http.Request) {
	if h.Variants == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "variant tracking disabled"})
		return
	}
	n, err := h.Variants.Estimate(r.Context(), r.Host)
	if err != nil {
		h.Logger.Warn().Err(err).Str("host", r.Host).Msg("Variant estimate failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "variant estimate unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"host": r.Host, "variants": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
