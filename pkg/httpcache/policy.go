package httpcache

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/pkg/cachehash"
	"github.com/pickware/shopware-platform-sub008/pkg/cachestate"
	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Decision outcomes recorded by the policy.
const (
	OutcomeDisabled         = "disabled"
	OutcomeNoContext        = "no_context"
	OutcomeMaintenance      = "maintenance"
	OutcomeNotFound         = "not_found"
	OutcomeCartError        = "cart_error"
	OutcomeUnsafeMethod     = "unsafe_method"
	OutcomeNoDirective      = "no_directive"
	OutcomeHandlerNoStore   = "handler_no_store"
	OutcomeStateInvalidated = "state_invalidated"
	OutcomeCacheable        = "cacheable"
)

// HashObserver is told about every context hash the policy emits. It runs
// synchronously on the request path and must not block.
type HashObserver interface {
	Observe(host, hash string)
}

// Options configures a Policy.
type Options struct {
	// Carts loads the visitor's cart. Required.
	Carts storefront.CartLoader

	// Hashes computes context hashes. Defaults to a builder using the
	// configured rule id strategy.
	Hashes *cachehash.Builder

	// Maintenance reports requests that must bypass the cache while the
	// shop is in maintenance mode. Optional.
	Maintenance MaintenanceResolver

	// Observer receives emitted hashes. Optional.
	Observer HashObserver

	Logger zerolog.Logger
}

// Policy decides per response whether and how the reverse proxy may cache
// it, and keeps the visitor's context hash cookie current.
type Policy struct {
	cfg         *config.Config
	carts       storefront.CartLoader
	hashes      *cachehash.Builder
	maintenance MaintenanceResolver
	observer    HashObserver
	logger      zerolog.Logger
}

// NewPolicy creates a Policy.
func NewPolicy(cfg *config.Config, opts Options) (*Policy, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Carts == nil {
		return nil, fmt.Errorf("cart loader is required")
	}

	hashes := opts.Hashes
	if hashes == nil {
		strategy, err := cachehash.ParseStrategy(cfg.HTTPCache.RuleIDStrategy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
		}
		hashes = cachehash.NewBuilder(cfg, cachehash.Options{
			Strategy: strategy,
			Logger:   opts.Logger,
		})
	}

	return &Policy{
		cfg:         cfg,
		carts:       opts.Carts,
		hashes:      hashes,
		maintenance: opts.Maintenance,
		observer:    opts.Observer,
		logger:      opts.Logger,
	}, nil
}

// OnResponse is the early phase. It runs before the response is finalized,
// emits the context hash and, for cacheable routes, the cache headers.
// Every branch that decides against caching returns silently.
func (p *Policy) OnResponse(r *http.Request, resp *storefront.Response) {
	if !p.cfg.HTTPCache.Enabled {
		p.skip(r, OutcomeDisabled)
		return
	}

	vc, ok := storefront.VisitorContextFrom(r)
	if !ok {
		p.skip(r, OutcomeNoContext)
		return
	}

	if p.maintenance != nil && p.maintenance.IsMaintenanceRequest(r) {
		p.skip(r, OutcomeMaintenance)
		return
	}

	if resp.StatusCode == http.StatusNotFound {
		p.skip(r, OutcomeNotFound)
		return
	}

	cart, err := p.carts.Load(r.Context(), vc)
	if err != nil || cart == nil {
		decisionsTotal.WithLabelValues(OutcomeCartError).Inc()
		p.logger.Warn().
			Err(err).
			Str("path", r.URL.Path).
			Msg("Cart unavailable, serving uncached")
		return
	}

	// Writes keep the hash fresh for the next GET.
	if hash := p.hashes.ApplyCacheHash(r, vc, cart, resp); hash != "" && p.observer != nil {
		p.observer.Observe(r.Host, hash)
	}

	if !storefront.IsMethodCacheable(r) {
		p.skip(r, OutcomeUnsafeMethod)
		return
	}

	directive, ok := storefront.CacheDirectiveFrom(r)
	if !ok {
		p.skip(r, OutcomeNoDirective)
		return
	}

	// A handler that forbids storing the response wins over the directive.
	if optsOut(resp.Header.Values("Cache-Control")) {
		p.skip(r, OutcomeHandlerNoStore)
		return
	}

	if p.cfg.HTTPCache.LegacyStates && !p.applyStates(r, vc, cart, directive, resp) {
		p.skip(r, OutcomeStateInvalidated)
		return
	}

	resp.Header.Set("Cache-Control", p.cacheControl(resp.Header.Values("Cache-Control"), directive))
	decisionsTotal.WithLabelValues(OutcomeCacheable).Inc()
	p.logger.Debug().
		Str("path", r.URL.Path).
		Str("cache_control", resp.Header.Get("Cache-Control")).
		Msg("Response cacheable")
}

// OnFinalize is the late phase. For routes with a cache directive it stops
// the automatic private cache-control applied to cookie-setting responses.
func (p *Policy) OnFinalize(r *http.Request, resp *storefront.Response) {
	if !p.cfg.HTTPCache.Enabled {
		return
	}
	if _, ok := storefront.CacheDirectiveFrom(r); !ok {
		return
	}
	resp.Header.Set(p.cfg.Names.NoAutoCacheControlHeader, "1")
}

// applyStates runs the legacy state cookie mechanism. It returns false when
// a current state forbids caching the route.
func (p *Policy) applyStates(r *http.Request, vc storefront.VisitorContext, cart storefront.Cart, d *storefront.CacheDirective, resp *storefront.Response) bool {
	names := p.cfg.Names
	prior, _ := storefront.RequestCookie(r, names.StatesCookie)

	states := cachestate.ParseStateSet(prior).
		Toggle(cachestate.LoggedIn, vc.CustomerLoggedIn()).
		Toggle(cachestate.CartFilled, cart.LineItemCount() > 0)

	if wire := states.String(); wire != prior {
		if states.IsEmpty() {
			resp.ClearCookie(names.StatesCookie, storefront.IsSecure(r))
		} else {
			resp.SetCookie(&http.Cookie{
				Name:     names.StatesCookie,
				Value:    wire,
				Path:     "/",
				Secure:   storefront.IsSecure(r),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
	}

	if states.IntersectsAny(d.States) {
		p.logger.Debug().
			Str("path", r.URL.Path).
			Str("states", states.String()).
			Strs("invalidated_by", d.States).
			Msg("Route not cacheable in current state")
		return false
	}

	if len(d.States) > 0 {
		resp.Header.Set(names.InvalidationHeader, strings.Join(d.States, ","))
	}
	return true
}

// cacheControl merges the shared caching directives into the existing ones.
// private and any directive set here are replaced.
func (p *Policy) cacheControl(existing []string, d *storefront.CacheDirective) string {
	hc := p.cfg.HTTPCache
	maxAge := hc.DefaultMaxAge
	if d.MaxAge != nil {
		maxAge = *d.MaxAge
	}

	directives := []string{"public", "s-maxage=" + strconv.Itoa(config.MaxAgeSeconds(maxAge))}
	if hc.StaleWhileRevalidate > 0 {
		directives = append(directives, "stale-while-revalidate="+strconv.Itoa(config.MaxAgeSeconds(hc.StaleWhileRevalidate)))
	}
	if hc.StaleIfError > 0 {
		directives = append(directives, "stale-if-error="+strconv.Itoa(config.MaxAgeSeconds(hc.StaleIfError)))
	}

	replaced := map[string]bool{"private": true}
	for _, directive := range directives {
		replaced[directiveName(directive)] = true
	}

	kept := make([]string, 0, len(existing))
	for _, token := range storefront.MergeTokens(existing) {
		if !replaced[directiveName(token)] {
			kept = append(kept, token)
		}
	}
	return strings.Join(append(kept, directives...), ", ")
}

// optsOut reports whether existing directives forbid a shared cache from
// storing or reusing the response.
func optsOut(existing []string) bool {
	for _, token := range storefront.MergeTokens(existing) {
		switch directiveName(token) {
		case "no-store", "no-cache":
			return true
		}
	}
	return false
}

func directiveName(directive string) string {
	name, _, _ := strings.Cut(directive, "=")
	return strings.ToLower(strings.TrimSpace(name))
}

func (p *Policy) skip(r *http.Request, outcome string) {
	decisionsTotal.WithLabelValues(outcome).Inc()
	p.logger.Debug().
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Str("outcome", outcome).
		Msg("Response not cached")
}
