// Package httpcache decides, per storefront response, whether a shared
// reverse proxy may cache it and under which context variant.
//
// The policy runs in two phases on a response that has not been written:
//
//   - OnResponse (early) keeps the visitor's context hash cookie and header
//     current for every request in scope, including writes, and for
//     cacheable routes sets "Cache-Control: public, s-maxage=N"
//   - OnFinalize (late) marks routes with a cache directive so the session
//     guard does not force the response private
//
// Anything that speaks against caching (caching disabled, no visitor
// context, maintenance, 404, cart unavailable, unsafe method, no route
// directive, invalidating legacy state) ends the early phase silently. The
// response is then served uncached; nothing here ever fails a request.
//
// # Basic Usage
//
//	cfg, err := config.Load("config.yaml")
//	if err != nil {
//		return err
//	}
//
//	policy, err := httpcache.NewPolicy(cfg, httpcache.Options{
//		Carts:       carts,
//		Maintenance: httpcache.NewConfigMaintenanceResolver(cfg.Maintenance),
//		Logger:      logging.NewLogger("http-cache"),
//	})
//	if err != nil {
//		return err
//	}
//
//	router.Use(policy.Middleware)
//
// Upstream middleware must attach the visitor context and, for cacheable
// routes, the cache directive:
//
//	ctx := storefront.WithVisitorContext(r.Context(), vc)
//	ctx = storefront.WithCacheDirective(ctx, storefront.DefaultDirective())
//
// # Legacy States
//
// With http_cache.legacy_states enabled the policy also maintains the
// sw-states cookie (logged-in, cart-filled) and tags cacheable responses
// with sw-invalidation-states. Routes whose directive lists a currently
// active state are not cached. See package cachestate for the validator a
// cache-reading layer applies to stored responses.
//
// # Metrics
//
//   - http_cache_decisions_total{outcome} - Caching decisions by outcome
//   - http_cache_hash_cookie_total{action} - Hash cookie outcomes (package cachehash)
package httpcache
