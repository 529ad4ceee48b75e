package storefront

import (
	"context"
	"net/http"
	"time"
)

type (
	visitorContextKey struct{}
	directiveKey      struct{}
	basePathKey       struct{}
	domainCurrencyKey struct{}
	forwardedTLSKey   struct{}
)

// CacheDirective is the cache annotation a route attaches to a request.
// A route that merely opts in (a bare "true") is represented by
// DefaultDirective.
type CacheDirective struct {
	// MaxAge overrides the configured default shared max-age when set.
	MaxAge *time.Duration

	// States lists the invalidation states that forbid caching this page.
	States []string
}

// DefaultDirective returns a directive with no options, so every value comes
// from configuration.
func DefaultDirective() *CacheDirective {
	return &CacheDirective{}
}

// WithVisitorContext attaches the resolved visitor context to a request context.
func WithVisitorContext(ctx context.Context, vc VisitorContext) context.Context {
	return context.WithValue(ctx, visitorContextKey{}, vc)
}

// VisitorContextFrom returns the visitor context attached to the request, if any.
func VisitorContextFrom(r *http.Request) (VisitorContext, bool) {
	vc, ok := r.Context().Value(visitorContextKey{}).(VisitorContext)
	return vc, ok && vc != nil
}

// WithCacheDirective attaches a route cache directive to a request context.
func WithCacheDirective(ctx context.Context, d *CacheDirective) context.Context {
	return context.WithValue(ctx, directiveKey{}, d)
}

// CacheDirectiveFrom returns the cache directive attached to the request, if any.
func CacheDirectiveFrom(r *http.Request) (*CacheDirective, bool) {
	d, ok := r.Context().Value(directiveKey{}).(*CacheDirective)
	return d, ok && d != nil
}

// WithBasePath attaches the virtual base path of the matched sales channel
// domain (e.g. "/en") to a request context.
func WithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathKey{}, basePath)
}

// BasePathFrom returns the virtual base path, or "" when none is attached.
func BasePathFrom(r *http.Request) string {
	p, _ := r.Context().Value(basePathKey{}).(string)
	return p
}

// WithDomainCurrency attaches the default currency id of the matched domain.
func WithDomainCurrency(ctx context.Context, currencyID string) context.Context {
	return context.WithValue(ctx, domainCurrencyKey{}, currencyID)
}

// DomainCurrencyFrom returns the domain default currency id, if any.
func DomainCurrencyFrom(r *http.Request) (string, bool) {
	c, ok := r.Context().Value(domainCurrencyKey{}).(string)
	return c, ok && c != ""
}

// WithForwardedTLS marks a request that a trusted proxy received over TLS.
func WithForwardedTLS(ctx context.Context) context.Context {
	return context.WithValue(ctx, forwardedTLSKey{}, true)
}

// IsSecure reports whether the client reached us over TLS, either directly
// or through a trusted proxy marked by WithForwardedTLS. Forwarding headers
// alone are not trusted.
func IsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	forwarded, _ := r.Context().Value(forwardedTLSKey{}).(bool)
	return forwarded
}

// Scheme returns "https" or "http" for the request.
func Scheme(r *http.Request) string {
	if IsSecure(r) {
		return "https"
	}
	return "http"
}

// IsMethodCacheable reports whether the request method is a safe read.
func IsMethodCacheable(r *http.Request) bool {
	return r.Method == http.MethodGet || r.Method == http.MethodHead
}

// RequestCookie returns the value of a request cookie and whether it exists.
func RequestCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
