package httpcache

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// TrustedProxies honours X-Forwarded-Proto from TLS-terminating proxies.
// The header of any other peer is ignored, so a plain HTTP client cannot
// claim the https cache key or receive Secure cookies over HTTP.
type TrustedProxies struct {
	prefixes []netip.Prefix
}

// NewTrustedProxies creates a TrustedProxies from addresses or CIDR
// prefixes. Unparsable entries are ignored; an empty list trusts nobody.
func NewTrustedProxies(entries []string) *TrustedProxies {
	return &TrustedProxies{prefixes: parsePrefixes(entries)}
}

// Trusts reports whether r comes directly from a trusted proxy.
func (tp *TrustedProxies) Trusts(r *http.Request) bool {
	return fromAny(r, tp.prefixes)
}

// Middleware marks requests a trusted proxy received over TLS. It must run
// before anything that rewrites RemoteAddr from client headers.
func (tp *TrustedProxies) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil &&
			strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") &&
			tp.Trusts(r) {
			r = r.WithContext(storefront.WithForwardedTLS(r.Context()))
		}
		next.ServeHTTP(w, r)
	})
}
