package cachekey

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Record pairs a cache key with whether the response may be stored under it.
type Record struct {
	Key         string `json:"key"`
	IsCacheable bool   `json:"is_cacheable"`
}

// Record builds the key record for a request and its in-flight response.
func (g *Generator) Record(r *http.Request, resp *storefront.Response) Record {
	return Record{
		Key:         g.Generate(r, resp),
		IsCacheable: resp != nil && isSharedCacheable(resp.Header),
	}
}

// isSharedCacheable reports a public response with a positive s-maxage.
func isSharedCacheable(h http.Header) bool {
	public := false
	sharedMaxAge := 0
	for _, directive := range storefront.MergeTokens(h.Values("Cache-Control")) {
		name, value, _ := strings.Cut(strings.ToLower(directive), "=")
		switch strings.TrimSpace(name) {
		case "public":
			public = true
		case "private", "no-store":
			return false
		case "s-maxage":
			sharedMaxAge, _ = strconv.Atoi(strings.TrimSpace(value))
		}
	}
	return public && sharedMaxAge > 0
}
