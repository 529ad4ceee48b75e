// Package cachekey derives the reverse-proxy cache key of a request.
//
// The key covers the canonical URI (ignored tracking parameters removed,
// remaining parameters sorted), a deployment salt and the visitor's context
// discriminator: the context hash cookie, else the legacy currency cookie,
// else the domain default currency.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Prefix starts every generated key.
const Prefix = "http-cache-"

// Names of the seeded parts.
const (
	PartURI            = "uri"
	PartHash           = "hash"
	PartDomainCurrency = "domain-currency"
)

// PartsHook may contribute further parts before the key is hashed. It runs
// synchronously on the request path and must not block on I/O.
type PartsHook func(r *http.Request, resp *storefront.Response, parts *Parts)

// Part is one named key component.
type Part struct {
	Name  string
	Value string
}

// Parts is the ordered list of key components.
type Parts struct {
	list []Part
}

// Set adds a part or overrides the value of an existing one in place.
func (p *Parts) Set(name, value string) {
	for i := range p.list {
		if p.list[i].Name == name {
			p.list[i].Value = value
			return
		}
	}
	p.list = append(p.list, Part{Name: name, Value: value})
}

// Get returns the value of the named part.
func (p *Parts) Get(name string) (string, bool) {
	for _, part := range p.list {
		if part.Name == name {
			return part.Value, true
		}
	}
	return "", false
}

// List returns a copy of the parts in order.
func (p *Parts) List() []Part {
	out := make([]Part, len(p.list))
	copy(out, p.list)
	return out
}

// Generator generates cache keys.
type Generator struct {
	salt    string
	ignored map[string]struct{}
	names   config.Names
	hook    PartsHook
}

// New creates a Generator. names supplies the hash and currency cookie
// names; a nil hook adds nothing.
func New(salt string, ignoredParams []string, names config.Names, hook PartsHook) *Generator {
	ignored := make(map[string]struct{}, len(ignoredParams))
	for _, p := range ignoredParams {
		ignored[p] = struct{}{}
	}
	return &Generator{
		salt:    salt,
		ignored: ignored,
		names:   names,
		hook:    hook,
	}
}

// NewFromConfig creates a Generator from the shared configuration.
func NewFromConfig(cfg *config.Config, hook PartsHook) *Generator {
	return New(cfg.HTTPCache.Salt, cfg.HTTPCache.IgnoredQueryParams, cfg.Names, hook)
}

// Generate returns the cache key for r. resp may be nil; when given, the
// cookies it sets take precedence over the request's.
func (g *Generator) Generate(r *http.Request, resp *storefront.Response) string {
	return Prefix + sum(g.Parts(r, resp))
}

// Parts returns the key components for r, hook included.
func (g *Generator) Parts(r *http.Request, resp *storefront.Response) *Parts {
	parts := &Parts{}
	parts.Set(PartURI, g.CanonicalURI(r))
	parts.Set(PartHash, g.salt)

	if value, ok := cookieValue(r, resp, g.names.HashCookie); ok {
		parts.Set(g.names.HashCookie, value)
	} else if value, ok := cookieValue(r, resp, g.names.CurrencyCookie); ok {
		parts.Set(g.names.CurrencyCookie, value)
	} else if currency, ok := storefront.DomainCurrencyFrom(r); ok {
		parts.Set(PartDomainCurrency, currency)
	}

	if g.hook != nil {
		g.hook(r, resp, parts)
	}
	return parts
}

// CanonicalURI returns scheme://host + base path + path + "?" + the sorted
// query without ignored parameters.
func (g *Generator) CanonicalURI(r *http.Request) string {
	return storefront.Scheme(r) + "://" + r.Host +
		storefront.BasePathFrom(r) +
		r.URL.Path +
		"?" + g.canonicalQuery(r.URL.Query())
}

// canonicalQuery drops ignored parameters and sorts the rest by name.
// Repeated values of one parameter keep their order.
func (g *Generator) canonicalQuery(query url.Values) string {
	keys := make([]string, 0, len(query))
	for key := range query {
		if _, skip := g.ignored[key]; skip {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		for _, value := range query[key] {
			pairs = append(pairs, url.QueryEscape(key)+"="+url.QueryEscape(value))
		}
	}
	return strings.Join(pairs, "&")
}

// cookieValue prefers the cookie set by the response over the request's.
// A response that clears the cookie masks the request cookie.
func cookieValue(r *http.Request, resp *storefront.Response, name string) (string, bool) {
	if resp != nil {
		if value, found := resp.Cookie(name); found {
			return value, value != ""
		}
	}
	value, ok := storefront.RequestCookie(r, name)
	return value, ok && value != ""
}

// sum hashes the JSON encoding of the ordered name/value pairs.
func sum(parts *Parts) string {
	pairs := make([][2]string, 0, len(parts.list))
	for _, part := range parts.list {
		pairs = append(pairs, [2]string{part.Name, part.Value})
	}
	encoded, _ := json.Marshal(pairs)
	digest := sha256.Sum256(encoded)
	return hex.EncodeToString(digest[:])
}
