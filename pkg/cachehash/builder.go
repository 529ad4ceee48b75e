// Package cachehash turns a visitor's pricing context into the context hash
// that discriminates cached variants, and decides whether a visitor needs a
// hash at all.
//
// Anonymous visitors in the default currency with an empty cart and none of
// the cache-relevant cookies get no hash: they all share one variant.
package cachehash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/rulearea"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// RequiredHook may override the computed IsHashRequired result. It runs
// synchronously on the request path and must not block on I/O.
type RequiredHook func(r *http.Request, vc storefront.VisitorContext, cart storefront.Cart, required bool) bool

// PartsHook may add, override or delete HashParts entries before hashing.
// It runs synchronously on the request path and must not block on I/O.
type PartsHook func(r *http.Request, vc storefront.VisitorContext, parts *HashParts)

// Options configures a Builder. Nil hooks pass values through unchanged.
type Options struct {
	Strategy     RuleIDStrategy
	Areas        *rulearea.Resolver
	RequiredHook RequiredHook
	PartsHook    PartsHook
	Logger       zerolog.Logger
}

// Builder computes context hashes.
type Builder struct {
	cfg      *config.Config
	strategy RuleIDStrategy
	areas    *rulearea.Resolver
	required RequiredHook
	parts    PartsHook
	logger   zerolog.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg *config.Config, opts Options) *Builder {
	if cfg == nil {
		panic("config cannot be nil")
	}
	areas := opts.Areas
	if areas == nil {
		areas = rulearea.NewResolver(nil)
	}
	return &Builder{
		cfg:      cfg,
		strategy: opts.Strategy,
		areas:    areas,
		required: opts.RequiredHook,
		parts:    opts.PartsHook,
		logger:   opts.Logger,
	}
}

// Strategy returns the rule id strategy in use.
func (b *Builder) Strategy() RuleIDStrategy {
	return b.strategy
}

// IsHashRequired reports whether the visitor's context deviates from the
// shared default variant.
func (b *Builder) IsHashRequired(r *http.Request, vc storefront.VisitorContext, cart storefront.Cart) bool {
	required := vc.CustomerLoggedIn() ||
		(cart != nil && cart.LineItemCount() > 0) ||
		vc.CurrencyID() != vc.DefaultCurrencyID() ||
		b.hasRelevantCookie(r)

	if b.required != nil {
		required = b.required(r, vc, cart, required)
	}
	return required
}

func (b *Builder) hasRelevantCookie(r *http.Request) bool {
	for _, name := range b.cfg.HTTPCache.CacheRelevantCookies {
		if _, ok := storefront.RequestCookie(r, name); ok {
			return true
		}
	}
	return false
}

// Parts builds the HashParts for a visitor, hooks included.
func (b *Builder) Parts(r *http.Request, vc storefront.VisitorContext) *HashParts {
	areas := b.areas.Resolve(r, vc)
	ruleIDs := normalizeIDs(b.strategy.resolveRuleIDs(vc, areas))

	loggedIn := NotLoggedIn
	if vc.CustomerLoggedIn() {
		loggedIn = LoggedIn
	}

	parts := NewHashParts()
	parts.Set(PartRuleIDs, strings.Join(ruleIDs, ","))
	parts.Set(PartVersionID, vc.VersionID())
	parts.Set(PartCurrencyID, vc.CurrencyID())
	parts.Set(PartLanguageID, vc.LanguageID())
	parts.Set(PartTaxState, string(vc.TaxState()))
	parts.Set(PartLoggedIn, loggedIn)

	for _, name := range b.cfg.HTTPCache.CacheRelevantCookies {
		if value, ok := storefront.RequestCookie(r, name); ok {
			parts.Set(CookiePart(name), value)
		}
	}

	if b.parts != nil {
		b.parts(r, vc, parts)
	}
	return parts
}

// BuildHash returns the context hash of a visitor.
func (b *Builder) BuildHash(r *http.Request, vc storefront.VisitorContext) string {
	return Sum(b.Parts(r, vc))
}

// Sum hashes the ordered key/value pairs of parts. The pairs are JSON
// encoded, so neither keys nor values can run into each other.
func Sum(parts *HashParts) string {
	pairs := make([][2]string, 0, parts.Len())
	for _, key := range parts.Keys() {
		value, _ := parts.Get(key)
		pairs = append(pairs, [2]string{key, value})
	}
	// Marshalling strings cannot fail.
	encoded, _ := json.Marshal(pairs)
	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// ApplyCacheHash echoes the context headers, declares the Vary dimensions
// and writes, refreshes or clears the context hash cookie on resp. It
// returns the hash, or "" when the visitor needs none.
func (b *Builder) ApplyCacheHash(r *http.Request, vc storefront.VisitorContext, cart storefront.Cart, resp *storefront.Response) string {
	names := b.cfg.Names

	for _, h := range []string{names.CurrencyHeader, names.LanguageHeader} {
		if v := r.Header.Get(h); v != "" {
			resp.Header.Set(h, v)
		}
	}
	resp.MergeVary(names.HashCookie, names.CurrencyHeader, names.LanguageHeader)

	current, hasCookie := storefront.RequestCookie(r, names.HashCookie)

	if !b.IsHashRequired(r, vc, cart) {
		if hasCookie {
			resp.ClearCookie(names.HashCookie, storefront.IsSecure(r))
			hashCookieTotal.WithLabelValues("cleared").Inc()
		} else {
			hashCookieTotal.WithLabelValues("not_required").Inc()
		}
		return ""
	}

	hash := b.BuildHash(r, vc)
	if hash != current {
		resp.SetCookie(&http.Cookie{
			Name:     names.HashCookie,
			Value:    hash,
			Path:     "/",
			Secure:   storefront.IsSecure(r),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		hashCookieTotal.WithLabelValues("set").Inc()
		b.logger.Debug().
			Str("path", r.URL.Path).
			Str("hash", hash).
			Str("strategy", b.strategy.String()).
			Msg("Context hash cookie updated")
	} else {
		hashCookieTotal.WithLabelValues("unchanged").Inc()
	}
	resp.Header.Set(names.HashHeader, hash)

	return hash
}

// normalizeIDs returns the sorted, deduplicated, non-empty ids.
func normalizeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
