package cachestate

import (
	"net/http"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Validator decides whether a stored response may be served for a request.
type Validator struct {
	always             []string
	statesCookie       string
	invalidationHeader string
}

// NewValidator creates a Validator with a fixed list of states that
// invalidate every stored response. Cookie and header names are the defaults.
func NewValidator(alwaysInvalidating []string) *Validator {
	names := config.DefaultConfig().Names
	return &Validator{
		always:             append([]string(nil), alwaysInvalidating...),
		statesCookie:       names.StatesCookie,
		invalidationHeader: names.InvalidationHeader,
	}
}

// NewValidatorFromConfig creates a Validator using the configured names and
// always-invalidating states.
func NewValidatorFromConfig(cfg *config.Config) *Validator {
	v := NewValidator(cfg.HTTPCache.AlwaysInvalidatingStates)
	v.statesCookie = cfg.Names.StatesCookie
	v.invalidationHeader = cfg.Names.InvalidationHeader
	return v
}

// IsValid reports whether the stored response, described by its headers,
// is still valid for r.
func (v *Validator) IsValid(r *http.Request, stored http.Header) bool {
	active := v.ActiveStates(r, stored)
	if active.IsEmpty() {
		return true
	}

	invalidation := storefront.MergeTokens(stored.Values(v.invalidationHeader), v.always...)
	return !active.IntersectsAny(invalidation)
}

// ActiveStates returns the request's state cookie, or the state cookie the
// stored response set when it carries one.
func (v *Validator) ActiveStates(r *http.Request, stored http.Header) StateSet {
	if value, found := storefront.NewResponse(0, stored).Cookie(v.statesCookie); found {
		return ParseStateSet(value)
	}
	value, _ := storefront.RequestCookie(r, v.statesCookie)
	return ParseStateSet(value)
}
