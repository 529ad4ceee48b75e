// Package rulearea decides which categories of pricing rules are relevant
// for the cached content of a request.
package rulearea

import (
	"net/http"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// AreaProduct tags rules that change product pricing.
const AreaProduct = "product"

// Hook receives the default areas and returns the areas to use. It runs
// synchronously on the request path and must not block on I/O.
type Hook func(r *http.Request, vc storefront.VisitorContext, areas []string) []string

// Resolver resolves the cache-relevant rule areas of a request.
type Resolver struct {
	hook Hook
}

// NewResolver creates a resolver. A nil hook keeps the default areas.
func NewResolver(hook Hook) *Resolver {
	return &Resolver{hook: hook}
}

// Resolve returns the rule areas for the request. The result may be empty
// but is never nil.
func (res *Resolver) Resolve(r *http.Request, vc storefront.VisitorContext) []string {
	areas := []string{AreaProduct}
	if res == nil || res.hook == nil {
		return areas
	}

	areas = res.hook(r, vc, areas)
	if areas == nil {
		return []string{}
	}
	return areas
}
