// Package storefront defines the collaborator types the caching engine reads:
// the visitor context, the cart view, the route cache directive and the
// mutable view of an in-flight response.
//
// Everything in here is produced by layers outside the caching engine
// (context resolution, routing, cart). The engine only reads these values.
package storefront

import "context"

// TaxState is how prices are displayed to the visitor.
type TaxState string

const (
	// TaxStateGross shows prices including tax.
	TaxStateGross TaxState = "gross"

	// TaxStateNet shows prices excluding tax.
	TaxStateNet TaxState = "net"

	// TaxStateFree shows prices without any tax.
	TaxStateFree TaxState = "tax-free"
)

// VisitorContext is the resolved pricing/personalization context of a visitor.
// It is immutable for the duration of one request.
type VisitorContext interface {
	// CustomerLoggedIn reports whether a customer is attached to the context.
	CustomerLoggedIn() bool

	// CurrencyID is the currency prices are rendered in.
	CurrencyID() string

	// DefaultCurrencyID is the sales channel's default currency.
	DefaultCurrencyID() string

	// LanguageID is the content language.
	LanguageID() string

	// VersionID is the content version (live or a preview version).
	VersionID() string

	// TaxState is the tax display mode.
	TaxState() TaxState

	// RuleIDs returns every active rule id, in no particular order.
	RuleIDs() []string

	// RuleIDsByArea returns the active rule ids tagged with any of the
	// given rule areas, in no particular order.
	RuleIDsByArea(areas []string) []string

	// Token is the session/cart token of the visitor.
	Token() string
}

// Cart is the read-only view of a visitor's cart.
type Cart interface {
	LineItemCount() int
}

// CartLoader resolves the cart belonging to a visitor context.
type CartLoader interface {
	Load(ctx context.Context, vc VisitorContext) (Cart, error)
}

// CartLoaderFunc adapts a function to CartLoader.
type CartLoaderFunc func(ctx context.Context, vc VisitorContext) (Cart, error)

// Load calls f(ctx, vc).
func (f CartLoaderFunc) Load(ctx context.Context, vc VisitorContext) (Cart, error) {
	return f(ctx, vc)
}
