// Package testutil provides fakes of the storefront collaborators for tests.
package testutil

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Default ids used by NewVisitor.
const (
	CurrencyEUR = "b7d2554b0ce847cd82f3ac9bd1c0dfca"
	CurrencyUSD = "1c5a8f5d6d3b4a1e9c0f2e7b8a6d4c3f"
	LanguageEN  = "2fbb5fe2e29a4d70aa5854ce7ce3e20b"
	LiveVersion = "0fa91ce3e96a4bc2be4bd9ce752c3425"
)

// Rule is an active rule and the areas it is tagged with.
type Rule struct {
	ID    string
	Areas []string
}

// Visitor is a configurable storefront.VisitorContext.
type Visitor struct {
	LoggedIn        bool
	Currency        string
	DefaultCurrency string
	Language        string
	Version         string
	Tax             storefront.TaxState
	Rules           []Rule
	SessionToken    string
}

var _ storefront.VisitorContext = (*Visitor)(nil)

// NewVisitor returns an anonymous visitor in the default context.
func NewVisitor() *Visitor {
	return &Visitor{
		Currency:        CurrencyEUR,
		DefaultCurrency: CurrencyEUR,
		Language:        LanguageEN,
		Version:         LiveVersion,
		Tax:             storefront.TaxStateGross,
		SessionToken:    "token-1",
	}
}

// WithRules returns a copy of v with the given rules.
func (v *Visitor) WithRules(rules ...Rule) *Visitor {
	cp := *v
	cp.Rules = rules
	return &cp
}

func (v *Visitor) CustomerLoggedIn() bool { return v.LoggedIn }
func (v *Visitor) CurrencyID() string { return v.Currency }
func (v *Visitor) DefaultCurrencyID() string { return v.DefaultCurrency }
func (v *Visitor) LanguageID() string { return v.Language }
func (v *Visitor) VersionID() string { return v.Version }
func (v *Visitor) TaxState() storefront.TaxState { return v.Tax }
func (v *Visitor) Token() string { return v.SessionToken }

// RuleIDs returns the rule ids as configured, duplicates included.
func (v *Visitor) RuleIDs() []string {
	ids := make([]string, 0, len(v.Rules))
	for _, rule := range v.Rules {
		ids = append(ids, rule.ID)
	}
	return ids
}

// RuleIDsByArea returns the ids of rules tagged with any of areas.
func (v *Visitor) RuleIDsByArea(areas []string) []string {
	wanted := make(map[string]bool, len(areas))
	for _, a := range areas {
		wanted[a] = true
	}

	ids := []string{}
	for _, rule := range v.Rules {
		for _, a := range rule.Areas {
			if wanted[a] {
				ids = append(ids, rule.ID)
				break
			}
		}
	}
	return ids
}

// Cart is a storefront.Cart with a fixed item count.
type Cart struct {
	Items int
}

// LineItemCount returns c.Items.
func (c Cart) LineItemCount() int { return c.Items }

// StaticCartLoader always returns cart and err.
func StaticCartLoader(cart storefront.Cart, err error) storefront.CartLoader {
	return storefront.CartLoaderFunc(func(context.Context, storefront.VisitorContext) (storefront.Cart, error) {
		return cart, err
	})
}

// NewRequest builds a request carrying the given cookies.
func NewRequest(method, target string, cookies ...*http.Cookie) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		r.AddCookie(c)
	}
	return r
}

// NewStorefrontRequest builds a request with a visitor context and an
// optional cache directive attached.
func NewStorefrontRequest(method, target string, vc storefront.VisitorContext, d *storefront.CacheDirective, cookies ...*http.Cookie) *http.Request {
	r := NewRequest(method, target, cookies...)
	ctx := r.Context()
	if vc != nil {
		ctx = storefront.WithVisitorContext(ctx, vc)
	}
	if d != nil {
		ctx = storefront.WithCacheDirective(ctx, d)
	}
	return r.WithContext(ctx)
}
