// Package shop is a small in-memory storefront used by cmd/storefront to
// exercise the caching engine: a visitor-context resolver, a cart store,
// static price rules and the routes that carry cache directives.
package shop

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pickware/shopware-platform-sub008/pkg/config"
	"github.com/pickware/shopware-platform-sub008/pkg/rulearea"
	"github.com/pickware/shopware-platform-sub008/pkg/storefront"
)

// Cookie names owned by the demo shop.
const (
	SessionCookie  = "sw-session"
	CustomerCookie = "sw-customer"
)

// AreaCart tags rules that only affect cart and checkout content.
const AreaCart = "cart"

// Sales channel defaults.
var (
	CurrencyEUR  = id("currency", "EUR")
	CurrencyUSD  = id("currency", "USD")
	LanguageEN   = id("language", "en-GB")
	LiveVersion  = id("version", "live")
	currencyByID = map[string]string{CurrencyEUR: "EUR", CurrencyUSD: "USD"}
)

// id derives a stable identifier, so ids survive restarts of the demo.
func id(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+name)).String()
}

// Rule is a static price rule.
type Rule struct {
	ID      string
	Name    string
	Areas   []string
	Applies func(loggedIn bool, cartItems int) bool
}

// DefaultRules returns the demo rule set.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:      id("rule", "always"),
			Name:    "always valid",
			Areas:   []string{rulearea.AreaProduct},
			Applies: func(bool, int) bool { return true },
		},
		{
			ID:      id("rule", "customer-price"),
			Name:    "customer price",
			Areas:   []string{rulearea.AreaProduct},
			Applies: func(loggedIn bool, _ int) bool { return loggedIn },
		},
		{
			ID:      id("rule", "free-shipping"),
			Name:    "free shipping with items in cart",
			Areas:   []string{AreaCart},
			Applies: func(_ bool, items int) bool { return items > 0 },
		},
	}
}

type activeRule struct {
	id    string
	areas []string
}

// Visitor is the resolved context of one request. It is immutable.
type Visitor struct {
	loggedIn bool
	currency string
	language string
	token    string
	rules    []activeRule
}

var _ storefront.VisitorContext = (*Visitor)(nil)

func (v *Visitor) CustomerLoggedIn() bool { return v.loggedIn }
func (v *Visitor) CurrencyID() string { return v.currency }
func (v *Visitor) DefaultCurrencyID() string { return CurrencyEUR }
func (v *Visitor) LanguageID() string { return v.language }
func (v *Visitor) VersionID() string { return LiveVersion }
func (v *Visitor) TaxState() storefront.TaxState { return storefront.TaxStateGross }
func (v *Visitor) Token() string { return v.token }

// RuleIDs returns every active rule id.
func (v *Visitor) RuleIDs() []string {
	ids := make([]string, 0, len(v.rules))
	for _, r := range v.rules {
		ids = append(ids, r.id)
	}
	return ids
}

// RuleIDsByArea returns the active rule ids tagged with any of areas.
func (v *Visitor) RuleIDsByArea(areas []string) []string {
	ids := []string{}
	for _, r := range v.rules {
		if intersects(r.areas, areas) {
			ids = append(ids, r.id)
		}
	}
	return ids
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// Resolver builds the visitor context of a request.
type Resolver struct {
	names config.Names
	carts *CartStore
	rules []Rule
}

// NewResolver creates a Resolver over carts and rules.
func NewResolver(names config.Names, carts *CartStore, rules []Rule) *Resolver {
	return &Resolver{names: names, carts: carts, rules: rules}
}

// Resolve reads the session, login and currency cookies of r.
func (res *Resolver) Resolve(r *http.Request) *Visitor {
	v := &Visitor{
		currency: CurrencyEUR,
		language: LanguageEN,
	}
	if token, ok := storefront.RequestCookie(r, SessionCookie); ok {
		v.token = token
	}
	if customer, ok := storefront.RequestCookie(r, CustomerCookie); ok && customer != "" {
		v.loggedIn = true
	}
	if currency, ok := storefront.RequestCookie(r, res.names.CurrencyCookie); ok {
		if _, known := currencyByID[currency]; known {
			v.currency = currency
		}
	}

	items := res.carts.Count(v.token)
	for _, rule := range res.rules {
		if rule.Applies(v.loggedIn, items) {
			v.rules = append(v.rules, activeRule{id: rule.ID, areas: rule.Areas})
		}
	}
	return v
}

// Middleware attaches the visitor context and the domain currency. Unsafe
// requests without a session get one, so carts can be created; safe requests
// never mint sessions and stay shareable.
func (res *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := storefront.RequestCookie(r, SessionCookie); !ok && !storefront.IsMethodCacheable(r) {
			token := uuid.NewString()
			http.SetCookie(w, sessionCookie(r, token))
			r.AddCookie(&http.Cookie{Name: SessionCookie, Value: token})
		}

		ctx := storefront.WithVisitorContext(r.Context(), res.Resolve(r))
		ctx = storefront.WithDomainCurrency(ctx, CurrencyEUR)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionCookie(r *http.Request, token string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		Secure:   storefront.IsSecure(r),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
