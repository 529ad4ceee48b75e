package cachehash

// Keys of the fixed HashParts entries, in hashing order.
const (
	PartRuleIDs    = "rule-ids"
	PartVersionID  = "version-id"
	PartCurrencyID = "currency-id"
	PartLanguageID = "language-id"
	PartTaxState   = "tax-state"
	PartLoggedIn   = "logged-in"
)

// cookiePartPrefix namespaces cache-relevant cookies, so a cookie can never
// replace a fixed part.
const cookiePartPrefix = "cookie:"

// CookiePart returns the HashParts key of a cache-relevant cookie.
func CookiePart(name string) string {
	return cookiePartPrefix + name
}

// Values of the PartLoggedIn entry.
const (
	LoggedIn    = "logged-in"
	NotLoggedIn = "not-logged-in"
)

// HashParts is an insertion-ordered string map. Overwriting an existing key
// keeps its original position.
type HashParts struct {
	keys   []string
	values map[string]string
}

// NewHashParts returns an empty HashParts.
func NewHashParts() *HashParts {
	return &HashParts{values: make(map[string]string)}
}

// Set adds or overrides an entry.
func (p *HashParts) Set(key, value string) {
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

// Get returns the value stored under key.
func (p *HashParts) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// Delete removes an entry.
func (p *HashParts) Delete(key string) {
	if _, ok := p.values[key]; !ok {
		return
	}
	delete(p.values, key)
	for i, k := range p.keys {
		if k == key {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (p *HashParts) Keys() []string {
	out := make([]string, len(p.keys))
	copy(out, p.keys)
	return out
}

// Values returns the values in key order.
func (p *HashParts) Values() []string {
	out := make([]string, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, p.values[k])
	}
	return out
}

// Len returns the number of entries.
func (p *HashParts) Len() int {
	return len(p.keys)
}
