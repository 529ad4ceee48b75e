package storefront

import (
	"net/http"
	"strings"
)

// Response is the mutable view of a response that has not been written yet.
// Status and headers may still change; the body is not visible.
type Response struct {
	StatusCode int
	Header     http.Header
}

// NewResponse wraps a status code and a header map. The header map is used
// in place, so changes are visible to the owner of h.
func NewResponse(statusCode int, h http.Header) *Response {
	if h == nil {
		h = http.Header{}
	}
	return &Response{StatusCode: statusCode, Header: h}
}

// SetCookie adds a Set-Cookie header, replacing any earlier Set-Cookie for
// the same cookie name.
func (r *Response) SetCookie(c *http.Cookie) {
	if c == nil || c.Name == "" {
		return
	}
	r.removeCookie(c.Name)
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
}

// ClearCookie instructs the client to expire the named cookie.
func (r *Response) ClearCookie(name string, secure bool) {
	r.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Cookie returns the value this response sets for the named cookie.
// found is true whenever the response carries a Set-Cookie for the name,
// including one that clears it (value "").
func (r *Response) Cookie(name string) (value string, found bool) {
	for _, line := range r.Header.Values("Set-Cookie") {
		c, err := http.ParseSetCookie(line)
		if err != nil || c.Name != name {
			continue
		}
		if c.MaxAge < 0 {
			return "", true
		}
		return c.Value, true
	}
	return "", false
}

// MergeVary adds names to the Vary header. Existing entries are kept, the
// result is trimmed and deduplicated case-insensitively.
func (r *Response) MergeVary(names ...string) {
	r.Header.Set("Vary", strings.Join(MergeTokens(r.Header.Values("Vary"), names...), ", "))
}

// VaryValues returns the individual Vary entries.
func (r *Response) VaryValues() []string {
	return MergeTokens(r.Header.Values("Vary"))
}

func (r *Response) removeCookie(name string) {
	lines := r.Header.Values("Set-Cookie")
	if len(lines) == 0 {
		return
	}
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if c, err := http.ParseSetCookie(line); err == nil && c.Name == name {
			continue
		}
		kept = append(kept, line)
	}
	r.Header.Del("Set-Cookie")
	for _, line := range kept {
		r.Header.Add("Set-Cookie", line)
	}
}

// MergeTokens splits comma separated header values, appends extra and
// returns the trimmed, case-insensitively deduplicated tokens in first-seen
// order.
func MergeTokens(values []string, extra ...string) []string {
	seen := make(map[string]struct{}, len(values)+len(extra))
	out := make([]string, 0, len(values)+len(extra))

	add := func(token string) {
		token = strings.TrimSpace(token)
		if token == "" {
			return
		}
		k := strings.ToLower(token)
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		out = append(out, token)
	}

	for _, v := range values {
		for _, token := range strings.Split(v, ",") {
			add(token)
		}
	}
	for _, token := range extra {
		add(token)
	}
	return out
}
