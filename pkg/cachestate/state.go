// Package cachestate implements the legacy system-state mechanism: a small
// closed set of visitor states carried in a cookie, and the validator a
// cache-reading layer uses to decide whether a stored response tagged with
// invalidation states may still be served.
package cachestate

import (
	"sort"
	"strings"
)

// StateTag is one visitor state.
type StateTag uint8

const (
	// LoggedIn is active while a customer is logged in.
	LoggedIn StateTag = 1 << iota
	// CartFilled is active while the cart has at least one line item.
	CartFilled
)

var tagNames = map[StateTag]string{
	LoggedIn:   "logged-in",
	CartFilled: "cart-filled",
}

// String returns the wire name of the tag.
func (t StateTag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseStateTag maps a wire name to its tag.
func ParseStateTag(name string) (StateTag, bool) {
	name = strings.TrimSpace(name)
	for tag, n := range tagNames {
		if n == name {
			return tag, true
		}
	}
	return 0, false
}

// StateSet is a set of StateTags. The zero value is the empty set.
type StateSet uint8

// NewStateSet returns the set holding tags.
func NewStateSet(tags ...StateTag) StateSet {
	var s StateSet
	for _, t := range tags {
		s = s.Add(t)
	}
	return s
}

// CurrentStates derives the set from the visitor's current booleans.
func CurrentStates(loggedIn, cartFilled bool) StateSet {
	return StateSet(0).Toggle(LoggedIn, loggedIn).Toggle(CartFilled, cartFilled)
}

// ParseStateSet reads the comma-joined wire format. Unknown tags are dropped.
func ParseStateSet(value string) StateSet {
	var s StateSet
	for _, name := range strings.Split(value, ",") {
		if tag, ok := ParseStateTag(name); ok {
			s = s.Add(tag)
		}
	}
	return s
}

// Has reports whether t is in the set.
func (s StateSet) Has(t StateTag) bool { return s&StateSet(t) != 0 }

// Add returns the set with t added.
func (s StateSet) Add(t StateTag) StateSet { return s | StateSet(t) }

// Remove returns the set with t pruned.
func (s StateSet) Remove(t StateTag) StateSet { return s &^ StateSet(t) }

// Toggle adds t when on is true and prunes it otherwise.
func (s StateSet) Toggle(t StateTag, on bool) StateSet {
	if on {
		return s.Add(t)
	}
	return s.Remove(t)
}

// Union returns the tags present in either set.
func (s StateSet) Union(o StateSet) StateSet { return s | o }

// IsEmpty reports whether no tag is set.
func (s StateSet) IsEmpty() bool { return s == 0 }

// Names returns the wire names of the tags, sorted.
func (s StateSet) Names() []string {
	names := make([]string, 0, len(tagNames))
	for tag, name := range tagNames {
		if s.Has(tag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// String returns the sorted comma-joined wire format.
func (s StateSet) String() string {
	return strings.Join(s.Names(), ",")
}

// IntersectsAny reports whether any tag of the set is named in states.
func (s StateSet) IntersectsAny(states []string) bool {
	for _, name := range states {
		if tag, ok := ParseStateTag(name); ok && s.Has(tag) {
			return true
		}
	}
	return false
}
