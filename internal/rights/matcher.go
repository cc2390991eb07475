// Package rights implements matching over access right-strings.
//
// A right-string has the shape domain:resource:action. Wildcards are allowed
// at two positions only: "domain:*" grants everything in a domain, and
// "domain:resource:*" grants every action on a resource. Any other use of
// "*" matches nothing.
package rights

import (
	"fmt"
	"strings"

	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Normalize lowercases and trims a right-string. All comparisons run over
// normalized values.
func Normalize(right string) string {
	return strings.ToLower(strings.TrimSpace(right))
}

// Matches reports whether a granted right satisfies a required right.
// Unrecognized wildcard shapes fail closed.
func Matches(granted, required string) bool {
	g := Normalize(granted)
	r := Normalize(required)
	if g == "" || r == "" {
		return false
	}
	if g == r {
		return true
	}
	if !strings.HasSuffix(g, ":*") {
		return false
	}
	segs := strings.Split(g, ":")
	switch len(segs) {
	case 2:
		if segs[0] == "" {
			return false
		}
		return strings.HasPrefix(r, segs[0]+":")
	case 3:
		if segs[0] == "" || segs[1] == "" || segs[1] == "*" {
			return false
		}
		return strings.HasPrefix(r, segs[0]+":"+segs[1]+":")
	default:
		return false
	}
}

// HasAny reports whether any required right is satisfied by the granted set.
// False for an empty required set: OR over nothing grants nothing. Callers
// that want "no requirement" skip the check instead.
func HasAny(granted, required []string) bool {
	for _, req := range required {
		for _, g := range granted {
			if Matches(g, req) {
				return true
			}
		}
	}
	return false
}

// HasAll reports whether every required right is satisfied by the granted
// set. Vacuously true for an empty required set.
func HasAll(granted, required []string) bool {
	for _, req := range required {
		ok := false
		for _, g := range granted {
			if Matches(g, req) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// ExpandWildcards replaces every wildcard entry with the concrete subset of
// known rights it matches, keeps non-wildcard entries untouched, and dedupes
// the result. Callers that fail to load the known-right catalog pass a nil
// catalog; the expansion then degrades to the concrete entries only.
func ExpandWildcards(granted, known []string) []string {
	out := make([]string, 0, len(granted))
	seen := make(map[string]struct{}, len(granted))
	add := func(right string) {
		right = Normalize(right)
		if right == "" {
			return
		}
		if _, ok := seen[right]; ok {
			return
		}
		seen[right] = struct{}{}
		out = append(out, right)
	}
	for _, g := range granted {
		if !IsWildcard(g) {
			add(g)
			continue
		}
		for _, k := range known {
			if IsWildcard(k) {
				continue
			}
			if Matches(g, k) {
				add(k)
			}
		}
	}
	return out
}

// IsWildcard reports whether the right-string contains a wildcard segment.
func IsWildcard(right string) bool {
	return strings.Contains(right, "*")
}

// Validate checks that a right-string has one of the three supported shapes.
// A malformed shape is a configuration error: role definitions are validated
// when loaded or edited, never on the per-request matching path.
func Validate(right string) error {
	r := Normalize(right)
	segs := strings.Split(r, ":")
	switch len(segs) {
	case 2:
		if segs[0] != "" && segs[1] == "*" {
			return nil
		}
	case 3:
		if segs[0] == "" || segs[1] == "" || segs[2] == "" {
			break
		}
		if segs[0] == "*" || segs[1] == "*" {
			break
		}
		return nil
	}
	return fmt.Errorf("rights: malformed right %q: %w", right, shared.ErrConfiguration)
}

// Union merges right sets, normalizing and deduplicating. Order of first
// appearance is preserved.
func Union(sets ...[]string) []string {
	out := make([]string, 0)
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, right := range set {
			r := Normalize(right)
			if r == "" {
				continue
			}
			if _, ok := seen[r]; ok {
				continue
			}
			seen[r] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
