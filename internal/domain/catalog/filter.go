package catalog

import "strings"

// Normalize trims and lower-cases a name or query.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Filter returns up to limit heroes matching term case-insensitively.
// Prefix matches come first, then names containing the term elsewhere;
// both groups keep list order. An empty term returns the first limit heroes.
// A non-positive limit means DefaultSuggestions.
func Filter(heroes []Hero, term string, limit int) []Hero {
	if limit <= 0 {
		limit = DefaultSuggestions
	}
	term = Normalize(term)

	out := make([]Hero, 0, min(limit, len(heroes)))
	if term == "" {
		return append(out, heroes[:min(limit, len(heroes))]...)
	}

	var contains []Hero
	for _, h := range heroes {
		name := Normalize(h.Name)
		switch {
		case strings.HasPrefix(name, term):
			if len(out) < limit {
				out = append(out, h)
			}
		case strings.Contains(name, term):
			contains = append(contains, h)
		}
	}
	for _, h := range contains {
		if len(out) >= limit {
			break
		}
		out = append(out, h)
	}
	return out
}
