package engine

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold normalizes a value for case-insensitive comparison: NFC, Unicode case
// folding, and collapsed whitespace. A new Caser per call since Casers are stateful.
func fold(s string) string {
	s = norm.NFC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

func foldAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if f := fold(v); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// matchesMember checks one folded value against folded members
func matchesMember(value string, members []string, mode MatchModeFunc) bool {
	for _, m := range members {
		if mode(value, m) {
			return true
		}
	}
	return false
}

// MatchModeFunc compares a folded value with a folded member
type MatchModeFunc func(value, member string) bool

func substringMatch(value, member string) bool {
	return strings.Contains(value, member)
}

func exactMatch(value, member string) bool {
	return value == member
}

// dedupe keeps first-seen order
func dedupe(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
