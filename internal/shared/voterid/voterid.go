// Package voterid holds the canonical voter identifier (VID) format rules
// shared by the reconciliation and tally modules.
//
// A canonical VID is the letter V followed by seven digits, e.g. V0012345.
// Field admins key VIDs by hand, so intake accepts a small set of sloppy
// variants (digit-only tails, un-padded values) and resolves them against the
// voter directory. Normalization is pure; matching happens at the storage
// layer so "many matches" can surface as a first-class ambiguity error.
package voterid

import "strings"

// ReservedTestPrefix marks synthetic voters used for drills and load tests.
// Voters carrying it are excluded from every statistic and from tally input.
const ReservedTestPrefix = "TEST"

const canonicalDigits = 7

// IsTest reports whether a VID belongs to a reserved test voter.
func IsTest(vid string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(vid)), ReservedTestPrefix)
}

// Normalize expands operator input into the set of canonical VIDs it may
// refer to. The cleaned input itself is always a candidate so full VIDs and
// test-prefixed identifiers resolve exactly. An empty input yields nil.
func Normalize(input string) []string {
	cleaned := strings.ToUpper(strings.TrimSpace(input))
	if cleaned == "" {
		return nil
	}

	candidates := []string{cleaned}

	if isDigits(cleaned) && len(cleaned) <= canonicalDigits {
		candidates = append(candidates, "V"+pad(cleaned))
	}
	if strings.HasPrefix(cleaned, "V") {
		tail := cleaned[1:]
		if isDigits(tail) && len(tail) > 0 && len(tail) < canonicalDigits {
			candidates = append(candidates, "V"+pad(tail))
		}
	}

	return dedupe(candidates)
}

// IsCanonical reports whether a value already matches the canonical format.
func IsCanonical(vid string) bool {
	if len(vid) != canonicalDigits+1 || vid[0] != 'V' {
		return false
	}
	return isDigits(vid[1:])
}

func pad(digits string) string {
	return strings.Repeat("0", canonicalDigits-len(digits)) + digits
}

func isDigits(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
