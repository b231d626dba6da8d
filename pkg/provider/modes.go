package provider

import (
	"fmt"
	"strings"
)

// Mode markers found in MatchSummary.Mode.
const (
	modeBattleRoyale = "br_br"
	modeResurgence   = "rebirth"
)

// IsBattleRoyale reports whether a match is a Battle Royale match.
func IsBattleRoyale(m MatchSummary) bool {
	return strings.Contains(m.Mode, modeBattleRoyale)
}

// IsResurgence reports whether a match is a Resurgence match.
func IsResurgence(m MatchSummary) bool {
	return strings.Contains(m.Mode, modeResurgence)
}

// IsOtherMode reports whether a match is neither Battle Royale nor Resurgence.
func IsOtherMode(m MatchSummary) bool {
	return !IsBattleRoyale(m) && !IsResurgence(m)
}

// ModePredicate returns the qualifying predicate for a mode selector:
// "br", "resu", "others" or "all".
func ModePredicate(selector string) (func(MatchSummary) bool, error) {
	switch strings.ToLower(selector) {
	case "br":
		return IsBattleRoyale, nil
	case "resu", "resurgence":
		return IsResurgence, nil
	case "others":
		return IsOtherMode, nil
	case "", "all":
		return func(MatchSummary) bool { return true }, nil
	default:
		return nil, fmt.Errorf("unknown mode selector %q", selector)
	}
}
