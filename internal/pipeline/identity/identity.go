// Package identity decides whether two candidate records denote the same person.
package identity

import (
	"fmt"
	"strings"
	"unicode"

	"recruit-workers/internal/models"
)

// Strategy selects the identity key derivation.
type Strategy string

const (
	// StrategyNormalizedPhone compares phones after stripping every non-digit.
	StrategyNormalizedPhone Strategy = "normalized_phone"
	// StrategyExactPhone compares trimmed phones verbatim.
	StrategyExactPhone Strategy = "exact_phone"
	// StrategyPhoneAndName requires the normalized phone and the case-folded
	// name to agree.
	StrategyPhoneAndName Strategy = "phone_and_name"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyNormalizedPhone

// ParseStrategy maps a configuration value onto a Strategy. Empty means default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.TrimSpace(s)) {
	case "":
		return DefaultStrategy, nil
	case StrategyNormalizedPhone:
		return StrategyNormalizedPhone, nil
	case StrategyExactPhone:
		return StrategyExactPhone, nil
	case StrategyPhoneAndName:
		return StrategyPhoneAndName, nil
	default:
		return "", fmt.Errorf("unknown identity strategy %q", s)
	}
}

// NormalizePhone keeps only the digits of s.
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Key returns the identity key of r under the strategy. An empty key means
// the record is unidentifiable and never matches anything.
func (s Strategy) Key(r models.CandidateRecord) string {
	switch s {
	case StrategyExactPhone:
		return strings.TrimSpace(r.Phone)
	case StrategyPhoneAndName:
		phone := NormalizePhone(r.Phone)
		name := strings.Join(strings.Fields(strings.ToLower(r.Name)), " ")
		if phone == "" || name == "" {
			return ""
		}
		return phone + "|" + name
	default:
		return NormalizePhone(r.Phone)
	}
}

// HistoryKey is Key for an archive entry.
func (s Strategy) HistoryKey(h models.HistoryRecord) string {
	return s.Key(h.Candidate())
}

// Matches reports whether a and b denote the same person.
func (s Strategy) Matches(a, b models.CandidateRecord) bool {
	ka := s.Key(a)
	return ka != "" && ka == s.Key(b)
}

// Matches applies the default strategy: phones equal after stripping non-digits.
func Matches(a, b models.CandidateRecord) bool {
	return DefaultStrategy.Matches(a, b)
}
