// Package filter evaluates campaign and ad-hoc candidate predicates.
package filter

import (
	"strings"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/identity"
)

// ExperienceAll disables the experience level criterion.
const ExperienceAll = "all"

// Filter returns the records of pool matching every set criterion, in pool
// order. Unset criteria never exclude a record.
func Filter(pool []models.CandidateRecord, criteria models.FilterCriteria) []models.CandidateRecord {
	p := compile(criteria)
	out := make([]models.CandidateRecord, 0, len(pool))
	for _, c := range pool {
		if p.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Matches evaluates criteria against a single record.
func Matches(c models.CandidateRecord, criteria models.FilterCriteria) bool {
	return compile(criteria).match(c)
}

// ExcludeAssigned drops every candidate that already holds an assignment.
func ExcludeAssigned(pool []models.CandidateRecord, assignments []models.Assignment) []models.CandidateRecord {
	if len(assignments) == 0 {
		return pool
	}
	assigned := make(map[string]struct{}, len(assignments))
	for _, a := range assignments {
		assigned[a.CandidateID] = struct{}{}
	}
	out := make([]models.CandidateRecord, 0, len(pool))
	for _, c := range pool {
		if _, ok := assigned[c.ID]; ok {
			continue
		}
		out = append(out, c)
	}
	return out
}

// predicate is criteria with strings folded once.
type predicate struct {
	ageMin, ageMax *int
	address        string
	city           string
	company        string
	position       string
	education      string
	experience     string
	phonePrefix    string
}

func compile(c models.FilterCriteria) predicate {
	exp := strings.ToLower(strings.TrimSpace(c.ExperienceLevel))
	if exp == ExperienceAll {
		exp = ""
	}
	return predicate{
		ageMin:      c.AgeMin,
		ageMax:      c.AgeMax,
		address:     fold(c.Address),
		city:        fold(c.City),
		company:     fold(c.Company),
		position:    fold(c.Position),
		education:   fold(c.Education),
		experience:  exp,
		phonePrefix: strings.TrimSpace(c.PhonePrefix),
	}
}

func (p predicate) match(c models.CandidateRecord) bool {
	if p.ageMin != nil || p.ageMax != nil {
		if c.Age == nil {
			return false
		}
		if p.ageMin != nil && *c.Age < *p.ageMin {
			return false
		}
		if p.ageMax != nil && *c.Age > *p.ageMax {
			return false
		}
	}

	// city has no column of its own; it is searched within the address
	if !contains(c.Address, p.address) || !contains(c.Address, p.city) {
		return false
	}
	if !contains(c.Company, p.company) || !contains(c.Position, p.position) || !contains(c.Education, p.education) {
		return false
	}

	if p.experience != "" && strings.ToLower(string(c.ExperienceLevel)) != p.experience {
		return false
	}

	if p.phonePrefix != "" && !strings.HasPrefix(identity.NormalizePhone(c.Phone), p.phonePrefix) {
		return false
	}

	return true
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// contains is a case-insensitive substring test; an empty needle matches.
func contains(haystack, foldedNeedle string) bool {
	if foldedNeedle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(haystack), foldedNeedle)
}
