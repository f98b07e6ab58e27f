package resolution

import (
	"strings"

	"recruit-workers/internal/models"
)

// MergeNonEmpty overlays the non-empty fields of incoming onto existing.
// Blank strings and a nil age never erase a stored value. The existing ID is kept.
func MergeNonEmpty(existing, incoming models.CandidateRecord) models.CandidateRecord {
	out := existing
	out.Name = preferNonEmpty(incoming.Name, existing.Name)
	out.Phone = preferNonEmpty(incoming.Phone, existing.Phone)
	out.Address = preferNonEmpty(incoming.Address, existing.Address)
	out.Company = preferNonEmpty(incoming.Company, existing.Company)
	out.Position = preferNonEmpty(incoming.Position, existing.Position)
	out.Education = preferNonEmpty(incoming.Education, existing.Education)
	if incoming.ExperienceLevel != models.ExperienceUnset {
		out.ExperienceLevel = incoming.ExperienceLevel
	}
	if incoming.Age != nil {
		age := *incoming.Age
		out.Age = &age
	}
	return out
}

func preferNonEmpty(incoming, existing string) string {
	if strings.TrimSpace(incoming) != "" {
		return incoming
	}
	return existing
}
