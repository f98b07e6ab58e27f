package filtercandidates

import "recruit-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"criteria"},
		Properties: map[string]validation.Property{
			"criteria": {
				Type:        "object",
				Description: "Conjunctive filter; empty fields never exclude",
			},
			"onlyUnassigned": {
				Type: "boolean",
			},
			"limit": {
				Type:    "integer",
				Minimum: validation.FloatPtr(0),
			},
		},
		AdditionalProperties: true,
	}
}
