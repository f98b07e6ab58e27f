package launchcampaign

import "recruit-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"campaignName", "mode", "targets"},
		Properties: map[string]validation.Property{
			"campaignName": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
				MaxLength: validation.IntPtr(200),
			},
			"priority": {
				Type: "string",
				Enum: []string{"low", "normal", "high", "urgent"},
			},
			"criteria": {
				Type: "object",
			},
			"mode": {
				Type:        "string",
				Description: "Allocation mode",
				Enum:        []string{"single", "custom", "team"},
			},
			"targets": {
				Type:     "array",
				MinItems: validation.IntPtr(1),
			},
			"maxPerEmployeeTeam": {
				Type: "integer",
			},
			"maxTotal": {
				Type:    "integer",
				Minimum: validation.FloatPtr(0),
			},
			"launchedBy": {
				Type:      "string",
				MaxLength: validation.IntPtr(255),
			},
		},
		AdditionalProperties: true,
	}
}
