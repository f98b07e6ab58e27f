package resolveduplicates

import "recruit-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"uploadId", "resolutionPolicy"},
		Properties: map[string]validation.Property{
			"uploadId": {
				Type:      "string",
				MinLength: validation.IntPtr(1),
			},
			"resolutionPolicy": {
				Type:        "string",
				Description: "How duplicates are reconciled",
				Enum:        []string{"skip", "merge", "replace"},
			},
			"uploadedBy": {
				Type:      "string",
				MaxLength: validation.IntPtr(255),
			},
		},
		AdditionalProperties: true,
	}
}
