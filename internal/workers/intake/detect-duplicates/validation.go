package detectduplicates

import "recruit-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"uploadId"},
		Properties: map[string]validation.Property{
			"uploadId": {
				Type:        "string",
				Description: "Staged upload returned by parse-candidate-upload",
				MinLength:   validation.IntPtr(1),
			},
		},
		AdditionalProperties: true,
	}
}
