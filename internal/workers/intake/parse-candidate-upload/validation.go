package parsecandidateupload

import "recruit-workers/internal/common/validation"

func GetInputSchema() validation.JSONSchema {
	return validation.JSONSchema{
		Type:     "object",
		Required: []string{"csvContent", "uploadedBy"},
		Properties: map[string]validation.Property{
			"csvContent": {
				Type:        "string",
				Description: "Raw upload file: header row, then Name, Phone, Age, Address, Company, Position, Education[, ExperienceLevel]",
				MinLength:   validation.IntPtr(1),
			},
			"uploadedBy": {
				Type:        "string",
				Description: "Manager performing the upload",
				MinLength:   validation.IntPtr(1),
				MaxLength:   validation.IntPtr(255),
			},
			"fileName": {
				Type:      "string",
				MaxLength: validation.IntPtr(255),
			},
		},
		AdditionalProperties: true,
	}
}
