package detectduplicates

import "recruit-workers/internal/models"

type Input struct {
	UploadID string `json:"uploadId"`
}

// Duplicate is the summary of one conflicting row shown to the manager
// choosing a resolution policy.
type Duplicate struct {
	Name         string             `json:"name"`
	Phone        string             `json:"phone"`
	Source       models.MatchSource `json:"source"`
	ExistingName string             `json:"existingName,omitempty"`
	ExistingID   string             `json:"existingId,omitempty"`
}

type Output struct {
	DuplicatesFound     bool        `json:"duplicatesFound"`
	NewCount            int         `json:"newCount"`
	DuplicatesInActive  int         `json:"duplicatesInActive"`
	DuplicatesInHistory int         `json:"duplicatesInHistory"`
	Duplicates          []Duplicate `json:"duplicates"`
	// ResolutionPolicy is preset to skip when there is nothing to resolve.
	ResolutionPolicy models.ResolutionPolicy `json:"resolutionPolicy,omitempty"`
}
