package resolveduplicates

import "recruit-workers/internal/models"

type Input struct {
	UploadID string                  `json:"uploadId"`
	Policy   models.ResolutionPolicy `json:"resolutionPolicy"`
	// UploadedBy overrides the uploader recorded at staging time.
	UploadedBy string `json:"uploadedBy,omitempty"`
}

type Output struct {
	Inserted        int  `json:"inserted"`
	Updated         int  `json:"updated"`
	Replaced        int  `json:"replaced"`
	Skipped         int  `json:"skipped"`
	HistoryAppended int  `json:"historyAppended"`
	SearchMirrored  bool `json:"searchMirrored"`
}
