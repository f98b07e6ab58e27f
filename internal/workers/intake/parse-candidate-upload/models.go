package parsecandidateupload

import "recruit-workers/internal/pipeline/intake"

type Input struct {
	CSVContent string `json:"csvContent"`
	UploadedBy string `json:"uploadedBy"`
	FileName   string `json:"fileName,omitempty"`
}

type Output struct {
	UploadID     string              `json:"uploadId"`
	RowCount     int                 `json:"rowCount"`
	DroppedRows  int                 `json:"droppedRows"`
	DroppedLines []intake.DroppedRow `json:"droppedLines,omitempty"`
}
