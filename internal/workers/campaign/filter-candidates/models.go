package filtercandidates

import "recruit-workers/internal/models"

type Input struct {
	Criteria       models.FilterCriteria `json:"criteria"`
	OnlyUnassigned bool                  `json:"onlyUnassigned"`
	Limit          int                   `json:"limit,omitempty"`
}

type Output struct {
	// MatchCount counts every match; CandidateIDs holds at most the limit.
	MatchCount   int      `json:"matchCount"`
	CandidateIDs []string `json:"candidateIds"`
	Truncated    bool     `json:"truncated"`
}
