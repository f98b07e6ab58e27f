// internal/models/candidate.go
package models

import "time"

// ExperienceLevel is the optional seniority band of a candidate.
type ExperienceLevel string

const (
	ExperienceUnset  ExperienceLevel = ""
	ExperienceJunior ExperienceLevel = "junior"
	ExperienceMid    ExperienceLevel = "mid"
	ExperienceSenior ExperienceLevel = "senior"
)

// MaxAge is the upper bound of the age tag on CandidateRecord.
const MaxAge = 130

// CandidateRecord is an active, assignable candidate. Phone is the identity key.
type CandidateRecord struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"name" validate:"required"`
	Phone           string          `json:"phone" validate:"required"`
	Age             *int            `json:"age,omitempty" validate:"omitempty,gte=0,lte=130"`
	Address         string          `json:"address,omitempty"`
	Company         string          `json:"company,omitempty"`
	Position        string          `json:"position,omitempty"`
	Education       string          `json:"education,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel,omitempty" validate:"omitempty,oneof=junior mid senior"`
}

// HistoryRecord is an append-only archive entry. Only IsActive and DeletedAt
// ever change after it is written.
type HistoryRecord struct {
	ID              string          `json:"id,omitempty"`
	CandidateID     string          `json:"candidateId"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	Age             *int            `json:"age,omitempty"`
	Address         string          `json:"address,omitempty"`
	Company         string          `json:"company,omitempty"`
	Position        string          `json:"position,omitempty"`
	Education       string          `json:"education,omitempty"`
	ExperienceLevel ExperienceLevel `json:"experienceLevel,omitempty"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	DeletedAt       *time.Time      `json:"deletedAt,omitempty"`
	UploadedBy      string          `json:"uploadedBy"`
}

// NewHistoryRecord snapshots c as an active archive entry.
func NewHistoryRecord(c CandidateRecord, uploadedBy string, at time.Time) HistoryRecord {
	return HistoryRecord{
		CandidateID:     c.ID,
		Name:            c.Name,
		Phone:           c.Phone,
		Age:             c.Age,
		Address:         c.Address,
		Company:         c.Company,
		Position:        c.Position,
		Education:       c.Education,
		ExperienceLevel: c.ExperienceLevel,
		IsActive:        true,
		CreatedAt:       at,
		UploadedBy:      uploadedBy,
	}
}

// Candidate returns the candidate fields mirrored by the entry.
func (h HistoryRecord) Candidate() CandidateRecord {
	return CandidateRecord{
		ID:              h.CandidateID,
		Name:            h.Name,
		Phone:           h.Phone,
		Age:             h.Age,
		Address:         h.Address,
		Company:         h.Company,
		Position:        h.Position,
		Education:       h.Education,
		ExperienceLevel: h.ExperienceLevel,
	}
}

// HistoryFilter narrows listHistory reads. Zero values do not filter.
type HistoryFilter struct {
	Phone      string `json:"phone,omitempty"`
	UploadedBy string `json:"uploadedBy,omitempty"`
	ActiveOnly bool   `json:"activeOnly,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}
