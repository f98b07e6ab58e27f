package launchcampaign

import (
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/campaign"
)

type Input struct {
	CampaignName       string                    `json:"campaignName"`
	Priority           string                    `json:"priority,omitempty"`
	Criteria           models.FilterCriteria     `json:"criteria"`
	Mode               models.AllocationMode     `json:"mode"`
	Targets            []models.AllocationTarget `json:"targets"`
	MaxPerEmployeeTeam int                       `json:"maxPerEmployeeTeam,omitempty"`
	MaxTotal           int                       `json:"maxTotal,omitempty"`
	LaunchedBy         string                    `json:"launchedBy,omitempty"`
}

func (in Input) Spec() campaign.Spec {
	return campaign.Spec{
		Name:               in.CampaignName,
		Priority:           in.Priority,
		Criteria:           in.Criteria,
		Mode:               in.Mode,
		Targets:            in.Targets,
		MaxPerEmployeeTeam: in.MaxPerEmployeeTeam,
		MaxTotal:           in.MaxTotal,
	}
}

type Output struct {
	CampaignID      string         `json:"campaignId"`
	Priority        string         `json:"priority"`
	EligibleCount   int            `json:"eligibleCount"`
	AssignedCount   int            `json:"assignedCount"`
	UnassignedCount int            `json:"unassignedCount"`
	PerEmployee     map[string]int `json:"perEmployee"`
	EventPublished  bool           `json:"eventPublished"`
}
