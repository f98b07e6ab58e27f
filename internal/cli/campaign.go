package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/campaign"
)

// CampaignReport is the campaign command result.
type CampaignReport struct {
	Spec            campaign.Spec       `json:"spec"`
	DryRun          bool                `json:"dryRun"`
	EligibleCount   int                 `json:"eligibleCount"`
	AssignedCount   int                 `json:"assignedCount"`
	UnassignedCount int                 `json:"unassignedCount"`
	PerEmployee     map[string]int      `json:"perEmployee"`
	Assignments     []models.Assignment `json:"assignments"`
}

func NewCampaignCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "campaign <campaign.yaml>",
		Short: "Launch a distribution campaign",
		Long: `Campaign reads a campaign definition (name, priority, criteria, mode,
targets, caps), filters the unassigned active candidates and allocates them
to the target employees in order. All assignments are written in one
transaction.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			err := withSession(cmd, rootOpts, open, func(ctx context.Context, s *Session) error {
				return runCampaign(ctx, s, f, args[0], dryRun)
			})
			if err != nil {
				return f.Fail(err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan and report without writing")
	return cmd
}

// LoadCampaignSpec decodes a campaign definition. Unknown keys are rejected.
func LoadCampaignSpec(r io.Reader) (campaign.Spec, error) {
	var spec campaign.Spec
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return spec, fmt.Errorf("campaign definition is empty")
		}
		return spec, fmt.Errorf("invalid campaign definition: %w", err)
	}
	return spec, nil
}

func runCampaign(ctx context.Context, s *Session, f *OutputFormatter, path string, dryRun bool) error {
	file, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open campaign definition", err)
	}
	defer file.Close()

	spec, err := LoadCampaignSpec(file)
	if err != nil {
		return WrapExitError(ExitFailure, "campaign definition rejected", err)
	}

	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "snapshot read failed", err)
	}

	planned, err := campaign.PlanWithDefaults(snap, spec, s.Pipeline.DefaultPriority)
	if err != nil {
		return err
	}

	assignments := planned.Allocation.Assignments
	if !dryRun && len(assignments) > 0 {
		assignments, err = s.Store.CommitAssignments(ctx, assignments)
		if err != nil {
			return WrapExitError(ExitCommandError, "commit failed, rerun the campaign", err)
		}
	}

	s.Logger.Info("Campaign planned", map[string]interface{}{
		"campaign": planned.Spec.Name,
		"dryRun":   dryRun,
		"assigned": len(assignments),
	})
	return f.Success(&CampaignReport{
		Spec:            planned.Spec,
		DryRun:          dryRun,
		EligibleCount:   planned.EligibleCount,
		AssignedCount:   len(assignments),
		UnassignedCount: planned.Allocation.UnassignedCount,
		PerEmployee:     planned.Allocation.PerEmployee,
		Assignments:     assignments,
	})
}

func (r *CampaignReport) renderText(w io.Writer) {
	mode := "committed"
	if r.DryRun {
		mode = "dry run, nothing written"
	}
	fmt.Fprintf(w, "Campaign:    %s [%s, %s] (%s)\n", r.Spec.Name, r.Spec.Priority, r.Spec.Mode, mode)
	fmt.Fprintf(w, "Eligible:    %d\n", r.EligibleCount)
	fmt.Fprintf(w, "Assigned:    %d\n", r.AssignedCount)
	fmt.Fprintf(w, "Unassigned:  %d\n", r.UnassignedCount)

	employees := make([]string, 0, len(r.PerEmployee))
	for id := range r.PerEmployee {
		employees = append(employees, id)
	}
	sort.Strings(employees)
	for _, id := range employees {
		fmt.Fprintf(w, "  %-36s %d\n", id, r.PerEmployee[id])
	}
}
