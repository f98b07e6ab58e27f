package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/filter"
)

type filterOptions struct {
	criteria       models.FilterCriteria
	ageMin, ageMax int
	onlyUnassigned bool
	limit          int
}

// FilterReport is the filter command result.
type FilterReport struct {
	Criteria   models.FilterCriteria    `json:"criteria"`
	MatchCount int                      `json:"matchCount"`
	Candidates []models.CandidateRecord `json:"candidates"`
}

func NewFilterCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	opts := &filterOptions{}

	cmd := &cobra.Command{
		Use:   "filter",
		Short: "List active candidates matching criteria",
		Long: `Filter lists active candidates matching every given criterion. Text
criteria are case-insensitive substring matches; --city is searched within
the address. Omitted criteria never exclude.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("age-min") {
				opts.criteria.AgeMin = &opts.ageMin
			}
			if cmd.Flags().Changed("age-max") {
				opts.criteria.AgeMax = &opts.ageMax
			}
			f := newFormatter(rootOpts, cmd)
			err := withSession(cmd, rootOpts, open, func(ctx context.Context, s *Session) error {
				return runFilter(ctx, s, f, opts)
			})
			if err != nil {
				return f.Fail(err)
			}
			return nil
		},
	}

	fl := cmd.Flags()
	fl.IntVar(&opts.ageMin, "age-min", 0, "minimum age, inclusive")
	fl.IntVar(&opts.ageMax, "age-max", 0, "maximum age, inclusive")
	fl.StringVar(&opts.criteria.Address, "address", "", "address contains")
	fl.StringVar(&opts.criteria.City, "city", "", "city, matched within the address")
	fl.StringVar(&opts.criteria.Company, "company", "", "company contains")
	fl.StringVar(&opts.criteria.Position, "position", "", "position contains")
	fl.StringVar(&opts.criteria.Education, "education", "", "education contains")
	fl.StringVar(&opts.criteria.ExperienceLevel, "experience", "", "experience level (junior|mid|senior|all)")
	fl.StringVar(&opts.criteria.PhonePrefix, "phone-prefix", "", "normalized phone prefix")
	fl.BoolVar(&opts.onlyUnassigned, "only-unassigned", false, "exclude candidates that already have an assignment")
	fl.IntVar(&opts.limit, "limit", 0, "maximum candidates to print (0 for all)")

	return cmd
}

func runFilter(ctx context.Context, s *Session, f *OutputFormatter, opts *filterOptions) error {
	if err := models.Validate(opts.criteria); err != nil {
		return WrapExitError(ExitFailure, "invalid criteria", err)
	}

	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "snapshot read failed", err)
	}
	pool := snap.ActiveCandidates
	if opts.onlyUnassigned {
		pool = filter.ExcludeAssigned(pool, snap.Assignments)
	}
	matched := filter.Filter(pool, opts.criteria)

	report := &FilterReport{Criteria: opts.criteria, MatchCount: len(matched), Candidates: matched}
	if opts.limit > 0 && len(matched) > opts.limit {
		report.Candidates = matched[:opts.limit]
	}
	f.VerboseLog("Filtered %d of %d candidates", len(matched), len(pool))
	return f.Success(report)
}

func (r *FilterReport) renderText(w io.Writer) {
	fmt.Fprintf(w, "%d candidate(s) match\n", r.MatchCount)
	for _, c := range r.Candidates {
		age := "-"
		if c.Age != nil {
			age = fmt.Sprint(*c.Age)
		}
		fmt.Fprintf(w, "  %-36s %-20s %-16s %-4s %-20s %s\n", c.ID, c.Name, c.Phone, age, c.Company, c.ExperienceLevel)
	}
	if len(r.Candidates) < r.MatchCount {
		fmt.Fprintf(w, "  ... %d more\n", r.MatchCount-len(r.Candidates))
	}
}
