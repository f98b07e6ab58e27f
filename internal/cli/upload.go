package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	apperrors "recruit-workers/internal/common/errors"
	"recruit-workers/internal/models"
	"recruit-workers/internal/pipeline/duplicates"
	"recruit-workers/internal/pipeline/identity"
	"recruit-workers/internal/pipeline/intake"
	"recruit-workers/internal/pipeline/resolution"
	"recruit-workers/internal/store"
)

type uploadOptions struct {
	policy     string
	uploadedBy string
	dryRun     bool
}

// DuplicateRow is one line of the duplicate report.
type DuplicateRow struct {
	Name         string             `json:"name"`
	Phone        string             `json:"phone"`
	Source       models.MatchSource `json:"source"`
	ExistingName string             `json:"existingName,omitempty"`
}

// UploadReport is the upload command result.
type UploadReport struct {
	File                string                  `json:"file"`
	Rows                int                     `json:"rows"`
	Dropped             []intake.DroppedRow     `json:"dropped"`
	NewCount            int                     `json:"newCount"`
	DuplicatesInActive  int                     `json:"duplicatesInActive"`
	DuplicatesInHistory int                     `json:"duplicatesInHistory"`
	Duplicates          []DuplicateRow          `json:"duplicates"`
	Policy              models.ResolutionPolicy `json:"policy,omitempty"`
	DryRun              bool                    `json:"dryRun"`
	Skipped             int                     `json:"skipped"`
	Result              *models.CommitResult    `json:"result,omitempty"`
}

func NewUploadCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	opts := &uploadOptions{}

	cmd := &cobra.Command{
		Use:   "upload <file.csv>",
		Short: "Upload a candidate CSV file",
		Long: `Upload parses a candidate CSV file (name, phone, age, address, company,
position, education, experience level) and checks it against the active
candidates and the upload history.

When duplicates are found and no --policy is given, the duplicate report is
printed and nothing is written. Rerun with --policy skip, merge or replace.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			err := withSession(cmd, rootOpts, open, func(ctx context.Context, s *Session) error {
				return runUpload(ctx, s, f, args[0], opts)
			})
			if err != nil && !isReported(err) {
				return f.Fail(err)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&opts.policy, "policy", "", "duplicate resolution policy (skip|merge|replace)")
	cmd.Flags().StringVar(&opts.uploadedBy, "uploaded-by", "", "uploader recorded in the history")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "plan and report without writing")
	_ = cmd.MarkFlagRequired("uploaded-by")

	return cmd
}

func runUpload(ctx context.Context, s *Session, f *OutputFormatter, path string, opts *uploadOptions) error {
	policy := models.ResolutionPolicy(opts.policy)
	if policy != "" && !policy.Valid() {
		return NewExitError(ExitFailure, fmt.Sprintf("unknown policy %q, expected skip, merge or replace", opts.policy))
	}

	file, err := os.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open upload", err)
	}
	defer file.Close()

	parsed, err := intake.ParseCSV(file)
	if err != nil {
		return WrapExitError(ExitFailure, "unreadable upload", err)
	}
	f.VerboseLog("Parsed %d rows from %s, dropped %d", len(parsed.Records), path, parsed.DroppedCount())
	if len(parsed.Records) == 0 {
		return NewExitError(ExitFailure, "upload contains no candidate rows with a name and phone")
	}

	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "snapshot read failed", err)
	}

	strategy, err := identity.ParseStrategy(s.Pipeline.IdentityStrategy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid identity strategy", err)
	}
	det := duplicates.NewDetector(strategy).Detect(parsed.Records, snap.ActiveCandidates, snap.History)

	report := &UploadReport{
		File:                path,
		Rows:                len(parsed.Records),
		Dropped:             parsed.Dropped,
		NewCount:            len(det.NewRecords),
		DuplicatesInActive:  len(det.DuplicatesInActive),
		DuplicatesInHistory: len(det.DuplicatesInHistory),
		Duplicates:          duplicateRows(det.Matches()),
		DryRun:              opts.dryRun,
	}

	if det.DuplicatesFound() && policy == "" {
		dupErr := apperrors.NewDuplicatesFoundError(len(det.Matches()))
		_ = f.Error(string(dupErr.Code), dupErr.Message+", rerun with --policy skip|merge|replace", report)
		return &reportedError{NewExitError(ExitFailure, "duplicates found")}
	}
	if policy == "" {
		policy = models.PolicySkip
	}
	report.Policy = policy

	plan, err := resolution.Resolve(parsed.Records, policy, det.Matches(), resolution.Options{
		UploadedBy: opts.uploadedBy,
		Strategy:   strategy,
	})
	if err != nil {
		return err
	}
	report.Skipped = len(plan.Skipped)

	var target store.Store = s.Store
	if opts.dryRun {
		target = store.NewMemoryStoreFromSnapshot(snap)
	}
	res, err := target.CommitResolutionPlan(ctx, plan)
	if err != nil {
		return WrapExitError(ExitCommandError, "commit failed, rerun the upload", err)
	}
	report.Result = &res

	s.Logger.Info("Upload committed", map[string]interface{}{
		"file":     path,
		"policy":   string(policy),
		"dryRun":   opts.dryRun,
		"inserted": res.Inserted,
	})
	return f.Success(report)
}

func duplicateRows(matches []models.DuplicateMatch) []DuplicateRow {
	rows := make([]DuplicateRow, 0, len(matches))
	for _, m := range matches {
		row := DuplicateRow{Name: m.Incoming.Name, Phone: m.Incoming.Phone, Source: m.Source}
		switch {
		case m.Active != nil:
			row.ExistingName = m.Active.Name
		case len(m.History) > 0:
			row.ExistingName = m.History[len(m.History)-1].Name
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *UploadReport) renderText(w io.Writer) {
	fmt.Fprintf(w, "File:        %s\n", r.File)
	fmt.Fprintf(w, "Rows:        %d (%d dropped)\n", r.Rows, len(r.Dropped))
	for _, d := range r.Dropped {
		fmt.Fprintf(w, "  line %d: %s\n", d.Line, d.Reason)
	}
	fmt.Fprintf(w, "New:         %d\n", r.NewCount)
	fmt.Fprintf(w, "Duplicates:  %d active, %d history\n", r.DuplicatesInActive, r.DuplicatesInHistory)
	for _, d := range r.Duplicates {
		fmt.Fprintf(w, "  %-20s %-16s %-18s %s\n", d.Name, d.Phone, d.Source, d.ExistingName)
	}
	if r.Result == nil {
		return
	}
	mode := "committed"
	if r.DryRun {
		mode = "dry run, nothing written"
	}
	fmt.Fprintf(w, "Policy:      %s (%s)\n", r.Policy, mode)
	fmt.Fprintf(w, "Inserted:    %d\n", r.Result.Inserted)
	fmt.Fprintf(w, "Updated:     %d\n", r.Result.Updated)
	fmt.Fprintf(w, "Replaced:    %d\n", r.Result.Replaced)
	fmt.Fprintf(w, "Skipped:     %d\n", r.Skipped)
	fmt.Fprintf(w, "History:     %d entries appended\n", r.Result.HistoryAppended)
}

// reportedError marks an error whose output the command already wrote.
type reportedError struct {
	*ExitError
}

func (e *reportedError) Unwrap() error { return e.ExitError }

func isReported(err error) bool {
	_, ok := err.(*reportedError)
	return ok
}
