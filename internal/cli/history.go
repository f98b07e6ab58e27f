package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"recruit-workers/internal/models"
)

// HistoryReport is the history command result.
type HistoryReport struct {
	Filter  models.HistoryFilter   `json:"filter"`
	Entries []models.HistoryRecord `json:"entries"`
}

func NewHistoryCommand(rootOpts *RootOptions, open Opener) *cobra.Command {
	var hf models.HistoryFilter

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "Show the candidate upload history",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd)
			err := withSession(cmd, rootOpts, open, func(ctx context.Context, s *Session) error {
				entries, err := s.Store.ListHistory(ctx, hf)
				if err != nil {
					return WrapExitError(ExitCommandError, "history read failed", err)
				}
				return f.Success(&HistoryReport{Filter: hf, Entries: entries})
			})
			if err != nil {
				return f.Fail(err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hf.Phone, "phone", "", "phone number, matched after normalization")
	cmd.Flags().StringVar(&hf.UploadedBy, "uploaded-by", "", "uploader")
	cmd.Flags().BoolVar(&hf.ActiveOnly, "active", false, "only entries whose candidate is still active")
	cmd.Flags().IntVar(&hf.Limit, "limit", 0, "maximum entries (0 for all)")

	return cmd
}

func (r *HistoryReport) renderText(w io.Writer) {
	fmt.Fprintf(w, "%d history entries\n", len(r.Entries))
	for _, h := range r.Entries {
		state := "active"
		if !h.IsActive {
			state = "retired"
			if h.DeletedAt != nil {
				state += " " + h.DeletedAt.Format(time.DateOnly)
			}
		}
		fmt.Fprintf(w, "  %s  %-20s %-16s %-12s %s\n",
			h.CreatedAt.Format(time.RFC3339), h.Name, h.Phone, h.UploadedBy, state)
	}
}
