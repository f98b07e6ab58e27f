// Package cli implements pipelinectl, the operator command line for the
// intake and campaign pipeline.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"recruit-workers/internal/common/config"
	"recruit-workers/internal/common/database"
	"recruit-workers/internal/common/logger"
	"recruit-workers/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Session is an open store plus the pipeline settings it runs under.
type Session struct {
	Store    store.Store
	Pipeline config.PipelineConfig
	Logger   logger.Logger
	Close    func() error
}

// Opener connects a command to its store.
type Opener func(ctx context.Context, opts *RootOptions) (*Session, error)

// NewRootCommand creates the root command. A nil open uses OpenPostgres.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenPostgres
	}
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "pipelinectl",
		Short: "Operate the candidate intake and campaign pipeline",
		Long: `pipelinectl uploads candidate CSV files with duplicate resolution,
filters the active candidate pool, launches distribution campaigns and
inspects the upload history.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default: configs/config.yaml)")

	cmd.AddCommand(NewUploadCommand(opts, open))
	cmd.AddCommand(NewFilterCommand(opts, open))
	cmd.AddCommand(NewCampaignCommand(opts, open))
	cmd.AddCommand(NewHistoryCommand(opts, open))

	return cmd
}

// OpenPostgres loads the config and connects to the candidate database.
func OpenPostgres(ctx context.Context, opts *RootOptions) (*Session, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigPath != "" {
		cfg, err = config.LoadFromFile(opts.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "config load failed", err)
	}

	level := "warn"
	if opts.Verbose {
		level = "debug"
	}
	log := logger.NewZapAdapter(logger.NewWithOutput(level, "console", "stderr"))

	pg, err := database.NewPostgres(ctx, cfg.Database.Postgres)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "database unavailable", err)
	}
	return &Session{
		Store:    store.NewPostgresStore(pg.DB, log),
		Pipeline: cfg.Pipeline,
		Logger:   log,
		Close:    pg.Close,
	}, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// withSession opens a session for one command run and closes it afterwards.
func withSession(cmd *cobra.Command, opts *RootOptions, open Opener, fn func(ctx context.Context, s *Session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := open(ctx, opts)
	if err != nil {
		return err
	}
	if s.Close != nil {
		defer s.Close()
	}
	if s.Logger == nil {
		s.Logger = logger.NewNoOpLogger()
	}
	return fn(ctx, s)
}
