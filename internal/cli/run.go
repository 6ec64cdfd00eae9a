package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/capprobe/internal/capability"
	"github.com/roach88/capprobe/internal/harness"
	"github.com/roach88/capprobe/internal/registry"
	"github.com/roach88/capprobe/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Env      string
	Name     string
	Parallel int
	Timeout  time.Duration
	DBPath   string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog>",
		Short: "Run a probe catalog against an environment manifest",
		Long: `Run every probe in the catalog concurrently against the host described by
the environment manifest (.yaml or .cue), then print the report.

Exit codes:
  0 - no probe failed
  1 - one or more probes failed, or the run timed out
  2 - command error (unreadable catalog or manifest)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbes(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Env, "env", "", "environment manifest (.yaml, .yml or .cue)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "environment name for the report (overrides catalog and manifest)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 0, "maximum probes running at once (0 = unlimited)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "maximum time to wait for the run (0 = no limit)")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite database to record the run in")
	_ = cmd.MarkFlagRequired("env")

	return cmd
}

func runProbes(cmd *cobra.Command, catalogPath string, opts *RunOptions) error {
	logger := configureLogging(cmd.ErrOrStderr(), opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("catalog not found: %s", catalogPath))
	}
	if _, err := os.Stat(opts.Env); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("manifest not found: %s", opts.Env))
	}

	manifest, err := capability.Load(opts.Env)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	host, err := manifest.Namespace()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build environment", err)
	}
	catalog, reg, err := registry.LoadCatalog(catalogPath, host)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	environment := environmentName(opts.Name, catalog.Environment, manifest.Environment)
	formatter.VerboseLog("Running %d probe(s) against %s", reg.Len(), environment)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	// In JSON mode stdout carries only the response document.
	var report io.Writer = cmd.OutOrStdout()
	if opts.Format == "json" {
		report = cmd.ErrOrStderr()
	}

	runOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithOutput(report),
		harness.WithEnvironmentName(environment),
	}
	if opts.Parallel > 0 {
		runOpts = append(runOpts, harness.WithMaxParallel(opts.Parallel))
	}

	summary, err := harness.Run(ctx, host, reg.Catalog(), runOpts...)
	if err != nil {
		var incomplete *harness.IncompleteError
		if errors.As(err, &incomplete) {
			if opts.Format == "json" {
				_ = formatter.Error(ErrCodeRunIncomplete, err.Error(), map[string]int{
					"active":       incomplete.Active,
					"undispatched": incomplete.Undispatched,
				})
			}
			return WrapExitError(ExitFailure, "run did not complete", err)
		}
		return WrapExitError(ExitFailure, "harness error", err)
	}

	if opts.DBPath != "" {
		id, err := recordRun(cmd.Context(), opts.DBPath, summary)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		logger.Info("run recorded", slog.String("run_id", id), slog.String("db", opts.DBPath))
	}

	if opts.Format == "json" {
		return outputRunJSON(cmd, summary)
	}
	if summary.Fails > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d probe(s) failed", summary.Fails))
	}
	return nil
}

// environmentName picks the first non-empty name.
func environmentName(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return harness.DefaultEnvironmentName
}

// recordRun stores the summary in the history database.
func recordRun(ctx context.Context, dbPath string, summary *harness.Summary) (string, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close()

	return st.WriteRun(ctx, toRunRecord(summary))
}

func toRunRecord(s *harness.Summary) store.RunRecord {
	run := store.RunRecord{
		Environment:          s.Environment,
		Passes:               s.Passes,
		Fails:                s.Fails,
		Skipped:              s.Skipped,
		UndefinedAliasGroups: s.UndefinedAliasGroups,
		SuccessRate:          s.SuccessRate,
		Outcomes:             make([]store.OutcomeRecord, len(s.Outcomes)),
	}
	for i, o := range s.Outcomes {
		run.Outcomes[i] = store.OutcomeRecord{
			Index:               o.Index,
			Name:                o.Name,
			Status:              string(o.Status),
			Code:                string(o.Code),
			Message:             o.Message,
			Note:                o.Note,
			MissingDependencies: o.MissingDependencies,
			MissingAliases:      o.MissingAliases,
		}
	}
	return run
}

// outputRunJSON writes the summary as a CLIResponse on stdout.
func outputRunJSON(cmd *cobra.Command, summary *harness.Summary) error {
	response := CLIResponse{
		Status: "ok",
		Data:   summary,
	}
	if summary.Fails > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeProbesFailed,
			Message: fmt.Sprintf("%d probe(s) failed", summary.Fails),
		}
	}

	formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := formatter.encode(response); err != nil {
		return err
	}

	if summary.Fails > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d probe(s) failed", summary.Fails))
	}
	return nil
}
