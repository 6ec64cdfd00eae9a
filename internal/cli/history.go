package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/capprobe/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    string // optional - show one run with its outcomes
}

// HistoryResult holds the runs listed by the history command.
type HistoryResult struct {
	Runs []store.RunRecord `json:"runs"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded with "capprobe run --db", newest first.

Examples:
  capprobe history --db ./capprobe.db
  capprobe history --db ./capprobe.db --limit 5
  capprobe history --db ./capprobe.db --run 0190f1c2-... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show a single run with its outcomes")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Opening would create an empty database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Database), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrRunNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", opts.RunID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
		}
		if err != nil {
			_ = formatter.Error(ErrCodeStore, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(run)
		}
		printRun(formatter, run, true)
		return nil
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	formatter.VerboseLog("Found %d run(s) in %s", len(runs), opts.Database)

	if formatter.Format == "json" {
		if runs == nil {
			runs = []store.RunRecord{}
		}
		return formatter.Success(HistoryResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded")
		return nil
	}
	for _, run := range runs {
		printRun(formatter, run, false)
	}
	return nil
}

func printRun(formatter *OutputFormatter, run store.RunRecord, withOutcomes bool) {
	w := formatter.Writer
	fmt.Fprintf(w, "%s  %s  %s  %d%% (%d passed, %d failed, %d skipped, %d missing aliases)\n",
		run.ID,
		run.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		run.Environment,
		run.SuccessRate,
		run.Passes,
		run.Fails,
		run.Skipped,
		run.UndefinedAliasGroups,
	)
	if !withOutcomes {
		return
	}
	for _, o := range run.Outcomes {
		line := fmt.Sprintf("  [%d] %-7s %s", o.Index, o.Status, o.Name)
		if o.Code != "" {
			line += fmt.Sprintf(" %s: %s", o.Code, o.Message)
		}
		if o.Note != "" {
			line += " • " + o.Note
		}
		fmt.Fprintln(w, line)
	}
}
