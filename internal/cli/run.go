package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plumage/internal/harness"
	"github.com/roach88/plumage/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario file against a fresh store and print every step and
listener notification.

With --db, every change is also journaled to a SQLite database that
"plumage replay" and "plumage trace" can read later.

Example:
  plumage run ./scenarios/cart_push.yaml
  plumage run --db ./state.db ./scenarios/cart_push.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal changes to this SQLite database")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeParse, "failed to load scenario", err)
	}

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Database != "" {
		j, err := journal.Open(opts.Database, journal.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer j.Close()
		runOpts = append(runOpts, harness.WithJournal(j))
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "scenario could not run", err)
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeValue, Message: fmt.Sprintf("%d expectation(s) failed", len(result.Errors))}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		printTrace(formatter, result.Trace)
		fmt.Fprintln(formatter.Writer)
		if result.Pass {
			fmt.Fprintf(formatter.Writer, "✓ %s\n", scenario.Name)
		} else {
			fmt.Fprintf(formatter.Writer, "✗ %s\n", scenario.Name)
			for _, e := range result.Errors {
				fmt.Fprintf(formatter.Writer, "  %s\n", e)
			}
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}

func printTrace(f *OutputFormatter, trace []harness.TraceEvent) {
	for _, ev := range trace {
		target := ev.Collection
		if ev.ID != "" {
			target += "/" + ev.ID
		}
		switch ev.Type {
		case harness.TraceNotify:
			fmt.Fprintf(f.Writer, "[%3d]   → %s %s %s\n", ev.Seq, ev.Listener, ev.Event, target)
		default:
			fmt.Fprintf(f.Writer, "[%3d] %-10s %-30s %s\n", ev.Seq, ev.Op, target, ev.Outcome)
		}
	}
}
