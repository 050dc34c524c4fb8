package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/plumage/internal/plugin"
	"github.com/roach88/plumage/internal/store"
)

// ValidationError is one plugin that failed to set up.
type ValidationError struct {
	Plugin  string `json:"plugin"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Plugins []string          `json:"plugins"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifests-dir>",
		Short: "Validate plugin manifests",
		Long: `Validate every plugin manifest in a directory.

Each manifest is parsed, its schema compiled and its defaults checked
against that schema. All plugins are reported, not just the first
failure.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	manifests, err := LoadManifests(dir)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load manifests", err)
	}
	formatter.VerboseLog("Found %d manifest(s) in %s", len(manifests), dir)

	st, err := store.New(store.WithLogger(opts.Logger()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create store", err)
	}

	result := ValidationResult{Valid: true, Plugins: []string{}}
	for _, m := range manifests {
		formatter.VerboseLog("Validating plugin: %s", m.Name)
		result.Plugins = append(result.Plugins, m.Name)
		if err := plugin.Setup(st, m); err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Plugin:  m.Name,
				Code:    setupErrorCode(err),
				Message: err.Error(),
			})
		}
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: result.Errors[0].Code, Message: result.Errors[0].Message}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(formatter.Writer, "✓ All %d plugin(s) valid\n", len(result.Plugins))
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		for _, e := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s [%s]: %s\n", e.Plugin, e.Code, e.Message)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
