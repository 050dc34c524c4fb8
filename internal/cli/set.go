package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/plumage/internal/journal"
	"github.com/roach88/plumage/internal/store"
)

// SetOptions holds flags for the set command.
type SetOptions struct {
	*RootOptions
	Database string
	ID       string
	Value    string
	Merge    bool
	Replace  bool
	Delete   bool
	Cascade  bool
}

// SetResult reports one journaled write.
type SetResult struct {
	Collection string        `json:"collection"`
	Document   *store.Result `json:"document,omitempty"`
	InUse      bool          `json:"inUse,omitempty"`
	Deleted    bool          `json:"deleted,omitempty"`
	Seq        int64         `json:"seq"`
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "set <manifests-dir> <collection>",
		Short: "Write or delete one document in a journaled store",
		Long: `Write or delete one document in a journaled store.

The journal is replayed into a store set up from the manifests, the write
is validated and applied, and the change is appended to the journal.
Values are YAML or JSON.

Examples:
  plumage set --db ./state.db ./plugins user/people --value '{name: Al}'
  plumage set --db ./state.db ./plugins user/people --id p1 --merge --value '{name: Alice}'
  plumage set --db ./state.db ./plugins user/people --id p1 --delete --cascade`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSet(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.ID, "id", "", "document ID")
	cmd.Flags().StringVar(&opts.Value, "value", "", "document value as YAML or JSON")
	cmd.Flags().BoolVar(&opts.Merge, "merge", false, "merge into the stored object")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace the stored document")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the document instead of writing")
	cmd.Flags().BoolVar(&opts.Cascade, "cascade", false, "with --delete, also delete unreferenced targets")

	return cmd
}

func runSet(opts *SetOptions, dir, collection string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Delete == (opts.Value != "") {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "exactly one of --value and --delete is required", nil)
	}

	st, _, err := OpenStore(dir, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), "failed to open store", err)
	}
	j, err := journal.Open(opts.Database, journal.WithLogger(logger))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	replayed, err := j.Replay(ctx, st)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to replay journal", err)
	}
	formatter.VerboseLog("Replayed %d entries", replayed.Applied)

	detach, err := j.Attach(ctx, st)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to attach journal", err)
	}
	defer detach()

	result := SetResult{Collection: collection}
	if opts.Delete {
		res, err := st.DeleteValue(store.DeleteRequest{Name: collection, ID: opts.ID, Cascade: opts.Cascade})
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeValue, "delete failed", err)
		}
		result.InUse, result.Deleted = res.InUse, res.Deleted
	} else {
		var value any
		if err := yaml.Unmarshal([]byte(opts.Value), &value); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeParse, "invalid --value", err)
		}
		res, err := st.SetValue(store.SetRequest{
			Name:    collection,
			ID:      opts.ID,
			Value:   value,
			Merge:   opts.Merge,
			Replace: opts.Replace,
		})
		if err != nil {
			code := ErrCodeValue
			if store.IsSchemaError(err) {
				code = ErrCodeSchema
			}
			return formatter.Fail(ExitFailure, code, "write rejected", err)
		}
		result.Document = res
	}
	result.Seq = j.LastSeq()

	if formatter.JSON() {
		return formatter.Success(result)
	}
	w := formatter.Writer
	switch {
	case result.Document != nil:
		fmt.Fprintf(w, "✓ set %s/%s (seq %d)\n", collection, result.Document.ID, result.Seq)
		fmt.Fprintf(w, "  %s\n", render(result.Document.Item))
	case result.InUse:
		fmt.Fprintf(w, "✗ %s/%s is still referenced\n", collection, opts.ID)
	case result.Deleted:
		fmt.Fprintf(w, "✓ deleted %s/%s (seq %d)\n", collection, opts.ID, result.Seq)
	default:
		fmt.Fprintf(w, "No document %s/%s\n", collection, opts.ID)
	}
	if result.InUse {
		return NewExitError(ExitFailure, "document in use")
	}
	return nil
}
