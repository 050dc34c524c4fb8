package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/plumage/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// TraceResult holds the change history of a collection or document.
type TraceResult struct {
	Collection string          `json:"collection"`
	ID         string          `json:"id,omitempty"`
	Timeline   []journal.Entry `json:"timeline"`
	Stats      TraceStats      `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Sets      int `json:"sets"`
	Deletes   int `json:"deletes"`
	Documents int `json:"documents"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <collection> [id]",
		Short: "Show the journaled history of a collection or document",
		Long: `Show every journaled change of a collection, or of one document.

The output includes:
- Timeline: every set and delete in sequence order
- Stats: counts of sets, deletes and distinct documents

Examples:
  plumage trace --db ./state.db user/people
  plumage trace --db ./state.db user/people p1 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id := ""
			if len(args) == 2 {
				id = args[1]
			}
			return runTrace(opts, args[0], id, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, collection, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "journal not found", err)
	}
	j, err := journal.Open(opts.Database, journal.WithLogger(opts.Logger()))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	timeline, err := readTimeline(ctx, j, collection, id)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeJournal, "failed to read journal", err)
	}
	result := TraceResult{
		Collection: collection,
		ID:         id,
		Timeline:   timeline,
		Stats:      calculateTraceStats(timeline),
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	target := collection
	if id != "" {
		target += "/" + id
	}
	if len(timeline) == 0 {
		fmt.Fprintf(w, "No changes found for %s\n", target)
		return nil
	}
	fmt.Fprintf(w, "History of %s\n\n", target)
	for _, e := range timeline {
		at := time.UnixMilli(e.RecordedAt).UTC().Format(time.RFC3339)
		switch e.Op {
		case journal.OpDelete:
			fmt.Fprintf(w, "[%3d] %s delete %s\n", e.Seq, at, e.DocID)
		default:
			fmt.Fprintf(w, "[%3d] %s set    %s %s\n", e.Seq, at, e.DocID, render(e.Item))
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%d set(s), %d delete(s), %d document(s)\n",
		result.Stats.Sets, result.Stats.Deletes, result.Stats.Documents)
	return nil
}

func readTimeline(ctx context.Context, j *journal.Journal, collection, id string) ([]journal.Entry, error) {
	if id != "" {
		return j.ReadDocument(ctx, collection, id)
	}
	all, err := j.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := []journal.Entry{}
	for _, e := range all {
		if e.Collection == collection {
			out = append(out, e)
		}
	}
	return out, nil
}

func calculateTraceStats(timeline []journal.Entry) TraceStats {
	var stats TraceStats
	docs := make(map[string]bool)
	for _, e := range timeline {
		if e.Op == journal.OpDelete {
			stats.Deletes++
		} else {
			stats.Sets++
		}
		docs[e.DocID] = true
	}
	stats.Documents = len(docs)
	return stats
}
