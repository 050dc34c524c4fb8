package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/plumage/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds every compiled schema entry.
type CompilationResult struct {
	Plugins []string          `json:"plugins"`
	Entries []schema.Compiled `json:"entries"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Entries     int
	Collections int
	Relations   int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <manifests-dir>",
		Short: "Compile plugin schemas to path-addressed entries",
		Long: `Compile the schemas of every plugin manifest in a directory.

Nested schemas are flattened into one entry per path, such as
"user/people/items/friend". The entries are printed or written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	st, manifests, err := OpenStore(dir, opts.Logger())
	if err != nil {
		return formatter.Fail(ExitFailure, loadErrorCode(err), "compilation failed", err)
	}

	result := &CompilationResult{}
	for _, m := range manifests {
		result.Plugins = append(result.Plugins, m.Name)
	}
	for _, path := range st.SchemaPaths() {
		entry, _ := st.Schema(path)
		formatter.VerboseLog("Compiled %s (%s)", path, entry.Type)
		result.Entries = append(result.Entries, schema.Compiled{Path: path, Entry: entry})
	}
	stats := calculateStats(result)

	if opts.Output != "" {
		if err := writeEntries(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "writing output file", err)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, c := range result.Entries {
		fmt.Fprintf(w, "%-40s %s%s\n", c.Path, c.Entry.Type, describeOptions(c.Entry))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "✓ Compiled %d plugin(s): %d entries, %d collection(s), %d relation(s)\n",
		len(result.Plugins), stats.Entries, stats.Collections, stats.Relations)
	if opts.Output != "" {
		fmt.Fprintf(w, "  Written to %s\n", opts.Output)
	}
	return nil
}

func describeOptions(e *schema.Entry) string {
	var parts []string
	if e.Options.Required {
		parts = append(parts, "required")
	}
	if e.Options.Relation != "" {
		parts = append(parts, "→ "+e.Options.Relation)
	}
	if e.Options.UniqueItems {
		parts = append(parts, "unique")
	}
	if !e.AllowsAdditional() {
		parts = append(parts, "closed")
	}
	if e.Options.Default != nil {
		parts = append(parts, "default")
	}
	if len(parts) == 0 {
		return ""
	}
	return " [" + strings.Join(parts, ", ") + "]"
}

func calculateStats(r *CompilationResult) CompilationStats {
	stats := CompilationStats{Entries: len(r.Entries)}
	for _, c := range r.Entries {
		if c.Entry.Type == schema.TypeCollection {
			stats.Collections++
		}
		if c.Entry.Options.Relation != "" {
			stats.Relations++
		}
	}
	return stats
}

func writeEntries(r *CompilationResult, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
