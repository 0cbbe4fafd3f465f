package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symdex/internal/crosscheck"
)

// ErrCrossCheckFailed is returned by check when tree-sitter disagrees with the
// extractor on at least one unit.
var ErrCrossCheckFailed = errors.New("cross-check found disagreements")

var checkCmd = &cobra.Command{
	Use:   "check [dir]",
	Short: "Compare the extracted items against tree-sitter-rust",
	Long: `Check parses every source file a second time with tree-sitter-rust and
compares the items both parsers found. It lists items only one side saw and
items whose start line differs, and exits non-zero on any disagreement.

Examples:
  symdex check
  symdex check --json > report.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := executeCheck(cmd.Context(), cmd.OutOrStdout(), dirArg(args), globalOptions())
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func executeCheck(ctx context.Context, w io.Writer, dir string, opts options) ([]*crosscheck.Report, error) {
	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	defer p.close()

	units, err := p.discover()
	if err != nil {
		return nil, err
	}
	results, err := p.analyzer(nil).AnalyzeAll(ctx, units)
	if err != nil {
		return nil, err
	}
	reports, err := crossCheck(units, results)
	if err != nil {
		return nil, err
	}

	failed := 0
	for _, r := range reports {
		if !r.Clean() {
			failed++
		}
	}

	if opts.JSON {
		if err := writeJSON(w, reports); err != nil {
			return reports, err
		}
	} else {
		for _, r := range reports {
			if r.Clean() {
				if opts.Verbose {
					fmt.Fprintf(w, "ok    %s (%d items)\n", r.Unit, r.Matched)
				}
				continue
			}
			writeReport(w, r)
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "%d of %d files agree\n", len(reports)-failed, len(reports))
		}
	}

	if failed > 0 {
		return reports, fmt.Errorf("%w in %d files", ErrCrossCheckFailed, failed)
	}
	return reports, nil
}

func writeReport(w io.Writer, r *crosscheck.Report) {
	fmt.Fprintf(w, "FAIL  %s (%d matched)\n", r.Unit, r.Matched)
	if r.SyntaxErrors {
		fmt.Fprintln(w, "      tree-sitter reported syntax errors")
	}
	for _, e := range r.Missing {
		fmt.Fprintf(w, "      missing %-12s %s (line %d)\n", e.Kind, e.Path, e.Line)
	}
	for _, e := range r.Extra {
		fmt.Fprintf(w, "      extra   %-12s %s (line %d)\n", e.Kind, e.Path, e.Line)
	}
	for _, s := range r.Shifted {
		fmt.Fprintf(w, "      shifted %-12s %s (line %d, tree-sitter %d)\n",
			s.Engine.Kind, s.Engine.Path, s.Engine.Line, s.TreeSitter.Line)
	}
}
