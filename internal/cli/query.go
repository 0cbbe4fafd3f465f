package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/symbols"
)

var (
	searchLimit  int
	diagUnit     string
	diagSeverity string
)

var showCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show an item's declaration and documentation",
	Long: `Show prints the hover view of one item: its qualified path, kind,
visibility, declaration header and doc comments. Paths that name a pub use
re-export are followed to the definition.

Examples:
  symdex show crate::shapes::Circle
  symdex show shapes::Circle::area --from-db`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeShow(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), args[0])
	},
}

var childrenCmd = &cobra.Command{
	Use:   "children <path>",
	Short: "Outline the items directly inside a module, type, trait or impl",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeChildren(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), args[0])
	},
}

var kindCmd = &cobra.Command{
	Use:   "kind <kind>",
	Short: "List every item of one kind",
	Long:  `Kind lists every item of the given kind in tree order. Kinds: ` + kindNames() + `.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeKind(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), args[0])
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <alias>",
	Short: "Explain a pub use re-export",
	Long: `Resolve shows what a re-export path points at one step further and the
definition at the end of its alias chain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeResolve(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), args[0])
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over names, signatures and doc comments",
	Long: `Search runs a query-string search over item names, paths, signatures and
docs. Field prefixes narrow the match: name:, path:, doc:, kind:.

Examples:
  symdex search radius
  symdex search 'kind:trait doc:serialize'`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeSearch(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), strings.Join(args, " "), searchLimit)
	},
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "List extraction diagnostics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeDiag(cmd.Context(), cmd.OutOrStdout(), projectDir, globalOptions(), diagUnit, diagSeverity)
	},
}

func init() {
	rootCmd.AddCommand(showCmd, childrenCmd, kindCmd, resolveCmd, searchCmd, diagCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (default from search.limit)")
	diagCmd.Flags().StringVar(&diagUnit, "unit", "", "only diagnostics of this source file")
	diagCmd.Flags().StringVar(&diagSeverity, "min-severity", "info", "lowest severity to show (info, warning, error)")
}

func kindNames() string {
	names := make([]string, 0, len(symbols.Kinds()))
	for _, k := range symbols.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

func executeShow(ctx context.Context, w io.Writer, dir string, opts options, path string) error {
	return withIndex(ctx, dir, opts, func(_ *project, idx *query.Index) error {
		sym, err := idx.Lookup(path)
		if errors.Is(err, query.ErrNotFound) {
			sym, err = idx.Canonical(path)
		}
		if err != nil {
			return err
		}
		if opts.JSON {
			return writeJSON(w, symbols.ViewOf(sym))
		}
		_, err = fmt.Fprint(w, symbols.Render(sym))
		return err
	})
}

func executeChildren(ctx context.Context, w io.Writer, dir string, opts options, path string) error {
	return withIndex(ctx, dir, opts, func(_ *project, idx *query.Index) error {
		children, err := idx.Children(path)
		if err != nil {
			return err
		}
		return writeSymbols(w, opts, children)
	})
}

func executeKind(ctx context.Context, w io.Writer, dir string, opts options, name string) error {
	kind, err := symbols.ParseKind(name)
	if err != nil {
		return fmt.Errorf("%w (want one of: %s)", err, kindNames())
	}
	return withIndex(ctx, dir, opts, func(_ *project, idx *query.Index) error {
		return writeSymbols(w, opts, idx.ByKind(kind))
	})
}

// resolveOutput is the --json output of resolve.
type resolveOutput struct {
	Alias     string        `json:"alias"`
	Written   string        `json:"written"`
	Target    *symbols.View `json:"target,omitempty"`
	Next      string        `json:"next,omitempty"`
	Canonical *symbols.View `json:"canonical,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func executeResolve(ctx context.Context, w io.Writer, dir string, opts options, alias string) error {
	return withIndex(ctx, dir, opts, func(_ *project, idx *query.Index) error {
		hop, err := idx.ResolveReExport(alias)
		if errors.Is(err, query.ErrNotFound) {
			return err
		}
		out := resolveOutput{
			Alias:   hop.Edge.Alias(),
			Written: hop.Edge.Written(),
			Next:    hop.Next,
		}
		if hop.Target != nil {
			v := symbols.ViewOf(hop.Target)
			out.Target = &v
		}
		if def, cerr := idx.Canonical(alias); cerr == nil {
			v := symbols.ViewOf(def)
			out.Canonical = &v
		} else {
			out.Error = cerr.Error()
		}

		if opts.JSON {
			return writeJSON(w, out)
		}
		fmt.Fprintf(w, "%s = %s\n", out.Alias, out.Written)
		switch {
		case out.Target != nil:
			fmt.Fprintf(w, "  -> %s (%s)\n", out.Target.Path, out.Target.Kind)
		case out.Next != "":
			fmt.Fprintf(w, "  -> %s (re-export)\n", out.Next)
		}
		if out.Canonical != nil {
			fmt.Fprintf(w, "  canonical: %s\n", out.Canonical.Path)
		} else {
			fmt.Fprintf(w, "  unresolved: %s\n", out.Error)
		}
		return nil
	})
}

func executeSearch(ctx context.Context, w io.Writer, dir string, opts options, q string, limit int) error {
	return withIndex(ctx, dir, opts, func(p *project, idx *query.Index) error {
		if limit <= 0 {
			limit = p.cfg.Search.Limit
		}
		hits, err := idx.Search(q, limit)
		if err != nil {
			return err
		}
		if opts.JSON {
			type hit struct {
				Path   string       `json:"path"`
				Kind   string       `json:"kind"`
				Score  float64      `json:"score"`
				Symbol symbols.View `json:"symbol"`
			}
			out := make([]hit, 0, len(hits))
			for _, h := range hits {
				out = append(out, hit{Path: h.Path, Kind: h.Kind, Score: h.Score, Symbol: symbols.ViewOf(h.Symbol)})
			}
			return writeJSON(w, out)
		}
		if len(hits) == 0 {
			fmt.Fprintln(w, "No results")
			return nil
		}
		for _, h := range hits {
			fmt.Fprintf(w, "%6.3f  %-16s %s\n", h.Score, h.Kind, h.Path)
			if doc := firstLine(h.Symbol.Doc()); doc != "" {
				fmt.Fprintf(w, "        %s\n", doc)
			}
		}
		return nil
	})
}

func executeDiag(ctx context.Context, w io.Writer, dir string, opts options, unit, minSeverity string) error {
	minSev, err := diag.ParseSeverity(minSeverity)
	if err != nil {
		return err
	}
	return withIndex(ctx, dir, opts, func(_ *project, idx *query.Index) error {
		out := make([]diag.Diagnostic, 0)
		for _, d := range idx.Diagnostics() {
			if unit != "" && d.Range.Unit != unit {
				continue
			}
			if d.Severity < minSev {
				continue
			}
			out = append(out, d)
		}
		if opts.JSON {
			return writeJSON(w, out)
		}
		for _, d := range out {
			fmt.Fprintln(w, d.String())
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "%d diagnostics\n", len(out))
		}
		return nil
	})
}

func writeSymbols(w io.Writer, opts options, syms []*symbols.Symbol) error {
	if opts.JSON {
		views := make([]symbols.View, 0, len(syms))
		for _, s := range syms {
			views = append(views, symbols.ViewOf(s))
		}
		return writeJSON(w, views)
	}
	for _, s := range syms {
		fmt.Fprintf(w, "%-16s %-14s %s  (%s)\n", s.Kind, s.Visibility, s.QualifiedName(), s.Range)
	}
	return nil
}

func firstLine(doc []string) string {
	for _, l := range doc {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}
