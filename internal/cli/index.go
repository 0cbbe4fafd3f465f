package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symdex/internal/analyzer"
	"github.com/mvp-joe/symdex/internal/crosscheck"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/storage"
)

var keepFlag int

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Analyse the crate and store a snapshot of its symbols",
	Long: `Index discovers the crate's source files, extracts every item with its
documentation, resolves pub use re-exports and stores the result in
.symdex/index.db so later queries can use --from-db.

Examples:
  # Index the current directory
  symdex index

  # Index another crate without progress output
  symdex index ../serde --quiet

  # Keep only the two newest snapshots
  symdex index --keep 2
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().IntVar(&keepFlag, "keep", 5, "number of snapshots to keep")
}

// indexSummary is the --json output of index.
type indexSummary struct {
	SnapshotID  string               `json:"snapshot_id"`
	Stats       query.Stats          `json:"stats"`
	Diagnostics []diag.Diagnostic    `json:"diagnostics"`
	CrossCheck  []*crosscheck.Report `json:"cross_check,omitempty"`
	Pruned      int                  `json:"pruned"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(os.Stderr, "\nInterrupted! Cancelling indexing...")
			cancel()
		case <-ctx.Done():
		}
	}()

	_, err := executeIndex(ctx, cmd.OutOrStdout(), dirArg(args), globalOptions(), keepFlag)
	return err
}

func executeIndex(ctx context.Context, w io.Writer, dir string, opts options, keep int) (*indexSummary, error) {
	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	defer p.close()

	quiet := opts.Quiet || opts.JSON
	progress := newProgressReporter(w, quiet)

	start := time.Now()
	units, err := p.discover()
	if err != nil {
		return nil, err
	}
	progress.OnDiscoveryComplete(len(units))
	if opts.Verbose {
		log.Printf("[TIMING] Discovery took %v", time.Since(start))
	}

	a := p.analyzer(progress.OnUnitAnalysed)
	phase := time.Now()
	results, err := a.AnalyzeAll(ctx, units)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("indexing cancelled")
		}
		return nil, err
	}
	if opts.Verbose {
		log.Printf("[TIMING] Analysis took %v", time.Since(phase))
	}

	phase = time.Now()
	idx, diags, err := a.Merge(results)
	if err != nil {
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	defer idx.Close()
	if opts.Verbose {
		log.Printf("[TIMING] Merge and re-export resolution took %v", time.Since(phase))
	}

	summary := &indexSummary{Stats: idx.Stats(), Diagnostics: diags}

	if p.cfg.Analysis.CrossCheck {
		phase = time.Now()
		reports, err := crossCheck(units, results)
		if err != nil {
			return nil, err
		}
		for _, r := range reports {
			if !r.Clean() {
				summary.CrossCheck = append(summary.CrossCheck, r)
				if !quiet {
					log.Printf("Warning: %s: tree-sitter disagrees on %d items", r.Unit, len(r.Missing)+len(r.Extra)+len(r.Shifted))
				}
			}
		}
		if opts.Verbose {
			log.Printf("[TIMING] Cross-check took %v", time.Since(phase))
		}
	}

	phase = time.Now()
	store, err := storage.Open(p.cfg.DBPath(p.root))
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if summary.SnapshotID, err = store.SaveSnapshot(ctx, idx); err != nil {
		return nil, err
	}
	if summary.Pruned, err = store.Prune(ctx, keep); err != nil {
		log.Printf("Warning: failed to prune old snapshots: %v", err)
	}
	if opts.Verbose {
		log.Printf("[TIMING] Snapshot write took %v", time.Since(phase))
		if p.cache != nil {
			log.Printf("Analysis cache: %d entries, %d hits, %d misses", p.cache.Len(), p.cache.Hits(), p.cache.Misses())
		}
	}

	if opts.JSON {
		return summary, writeJSON(w, summary)
	}
	progress.OnComplete(summary.Stats, diags)
	if opts.Quiet {
		fmt.Fprintf(w, "Indexing complete: %d symbols in %.2fs\n", summary.Stats.Symbols, time.Since(start).Seconds())
	} else {
		fmt.Fprintf(w, "  Snapshot:    %s\n", summary.SnapshotID)
	}
	return summary, nil
}

// crossCheck runs tree-sitter over every unit. results[i] must belong to
// units[i].
func crossCheck(units []analyzer.Unit, results []*analyzer.Result) ([]*crosscheck.Report, error) {
	reports := make([]*crosscheck.Report, 0, len(units))
	for i, u := range units {
		r, err := crosscheck.Check(u.ID, u.Source, results[i].Root)
		if err != nil {
			return nil, fmt.Errorf("cross-check %s: %w", u.ID, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}
