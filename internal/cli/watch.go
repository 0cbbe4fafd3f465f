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

	"github.com/mvp-joe/symdex/internal/watcher"
)

var watchKeepFlag int

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-index the crate whenever a source file changes",
	Long: `Watch indexes the crate once, then watches its source directories and
stores a fresh snapshot after every burst of changes to .rs files. Changes
that arrive within watch.debounce_ms of each other are handled together.

Press Ctrl+C to stop.

Examples:
  symdex watch
  symdex watch ../serde --keep 2`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return executeWatch(ctx, cmd.OutOrStdout(), dirArg(args), globalOptions(), watchKeepFlag)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().IntVar(&watchKeepFlag, "keep", 5, "number of snapshots to keep")
}

// executeWatch blocks until ctx is cancelled.
func executeWatch(ctx context.Context, w io.Writer, dir string, opts options, keep int) error {
	if _, err := executeIndex(ctx, w, dir, opts, keep); err != nil {
		return err
	}

	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return err
	}
	defer p.close()

	fw, err := newProjectWatcher(p)
	if err != nil {
		return err
	}
	defer fw.Stop()

	err = fw.Start(ctx, func(files []string) {
		if !opts.Quiet {
			log.Printf("Detected %d changed files, re-indexing...", len(files))
		}
		if err := p.reindex(ctx, keep, opts.Verbose); err != nil {
			log.Printf("Warning: re-index failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	if !opts.Quiet {
		log.Printf("Watching %s for changes (Ctrl+C to stop)", p.root)
	}

	select {
	case <-ctx.Done():
	case <-fw.Done():
	}
	return nil
}

// newProjectWatcher watches the crate root with the project's include and
// ignore patterns.
func newProjectWatcher(p *project) (*watcher.Watcher, error) {
	debounce := time.Duration(p.cfg.Watch.DebounceMS) * time.Millisecond
	return watcher.New([]string{p.root},
		watcher.WithDebounce(debounce),
		watcher.WithFilter(p.disc.Keep),
	)
}

// reindex analyses the crate again and stores the result as a new snapshot.
func (p *project) reindex(ctx context.Context, keep int, verbose bool) error {
	start := time.Now()
	idx, _, err := p.build(ctx, nil)
	if err != nil {
		return err
	}
	defer idx.Close()

	id, err := p.save(ctx, idx)
	if err != nil {
		return err
	}
	if keep > 0 {
		if err := p.prune(ctx, keep); err != nil {
			log.Printf("Warning: failed to prune old snapshots: %v", err)
		}
	}
	if verbose {
		log.Printf("[TIMING] Re-index took %v", time.Since(start))
	}
	log.Printf("Stored snapshot %s (%s symbols)", id, formatNumber(idx.Stats().Symbols))
	return nil
}
