package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symdex/internal/storage"
)

var cleanKeepFlag int

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [dir]",
	Short: "Delete the stored index",
	Long: `Clean removes the crate's snapshot database and its lock file. The next
query with --from-db fails until 'symdex index' runs again.

With --keep N only the N newest snapshots survive and the database stays.

The configuration file (.symdex/config.yml) is preserved.

Examples:
  # Remove the whole database
  symdex clean

  # Keep the newest snapshot only
  symdex clean --keep 1
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeClean(cmd.Context(), cmd.OutOrStdout(), dirArg(args), globalOptions(), cleanKeepFlag)
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().IntVar(&cleanKeepFlag, "keep", 0, "prune to this many snapshots instead of deleting the database")
}

func executeClean(ctx context.Context, w io.Writer, dir string, opts options, keep int) error {
	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return err
	}
	defer p.close()

	dbPath := p.cfg.DBPath(p.root)
	info, err := os.Stat(dbPath)
	if os.IsNotExist(err) {
		if !opts.Quiet {
			fmt.Fprintln(w, "No index found for this crate")
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat database: %w", err)
	}

	if keep > 0 {
		store, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer store.Close()
		pruned, err := store.Prune(ctx, keep)
		if err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "✓ Pruned %d snapshots (kept %d)\n", pruned, keep)
		}
		return nil
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm", dbPath + ".lock"} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
	}

	if !opts.Quiet {
		fmt.Fprintf(w, "✓ Removed %s (~%.1f MB)\n", dbPath, sizeMB)
		fmt.Fprintln(w, "Next 'symdex index' will store a fresh snapshot")
	}
	return nil
}
