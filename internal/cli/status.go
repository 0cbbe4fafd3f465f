package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/symdex/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status [dir]",
	Short: "Show stored snapshots",
	Long: `Status lists the snapshots stored in the crate's index database, newest
first, with the number of source files and symbols each one holds.

Examples:
  symdex status
  symdex status ../serde --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeStatus(cmd.Context(), cmd.OutOrStdout(), dirArg(args), globalOptions())
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the --json output of status.
type statusOutput struct {
	Database  string                 `json:"database"`
	Exists    bool                   `json:"exists"`
	SizeBytes int64                  `json:"size_bytes"`
	Snapshots []storage.SnapshotInfo `json:"snapshots"`
}

func executeStatus(ctx context.Context, w io.Writer, dir string, opts options) error {
	p, err := loadProject(dir, opts.ConfigFile)
	if err != nil {
		return err
	}
	defer p.close()

	out := statusOutput{Database: p.cfg.DBPath(p.root), Snapshots: []storage.SnapshotInfo{}}
	info, err := os.Stat(out.Database)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return fmt.Errorf("failed to stat database: %w", err)
	default:
		out.Exists = true
		out.SizeBytes = info.Size()

		store, err := storage.Open(out.Database)
		if err != nil {
			return err
		}
		defer store.Close()
		snaps, err := store.Snapshots(ctx)
		if err != nil {
			return err
		}
		if snaps != nil {
			out.Snapshots = snaps
		}
	}

	if opts.JSON {
		return writeJSON(w, out)
	}
	if !out.Exists {
		fmt.Fprintf(w, "No index found at %s\n", out.Database)
		fmt.Fprintln(w, "Run 'symdex index' to create one")
		return nil
	}

	fmt.Fprintf(w, "Database: %s (~%.1f MB)\n", out.Database, float64(out.SizeBytes)/(1024*1024))
	if len(out.Snapshots) == 0 {
		fmt.Fprintln(w, "No snapshots stored")
		return nil
	}
	fmt.Fprintf(w, "Snapshots (%d):\n", len(out.Snapshots))
	for i, s := range out.Snapshots {
		marker := " "
		if i == 0 {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s  %-10s files: %-6s symbols: %s\n",
			marker, s.ID, formatTimeSince(s.CreatedAt),
			formatNumber(len(s.Units)), formatNumber(s.SymbolCount))
	}
	return nil
}

// formatTimeSince formats t as time ago.
// Examples: "5m ago", "2h ago", "3d ago"
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return formatDuration(time.Since(t)) + " ago"
}

// formatDuration formats a duration in compact format.
// Examples: "5s", "1m", "1h 30m", "2h", "1d", "1d 3h", "3d"
func formatDuration(d time.Duration) string {
	seconds := int(d.Seconds())

	days := seconds / 86400
	hours := (seconds % 86400) / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh", days, hours)
		}
		return fmt.Sprintf("%dd", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%ds", secs)
}
