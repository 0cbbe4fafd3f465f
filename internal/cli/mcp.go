package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mvp-joe/symdex/internal/mcp"
	"github.com/mvp-joe/symdex/internal/query"
)

var mcpWatchFlag bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [dir]",
	Short: "Start the MCP server for symbol and doc lookup",
	Long: `Start the Model Context Protocol (MCP) server that lets coding assistants
look up the crate's items, their docs and re-exports.

The MCP server:
- Analyses the crate on startup, or loads the last snapshot with --from-db
- Provides symbol_lookup, symbol_children, symbols_by_kind, resolve_reexport,
  search_docs, list_diagnostics and index_stats tools
- Reloads the index when sources change if --watch is set
- Communicates via stdio (standard MCP transport)

Example:
  symdex mcp --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&mcpWatchFlag, "watch", false, "reload the index when source files change")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := globalOptions()
	p, err := loadProject(dirArg(args), opts.ConfigFile)
	if err != nil {
		return err
	}
	defer p.close()

	// stdout carries the protocol; everything else goes to stderr.
	fmt.Fprintf(os.Stderr, "symdex MCP Server %s\n", Version)
	fmt.Fprintf(os.Stderr, "Crate Root: %s\n", p.root)
	if opts.FromDB {
		fmt.Fprintf(os.Stderr, "Snapshot DB: %s\n", p.cfg.DBPath(p.root))
	}
	fmt.Fprintln(os.Stderr)

	idx, err := p.openIndex(ctx, opts.FromDB)
	if err != nil {
		return err
	}
	server, err := mcpserver.NewServer(idx, Version)
	if err != nil {
		idx.Close()
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	if mcpWatchFlag {
		fw, err := newProjectWatcher(p)
		if err != nil {
			return err
		}
		defer fw.Stop()

		build := func(ctx context.Context) (*query.Index, error) {
			idx, _, err := p.build(ctx, nil)
			return idx, err
		}
		err = fw.Start(ctx, func(files []string) {
			if err := server.Reload(ctx, build); err != nil {
				log.Printf("Warning: %v", err)
				return
			}
			log.Printf("Reloaded index after %d changed files", len(files))
		})
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
	}

	// Serve (blocks until shutdown)
	return server.Serve(ctx)
}
