package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/symdex/internal/query"
)

// ServerName is reported to MCP clients during initialisation.
const ServerName = "symdex"

// IndexSource supplies the index a tool call is answered from. The index stays
// open until release is called.
type IndexSource interface {
	Acquire() (idx *query.Index, release func())
}

// Server exposes a query index to editors over MCP. The index can be replaced
// while requests are in flight; each call sees one consistent index.
type Server struct {
	mcp     *server.MCPServer
	index   atomic.Pointer[query.Index]
	metrics *ReloadMetrics

	// Held for reading by every call using an index; a replaced index is
	// closed only once the write lock is obtained.
	inUse sync.RWMutex
}

// NewServer registers every symdex tool and serves idx until it is replaced.
func NewServer(idx *query.Index, version string) (*Server, error) {
	if idx == nil {
		return nil, errors.New("index is required")
	}

	s := &Server{
		mcp: server.NewMCPServer(
			ServerName,
			version,
			server.WithToolCapabilities(true),
		),
		metrics: NewReloadMetrics(),
	}
	s.index.Store(idx)

	AddSymbolLookupTool(s.mcp, s)
	AddSymbolChildrenTool(s.mcp, s)
	AddSymbolsByKindTool(s.mcp, s)
	AddResolveReExportTool(s.mcp, s)
	AddSearchDocsTool(s.mcp, s)
	AddListDiagnosticsTool(s.mcp, s)
	AddIndexStatsTool(s.mcp, s, s.metrics)

	return s, nil
}

// Index returns the index currently being served.
func (s *Server) Index() *query.Index {
	return s.index.Load()
}

// Acquire returns the current index and a func that must be called once the
// caller is done with it.
func (s *Server) Acquire() (*query.Index, func()) {
	s.inUse.RLock()
	return s.index.Load(), s.inUse.RUnlock
}

// MCP returns the underlying mcp-go server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Metrics returns the reload statistics.
func (s *Server) Metrics() *ReloadMetrics {
	return s.metrics
}

// Reload builds a fresh index and swaps it in. On failure the current index
// stays in place. The replaced index is closed after the calls still using it
// have finished.
func (s *Server) Reload(ctx context.Context, build func(context.Context) (*query.Index, error)) error {
	start := time.Now()
	idx, err := build(ctx)
	if err == nil && idx == nil {
		err = errors.New("reload produced no index")
	}
	if err != nil {
		s.metrics.RecordReload(time.Since(start), err, 0)
		return fmt.Errorf("reload failed: %w", err)
	}

	old := s.index.Swap(idx)
	s.metrics.RecordReload(time.Since(start), nil, idx.Stats().Symbols)
	if old != nil && old != idx {
		if err := s.retire(old); err != nil {
			log.Printf("Warning: failed to close previous index: %v", err)
		}
	}
	return nil
}

// retire waits for in-flight calls to release old, then closes it.
func (s *Server) retire(old *query.Index) error {
	s.inUse.Lock()
	defer s.inUse.Unlock()
	return old.Close()
}

// Serve runs the server on stdio until the client disconnects, ctx is
// cancelled, or the process receives SIGINT/SIGTERM.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the index currently being served.
func (s *Server) Close() error {
	if idx := s.index.Swap(nil); idx != nil {
		return s.retire(idx)
	}
	return nil
}
