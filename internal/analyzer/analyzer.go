// Package analyzer runs the extraction pipeline over source units and merges
// the per-unit trees into a queryable index.
//
// Per unit: tokenize, group comments, parse items, associate docs, build the
// unit tree. Across units: merge by module path, resolve re-exports, index.
package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/mvp-joe/symdex/internal/comments"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/docassoc"
	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/parser"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/reexport"
	"github.com/mvp-joe/symdex/internal/symbols"
	"github.com/mvp-joe/symdex/internal/tree"
)

// DefaultMaxDiagnostics caps diagnostics kept per unit and per merge.
const DefaultMaxDiagnostics = 1000

// Unit is one source file of a crate.
type Unit struct {
	ID     string
	Source []byte
	// ModulePath is derived from ID when nil.
	ModulePath []string
}

// Result is the partial tree of one unit. Results may be shared through the
// cache and must be treated as read-only.
type Result struct {
	Unit        string
	ModulePath  []string
	Root        *symbols.Symbol
	Diagnostics []diag.Diagnostic
	// Dropped counts diagnostics discarded once the cap was reached.
	Dropped int
}

// Analyzer runs the pipeline with fixed options. It is safe for concurrent use.
type Analyzer struct {
	workers          int
	maxDiagnostics   int
	reportSuperseded bool
	search           bool
	cache            *Cache
	progress         func(done, total int)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithWorkers bounds AnalyzeAll parallelism. Zero or less uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(a *Analyzer) { a.workers = n }
}

// WithMaxDiagnostics caps stored diagnostics. Zero or less means no cap.
func WithMaxDiagnostics(n int) Option {
	return func(a *Analyzer) { a.maxDiagnostics = n }
}

// WithReportSuperseded reports doc blocks dropped in favour of a nearer block.
func WithReportSuperseded(on bool) Option {
	return func(a *Analyzer) { a.reportSuperseded = on }
}

// WithSearch builds the full-text index when merging.
func WithSearch(on bool) Option {
	return func(a *Analyzer) { a.search = on }
}

// WithCache reuses results for units whose content has not changed.
func WithCache(c *Cache) Option {
	return func(a *Analyzer) { a.cache = c }
}

// WithProgress is called after each unit AnalyzeAll finishes.
func WithProgress(fn func(done, total int)) Option {
	return func(a *Analyzer) { a.progress = fn }
}

// New returns an Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{maxDiagnostics: DefaultMaxDiagnostics}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the per-unit pipeline with default options.
func Analyze(u Unit) *Result {
	return New().Analyze(u)
}

// Merge merges results with default options.
func Merge(results []*Result) (*query.Index, []diag.Diagnostic, error) {
	return New().Merge(results)
}

// Analyze runs the per-unit pipeline. It never fails: problems in the source
// are reported as diagnostics next to the partial tree.
func (a *Analyzer) Analyze(u Unit) *Result {
	modPath := u.ModulePath
	if modPath == nil {
		modPath = tree.ModulePath(u.ID)
	}

	var key string
	if a.cache != nil {
		key = a.cacheKey(u.ID, modPath, u.Source)
		if r, ok := a.cache.Get(key); ok {
			return r
		}
	}

	bag := diag.NewBag(a.maxDiagnostics)
	toks, lexDiags := lexer.Tokenize(u.Source)
	bag.AddAll(lexDiags)
	f, parseDiags := parser.Parse(toks)
	bag.AddAll(parseDiags)
	assoc := docassoc.Associate(f, comments.Group(toks), docassoc.Options{
		ReportSuperseded: a.reportSuperseded,
	})
	bag.AddAll(assoc.Diagnostics)
	root := tree.Build(u.ID, modPath, f, assoc)

	bag.Sort()
	r := &Result{
		Unit:        u.ID,
		ModulePath:  modPath,
		Root:        root,
		Diagnostics: diag.WithUnit(bag.Items(), u.ID),
		Dropped:     bag.Dropped(),
	}
	if a.cache != nil {
		a.cache.Set(key, r)
	}
	return r
}

func (a *Analyzer) cacheKey(id string, modPath []string, src []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%t\x00%d\x00", id, strings.Join(modPath, "::"), a.reportSuperseded, a.maxDiagnostics)
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

// AnalyzeAll analyses units in parallel. Results keep the order of units.
// It stops early only when ctx is cancelled.
func (a *Analyzer) AnalyzeAll(ctx context.Context, units []Unit) ([]*Result, error) {
	results := make([]*Result, len(units))
	if len(units) == 0 {
		return results, nil
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(workers, len(units)))
	for i, u := range units {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			// Each slot is written by exactly one goroutine.
			results[i] = a.Analyze(u)
			if a.progress != nil {
				a.progress(int(done.Add(1)), len(units))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}
	return results, nil
}

// Merge grafts the unit trees into one forest, resolves re-exports and builds
// the index. The cached unit trees are cloned first and never modified.
// Diagnostics from every stage are returned sorted and deduplicated.
func (a *Analyzer) Merge(results []*Result) (*query.Index, []diag.Diagnostic, error) {
	bag := diag.NewBag(a.maxDiagnostics)
	roots := make([]*symbols.Symbol, 0, len(results))
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if r == nil {
			continue
		}
		roots = append(roots, symbols.Clone(r.Root))
		ids = append(ids, r.Unit)
		bag.AddAll(r.Diagnostics)
	}
	sort.Strings(ids)

	root, mergeDiags := tree.Merge(roots)
	bag.AddAll(mergeDiags)
	bag.AddAll(reexport.Resolve(root))
	bag.Sort()
	bag.Dedup()
	diags := bag.Items()

	opts := []query.Option{query.WithDiagnostics(diags), query.WithUnits(ids)}
	if a.search {
		opts = append(opts, query.WithSearch())
	}
	idx, err := query.NewIndex(root, opts...)
	if err != nil {
		return nil, diags, fmt.Errorf("failed to build index: %w", err)
	}
	return idx, diags, nil
}

// Run analyses and merges units in one call.
func (a *Analyzer) Run(ctx context.Context, units []Unit) (*query.Index, []diag.Diagnostic, error) {
	results, err := a.AnalyzeAll(ctx, units)
	if err != nil {
		return nil, nil, err
	}
	return a.Merge(results)
}
