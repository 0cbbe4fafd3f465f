// Package query serves lookups over a resolved symbol forest.
//
// An Index is built once from a merged and resolved tree and is read-only
// afterwards, so any number of goroutines may query it concurrently.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/symbols"
)

var (
	// ErrNotFound is returned when no symbol or alias exists at a path.
	ErrNotFound = errors.New("not found")
	// ErrCyclicReExport is returned when an alias chain loops back on itself.
	ErrCyclicReExport = errors.New("cyclic re-export")
	// ErrDanglingReExport is returned when an alias chain ends without a definition.
	ErrDanglingReExport = errors.New("dangling re-export")
	// ErrSearchDisabled is returned by Search on an index built without WithSearch.
	ErrSearchDisabled = errors.New("search not enabled")
)

// Index answers path, kind and alias queries over a symbol forest.
type Index struct {
	root    *symbols.Symbol
	all     []*symbols.Symbol
	byPath  map[string][]*symbols.Symbol
	byKind  map[symbols.Kind][]*symbols.Symbol
	aliases *aliasTable
	diags   []diag.Diagnostic
	units   []string
	search  *searcher
}

type options struct {
	ctx    context.Context
	diags  []diag.Diagnostic
	units  []string
	search bool
}

// Option configures NewIndex.
type Option func(*options)

// WithDiagnostics attaches the diagnostics produced while building the forest.
func WithDiagnostics(d []diag.Diagnostic) Option {
	return func(o *options) { o.diags = d }
}

// WithUnits records the analysed unit IDs. Without it the IDs are collected
// from the modules in the forest.
func WithUnits(ids []string) Option {
	return func(o *options) { o.units = ids }
}

// WithSearch builds an in-memory full-text index over names, paths and docs.
func WithSearch() Option {
	return func(o *options) { o.search = true }
}

// WithContext bounds the time spent building the search index.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// NewIndex indexes root. The tree must not be modified afterwards.
func NewIndex(root *symbols.Symbol, opts ...Option) (*Index, error) {
	if root == nil {
		return nil, errors.New("nil root")
	}
	o := &options{ctx: context.Background()}
	for _, opt := range opts {
		opt(o)
	}

	idx := &Index{
		root:   root,
		byPath: make(map[string][]*symbols.Symbol),
		byKind: make(map[symbols.Kind][]*symbols.Symbol),
		diags:  slices.Clone(o.diags),
	}

	var edges []*symbols.ReExportEdge
	units := make(map[string]bool)
	symbols.Walk(root, func(s *symbols.Symbol) bool {
		idx.all = append(idx.all, s)
		key := symbols.JoinPath(s.Path())
		idx.byPath[key] = append(idx.byPath[key], s)
		if s != root {
			idx.byKind[s.Kind] = append(idx.byKind[s.Kind], s)
		}
		if s.Module != nil {
			edges = append(edges, s.Module.ReExports...)
			for _, u := range s.Module.Units {
				units[u] = true
			}
		}
		return true
	})
	idx.addMemberPaths()

	if o.units != nil {
		idx.units = slices.Clone(o.units)
	} else {
		for u := range units {
			idx.units = append(idx.units, u)
		}
	}
	sort.Strings(idx.units)

	aliases, err := newAliasTable(edges)
	if err != nil {
		return nil, fmt.Errorf("failed to build alias graph: %w", err)
	}
	idx.aliases = aliases

	if o.search {
		s, err := newSearcher(o.ctx, idx.all)
		if err != nil {
			return nil, err
		}
		idx.search = s
	}
	return idx, nil
}

// addMemberPaths registers impl members under Type::member when the path is
// otherwise unused and only one impl in the module provides the member.
func (idx *Index) addMemberPaths() {
	candidates := make(map[string][]*symbols.Symbol)
	var order []string
	for _, impl := range idx.byKind[symbols.Impl] {
		if impl.SelfType == "" {
			continue
		}
		base := impl.EnclosingModule().Path()
		for _, m := range impl.Children {
			key := symbols.JoinPath(append(slices.Clone(base), impl.SelfType, m.Name))
			if _, taken := idx.byPath[key]; taken {
				continue
			}
			if candidates[key] == nil {
				order = append(order, key)
			}
			candidates[key] = append(candidates[key], m)
		}
	}
	for _, key := range order {
		if c := candidates[key]; len(c) == 1 {
			idx.byPath[key] = c
		}
	}
}

func normalize(path string) string {
	return symbols.JoinPath(symbols.SplitPath(path))
}

// Root returns the crate root module.
func (idx *Index) Root() *symbols.Symbol {
	return idx.root
}

// Lookup returns the symbol at path. An empty path or "crate" is the root.
// When several symbols share the path the first in source order wins.
func (idx *Index) Lookup(path string) (*symbols.Symbol, error) {
	found := idx.byPath[normalize(path)]
	if len(found) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return found[0], nil
}

// LookupAll returns every symbol registered at path.
func (idx *Index) LookupAll(path string) []*symbols.Symbol {
	return slices.Clone(idx.byPath[normalize(path)])
}

// Children returns the direct children of the symbol at path in source order.
func (idx *Index) Children(path string) ([]*symbols.Symbol, error) {
	s, err := idx.Lookup(path)
	if err != nil {
		return nil, err
	}
	return slices.Clone(s.Children), nil
}

// ByKind returns all symbols of kind in depth-first source order.
func (idx *Index) ByKind(kind symbols.Kind) []*symbols.Symbol {
	return slices.Clone(idx.byKind[kind])
}

// Walk visits every symbol depth-first. Returning false skips children.
func (idx *Index) Walk(fn func(*symbols.Symbol) bool) {
	symbols.Walk(idx.root, fn)
}

// Diagnostics returns the diagnostics the index was built with.
func (idx *Index) Diagnostics() []diag.Diagnostic {
	return slices.Clone(idx.diags)
}

// Units returns the sorted unit IDs that make up the forest.
func (idx *Index) Units() []string {
	return slices.Clone(idx.units)
}

// ReExports returns every re-export edge in module walk order.
func (idx *Index) ReExports() []*symbols.ReExportEdge {
	return slices.Clone(idx.aliases.edges)
}

// Stats summarises the index.
type Stats struct {
	Symbols     int            `json:"symbols"`
	Units       int            `json:"units"`
	ReExports   int            `json:"reexports"`
	Dangling    int            `json:"dangling"`
	Cyclic      int            `json:"cyclic"`
	Diagnostics int            `json:"diagnostics"`
	ByKind      map[string]int `json:"by_kind"`
}

// Stats counts symbols, aliases and diagnostics.
func (idx *Index) Stats() Stats {
	st := Stats{
		Symbols:     len(idx.all),
		Units:       len(idx.units),
		ReExports:   len(idx.aliases.edges),
		Cyclic:      len(idx.aliases.cyclic),
		Diagnostics: len(idx.diags),
		ByKind:      make(map[string]int, len(idx.byKind)),
	}
	for k, syms := range idx.byKind {
		st.ByKind[k.String()] = len(syms)
	}
	for _, e := range idx.aliases.edges {
		if e.Dangling() {
			st.Dangling++
		}
	}
	return st
}

// Close releases the search index, if any.
func (idx *Index) Close() error {
	if idx.search != nil {
		return idx.search.close()
	}
	return nil
}
