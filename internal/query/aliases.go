package query

import (
	"fmt"

	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/symdex/internal/symbols"
)

// aliasTable maps alias paths to re-export edges and records which edges sit
// on a cycle of Next links.
type aliasTable struct {
	edges  []*symbols.ReExportEdge
	byPath map[string]*symbols.ReExportEdge
	cyclic map[*symbols.ReExportEdge]bool
}

func newAliasTable(edges []*symbols.ReExportEdge) (*aliasTable, error) {
	t := &aliasTable{
		edges:  edges,
		byPath: make(map[string]*symbols.ReExportEdge, len(edges)),
		cyclic: make(map[*symbols.ReExportEdge]bool),
	}

	ids := make(map[*symbols.ReExportEdge]int, len(edges))
	g := graph.New(graph.IntHash, graph.Directed())
	for i, e := range edges {
		ids[e] = i
		if err := g.AddVertex(i); err != nil {
			return nil, err
		}
		key := e.Alias()
		if _, ok := t.byPath[key]; !ok {
			t.byPath[key] = e
		}
	}
	for _, e := range edges {
		if e.Next == nil {
			continue
		}
		if e.Next == e {
			t.cyclic[e] = true
			continue
		}
		to, ok := ids[e.Next]
		if !ok {
			continue
		}
		if err := g.AddEdge(ids[e], to); err != nil {
			return nil, fmt.Errorf("alias %s: %w", e.Alias(), err)
		}
	}

	sccs, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil, err
	}
	for _, comp := range sccs {
		if len(comp) < 2 {
			continue
		}
		for _, id := range comp {
			t.cyclic[edges[id]] = true
		}
	}
	return t, nil
}

// Hop is one step along an alias chain. Exactly one of Target and Next is set.
type Hop struct {
	Edge   *symbols.ReExportEdge
	Target *symbols.Symbol
	Next   string
}

// ResolveReExport follows the alias at path one step. An alias on a cycle
// still reports its edge and next hop alongside ErrCyclicReExport.
func (idx *Index) ResolveReExport(alias string) (Hop, error) {
	e, ok := idx.aliases.byPath[normalize(alias)]
	if !ok {
		return Hop{}, fmt.Errorf("%w: alias %s", ErrNotFound, alias)
	}
	if idx.aliases.cyclic[e] {
		hop := Hop{Edge: e}
		if e.Next != nil {
			hop.Next = e.Next.Alias()
		}
		return hop, fmt.Errorf("%w: %s", ErrCyclicReExport, e.Alias())
	}
	switch {
	case e.Target != nil:
		return Hop{Edge: e, Target: e.Target}, nil
	case e.Next != nil:
		return Hop{Edge: e, Next: e.Next.Alias()}, nil
	}
	return Hop{Edge: e}, fmt.Errorf("%w: %s -> %s", ErrDanglingReExport, e.Alias(), e.Written())
}

// Canonical follows the alias at path to the definition it finally names.
func (idx *Index) Canonical(alias string) (*symbols.Symbol, error) {
	e, ok := idx.aliases.byPath[normalize(alias)]
	if !ok {
		return nil, fmt.Errorf("%w: alias %s", ErrNotFound, alias)
	}
	seen := make(map[*symbols.ReExportEdge]bool)
	for cur := e; cur != nil; cur = cur.Next {
		if idx.aliases.cyclic[cur] || seen[cur] {
			return nil, fmt.Errorf("%w: %s", ErrCyclicReExport, e.Alias())
		}
		seen[cur] = true
		if cur.Target != nil {
			return cur.Target, nil
		}
		if cur.Next == nil {
			return nil, fmt.Errorf("%w: %s ends at %s", ErrDanglingReExport, e.Alias(), cur.Written())
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDanglingReExport, e.Alias())
}

// IsCyclic reports whether the alias at path lies on a re-export cycle.
func (idx *Index) IsCyclic(alias string) bool {
	e, ok := idx.aliases.byPath[normalize(alias)]
	return ok && idx.aliases.cyclic[e]
}
