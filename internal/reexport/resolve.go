// Package reexport resolves public use declarations against a merged symbol tree.
package reexport

import (
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// maxHops bounds alias chains followed while walking intermediate path segments.
const maxHops = 64

// Resolve links every re-export edge under root to its target. An edge whose
// path names a definition gets Target; one that names another alias gets Next.
// Resolution repeats until no edge makes progress, so chains through
// re-exported modules resolve regardless of declaration order. Edges that stay
// unresolved are reported and kept as dangling.
func Resolve(root *symbols.Symbol) []diag.Diagnostic {
	var pending []*symbols.ReExportEdge
	symbols.Walk(root, func(s *symbols.Symbol) bool {
		if s.Module != nil {
			for _, e := range s.Module.ReExports {
				e.Target, e.Next = nil, nil
				pending = append(pending, e)
			}
		}
		return true
	})

	r := &resolver{root: root}
	for len(pending) > 0 {
		var still []*symbols.ReExportEdge
		for _, e := range pending {
			if !r.resolve(e) {
				still = append(still, e)
			}
		}
		if len(still) == len(pending) {
			break
		}
		pending = still
	}

	var diags []diag.Diagnostic
	for _, e := range pending {
		diags = append(diags, diag.New(diag.UnresolvedReExport, e.Range,
			"re-export %s: %s not found", e.Alias(), e.Written()))
	}
	return diags
}

type resolver struct {
	root *symbols.Symbol
}

func (r *resolver) resolve(e *symbols.ReExportEdge) bool {
	segs := e.Path
	if len(segs) == 0 || e.Module == nil {
		return false
	}
	switch segs[0] {
	case "crate":
		return r.from(e, r.root, segs[1:], true)
	case "self":
		return r.from(e, e.Module, segs[1:], true)
	case "super":
		m := e.Module
		i := 0
		for ; i < len(segs) && segs[i] == "super"; i++ {
			if m = parentModule(m); m == nil {
				return false
			}
		}
		return r.from(e, m, segs[i:], true)
	}
	if r.from(e, e.Module, segs, false) {
		return true
	}
	return e.Module != r.root && r.from(e, r.root, segs, false)
}

// from resolves rest starting at base. explicit marks paths anchored with
// crate, self or super; only those may name the edge itself.
func (r *resolver) from(e *symbols.ReExportEdge, base *symbols.Symbol, rest []string, explicit bool) bool {
	if len(rest) == 0 {
		e.Target = base
		return true
	}
	cur := base
	for _, seg := range rest[:len(rest)-1] {
		if cur = r.step(cur, seg, e); cur == nil {
			return false
		}
	}
	if e.Glob {
		if t := r.step(cur, rest[len(rest)-1], e); t != nil {
			e.Target = t
			return true
		}
		return false
	}

	name := rest[len(rest)-1]
	if c := child(cur, name); c != nil {
		e.Target = c
		return true
	}
	if other := alias(cur, name, e, explicit); other != nil {
		e.Next = other
		return true
	}
	if c := throughGlobs(cur, name, e); c != nil {
		e.Target = c
		return true
	}
	return false
}

// step moves from cur to the container named seg, following resolved aliases.
func (r *resolver) step(cur *symbols.Symbol, seg string, self *symbols.ReExportEdge) *symbols.Symbol {
	if seg == "self" {
		return cur
	}
	if seg == "super" {
		return parentModule(cur)
	}
	if c := moduleOrChild(cur, seg); c != nil {
		return c
	}
	if a := alias(cur, seg, self, false); a != nil {
		return follow(a)
	}
	return throughGlobs(cur, seg, self)
}

func moduleOrChild(cur *symbols.Symbol, name string) *symbols.Symbol {
	for _, c := range cur.Children {
		if c.Kind == symbols.Module && c.Name == name {
			return c
		}
	}
	return child(cur, name)
}

// child returns the first definition called name directly under cur.
func child(cur *symbols.Symbol, name string) *symbols.Symbol {
	for _, c := range cur.Children {
		if c.Name == name && c.Kind != symbols.Impl && c.Kind != symbols.MacroInvocation {
			return c
		}
	}
	return nil
}

// alias returns the non-glob edge named name in module cur.
func alias(cur *symbols.Symbol, name string, self *symbols.ReExportEdge, allowSelf bool) *symbols.ReExportEdge {
	if cur.Module == nil {
		return nil
	}
	for _, o := range cur.Module.ReExports {
		if o.Glob || o.Name != name {
			continue
		}
		if o == self && !allowSelf {
			continue
		}
		return o
	}
	return nil
}

// throughGlobs looks name up in the modules glob-imported into cur.
func throughGlobs(cur *symbols.Symbol, name string, self *symbols.ReExportEdge) *symbols.Symbol {
	if cur.Module == nil {
		return nil
	}
	for _, g := range cur.Module.ReExports {
		if !g.Glob || g == self || g.Target == nil {
			continue
		}
		if c := child(g.Target, name); c != nil {
			return c
		}
	}
	return nil
}

// follow walks an alias chain to its definition.
func follow(e *symbols.ReExportEdge) *symbols.Symbol {
	for i := 0; e != nil && i < maxHops; i++ {
		if e.Target != nil {
			return e.Target
		}
		e = e.Next
	}
	return nil
}

func parentModule(m *symbols.Symbol) *symbols.Symbol {
	for p := m.Parent; p != nil; p = p.Parent {
		if p.Kind == symbols.Module {
			return p
		}
	}
	return nil
}
