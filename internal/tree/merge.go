package tree

import (
	"cmp"
	"slices"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// Merge grafts unit trees into one crate tree. Units are processed in
// (path depth, path, unit ID) order so the result does not depend on the order
// they were analyzed in. A `mod x;` declaration is completed by the unit whose
// module path is x, missing parents are created implicitly, and a second unit
// for an already defined module is reported and appended to it.
//
// Merge takes ownership of the unit trees.
func Merge(units []*symbols.Symbol) (*symbols.Symbol, []diag.Diagnostic) {
	sorted := slices.Clone(units)
	slices.SortStableFunc(sorted, compareUnits)

	var root *symbols.Symbol
	var diags []diag.Diagnostic
	for _, u := range sorted {
		p := u.Module.Path
		if len(p) == 0 && root == nil {
			root = u
			continue
		}
		if root == nil {
			root = implicitModule(nil)
		}
		if len(p) == 0 {
			diags = append(diags, absorb(root, u)...)
			continue
		}

		parent := ensure(root, p[:len(p)-1])
		existing := moduleChild(parent, p[len(p)-1])
		if existing == nil {
			parent.AddChild(u)
			continue
		}
		diags = append(diags, absorb(existing, u)...)
	}
	if root == nil {
		root = implicitModule(nil)
	}
	return root, diags
}

func compareUnits(a, b *symbols.Symbol) int {
	pa, pb := a.Module.Path, b.Module.Path
	if c := cmp.Compare(len(pa), len(pb)); c != 0 {
		return c
	}
	if c := slices.Compare(pa, pb); c != 0 {
		return c
	}
	return cmp.Compare(unitOf(a), unitOf(b))
}

func unitOf(s *symbols.Symbol) string {
	if len(s.Module.Units) == 0 {
		return ""
	}
	return s.Module.Units[0]
}

func implicitModule(p []string) *symbols.Symbol {
	name := "crate"
	if len(p) > 0 {
		name = p[len(p)-1]
	}
	return &symbols.Symbol{
		Kind: symbols.Module,
		Name: name,
		Module: &symbols.ModuleInfo{
			Path: append([]string(nil), p...),
			Decl: symbols.ModuleImplicit,
		},
	}
}

func moduleChild(parent *symbols.Symbol, name string) *symbols.Symbol {
	for _, c := range parent.Children {
		if c.Kind == symbols.Module && c.Name == name {
			return c
		}
	}
	return nil
}

// ensure returns the module at path p below root, creating missing modules.
func ensure(root *symbols.Symbol, p []string) *symbols.Symbol {
	cur := root
	for i, seg := range p {
		next := moduleChild(cur, seg)
		if next == nil {
			next = implicitModule(p[:i+1])
			cur.AddChild(next)
		}
		cur = next
	}
	return cur
}

// absorb moves the contents of unit tree u into the existing module m.
func absorb(m, u *symbols.Symbol) []diag.Diagnostic {
	var diags []diag.Diagnostic
	if len(m.Module.Units) > 0 {
		diags = append(diags, diag.New(diag.DuplicateModule, u.Range,
			"module %q is already defined by %s", displayPath(m), m.Module.Units[0]))
	}

	for _, c := range u.Children {
		m.AddChild(c)
	}
	m.InnerDoc = append(m.InnerDoc, u.InnerDoc...)
	m.Attributes = append(m.Attributes, u.Attributes...)
	for _, e := range u.Module.ReExports {
		e.Module = m
		m.Module.ReExports = append(m.Module.ReExports, e)
	}
	m.Module.Units = append(m.Module.Units, u.Module.Units...)
	if m.Module.Decl == symbols.ModuleImplicit {
		m.Module.Decl = symbols.ModuleUnit
		m.Range = u.Range
		m.Visibility = u.Visibility
	}
	return diags
}

func displayPath(m *symbols.Symbol) string {
	if p := m.QualifiedName(); p != "" {
		return p
	}
	return "crate"
}
