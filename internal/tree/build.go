// Package tree assembles parsed items into symbol trees and merges the trees of
// several units into one crate forest.
package tree

import (
	"path"
	"strings"

	"github.com/mvp-joe/symdex/internal/docassoc"
	"github.com/mvp-joe/symdex/internal/parser"
	"github.com/mvp-joe/symdex/internal/source"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// ModulePath derives a module path from a unit ID laid out like a cargo crate:
// src/lib.rs and src/main.rs are the root, src/a/mod.rs and src/a.rs are `a`,
// src/a/b.rs is `a::b`.
func ModulePath(unitID string) []string {
	p := strings.TrimSuffix(path.Clean(strings.ReplaceAll(unitID, "\\", "/")), ".rs")
	segs := strings.Split(p, "/")
	if len(segs) > 0 && segs[0] == "src" {
		segs = segs[1:]
	}
	if n := len(segs); n > 0 && segs[n-1] == "mod" {
		segs = segs[:n-1]
	}
	if len(segs) == 1 && (segs[0] == "lib" || segs[0] == "main") {
		return nil
	}
	var out []string
	for _, s := range segs {
		if s != "" && s != "." {
			out = append(out, s)
		}
	}
	return out
}

// Build turns the parse of one unit into a symbol tree rooted at a Module whose
// path is modPath.
func Build(unit string, modPath []string, f *parser.File, assoc *docassoc.Result) *symbols.Symbol {
	name := "crate"
	if len(modPath) > 0 {
		name = modPath[len(modPath)-1]
	}
	root := &symbols.Symbol{
		Kind:       symbols.Module,
		Name:       name,
		Visibility: symbols.Public,
		Attributes: f.Attrs,
		InnerDoc:   assoc.Root,
		Range:      unitRange(unit, f),
		Module: &symbols.ModuleInfo{
			Path:  append([]string(nil), modPath...),
			Units: []string{unit},
			Decl:  symbols.ModuleUnit,
		},
	}
	b := &builder{unit: unit, assoc: assoc}
	b.children(root, root, f.Items)
	return root
}

func unitRange(unit string, f *parser.File) source.Range {
	r := source.Range{Unit: unit, StartLine: 1, EndLine: 1}
	if n := len(f.Tokens); n > 0 {
		last := f.Tokens[n-1]
		r.EndLine = last.EndLine
		r.EndOffset = last.End
	}
	return r
}

type builder struct {
	unit  string
	assoc *docassoc.Result
}

// children adds items under parent. mod is the module that owns re-exports.
func (b *builder) children(parent, mod *symbols.Symbol, items []*parser.Item) {
	for _, it := range items {
		if it.Use != nil {
			b.reexports(mod, it)
			continue
		}
		s := b.symbol(mod, it)
		parent.AddChild(s)
		owner := mod
		if s.Kind == symbols.Module {
			owner = s
		}
		if s.Kind == symbols.MacroDef || s.Kind == symbols.MacroInvocation {
			continue
		}
		b.children(s, owner, it.Children)
	}
}

func (b *builder) symbol(mod *symbols.Symbol, it *parser.Item) *symbols.Symbol {
	s := &symbols.Symbol{
		Kind:           it.Kind,
		Name:           it.Name,
		Visibility:     symbols.ParseVisibility(it.Vis),
		VisibilityText: it.Vis,
		Generics:       it.Generics,
		Signature:      it.Signature,
		Attributes:     it.Attrs,
		Range:          it.Range.WithUnit(b.unit),
		InnerDoc:       b.assoc.Inner[it],
		Text:           it.Text,
		Patterns:       it.Patterns,
		SelfType:       baseType(it.SelfType),
		Trait:          it.Trait,
	}
	if doc := b.assoc.Doc(it); doc != nil {
		// A freshly built symbol has no documentation yet.
		_ = s.SetDoc(doc)
	}
	if it.Kind == symbols.Module {
		decl := symbols.ModuleStub
		var units []string
		if it.HasBody() {
			decl = symbols.ModuleInline
			units = []string{b.unit}
		}
		s.Module = &symbols.ModuleInfo{
			Path:  append(append([]string(nil), mod.Module.Path...), it.Name),
			Units: units,
			Decl:  decl,
		}
	}
	return s
}

// reexports records the non-private imports of a use item as unresolved edges.
func (b *builder) reexports(mod *symbols.Symbol, it *parser.Item) {
	vis := symbols.ParseVisibility(it.Vis)
	if vis == symbols.Private {
		return
	}
	for _, imp := range it.Use.Imports {
		if imp.Name == "_" {
			continue
		}
		mod.Module.ReExports = append(mod.Module.ReExports, &symbols.ReExportEdge{
			Module:     mod,
			Name:       imp.Name,
			Path:       imp.Path,
			Glob:       imp.Glob,
			Visibility: vis,
			Doc:        b.assoc.Doc(it),
			Range:      it.Range.WithUnit(b.unit),
		})
	}
}

// baseType reduces a self type such as `&'a mut path::Foo<T>` to `Foo`.
func baseType(t string) string {
	t = strings.TrimSpace(t)
	for {
		trimmed := strings.TrimLeft(t, "&* ")
		for _, prefix := range []string{"mut ", "const ", "dyn "} {
			trimmed = strings.TrimPrefix(trimmed, prefix)
		}
		if strings.HasPrefix(trimmed, "'") {
			if i := strings.IndexByte(trimmed, ' '); i > 0 {
				trimmed = trimmed[i+1:]
			}
		}
		if trimmed == t {
			break
		}
		t = trimmed
	}
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndex(t, "::"); i >= 0 {
		t = t[i+2:]
	}
	return strings.TrimSpace(t)
}
