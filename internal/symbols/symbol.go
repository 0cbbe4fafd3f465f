// Package symbols defines the symbol tree shared by the extraction pipeline and
// its consumers.
//
// A tree is built once per analysis and is read-only afterwards. Consumers must
// not mutate symbols they receive from an index.
package symbols

import (
	"errors"
	"strings"

	"github.com/mvp-joe/symdex/internal/source"
)

// ErrDocAlreadyAssigned is returned when documentation is set twice on a symbol.
var ErrDocAlreadyAssigned = errors.New("documentation already assigned")

// PathSep separates module path segments.
const PathSep = "::"

// Symbol is a declaration extracted from source.
type Symbol struct {
	Kind           Kind
	Name           string
	Visibility     Visibility
	VisibilityText string
	Generics       string
	Signature      string
	Attributes     []string
	Range          source.Range

	// InnerDoc holds //! and /*! */ documentation found inside the symbol's body.
	InnerDoc []string

	// Text is the raw source of macro definitions and invocations.
	Text string
	// Patterns are the matcher arms of a macro_rules! definition.
	Patterns []string

	// SelfType and Trait describe impl blocks: `impl Trait for SelfType`.
	// SelfType is the bare type name, without path or generic arguments.
	SelfType string
	Trait    string

	// Module is set for symbols of kind Module.
	Module *ModuleInfo

	Children []*Symbol
	Parent   *Symbol

	doc    []string
	docSet bool
}

// Doc returns the attached documentation. An empty result means the symbol is
// undocumented; an empty string entry is a blank doc line.
func (s *Symbol) Doc() []string {
	return s.doc
}

// HasDoc reports whether documentation was assigned.
func (s *Symbol) HasDoc() bool {
	return s.docSet
}

// SetDoc attaches documentation. It may be called once.
func (s *Symbol) SetDoc(lines []string) error {
	if s.docSet {
		return ErrDocAlreadyAssigned
	}
	s.doc = append([]string(nil), lines...)
	s.docSet = true
	return nil
}

// AddChild appends c to s's children and points c back at s.
func (s *Symbol) AddChild(c *Symbol) {
	c.Parent = s
	s.Children = append(s.Children, c)
}

// Path returns the symbol's path segments from the crate root.
func (s *Symbol) Path() []string {
	if s.Module != nil {
		return s.Module.Path
	}
	if s.Parent == nil {
		return []string{s.Name}
	}
	parent := s.Parent.Path()
	out := make([]string, 0, len(parent)+1)
	out = append(out, parent...)
	return append(out, s.Name)
}

// QualifiedName returns Path joined with "::". The crate root is "".
func (s *Symbol) QualifiedName() string {
	return JoinPath(s.Path())
}

// EnclosingModule returns the nearest module at or above s.
func (s *Symbol) EnclosingModule() *Symbol {
	for cur := s; cur != nil; cur = cur.Parent {
		if cur.Kind == Module {
			return cur
		}
	}
	return nil
}

// Child returns the first direct child called name.
func (s *Symbol) Child(name string) *Symbol {
	for _, c := range s.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Walk visits s and its descendants depth-first in source order. Returning false
// from fn skips the children of the visited symbol.
func Walk(s *Symbol, fn func(*Symbol) bool) {
	if !fn(s) {
		return
	}
	for _, c := range s.Children {
		Walk(c, fn)
	}
}

// JoinPath joins path segments with "::".
func JoinPath(segs []string) string {
	return strings.Join(segs, PathSep)
}

// SplitPath splits a "::" path, dropping a leading "crate" segment. The empty
// string and "crate" both name the root.
func SplitPath(path string) []string {
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, PathSep)
	if path == "" || path == "crate" {
		return nil
	}
	segs := strings.Split(path, PathSep)
	if segs[0] == "crate" {
		segs = segs[1:]
	}
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}
	return segs
}

// ModuleDecl records how a module came into existence.
type ModuleDecl uint8

const (
	// ModuleUnit is the root module of an analyzed unit.
	ModuleUnit ModuleDecl = iota
	// ModuleInline is declared with a body: mod x { ... }.
	ModuleInline
	// ModuleStub is declared as mod x; and awaits the unit holding its body.
	ModuleStub
	// ModuleImplicit is created while merging to hold a unit whose parent
	// module was never declared.
	ModuleImplicit
)

func (d ModuleDecl) String() string {
	switch d {
	case ModuleInline:
		return "inline"
	case ModuleStub:
		return "stub"
	case ModuleImplicit:
		return "implicit"
	}
	return "unit"
}

// ModuleInfo is the module-specific part of a Module symbol.
type ModuleInfo struct {
	Path      []string
	ReExports []*ReExportEdge
	Units     []string
	Decl      ModuleDecl
}

// ReExportEdge is a public use declaration: an alias in Module for a symbol
// defined elsewhere. The target is shared, never copied.
type ReExportEdge struct {
	Module     *Symbol
	Name       string   // alias name; "*" for globs
	Path       []string // target path as written
	Glob       bool
	Visibility Visibility
	Doc        []string
	Range      source.Range

	// Target is the definition the alias resolves to, or nil.
	Target *Symbol
	// Next is set instead of Target when the alias names another alias.
	Next *ReExportEdge
}

// AliasPath is the path the edge makes visible.
func (e *ReExportEdge) AliasPath() []string {
	var base []string
	if e.Module != nil {
		base = e.Module.Path()
	}
	out := make([]string, 0, len(base)+1)
	out = append(out, base...)
	return append(out, e.Name)
}

// Alias returns AliasPath joined with "::".
func (e *ReExportEdge) Alias() string {
	return JoinPath(e.AliasPath())
}

// Written returns the target path as it appeared in source.
func (e *ReExportEdge) Written() string {
	return JoinPath(e.Path)
}

// Dangling reports whether the edge resolved to nothing.
func (e *ReExportEdge) Dangling() bool {
	return e.Target == nil && e.Next == nil
}
