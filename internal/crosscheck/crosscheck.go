// Package crosscheck compares the items the extraction engine recorded for a
// unit with the items tree-sitter-rust finds in the same source. It is a
// diagnostic aid: tree-sitter is an independent parser, so disagreements point
// at item-boundary bugs on one side or the other.
package crosscheck

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/mvp-joe/symdex/internal/symbols"
)

// ErrParse is returned when tree-sitter produces no tree at all.
var ErrParse = errors.New("tree-sitter parse failed")

// Entry is one item as seen by one of the two parsers.
type Entry struct {
	Kind symbols.Kind `json:"kind"`
	Path string       `json:"path"`
	Line int          `json:"line"`
}

func (e Entry) String() string {
	return fmt.Sprintf("%s %s (line %d)", e.Kind, e.Path, e.Line)
}

// Shift pairs an item both parsers agree on whose tree-sitter start line falls
// outside the engine's range for it.
type Shift struct {
	Engine     Entry `json:"engine"`
	TreeSitter Entry `json:"tree_sitter"`
}

// Report is the outcome of Check for one unit.
type Report struct {
	Unit    string  `json:"unit"`
	Matched int     `json:"matched"`
	Missing []Entry `json:"missing,omitempty"`
	Extra   []Entry `json:"extra,omitempty"`
	Shifted []Shift `json:"shifted,omitempty"`
	// SyntaxErrors is set when tree-sitter itself hit ERROR or MISSING nodes;
	// disagreements are then expected around the broken region.
	SyntaxErrors bool `json:"syntax_errors"`
}

// Clean reports whether both parsers saw exactly the same items.
func (r *Report) Clean() bool {
	return len(r.Missing) == 0 && len(r.Extra) == 0 && len(r.Shifted) == 0
}

// Check parses src with tree-sitter-rust and compares its items against the
// engine tree rooted at root, which must be the unit's own module symbol.
// Items are matched by kind and container-relative path; start lines are
// compared for matched pairs.
func Check(unitID string, src []byte, root *symbols.Symbol) (*Report, error) {
	lang := sitter.NewLanguage(rust.Language())

	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, fmt.Errorf("%s: %w", unitID, ErrParse)
	}
	defer tree.Close()

	rootNode := tree.RootNode()
	var ts []engineOrTS
	collectNodes(rootNode, src, "", false, &ts)

	var eng []engineOrTS
	if root != nil {
		for _, c := range root.Children {
			collectSymbols(c, "", &eng)
		}
	}

	r := compare(ts, eng)
	r.Unit = unitID
	r.SyntaxErrors = rootNode.HasError()
	return r, nil
}

// engineOrTS carries an Entry plus, for engine symbols, the line span used to
// accept a tree-sitter start line.
type engineOrTS struct {
	Entry
	EndLine int
}

func (e engineOrTS) key() string { return e.Kind.String() + " " + e.Path }

func compare(ts, eng []engineOrTS) *Report {
	r := &Report{}
	pending := make(map[string][]engineOrTS)
	for _, e := range eng {
		pending[e.key()] = append(pending[e.key()], e)
	}
	for _, t := range ts {
		k := t.key()
		queue := pending[k]
		if len(queue) == 0 {
			r.Missing = append(r.Missing, t.Entry)
			continue
		}
		e := queue[0]
		pending[k] = queue[1:]
		r.Matched++
		if t.Line < e.Line || t.Line > e.EndLine {
			r.Shifted = append(r.Shifted, Shift{Engine: e.Entry, TreeSitter: t.Entry})
		}
	}
	for _, e := range eng {
		k := e.key()
		if len(pending[k]) > 0 {
			r.Extra = append(r.Extra, pending[k][0].Entry)
			pending[k] = pending[k][1:]
		}
	}
	sortEntries(r.Missing)
	sortEntries(r.Extra)
	return r
}

func sortEntries(es []Entry) {
	sort.SliceStable(es, func(i, j int) bool {
		if es[i].Line != es[j].Line {
			return es[i].Line < es[j].Line
		}
		return es[i].Path < es[j].Path
	})
}

// collectSymbols flattens the engine tree. Modules, traits and impls are
// containers; extern blocks are transparent; fields and variants are not
// compared.
func collectSymbols(s *symbols.Symbol, prefix string, out *[]engineOrTS) {
	switch s.Kind {
	case symbols.Field, symbols.Variant:
		return
	case symbols.ExternBlock:
		for _, c := range s.Children {
			collectSymbols(c, prefix, out)
		}
		return
	}

	name := s.Name
	if s.Kind == symbols.Impl {
		name = implKey(s.Trait, s.SelfType)
	}
	path := join(prefix, name)
	*out = append(*out, engineOrTS{
		Entry:   Entry{Kind: s.Kind, Path: path, Line: s.Range.StartLine},
		EndLine: s.Range.EndLine,
	})

	switch s.Kind {
	case symbols.Module, symbols.Trait, symbols.Impl:
		for _, c := range s.Children {
			collectSymbols(c, path, out)
		}
	}
}

// collectNodes walks declaration lists the way the engine walks item scopes.
// Function bodies are not entered.
func collectNodes(node *sitter.Node, src []byte, prefix string, member bool, out *[]engineOrTS) {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child == nil {
			continue
		}
		visitItem(child, src, prefix, member, out)
	}
}

func visitItem(n *sitter.Node, src []byte, prefix string, member bool, out *[]engineOrTS) {
	add := func(kind symbols.Kind, name string) string {
		path := join(prefix, name)
		*out = append(*out, engineOrTS{Entry: Entry{
			Kind: kind,
			Path: path,
			Line: int(n.StartPosition().Row) + 1,
		}})
		return path
	}
	name := func() string {
		return strings.TrimPrefix(extractNodeText(n.ChildByFieldName("name"), src), "r#")
	}

	switch n.Kind() {
	case "mod_item":
		path := add(symbols.Module, name())
		if body := n.ChildByFieldName("body"); body != nil {
			collectNodes(body, src, path, false, out)
		}
	case "struct_item", "union_item":
		add(symbols.Struct, name())
	case "enum_item":
		add(symbols.Enum, name())
	case "trait_item":
		path := add(symbols.Trait, name())
		if body := n.ChildByFieldName("body"); body != nil {
			collectNodes(body, src, path, true, out)
		}
	case "impl_item":
		trait := extractNodeText(n.ChildByFieldName("trait"), src)
		self := extractNodeText(n.ChildByFieldName("type"), src)
		path := add(symbols.Impl, implKey(trait, self))
		if body := n.ChildByFieldName("body"); body != nil {
			collectNodes(body, src, path, true, out)
		}
	case "foreign_mod_item":
		if body := n.ChildByFieldName("body"); body != nil {
			collectNodes(body, src, prefix, false, out)
		}
	case "function_item", "function_signature_item":
		if member {
			add(symbols.Method, name())
		} else {
			add(symbols.Function, name())
		}
	case "const_item":
		if member {
			add(symbols.AssocConst, name())
		} else {
			add(symbols.Const, name())
		}
	case "static_item":
		add(symbols.Static, name())
	case "type_item", "associated_type":
		if member {
			add(symbols.AssocType, name())
		} else {
			add(symbols.TypeAlias, name())
		}
	case "macro_definition":
		add(symbols.MacroDef, name())
	case "macro_invocation":
		add(symbols.MacroInvocation, extractNodeText(n.ChildByFieldName("macro"), src))
	case "expression_statement":
		// `name!(...);` at item level is wrapped in a statement.
		if n.NamedChildCount() == 1 {
			if inner := n.NamedChild(0); inner != nil && inner.Kind() == "macro_invocation" {
				visitItem(inner, src, prefix, member, out)
			}
		}
	}
}

// implKey names an impl block by what it implements, ignoring whitespace so
// both parsers' renderings of the type compare equal.
func implKey(trait, self string) string {
	if trait != "" {
		return "impl " + squash(trait) + " for " + squash(self)
	}
	return "impl " + squash(self)
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "::" + name
}

func extractNodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}
