// Package parser delimits Rust items in a token stream.
//
// The parser recognises declaration boundaries only. Bodies are skipped through
// a precomputed delimiter matching table, and generic parameter lists and
// where-clauses are kept as opaque text. A malformed item is reported and
// skipped up to the next `;` or balanced close brace; it never stops the rest
// of the file from being parsed.
package parser

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/source"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// Item is a parsed declaration. Token indices refer to File.Tokens.
type Item struct {
	Kind      symbols.Kind
	Name      string
	Vis       string // visibility qualifier as written, "" if absent
	Generics  string
	Signature string
	Attrs     []string

	Start     int // first token, including outer attributes
	Head      int // first token after the attributes
	End       int // last token
	BodyOpen  int // opening delimiter of the body, -1 if none
	BodyClose int // closing delimiter of the body, -1 if none
	Range     source.Range

	Text     string   // raw source of macro definitions and invocations
	Patterns []string // macro_rules! matchers
	SelfType string   // impl blocks
	Trait    string   // impl blocks

	// Use is set for use declarations and extern crate items. Such items do
	// not become symbols; their Kind is meaningless.
	Use *UseDecl

	Children []*Item
}

// HasBody reports whether the item has a delimited body.
func (it *Item) HasBody() bool {
	return it.BodyOpen >= 0 && it.BodyClose > it.BodyOpen
}

// Import is one leaf of a use tree.
type Import struct {
	Name string   // name made visible; "*" for globs
	Path []string // target path as written
	Glob bool
}

// UseDecl is a use declaration or extern crate item.
type UseDecl struct {
	Imports     []Import
	ExternCrate bool
}

// File is the parse result for one unit.
type File struct {
	Tokens []lexer.Token
	Attrs  []string // inner attributes at file level
	Items  []*Item
}

// Walk visits every item depth-first in source order.
func (f *File) Walk(fn func(*Item)) {
	var walk func([]*Item)
	walk = func(items []*Item) {
		for _, it := range items {
			fn(it)
			walk(it.Children)
		}
	}
	walk(f.Items)
}

type scope uint8

const (
	scopeModule scope = iota
	scopeTrait
	scopeImpl
	scopeExtern
)

type parser struct {
	toks  []lexer.Token
	sig   []int // stream indices of non-trivia tokens
	match []int // partner delimiter position in sig, -1 if unmatched
	diags []diag.Diagnostic
}

// Parse delimits the items in toks.
func Parse(toks []lexer.Token) (*File, []diag.Diagnostic) {
	p := newParser(toks)
	f := &File{Tokens: toks}
	f.Attrs, f.Items = p.items(0, len(p.sig), scopeModule)
	return f, p.diags
}

func newParser(toks []lexer.Token) *parser {
	p := &parser{toks: toks}
	for i, t := range toks {
		if !t.Trivia() {
			p.sig = append(p.sig, i)
		}
	}

	p.match = make([]int, len(p.sig))
	var stack []int
	for i := range p.sig {
		p.match[i] = -1
		t := p.tok(i)
		if t.Kind != lexer.Punct {
			continue
		}
		switch t.Text {
		case "(", "[", "{":
			stack = append(stack, i)
		case ")", "]", "}":
			open := openerOf(t.Text)
			// Pair with the nearest matching opener; anything opened in
			// between is left unmatched.
			for k := len(stack) - 1; k >= 0; k-- {
				if p.tok(stack[k]).Text == open {
					p.match[stack[k]] = i
					p.match[i] = stack[k]
					stack = stack[:k]
					break
				}
			}
		}
	}
	return p
}

func openerOf(closer string) string {
	switch closer {
	case ")":
		return "("
	case "]":
		return "["
	}
	return "{"
}

func (p *parser) tok(i int) lexer.Token {
	return p.toks[p.sig[i]]
}

func (p *parser) isPunct(i, hi int, s string) bool {
	return i < hi && p.tok(i).IsPunct(s)
}

func (p *parser) isIdent(i, hi int, s string) bool {
	return i < hi && p.tok(i).IsIdent(s)
}

func (p *parser) isOpener(i, hi int) bool {
	return p.isPunct(i, hi, "(") || p.isPunct(i, hi, "[") || p.isPunct(i, hi, "{")
}

// name returns the identifier at i with any r# prefix removed.
func (p *parser) name(i, hi int) (string, bool) {
	if i >= hi || p.tok(i).Kind != lexer.Ident {
		return "", false
	}
	return strings.TrimPrefix(p.tok(i).Text, "r#"), true
}

// closing returns the partner of the opener at i if it lies before hi.
func (p *parser) closing(i, hi int) (int, error) {
	c := p.match[i]
	if c < 0 || c >= hi {
		return -1, fmt.Errorf("unclosed %q", p.tok(i).Text)
	}
	return c, nil
}

// text renders tokens a..b inclusive, collapsing any trivia between them to a
// single space. Comments are dropped, and no space is kept just inside
// brackets or before a comma.
func (p *parser) text(a, b int) string {
	if b < a {
		return ""
	}
	var sb strings.Builder
	space := false
	prev := ""
	for k := p.sig[a]; k <= p.sig[b]; k++ {
		t := p.toks[k]
		if t.Trivia() {
			space = true
			continue
		}
		if space && sb.Len() > 0 && !tight(prev, t.Text) {
			sb.WriteByte(' ')
		}
		space = false
		prev = t.Text
		sb.WriteString(t.Text)
	}
	return sb.String()
}

func tight(prev, next string) bool {
	switch prev {
	case "(", "[", "<":
		return true
	}
	switch next {
	case ")", "]", ">", ",", ";":
		return true
	}
	return false
}

// raw returns the exact source of tokens a..b inclusive.
func (p *parser) raw(a, b int) string {
	if b < a {
		return ""
	}
	var sb strings.Builder
	for k := p.sig[a]; k <= p.sig[b]; k++ {
		sb.WriteString(p.toks[k].Text)
	}
	return sb.String()
}

func (p *parser) rangeOf(a, b int) source.Range {
	return p.tok(a).Range().Join(p.tok(b).Range())
}

func (p *parser) malformed(a, b int, format string, args ...any) {
	if b < a {
		b = a
	}
	p.diags = append(p.diags, diag.New(diag.MalformedItem, p.rangeOf(a, b), format, args...))
}

// skip returns the position after the next `;` or balanced close brace at or
// after i. An opening brace with no partner ends the skip right after it.
func (p *parser) skip(i, hi int) int {
	for j := i; j < hi; j++ {
		t := p.tok(j)
		if t.Kind != lexer.Punct {
			continue
		}
		switch t.Text {
		case ";":
			return j + 1
		case "{":
			if c := p.match[j]; c >= 0 && c < hi {
				return c + 1
			}
			return j + 1
		case "(", "[":
			if c := p.match[j]; c >= 0 && c < hi {
				j = c
			}
		case "}", ")", "]":
			return j + 1
		}
	}
	return hi
}

// recover reports tokens from start up to the next recovery point as a
// malformed item and returns the position to resume at.
func (p *parser) recover(start, hi int, format string, args ...any) int {
	end := p.skip(start, hi)
	if end <= start {
		end = start + 1
	}
	p.malformed(start, min(end, len(p.sig))-1, format, args...)
	return end
}

// scan returns the first position in [i, hi) holding one of stops outside any
// nested delimiter group, or -1. With angle set, stops inside <...> are ignored.
func (p *parser) scan(i, hi int, angle bool, stops ...string) int {
	depth := 0
	for j := i; j < hi; j++ {
		t := p.tok(j)
		if t.Kind != lexer.Punct {
			continue
		}
		if depth == 0 && slices.Contains(stops, t.Text) {
			return j
		}
		switch t.Text {
		case "<":
			if angle {
				depth++
			}
		case ">":
			if angle && depth > 0 {
				depth--
			}
		case "(", "[", "{":
			c := p.match[j]
			if c < 0 || c >= hi {
				return -1
			}
			j = c
		case ")", "]", "}":
			return -1
		}
	}
	return -1
}

// generics returns the position of the `>` closing the list opened at i.
func (p *parser) generics(i, hi int) (int, error) {
	depth := 0
	for j := i; j < hi; j++ {
		t := p.tok(j)
		if t.Kind != lexer.Punct {
			continue
		}
		switch t.Text {
		case "<":
			depth++
		case ">":
			depth--
			if depth == 0 {
				return j, nil
			}
		case "(", "[", "{":
			c := p.match[j]
			if c < 0 || c >= hi {
				return -1, fmt.Errorf("unclosed %q in generic parameters", t.Text)
			}
			j = c
		case ";", ")", "]", "}":
			return -1, fmt.Errorf("unterminated generic parameter list")
		}
	}
	return -1, fmt.Errorf("unterminated generic parameter list")
}

// attributes consumes outer attributes starting at i.
func (p *parser) attributes(i, hi int) ([]string, int, error) {
	var attrs []string
	for p.isPunct(i, hi, "#") && p.isPunct(i+1, hi, "[") {
		c, err := p.closing(i+1, hi)
		if err != nil {
			return attrs, i, err
		}
		attrs = append(attrs, p.text(i, c))
		i = c + 1
	}
	return attrs, i, nil
}

// visibility consumes a visibility qualifier at i.
func (p *parser) visibility(it *Item, i, hi int) int {
	if !p.isIdent(i, hi, "pub") {
		return i
	}
	end := i
	if p.isPunct(i+1, hi, "(") && i+2 < hi {
		if c := p.match[i+1]; c > 0 && c < hi {
			switch p.tok(i + 2).Text {
			case "crate", "self", "super", "in":
				end = c
			}
		}
	}
	it.Vis = p.text(i, end)
	return end + 1
}

// qualifiers skips function and item qualifiers such as async, unsafe,
// const fn, extern "C" fn and default.
func (p *parser) qualifiers(i, hi int) int {
	for i < hi {
		t := p.tok(i)
		if t.Kind != lexer.Ident || i+1 >= hi {
			return i
		}
		next := p.tok(i + 1)
		switch t.Text {
		case "default", "async", "unsafe", "safe", "auto":
			if next.Kind != lexer.Ident {
				return i
			}
			i++
		case "const":
			switch next.Text {
			case "fn", "unsafe", "async", "extern":
				i++
			default:
				return i
			}
		case "extern":
			j := i + 1
			if p.tok(j).Kind == lexer.Literal {
				j++
			}
			if !p.isIdent(j, hi, "fn") && !p.isIdent(j, hi, "unsafe") {
				return i
			}
			i = j
		default:
			return i
		}
	}
	return i
}
