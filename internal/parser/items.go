package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// itemParser parses the item whose keyword is at i. head is the first token
// after the attributes. It returns the position of the item's last token.
type itemParser func(p *parser, it *Item, sc scope, head, i, hi int) (int, error)

// items parses the items in [lo, hi). Inner attributes found there are returned
// separately.
func (p *parser) items(lo, hi int, sc scope) ([]string, []*Item) {
	var inner []string
	var out []*Item
	i := lo
	for i < hi {
		if p.isPunct(i, hi, ";") {
			i++
			continue
		}
		if p.isPunct(i, hi, "#") && p.isPunct(i+1, hi, "!") && p.isPunct(i+2, hi, "[") {
			c, err := p.closing(i+2, hi)
			if err != nil {
				i = p.recover(i, hi, "%v", err)
				continue
			}
			inner = append(inner, p.text(i, c))
			i = c + 1
			continue
		}
		it, next := p.item(i, hi, sc)
		if it != nil {
			out = append(out, it)
		}
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return inner, out
}

func newItem(kind symbols.Kind, start, head int) *Item {
	return &Item{Kind: kind, Start: start, Head: head, BodyOpen: -1, BodyClose: -1}
}

func (p *parser) item(start, hi int, sc scope) (*Item, int) {
	attrs, i, err := p.attributes(start, hi)
	if err != nil {
		return nil, p.recover(start, hi, "%v", err)
	}
	if i >= hi {
		p.malformed(start, hi-1, "attribute is not followed by an item")
		return nil, hi
	}

	head := i
	it := newItem(0, p.sig[start], p.sig[head])
	it.Attrs = attrs
	i = p.visibility(it, i, hi)
	i = p.qualifiers(i, hi)
	if i >= hi {
		return nil, p.recover(start, hi, "expected item after qualifiers")
	}

	fn := p.dispatch(i, hi)
	if fn == nil {
		return nil, p.recover(start, hi, "expected item, found %q", p.tok(i).Text)
	}
	end, err := fn(p, it, sc, head, i, hi)
	if err != nil {
		return nil, p.recover(start, hi, "malformed %s: %v", p.tok(i).Text, err)
	}
	it.End = p.sig[end]
	it.Range = p.rangeOf(start, end)
	return it, end + 1
}

func (p *parser) dispatch(i, hi int) itemParser {
	t := p.tok(i)
	if t.Kind != lexer.Ident {
		return nil
	}
	switch t.Text {
	case "mod":
		return (*parser).module
	case "struct":
		return (*parser).structure
	case "union":
		if _, ok := p.name(i+1, hi); ok {
			return (*parser).structure
		}
	case "enum":
		return (*parser).enumeration
	case "trait":
		return (*parser).trait
	case "impl":
		return (*parser).impl
	case "fn":
		return (*parser).function
	case "const":
		if !p.isPunct(i+1, hi, "{") {
			return (*parser).constant
		}
	case "static":
		return (*parser).constant
	case "type":
		return (*parser).typeAlias
	case "use":
		return (*parser).use
	case "extern":
		if p.isIdent(i+1, hi, "crate") {
			return (*parser).externCrate
		}
		return (*parser).externBlock
	case "macro_rules":
		if p.isPunct(i+1, hi, "!") {
			return (*parser).macroRules
		}
	case "macro":
		if _, ok := p.name(i+1, hi); ok {
			return (*parser).macroDecl
		}
	}
	if p.macroPathEnd(i, hi) >= 0 {
		return (*parser).invocation
	}
	return nil
}

var errNoName = errors.New("expected identifier")

// optGenerics records a generic parameter list at i if present and returns the
// position after it.
func (p *parser) optGenerics(it *Item, i, hi int) (int, error) {
	if !p.isPunct(i, hi, "<") {
		return i, nil
	}
	end, err := p.generics(i, hi)
	if err != nil {
		return -1, err
	}
	it.Generics = p.text(i, end)
	return end + 1, nil
}

// body records the brace body opened at i.
func (p *parser) body(it *Item, i, hi int) (int, error) {
	c, err := p.closing(i, hi)
	if err != nil {
		return -1, err
	}
	it.BodyOpen, it.BodyClose = p.sig[i], p.sig[c]
	return c, nil
}

func (p *parser) module(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.Module
	it.Name = name
	j := i + 2
	it.Signature = p.text(head, j-1)

	switch {
	case p.isPunct(j, hi, ";"):
		return j, nil
	case p.isPunct(j, hi, "{"):
		c, err := p.body(it, j, hi)
		if err != nil {
			return -1, err
		}
		inner, children := p.items(j+1, c, scopeModule)
		it.Attrs = append(it.Attrs, inner...)
		it.Children = children
		return c, nil
	}
	return -1, errors.New("expected `;` or `{` after module name")
}

func (p *parser) structure(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.Struct
	it.Name = name
	j, err := p.optGenerics(it, i+2, hi)
	if err != nil {
		return -1, err
	}

	if p.isPunct(j, hi, "(") {
		c, err := p.closing(j, hi)
		if err != nil {
			return -1, err
		}
		it.Children = p.tupleFields(j+1, c)
		end := p.scan(c+1, hi, false, ";")
		if end < 0 {
			return -1, errors.New("expected `;` after tuple struct")
		}
		it.Signature = p.text(head, end-1)
		return end, nil
	}

	k := p.scan(j, hi, false, "{", ";")
	if k < 0 {
		return -1, errors.New("expected `{` or `;`")
	}
	it.Signature = p.text(head, k-1)
	if p.tok(k).Text == ";" {
		return k, nil
	}
	c, err := p.body(it, k, hi)
	if err != nil {
		return -1, err
	}
	it.Children = p.namedFields(k+1, c)
	return c, nil
}

func (p *parser) enumeration(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.Enum
	it.Name = name
	j, err := p.optGenerics(it, i+2, hi)
	if err != nil {
		return -1, err
	}
	k := p.scan(j, hi, false, "{")
	if k < 0 {
		return -1, errors.New("expected `{`")
	}
	it.Signature = p.text(head, k-1)
	c, err := p.body(it, k, hi)
	if err != nil {
		return -1, err
	}
	it.Children = p.variants(k+1, c)
	return c, nil
}

func (p *parser) trait(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.Trait
	it.Name = name
	j, err := p.optGenerics(it, i+2, hi)
	if err != nil {
		return -1, err
	}
	k := p.scan(j, hi, true, "{", ";", "=")
	if k < 0 {
		return -1, errors.New("expected `{`")
	}
	switch p.tok(k).Text {
	case "=":
		// Trait alias.
		end := p.scan(k+1, hi, false, ";")
		if end < 0 {
			return -1, errors.New("expected `;` after trait alias")
		}
		it.Signature = p.text(head, end-1)
		return end, nil
	case ";":
		it.Signature = p.text(head, k-1)
		return k, nil
	}
	it.Signature = p.text(head, k-1)
	c, err := p.body(it, k, hi)
	if err != nil {
		return -1, err
	}
	inner, children := p.items(k+1, c, scopeTrait)
	it.Attrs = append(it.Attrs, inner...)
	it.Children = children
	return c, nil
}

func (p *parser) impl(it *Item, _ scope, head, i, hi int) (int, error) {
	it.Kind = symbols.Impl
	j, err := p.optGenerics(it, i+1, hi)
	if err != nil {
		return -1, err
	}
	k := p.scan(j, hi, true, "{", ";")
	if k < 0 {
		return -1, errors.New("expected `{`")
	}

	// Split the header into trait and self type on a top-level `for`,
	// stopping at `where`.
	forAt, whereAt := -1, k
	depth := 0
	for m := j; m < k; m++ {
		t := p.tok(m)
		switch {
		case t.IsPunct("<"):
			depth++
		case t.IsPunct(">") && depth > 0:
			depth--
		case t.IsPunct("(") || t.IsPunct("["):
			if c := p.match[m]; c > m && c < k {
				m = c
			}
		case depth == 0 && t.IsIdent("for") && forAt < 0 && m > j:
			forAt = m
		case depth == 0 && t.IsIdent("where"):
			whereAt = m
		}
		if whereAt != k {
			break
		}
	}
	if forAt >= 0 {
		it.Trait = p.text(j, forAt-1)
		it.SelfType = p.text(forAt+1, whereAt-1)
		it.Name = "impl " + it.Trait + " for " + it.SelfType
	} else {
		it.SelfType = p.text(j, whereAt-1)
		it.Name = "impl " + it.SelfType
	}
	if it.SelfType == "" {
		return -1, errors.New("expected type")
	}
	it.Signature = p.text(head, k-1)
	if p.tok(k).Text == ";" {
		return k, nil
	}

	c, err := p.body(it, k, hi)
	if err != nil {
		return -1, err
	}
	inner, children := p.items(k+1, c, scopeImpl)
	it.Attrs = append(it.Attrs, inner...)
	it.Children = children
	return c, nil
}

func (p *parser) function(it *Item, sc scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.Function
	if sc == scopeTrait || sc == scopeImpl {
		it.Kind = symbols.Method
	}
	it.Name = name
	j, err := p.optGenerics(it, i+2, hi)
	if err != nil {
		return -1, err
	}
	if !p.isPunct(j, hi, "(") {
		return -1, errors.New("expected parameter list")
	}
	c, err := p.closing(j, hi)
	if err != nil {
		return -1, err
	}
	k := p.scan(c+1, hi, false, "{", ";")
	if k < 0 {
		return -1, errors.New("expected function body or `;`")
	}
	it.Signature = p.text(head, k-1)
	if p.tok(k).Text == ";" {
		return k, nil
	}
	return p.body(it, k, hi)
}

// constant parses const and static items, including static mut.
func (p *parser) constant(it *Item, sc scope, head, i, hi int) (int, error) {
	kw := p.tok(i).Text
	j := i + 1
	if kw == "static" && p.isIdent(j, hi, "mut") {
		j++
	}
	name, ok := p.name(j, hi)
	if !ok {
		return -1, errNoName
	}
	it.Name = name
	switch {
	case kw == "static":
		it.Kind = symbols.Static
	case sc == scopeTrait || sc == scopeImpl:
		it.Kind = symbols.AssocConst
	default:
		it.Kind = symbols.Const
	}

	k := p.scan(j+1, hi, true, "=", ";")
	if k < 0 {
		return -1, fmt.Errorf("expected `=` or `;` after %s", kw)
	}
	it.Signature = p.text(head, k-1)
	if p.tok(k).Text == ";" {
		return k, nil
	}
	end := p.scan(k+1, hi, false, ";")
	if end < 0 {
		return -1, fmt.Errorf("expected `;` after %s value", kw)
	}
	return end, nil
}

func (p *parser) typeAlias(it *Item, sc scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+1, hi)
	if !ok {
		return -1, errNoName
	}
	it.Name = name
	it.Kind = symbols.TypeAlias
	if sc == scopeTrait || sc == scopeImpl {
		it.Kind = symbols.AssocType
	}
	j, err := p.optGenerics(it, i+2, hi)
	if err != nil {
		return -1, err
	}
	end := p.scan(j, hi, true, ";")
	if end < 0 {
		return -1, errors.New("expected `;`")
	}
	it.Signature = p.text(head, end-1)
	return end, nil
}

func (p *parser) externBlock(it *Item, _ scope, head, i, hi int) (int, error) {
	it.Kind = symbols.ExternBlock
	it.Name = "extern"
	j := i + 1
	if j < hi && p.tok(j).Kind == lexer.Literal {
		it.Name = "extern " + p.tok(j).Text
		j++
	}
	if !p.isPunct(j, hi, "{") {
		return -1, errors.New("expected `{`")
	}
	it.Signature = p.text(head, j-1)
	c, err := p.body(it, j, hi)
	if err != nil {
		return -1, err
	}
	inner, children := p.items(j+1, c, scopeExtern)
	it.Attrs = append(it.Attrs, inner...)
	it.Children = children
	return c, nil
}

func (p *parser) macroRules(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+2, hi)
	if !ok {
		return -1, errNoName
	}
	it.Kind = symbols.MacroDef
	it.Name = name
	j := i + 3
	if !p.isOpener(j, hi) {
		return -1, errors.New("expected macro rules")
	}
	c, err := p.body(it, j, hi)
	if err != nil {
		return -1, err
	}
	end := c
	if p.tok(j).Text != "{" && p.isPunct(c+1, hi, ";") {
		end = c + 1
	}
	it.Signature = p.text(head, i+2)
	it.Text = p.raw(head, end)
	it.Patterns = p.matchers(j+1, c)
	return end, nil
}

// macroDecl parses `macro name(params) { body }` and `macro name { rules }`.
func (p *parser) macroDecl(it *Item, _ scope, head, i, hi int) (int, error) {
	name, _ := p.name(i+1, hi)
	it.Kind = symbols.MacroDef
	it.Name = name
	j := i + 2
	if p.isPunct(j, hi, "(") {
		c, err := p.closing(j, hi)
		if err != nil {
			return -1, err
		}
		it.Patterns = []string{p.text(j, c)}
		j = c + 1
	}
	if !p.isPunct(j, hi, "{") {
		return -1, errors.New("expected macro body")
	}
	c, err := p.body(it, j, hi)
	if err != nil {
		return -1, err
	}
	if it.Patterns == nil {
		it.Patterns = p.matchers(j+1, c)
	}
	it.Signature = p.text(head, j-1)
	it.Text = p.raw(head, c)
	return c, nil
}

// matchers collects the matcher of each `(matcher) => {transcriber}` rule.
func (p *parser) matchers(lo, hi int) []string {
	var out []string
	for i := lo; i < hi; i++ {
		if !p.isOpener(i, hi) {
			continue
		}
		c := p.match[i]
		if c < 0 || c >= hi {
			break
		}
		if !p.isPunct(c+1, hi, "=>") {
			i = c
			continue
		}
		out = append(out, p.text(i, c))
		i = c + 1
		if p.isOpener(i+1, hi) {
			if t := p.match[i+1]; t > 0 && t < hi {
				i = t
			}
		}
	}
	return out
}

// macroPathEnd returns the last path segment of `a::b!` at i, or -1 if i does
// not start an item-position macro invocation.
func (p *parser) macroPathEnd(i, hi int) int {
	if _, ok := p.name(i, hi); !ok {
		return -1
	}
	j := i
	for p.isPunct(j+1, hi, "::") {
		if _, ok := p.name(j+2, hi); !ok {
			return -1
		}
		j += 2
	}
	if !p.isPunct(j+1, hi, "!") || !p.isOpener(j+2, hi) {
		return -1
	}
	return j
}

func (p *parser) invocation(it *Item, _ scope, head, i, hi int) (int, error) {
	j := p.macroPathEnd(i, hi)
	g := j + 2
	c, err := p.body(it, g, hi)
	if err != nil {
		return -1, err
	}
	end := c
	if p.tok(g).Text != "{" && p.isPunct(c+1, hi, ";") {
		end = c + 1
	}
	it.Kind = symbols.MacroInvocation
	it.Name = strings.ReplaceAll(p.text(i, j), " ", "")
	it.Signature = p.text(head, c)
	it.Text = p.raw(head, c)
	return end, nil
}
