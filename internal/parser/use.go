package parser

import (
	"errors"

	"github.com/mvp-joe/symdex/internal/lexer"
)

func (p *parser) use(it *Item, _ scope, head, i, hi int) (int, error) {
	end := p.scan(i+1, hi, false, ";")
	if end < 0 {
		return -1, errors.New("expected `;`")
	}
	it.Name = "use"
	it.Signature = p.text(head, end-1)
	it.Use = &UseDecl{Imports: p.useTree(i+1, end, nil)}
	return end, nil
}

func (p *parser) externCrate(it *Item, _ scope, head, i, hi int) (int, error) {
	name, ok := p.name(i+2, hi)
	if !ok {
		return -1, errNoName
	}
	visible := name
	j := i + 3
	if p.isIdent(j, hi, "as") {
		if alias, ok := p.name(j+1, hi); ok {
			visible = alias
		}
		j += 2
	}
	if !p.isPunct(j, hi, ";") {
		return -1, errors.New("expected `;`")
	}
	it.Name = "extern crate"
	it.Signature = p.text(head, j-1)
	it.Use = &UseDecl{
		ExternCrate: true,
		Imports:     []Import{{Name: visible, Path: []string{name}}},
	}
	return j, nil
}

// useTree flattens the use tree in [lo, hi) into imports. prefix holds the
// path segments of enclosing groups.
func (p *parser) useTree(lo, hi int, prefix []string) []Import {
	segs := append([]string(nil), prefix...)
	i := lo
	if p.isPunct(i, hi, "::") {
		i++
	}
	for i < hi {
		t := p.tok(i)
		switch {
		case t.IsPunct("*"):
			return []Import{{Name: "*", Path: segs, Glob: true}}

		case t.IsPunct("{"):
			c := p.match[i]
			if c < 0 || c > hi {
				return nil
			}
			var out []Import
			for k := i + 1; k < c; {
				e := p.scan(k, c, false, ",")
				if e < 0 {
					e = c
				}
				if e > k {
					out = append(out, p.useTree(k, e, segs)...)
				}
				k = e + 1
			}
			return out

		case t.Kind == lexer.Ident:
			name, _ := p.name(i, hi)
			if p.isPunct(i+1, hi, "::") {
				segs = append(segs, name)
				i += 2
				continue
			}
			path := append(append([]string(nil), segs...), name)
			visible := name
			if name == "self" && len(segs) > 0 {
				path = segs
				visible = segs[len(segs)-1]
			}
			if p.isIdent(i+1, hi, "as") {
				if alias, ok := p.name(i+2, hi); ok {
					visible = alias
				}
			}
			return []Import{{Name: visible, Path: path}}

		default:
			return nil
		}
	}
	return nil
}
