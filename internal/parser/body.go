package parser

import (
	"strconv"

	"github.com/mvp-joe/symdex/internal/symbols"
)

// namedFields parses `name: Type` fields in [lo, hi).
func (p *parser) namedFields(lo, hi int) []*Item {
	var out []*Item
	i := lo
	for i < hi {
		if p.isPunct(i, hi, ",") {
			i++
			continue
		}
		f, next := p.field(i, hi)
		if f != nil {
			out = append(out, f)
		}
		i = next
	}
	return out
}

func (p *parser) field(start, hi int) (*Item, int) {
	end := p.scan(start, hi, true, ",")
	if end < 0 {
		end = hi
	}
	attrs, i, err := p.attributes(start, end)
	if err != nil || i >= end {
		p.malformed(start, end-1, "malformed field")
		return nil, end + 1
	}

	f := newItem(symbols.Field, p.sig[start], p.sig[i])
	f.Attrs = attrs
	head := i
	i = p.visibility(f, i, end)
	name, ok := p.name(i, end)
	if !ok || !p.isPunct(i+1, end, ":") {
		p.malformed(start, end-1, "malformed field")
		return nil, end + 1
	}
	f.Name = name
	f.Signature = p.text(head, end-1)
	f.End = p.sig[end-1]
	f.Range = p.rangeOf(start, end-1)
	return f, end + 1
}

// tupleFields parses the positional fields of a tuple struct or variant.
// Fields are named by position: "0", "1", ...
func (p *parser) tupleFields(lo, hi int) []*Item {
	var out []*Item
	i := lo
	for i < hi {
		end := p.scan(i, hi, true, ",")
		if end < 0 {
			end = hi
		}
		attrs, j, err := p.attributes(i, end)
		if err != nil {
			p.malformed(i, end-1, "malformed field")
			i = end + 1
			continue
		}
		if j < end {
			f := newItem(symbols.Field, p.sig[i], p.sig[j])
			f.Attrs = attrs
			f.Name = strconv.Itoa(len(out))
			p.visibility(f, j, end)
			f.Signature = p.text(j, end-1)
			f.End = p.sig[end-1]
			f.Range = p.rangeOf(i, end-1)
			out = append(out, f)
		}
		i = end + 1
	}
	return out
}

func (p *parser) variants(lo, hi int) []*Item {
	var out []*Item
	i := lo
	for i < hi {
		if p.isPunct(i, hi, ",") {
			i++
			continue
		}
		// A discriminant is an expression: `<` there is a comparison or shift.
		end := p.scan(i, hi, true, "=", ",")
		if end >= 0 && p.isPunct(end, hi, "=") {
			end = p.scan(end+1, hi, false, ",")
		}
		if end < 0 {
			end = hi
		}
		attrs, j, err := p.attributes(i, end)
		if err != nil || j >= end {
			p.malformed(i, end-1, "malformed variant")
			i = end + 1
			continue
		}

		v := newItem(symbols.Variant, p.sig[i], p.sig[j])
		v.Attrs = attrs
		head := j
		j = p.visibility(v, j, end)
		name, ok := p.name(j, end)
		if !ok {
			p.malformed(i, end-1, "malformed variant")
			i = end + 1
			continue
		}
		v.Name = name
		switch {
		case p.isPunct(j+1, end, "("):
			if c := p.match[j+1]; c > 0 && c < end {
				v.Children = p.tupleFields(j+2, c)
			}
		case p.isPunct(j+1, end, "{"):
			if c := p.match[j+1]; c > 0 && c < end {
				v.BodyOpen, v.BodyClose = p.sig[j+1], p.sig[c]
				v.Children = p.namedFields(j+2, c)
			}
		}
		v.Signature = p.text(head, end-1)
		v.End = p.sig[end-1]
		v.Range = p.rangeOf(i, end-1)
		out = append(out, v)
		i = end + 1
	}
	return out
}
