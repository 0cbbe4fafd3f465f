// Package docassoc binds documentation comments to the items they describe.
//
// An item receives the nearest outer doc block above it when only whitespace,
// plain comments and the item's own attributes lie in between and no blank line
// separates them. Inner doc blocks document the item whose body encloses them.
package docassoc

import (
	"github.com/mvp-joe/symdex/internal/comments"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/parser"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// Options tunes orphan reporting.
type Options struct {
	// ReportSuperseded reports doc blocks that are dropped because a later
	// doc block, separated by a blank line, is the one attached to the item.
	ReportSuperseded bool
}

// Result maps items to their documentation.
type Result struct {
	Docs        map[*parser.Item]*comments.Block
	Inner       map[*parser.Item][]string
	Root        []string // inner docs at file level
	Diagnostics []diag.Diagnostic
}

// Doc returns the lines attached to it, or nil.
func (r *Result) Doc(it *parser.Item) []string {
	if b, ok := r.Docs[it]; ok {
		return b.Lines
	}
	return nil
}

// Associate applies the association rules to every item in f.
func Associate(f *parser.File, blocks []comments.Block, opts Options) *Result {
	res := &Result{
		Docs:  make(map[*parser.Item]*comments.Block),
		Inner: make(map[*parser.Item][]string),
	}

	byLast := make(map[int]int, len(blocks))
	for i, b := range blocks {
		byLast[b.Last] = i
	}

	var items, bodies, opaque []*parser.Item
	f.Walk(func(it *parser.Item) {
		items = append(items, it)
		if !it.HasBody() {
			return
		}
		if it.Kind == symbols.MacroDef || it.Kind == symbols.MacroInvocation {
			opaque = append(opaque, it)
		} else {
			bodies = append(bodies, it)
		}
	})

	used := make([]bool, len(blocks))
	for _, it := range items {
		bi := preceding(f.Tokens, it, byLast)
		if bi < 0 || used[bi] {
			continue
		}
		used[bi] = true
		res.Docs[it] = &blocks[bi]
	}

	for i := range blocks {
		b := &blocks[i]
		if enclosing(opaque, b) != nil {
			continue
		}
		switch {
		case b.Kind == lexer.InnerDoc:
			if owner := enclosing(bodies, b); owner != nil {
				res.Inner[owner] = append(res.Inner[owner], b.Lines...)
			} else {
				res.Root = append(res.Root, b.Lines...)
			}
		case b.Kind.IsOuterDoc() && !used[i]:
			if supersededBy(f.Tokens, b) {
				if opts.ReportSuperseded {
					res.Diagnostics = append(res.Diagnostics, diag.New(diag.OrphanDocComment, b.Range,
						"doc comment is superseded by the doc comment after it"))
				}
				continue
			}
			res.Diagnostics = append(res.Diagnostics, diag.New(diag.OrphanDocComment, b.Range,
				"doc comment is not attached to any item"))
		}
	}
	return res
}

// preceding returns the index of the doc block attached to it, or -1.
func preceding(toks []lexer.Token, it *parser.Item, byLast map[int]int) int {
	newlines := 0
	for k := it.Head - 1; k >= 0; k-- {
		t := toks[k]
		switch {
		case t.Kind == lexer.Whitespace:
		case t.Kind == lexer.Newline && k >= it.Start:
			// Blank lines inside the item's attribute run do not detach its doc.
		case t.Kind == lexer.Newline:
			newlines++
			if newlines > 1 {
				return -1
			}
		case t.Kind == lexer.Comment:
			if t.Comment.IsOuterDoc() {
				if bi, ok := byLast[k]; ok {
					return bi
				}
				return -1
			}
			if t.Comment == lexer.InnerDoc {
				return -1
			}
			newlines = 0
		case k >= it.Start:
			// The item's own attributes.
			newlines = 0
		default:
			return -1
		}
	}
	return -1
}

// enclosing returns the innermost item in items whose body contains b.
func enclosing(items []*parser.Item, b *comments.Block) *parser.Item {
	var best *parser.Item
	for _, it := range items {
		if it.BodyOpen < b.First && b.Last < it.BodyClose {
			if best == nil || it.BodyClose-it.BodyOpen < best.BodyClose-best.BodyOpen {
				best = it
			}
		}
	}
	return best
}

// supersededBy reports whether the next token after b, ignoring whitespace, is
// another outer doc comment.
func supersededBy(toks []lexer.Token, b *comments.Block) bool {
	for k := b.Last + 1; k < len(toks); k++ {
		t := toks[k]
		switch t.Kind {
		case lexer.Whitespace, lexer.Newline:
			continue
		case lexer.Comment:
			return t.Comment.IsOuterDoc()
		}
		return false
	}
	return false
}
