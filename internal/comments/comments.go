// Package comments groups comment tokens into documentation-sized blocks.
package comments

import (
	"strings"

	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/source"
)

// Block is a run of same-kind comments. Line-oriented comments on consecutive
// lines merge into one block; each block comment is a block of its own.
type Block struct {
	Kind  lexer.CommentKind
	Lines []string
	First int // index of the first comment token
	Last  int // index of the last comment token
	Range source.Range
}

// Text joins the stripped lines with newlines.
func (b Block) Text() string {
	return strings.Join(b.Lines, "\n")
}

// Group scans toks and returns every comment block in source order.
func Group(toks []lexer.Token) []Block {
	var blocks []Block
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Kind != lexer.Comment {
			continue
		}
		if tok.Block {
			blocks = append(blocks, Block{
				Kind:  tok.Comment,
				Lines: stripBlock(tok.Text),
				First: i,
				Last:  i,
				Range: tok.Range(),
			})
			continue
		}

		b := Block{
			Kind:  tok.Comment,
			Lines: []string{stripLine(tok)},
			First: i,
			Last:  i,
			Range: tok.Range(),
		}
		for {
			next := continuation(toks, b.Last, tok.Comment)
			if next < 0 {
				break
			}
			b.Lines = append(b.Lines, stripLine(toks[next]))
			b.Last = next
			b.Range = b.Range.Join(toks[next].Range())
		}
		blocks = append(blocks, b)
		i = b.Last
	}
	return blocks
}

// continuation returns the index of the line comment of the given kind that
// continues the run ending at last, or -1. Only indentation and a single
// newline may separate the two.
func continuation(toks []lexer.Token, last int, kind lexer.CommentKind) int {
	newlines := 0
	for j := last + 1; j < len(toks); j++ {
		switch toks[j].Kind {
		case lexer.Whitespace:
		case lexer.Newline:
			newlines++
			if newlines > 1 {
				return -1
			}
		case lexer.Comment:
			if newlines == 1 && !toks[j].Block && toks[j].Comment == kind {
				return j
			}
			return -1
		default:
			return -1
		}
	}
	return -1
}

func marker(kind lexer.CommentKind) string {
	switch kind {
	case lexer.LineDoc:
		return "///"
	case lexer.InnerDoc:
		return "//!"
	}
	return "//"
}

func stripLine(tok lexer.Token) string {
	s := strings.TrimPrefix(tok.Text, marker(tok.Comment))
	s = strings.TrimPrefix(s, " ")
	return strings.TrimRight(s, " \t\r")
}

// stripBlock removes the opener and closer, leading " * " decoration, and blank
// first and last lines.
func stripBlock(text string) []string {
	switch {
	case strings.HasPrefix(text, "/**"), strings.HasPrefix(text, "/*!"):
		text = text[3:]
	default:
		text = text[2:]
	}
	text = strings.TrimSuffix(text, "*/")

	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for i, l := range raw {
		l = strings.TrimRight(l, " \t\r")
		if i > 0 {
			l = strings.TrimLeft(l, " \t")
			if strings.HasPrefix(l, "*") {
				l = l[1:]
			}
		}
		lines = append(lines, strings.TrimPrefix(l, " "))
	}

	if len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
