// Package lexer turns Rust source text into a flat stream of classified tokens.
//
// The stream is lossless: every byte of the input belongs to exactly one token,
// including whitespace, newlines and comments. Later stages rely on this to
// measure adjacency between comments and declarations.
package lexer

import "github.com/mvp-joe/symdex/internal/source"

// Kind classifies a token.
type Kind uint8

const (
	Whitespace Kind = iota
	Newline
	Comment
	Ident
	Lifetime
	Literal
	Punct
)

func (k Kind) String() string {
	switch k {
	case Whitespace:
		return "whitespace"
	case Newline:
		return "newline"
	case Comment:
		return "comment"
	case Ident:
		return "ident"
	case Lifetime:
		return "lifetime"
	case Literal:
		return "literal"
	case Punct:
		return "punct"
	}
	return "unknown"
}

// CommentKind distinguishes the five comment styles.
type CommentKind uint8

const (
	NotComment CommentKind = iota
	LineDoc                // ///
	BlockDoc               // /** */
	InnerDoc               // //! and /*! */
	PlainLine              // //
	PlainBlock             // /* */
)

func (c CommentKind) String() string {
	switch c {
	case LineDoc:
		return "line-doc"
	case BlockDoc:
		return "block-doc"
	case InnerDoc:
		return "inner-doc"
	case PlainLine:
		return "line"
	case PlainBlock:
		return "block"
	}
	return "none"
}

// IsOuterDoc reports whether comments of this kind document the following item.
func (c CommentKind) IsOuterDoc() bool {
	return c == LineDoc || c == BlockDoc
}

// Token is a single lexeme. Offsets are byte offsets into the source; lines are 1-indexed.
type Token struct {
	Kind    Kind
	Comment CommentKind
	Block   bool // comment written as /* ... */
	Text    string
	Offset  int
	End     int
	Line    int
	EndLine int
}

// Trivia reports whether the token carries no code: whitespace, newlines and comments.
func (t Token) Trivia() bool {
	return t.Kind == Whitespace || t.Kind == Newline || t.Kind == Comment
}

// IsPunct reports whether t is the punctuation s.
func (t Token) IsPunct(s string) bool {
	return t.Kind == Punct && t.Text == s
}

// IsIdent reports whether t is the identifier or keyword s.
func (t Token) IsIdent(s string) bool {
	return t.Kind == Ident && t.Text == s
}

// Range returns the token's source range.
func (t Token) Range() source.Range {
	return source.Range{
		StartLine:   t.Line,
		EndLine:     t.EndLine,
		StartOffset: t.Offset,
		EndOffset:   t.End,
	}
}
