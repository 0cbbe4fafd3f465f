package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/source"
)

type lexer struct {
	src   []byte
	off   int
	line  int
	toks  []Token
	diags []diag.Diagnostic
}

// Tokenize scans src into tokens.
//
// Unterminated block comments and string literals are reported as LexError. The
// opening delimiter is then emitted as punctuation and scanning resumes right
// after it, so the rest of the input is still tokenized as code.
func Tokenize(src []byte) ([]Token, []diag.Diagnostic) {
	lx := &lexer{
		src:  src,
		line: 1,
		toks: make([]Token, 0, len(src)/4),
	}
	for lx.off < len(lx.src) {
		lx.next()
	}
	return lx.toks, lx.diags
}

func (lx *lexer) peek(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

// emit appends the token spanning [lx.off, end) and advances past it.
func (lx *lexer) emit(kind Kind, end int) *Token {
	text := string(lx.src[lx.off:end])
	nl := strings.Count(text, "\n")
	lx.toks = append(lx.toks, Token{
		Kind:    kind,
		Text:    text,
		Offset:  lx.off,
		End:     end,
		Line:    lx.line,
		EndLine: lx.line + nl,
	})
	lx.line += nl
	lx.off = end
	return &lx.toks[len(lx.toks)-1]
}

func (lx *lexer) lexError(end int, msg string) {
	text := lx.src[lx.off:end]
	lx.diags = append(lx.diags, diag.New(diag.LexError, source.Range{
		StartLine:   lx.line,
		EndLine:     lx.line + strings.Count(string(text), "\n"),
		StartOffset: lx.off,
		EndOffset:   end,
	}, "%s", msg))
}

func (lx *lexer) next() {
	c := lx.src[lx.off]
	switch {
	case c == '\n':
		lx.emit(Newline, lx.off+1)
	case c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v':
		end := lx.off
		for end < len(lx.src) && isSpace(lx.src[end]) {
			end++
		}
		lx.emit(Whitespace, end)
	case c == '/' && lx.peek(1) == '/':
		lx.lineComment()
	case c == '/' && lx.peek(1) == '*':
		lx.blockComment()
	case c == '"':
		lx.quoted(lx.off, '"', "unterminated string literal")
	case c == '\'':
		lx.quote()
	case c >= '0' && c <= '9':
		lx.number()
	case c == 'r' || c == 'b' || c == 'c':
		if !lx.prefixed() {
			lx.ident()
		}
	default:
		r, size := utf8.DecodeRune(lx.src[lx.off:])
		if isIdentStart(r) {
			lx.ident()
			return
		}
		lx.punct(size)
	}
}

func (lx *lexer) lineComment() {
	end := lx.off
	for end < len(lx.src) && lx.src[end] != '\n' {
		end++
	}
	text := lx.src[lx.off:end]
	kind := PlainLine
	switch {
	case len(text) > 2 && text[2] == '!':
		kind = InnerDoc
	case len(text) > 2 && text[2] == '/' && (len(text) == 3 || text[3] != '/'):
		kind = LineDoc
	}
	tok := lx.emit(Comment, end)
	tok.Comment = kind
}

func (lx *lexer) blockComment() {
	depth := 0
	end := lx.off
	for end < len(lx.src) {
		if lx.src[end] == '/' && end+1 < len(lx.src) && lx.src[end+1] == '*' {
			depth++
			end += 2
			continue
		}
		if lx.src[end] == '*' && end+1 < len(lx.src) && lx.src[end+1] == '/' {
			depth--
			end += 2
			if depth == 0 {
				break
			}
			continue
		}
		end++
	}
	if depth > 0 {
		lx.lexError(len(lx.src), "unterminated block comment")
		lx.emit(Punct, lx.off+1)
		lx.emit(Punct, lx.off+1)
		return
	}

	text := lx.src[lx.off:end]
	kind := PlainBlock
	switch {
	case text[2] == '!':
		kind = InnerDoc
	case text[2] == '*' && len(text) > 4 && text[3] != '*':
		kind = BlockDoc
	}
	tok := lx.emit(Comment, end)
	tok.Comment = kind
	tok.Block = true
}

// quoted scans an escaped literal. start is the first byte of the literal
// including any prefix such as b or c.
func (lx *lexer) quoted(start int, quote byte, msg string) {
	end := start
	for end < len(lx.src) && lx.src[end] != quote {
		end++
	}
	end++ // opening quote
	for end < len(lx.src) {
		switch lx.src[end] {
		case '\\':
			end += 2
			continue
		case quote:
			lx.emit(Literal, end+1)
			return
		}
		end++
	}
	lx.lexError(len(lx.src), msg)
	// Emit the prefix (if any) and opening quote, then continue as code.
	open := start
	for lx.src[open] != quote {
		open++
	}
	if open > lx.off {
		lx.emit(Ident, open)
	}
	lx.emit(Punct, lx.off+1)
}

// rawString scans r#"..."# style literals. hashStart points at the first '#' or '"'.
func (lx *lexer) rawString(hashStart int) {
	hashes := 0
	i := hashStart
	for i < len(lx.src) && lx.src[i] == '#' {
		hashes++
		i++
	}
	// lx.src[i] == '"'
	i++
	for i < len(lx.src) {
		if lx.src[i] == '"' {
			j := i + 1
			n := 0
			for j < len(lx.src) && n < hashes && lx.src[j] == '#' {
				n++
				j++
			}
			if n == hashes {
				lx.emit(Literal, j)
				return
			}
		}
		i++
	}
	lx.lexError(len(lx.src), "unterminated raw string literal")
	lx.emit(Ident, hashStart)
	lx.emit(Punct, lx.off+1)
}

// prefixed handles literals and identifiers starting with r, b or c:
// r"..", r#".."#, r#ident, b"..", b'..', br"..", c"..", cr"..".
// Returns false if the input is a plain identifier.
func (lx *lexer) prefixed() bool {
	c := lx.src[lx.off]
	i := lx.off + 1
	if (c == 'b' || c == 'c') && lx.peek(1) == 'r' {
		i++
	}
	raw := lx.src[i-1] == 'r'

	switch {
	case raw && i < len(lx.src) && lx.src[i] == '"':
		lx.rawString(i)
		return true
	case raw && i < len(lx.src) && lx.src[i] == '#':
		j := i
		for j < len(lx.src) && lx.src[j] == '#' {
			j++
		}
		if j < len(lx.src) && lx.src[j] == '"' {
			lx.rawString(i)
			return true
		}
		if c == 'r' && i == lx.off+1 && j == i+1 && j < len(lx.src) {
			if r, _ := utf8.DecodeRune(lx.src[j:]); isIdentStart(r) {
				lx.identFrom(j)
				return true
			}
		}
		return false
	case !raw && (c == 'b' || c == 'c') && lx.peek(1) == '"':
		lx.quoted(lx.off, '"', "unterminated string literal")
		return true
	case !raw && c == 'b' && lx.peek(1) == '\'':
		if end, ok := lx.charEnd(lx.off + 1); ok {
			lx.emit(Literal, end)
			return true
		}
	}
	return false
}

// charEnd returns the end of the character literal whose opening quote is at i.
func (lx *lexer) charEnd(i int) (int, bool) {
	if i+2 >= len(lx.src) {
		return 0, false
	}
	if lx.src[i+1] == '\\' {
		// Skip the escaped character, then find the closing quote.
		for end := i + 3; end < len(lx.src) && end-i < 16; end++ {
			switch lx.src[end] {
			case '\'':
				return end + 1, true
			case '\n':
				return 0, false
			}
		}
		return 0, false
	}
	r, size := utf8.DecodeRune(lx.src[i+1:])
	closing := i + 1 + size
	if r != '\n' && r != '\'' && closing < len(lx.src) && lx.src[closing] == '\'' {
		return closing + 1, true
	}
	return 0, false
}

// quote handles a single quote: char literal, lifetime or stray quote.
func (lx *lexer) quote() {
	if end, ok := lx.charEnd(lx.off); ok {
		lx.emit(Literal, end)
		return
	}
	if lx.peek(1) == '\\' {
		lx.lexError(min(lx.off+2, len(lx.src)), "unterminated character literal")
		lx.emit(Punct, lx.off+1)
		return
	}
	if lx.off+1 < len(lx.src) {
		if r, _ := utf8.DecodeRune(lx.src[lx.off+1:]); isIdentStart(r) {
			end := lx.off + 1
			for end < len(lx.src) {
				r, size := utf8.DecodeRune(lx.src[end:])
				if !isIdentContinue(r) {
					break
				}
				end += size
			}
			lx.emit(Lifetime, end)
			return
		}
	}
	lx.emit(Punct, lx.off+1)
}

func (lx *lexer) number() {
	end := lx.off
	hex := lx.peek(0) == '0' && (lx.peek(1) == 'x' || lx.peek(1) == 'X')
	for end < len(lx.src) {
		b := lx.src[end]
		switch {
		case isAlnum(b) || b == '_':
			end++
		case b == '.' && end+1 < len(lx.src) && lx.src[end+1] >= '0' && lx.src[end+1] <= '9':
			end++
		case (b == '+' || b == '-') && !hex && end > lx.off && (lx.src[end-1] == 'e' || lx.src[end-1] == 'E'):
			end++
		default:
			lx.emit(Literal, end)
			return
		}
	}
	lx.emit(Literal, end)
}

func (lx *lexer) ident() {
	lx.identFrom(lx.off)
}

func (lx *lexer) identFrom(start int) {
	end := start
	for end < len(lx.src) {
		r, size := utf8.DecodeRune(lx.src[end:])
		if !isIdentContinue(r) {
			break
		}
		end += size
	}
	lx.emit(Ident, end)
}

var multiPunct = []string{"::", "->", "=>"}

func (lx *lexer) punct(size int) {
	for _, p := range multiPunct {
		if strings.HasPrefix(string(lx.src[lx.off:min(lx.off+2, len(lx.src))]), p) {
			lx.emit(Punct, lx.off+len(p))
			return
		}
	}
	lx.emit(Punct, lx.off+size)
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\f' || b == '\v'
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
