package comments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symdex/internal/lexer"
)

// Test Plan for Group:
// - Consecutive /// lines merge; a blank line splits them
// - Runs of different kinds never merge (/// next to //)
// - Blank doc lines are kept as empty strings
// - Block comments are stripped of opener, closer and * decoration
// - Indented runs inside bodies still merge
// - Token index ranges point back into the token slice

func group(t *testing.T, src string) ([]lexer.Token, []Block) {
	t.Helper()
	toks, diags := lexer.Tokenize([]byte(src))
	require.Empty(t, diags)
	return toks, Group(toks)
}

func TestGroup_MergesConsecutiveLines(t *testing.T) {
	t.Parallel()

	_, blocks := group(t, "/// one\n/// two\n///\n/// four\nfn f() {}\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, lexer.LineDoc, blocks[0].Kind)
	assert.Equal(t, []string{"one", "two", "", "four"}, blocks[0].Lines)
	assert.Equal(t, 1, blocks[0].Range.StartLine)
	assert.Equal(t, 4, blocks[0].Range.EndLine)
}

func TestGroup_BlankLineSplits(t *testing.T) {
	t.Parallel()

	_, blocks := group(t, "/// far\n\n/// near\nfn f() {}\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"far"}, blocks[0].Lines)
	assert.Equal(t, []string{"near"}, blocks[1].Lines)
}

func TestGroup_KindsDoNotMerge(t *testing.T) {
	t.Parallel()

	_, blocks := group(t, "//! inner\n/// outer\n// plain\n//// also plain\n")
	require.Len(t, blocks, 3)
	assert.Equal(t, lexer.InnerDoc, blocks[0].Kind)
	assert.Equal(t, lexer.LineDoc, blocks[1].Kind)
	assert.Equal(t, lexer.PlainLine, blocks[2].Kind)
	assert.Equal(t, []string{"plain", "// also plain"}, blocks[2].Lines)
}

func TestGroup_IndentedRun(t *testing.T) {
	t.Parallel()

	toks, blocks := group(t, "impl X {\n    /// a\n    /// b\n    fn f() {}\n}\n")
	require.Len(t, blocks, 1)
	assert.Equal(t, []string{"a", "b"}, blocks[0].Lines)
	assert.Equal(t, "/// a", toks[blocks[0].First].Text)
	assert.Equal(t, "/// b", toks[blocks[0].Last].Text)
}

func TestGroup_BlockComments(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		kind lexer.CommentKind
		want []string
	}{
		{
			name: "single line",
			src:  "/** Block doc */",
			kind: lexer.BlockDoc,
			want: []string{"Block doc"},
		},
		{
			name: "decorated",
			src:  "/** Block comment documentation style\n     * This tests alternative documentation format\n     */",
			kind: lexer.BlockDoc,
			want: []string{"Block comment documentation style", "This tests alternative documentation format"},
		},
		{
			name: "blank first line",
			src:  "/** \n * JavaDoc-style comment\n *\n * @return nothing\n */",
			kind: lexer.BlockDoc,
			want: []string{"JavaDoc-style comment", "", "@return nothing"},
		},
		{
			name: "inner",
			src:  "/*! crate docs */",
			kind: lexer.InnerDoc,
			want: []string{"crate docs"},
		},
		{
			name: "plain",
			src:  "/* \n * C-style\n */",
			kind: lexer.PlainBlock,
			want: []string{"C-style"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, blocks := group(t, tt.src)
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.kind, blocks[0].Kind)
			assert.Equal(t, tt.want, blocks[0].Lines)
		})
	}
}

func TestGroup_AdjacentBlockCommentsStaySeparate(t *testing.T) {
	t.Parallel()

	_, blocks := group(t, "/** a */\n/** b */\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Text())
	assert.Equal(t, "b", blocks[1].Text())
}
