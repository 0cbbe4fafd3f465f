package docassoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symdex/internal/comments"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/parser"
)

// Test Plan for Associate:
// - A doc run directly above an item attaches; the next undocumented item gets nothing
// - Doc comments below an item never attach to it and are reported as orphans
// - Of two doc blocks separated by a blank line only the nearer attaches;
//   the farther is dropped silently unless ReportSuperseded is set
// - Attributes and plain comments between doc and item are transparent; blank lines are not
// - Blank lines between an item's attributes and its keyword keep the doc attached
// - Inner docs attach to the file root or to the enclosing body
// - Doc comments inside macro bodies are ignored; inside function bodies they are orphans
// - Fields, variants and methods are documented the same way as top-level items

func associate(t *testing.T, src string, opts Options) (*parser.File, *Result) {
	t.Helper()
	toks, lexDiags := lexer.Tokenize([]byte(src))
	require.Empty(t, lexDiags)
	f, parseDiags := parser.Parse(toks)
	require.Empty(t, parseDiags)
	return f, Associate(f, comments.Group(toks), opts)
}

func find(f *parser.File, name string) *parser.Item {
	var out *parser.Item
	f.Walk(func(it *parser.Item) {
		if out == nil && it.Name == name {
			out = it
		}
	})
	return out
}

func codes(ds []diag.Diagnostic) []diag.Code {
	out := make([]diag.Code, len(ds))
	for i, d := range ds {
		out[i] = d.Code
	}
	return out
}

func TestAssociate_AdjacentDoc(t *testing.T) {
	t.Parallel()

	f, res := associate(t, "/// hi\npub fn a() {}\npub fn b() {}\n", Options{})
	assert.Equal(t, []string{"hi"}, res.Doc(find(f, "a")))
	assert.Nil(t, res.Doc(find(f, "b")))
	assert.Empty(t, res.Diagnostics)
}

func TestAssociate_BlankDocLinesPreserved(t *testing.T) {
	t.Parallel()

	f, res := associate(t, "///\n/// Empty documentation lines\n///\n/// With gaps\n///\npub fn empty_doc_lines() {}\n", Options{})
	assert.Equal(t, []string{"", "Empty documentation lines", "", "With gaps", ""}, res.Doc(find(f, "empty_doc_lines")))
}

func TestAssociate_DocBelowIsOrphan(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `#[derive(Debug)]
pub struct BelowDocPerson {
    pub name: String,
}
/// Documentation below struct definition (edge case)

impl BelowDocPerson {}
`, Options{})
	assert.Nil(t, res.Doc(find(f, "BelowDocPerson")))
	assert.Nil(t, res.Doc(find(f, "impl BelowDocPerson")))
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, diag.OrphanDocComment, res.Diagnostics[0].Code)
	assert.Equal(t, diag.SevInfo, res.Diagnostics[0].Severity)
	assert.Equal(t, 5, res.Diagnostics[0].Range.StartLine)
}

func TestAssociate_Superseded(t *testing.T) {
	t.Parallel()

	src := `impl StandardPerson {
    pub fn get_age(&self) -> u32 { self.age }
    /// Documentation after method definition (edge case)
    /// Tests post-definition documentation extraction

    /// Updates the person's age
    pub fn set_age(&mut self, age: u32) {}
}
`
	f, res := associate(t, src, Options{})
	assert.Nil(t, res.Doc(find(f, "get_age")))
	assert.Equal(t, []string{"Updates the person's age"}, res.Doc(find(f, "set_age")))
	assert.Empty(t, res.Diagnostics)

	_, res = associate(t, src, Options{ReportSuperseded: true})
	assert.Equal(t, []diag.Code{diag.OrphanDocComment}, codes(res.Diagnostics))
}

func TestAssociate_TransparentAttributesAndComments(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `/// Async function
#[cfg(feature = "async")]
#[inline]
pub async fn async_function() {}

/// Plain comment between
// not documentation
pub fn with_plain() {}

/// Separated from the attribute

#[derive(Debug)]
pub struct Separated;
`, Options{})
	assert.Equal(t, []string{"Async function"}, res.Doc(find(f, "async_function")))
	assert.Equal(t, []string{"Plain comment between"}, res.Doc(find(f, "with_plain")))
	assert.Nil(t, res.Doc(find(f, "Separated")))
	assert.Equal(t, []diag.Code{diag.OrphanDocComment}, codes(res.Diagnostics))
}

func TestAssociate_BlankLineInsideAttributes(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `/// Attributes then a gap
#[derive(Debug)]

pub struct AttrGap;

/// Gap between attributes
#[derive(Clone)]

#[repr(C)]
pub struct AttrSplit {
    /// The field
    #[allow(dead_code)]

    pub x: u8,
}
`, Options{})
	assert.Equal(t, []string{"Attributes then a gap"}, res.Doc(find(f, "AttrGap")))
	assert.Equal(t, []string{"Gap between attributes"}, res.Doc(find(f, "AttrSplit")))
	assert.Equal(t, []string{"The field"}, res.Doc(find(f, "x")))
	assert.Empty(t, res.Diagnostics)
}

func TestAssociate_BlockDocAndPlainBlock(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `/*
 * C-style block comment
 */
pub fn c_style_comments() {}

/**
 * JavaDoc-style comment
 * @return nothing
 */
pub fn javadoc_style() {}
`, Options{})
	assert.Nil(t, res.Doc(find(f, "c_style_comments")))
	assert.Equal(t, []string{"JavaDoc-style comment", "@return nothing"}, res.Doc(find(f, "javadoc_style")))
}

func TestAssociate_InnerDocs(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `//! Main module
//!
//! More text

/// Module docs
pub mod inner {
    //! Inner module docs
    pub fn f() {}
}
`, Options{})
	assert.Equal(t, []string{"Main module", "", "More text"}, res.Root)
	inner := find(f, "inner")
	assert.Equal(t, []string{"Module docs"}, res.Doc(inner))
	assert.Equal(t, []string{"Inner module docs"}, res.Inner[inner])
	assert.Nil(t, res.Doc(find(f, "f")))
	assert.Empty(t, res.Diagnostics)
}

func TestAssociate_MacroAndFunctionBodies(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `/// Macro definition
macro_rules! test_macro {
    ($name:ident) => {
        /// Generated by macro
        pub fn $name() {}
    };
}

pub fn mixed_comment_styles() {
    /// This is incorrectly placed documentation
    let x = 5;
    /** Another block comment */
    println!("{}", x);
}
`, Options{})
	assert.Equal(t, []string{"Macro definition"}, res.Doc(find(f, "test_macro")))
	assert.Nil(t, res.Doc(find(f, "mixed_comment_styles")))
	assert.Equal(t, []diag.Code{diag.OrphanDocComment, diag.OrphanDocComment}, codes(res.Diagnostics))
	assert.Equal(t, 10, res.Diagnostics[0].Range.StartLine)
}

func TestAssociate_NestedMembers(t *testing.T) {
	t.Parallel()

	f, res := associate(t, `/// Enum
pub enum Status {
    /// Active status
    Active,
    /// Pending with timestamp
    Pending {
        /// When
        timestamp: u64,
        priority: u8,
    },
}

pub struct MixedVisibility {
    /// Public documented field
    pub public_field: String,

    pub undocumented_public: i32,
}

impl MixedVisibility {
    pub fn no_doc_method(&self) {}

    /// Method with doc
    pub fn with_doc_method(&self) {}
}

/// Re-export
pub use a::B;
`, Options{})
	assert.Equal(t, []string{"Enum"}, res.Doc(find(f, "Status")))
	assert.Equal(t, []string{"Active status"}, res.Doc(find(f, "Active")))
	assert.Equal(t, []string{"Pending with timestamp"}, res.Doc(find(f, "Pending")))
	assert.Equal(t, []string{"When"}, res.Doc(find(f, "timestamp")))
	assert.Nil(t, res.Doc(find(f, "priority")))
	assert.Equal(t, []string{"Public documented field"}, res.Doc(find(f, "public_field")))
	assert.Nil(t, res.Doc(find(f, "undocumented_public")))
	assert.Nil(t, res.Doc(find(f, "no_doc_method")))
	assert.Equal(t, []string{"Method with doc"}, res.Doc(find(f, "with_doc_method")))
	assert.Equal(t, []string{"Re-export"}, res.Doc(find(f, "use")))
	assert.Empty(t, res.Diagnostics)
}
