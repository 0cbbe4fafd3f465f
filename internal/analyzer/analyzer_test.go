package analyzer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// Test Plan for analyzer:
// - The fixture crate merges into one forest with modules from every unit
// - Outer docs attach with markers stripped; blank doc lines are kept as ""
// - Docs below a declaration are orphaned; superseded blocks are dropped silently
// - Field and method visibility qualifiers are preserved
// - pub use submodule::SubmoduleStruct resolves to the definition itself
// - A doc attaches to the next item only
// - Malformed items yield diagnostics and a partial tree
// - AnalyzeAll is order independent, reports progress and honours cancellation
// - Cached results are reused and never modified by Merge
// - Diagnostics are capped per unit

func fixture(t *testing.T) []Unit {
	t.Helper()
	base := filepath.Join("..", "..", "testdata", "rust")
	var units []Unit
	err := filepath.WalkDir(filepath.Join(base, "src"), func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".rs" {
			return err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		units = append(units, Unit{ID: filepath.ToSlash(rel), Source: src})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, units, 7)
	return units
}

func fixtureIndex(t *testing.T, opts ...Option) (*query.Index, []diag.Diagnostic) {
	t.Helper()
	idx, diags, err := New(opts...).Run(context.Background(), fixture(t))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx, diags
}

func lookup(t *testing.T, idx *query.Index, path string) *symbols.Symbol {
	t.Helper()
	s, err := idx.Lookup(path)
	require.NoError(t, err, path)
	return s
}

func TestFixture_Modules(t *testing.T) {
	t.Parallel()
	idx, diags := fixtureIndex(t, WithWorkers(2))

	assert.Equal(t, []string{
		"src/advanced.rs",
		"src/edge_cases.rs",
		"src/main.rs",
		"src/nested/mod.rs",
		"src/nested/submodule.rs",
		"src/nested/utils.rs",
		"src/traits.rs",
	}, idx.Units())

	root := idx.Root()
	assert.Equal(t, "Main module for lsp-cli Rust testing", root.InnerDoc[0])
	for _, name := range []string{"advanced", "traits", "nested", "edge_cases"} {
		m := lookup(t, idx, name)
		assert.Equal(t, symbols.Module, m.Kind, name)
		assert.Equal(t, symbols.ModuleUnit, m.Module.Decl, name)
	}

	nested := lookup(t, idx, "nested")
	assert.Equal(t, []string{
		"Nested module for testing module hierarchy",
		"",
		"This module tests how LSP handles nested modules,",
		"visibility modifiers, and symbol resolution across modules.",
	}, nested.InnerDoc)
	assert.Equal(t, []string{"src/nested/mod.rs"}, nested.Module.Units)

	helper := lookup(t, idx, "nested::utils::private_helper")
	assert.Equal(t, symbols.Private, helper.Visibility)
	assert.Equal(t, []string{"Private utility function"}, helper.Doc())

	for _, d := range diags {
		assert.NotEqual(t, diag.LexError, d.Code, d.String())
		assert.NotEqual(t, diag.DuplicateModule, d.Code, d.String())
	}
	assert.True(t, slices.IsSortedFunc(diags, func(a, b diag.Diagnostic) int {
		if a.Range.Unit < b.Range.Unit {
			return -1
		}
		if a.Range.Unit > b.Range.Unit {
			return 1
		}
		return a.Range.StartOffset - b.Range.StartOffset
	}))
}

func TestFixture_Docs(t *testing.T) {
	t.Parallel()
	idx, diags := fixtureIndex(t)

	person := lookup(t, idx, "StandardPerson")
	assert.Equal(t, []string{"A basic struct with standard documentation above"}, person.Doc())
	assert.Equal(t, []string{"Person's name"}, lookup(t, idx, "StandardPerson::name").Doc())

	ctor := lookup(t, idx, "StandardPerson::new")
	require.Len(t, ctor.Doc(), 8)
	assert.Equal(t, "Creates a new StandardPerson", ctor.Doc()[0])
	assert.Equal(t, "", ctor.Doc()[1])
	assert.Equal(t, "A new StandardPerson instance", ctor.Doc()[7])

	assert.False(t, lookup(t, idx, "StandardPerson::get_age").HasDoc())
	assert.Equal(t, []string{
		"Updates the person's age",
		"Validates the age is reasonable",
	}, lookup(t, idx, "StandardPerson::set_age").Doc())

	assert.Equal(t, []string{
		"Block comment documentation style",
		"This tests alternative documentation format",
		"Multiple lines with asterisks",
	}, lookup(t, idx, "StandardPerson::block_doc_method").Doc())
	assert.Equal(t, []string{
		"Another block comment style",
		"Without exclamation mark",
	}, lookup(t, idx, "StandardPerson::another_block_doc").Doc())

	assert.False(t, lookup(t, idx, "BelowDocPerson").HasDoc())
	assert.False(t, lookup(t, idx, "regular_comments").HasDoc())
	assert.False(t, lookup(t, idx, "undocumented_function").HasDoc())

	orphans := 0
	for _, d := range diags {
		if d.Code == diag.OrphanDocComment && d.Range.Unit == "src/main.rs" {
			orphans++
			assert.Equal(t, diag.SevInfo, d.Severity)
		}
	}
	assert.GreaterOrEqual(t, orphans, 1)

	status := lookup(t, idx, "Status")
	require.Len(t, status.Children, 3)
	assert.Equal(t, []string{"Active status"}, status.Children[0].Doc())
	pending := lookup(t, idx, "Status::Pending")
	assert.Equal(t, symbols.Variant, pending.Kind)
	require.Len(t, pending.Children, 2)
	assert.Equal(t, "priority", pending.Children[1].Name)
}

func TestFixture_Visibility(t *testing.T) {
	t.Parallel()
	idx, _ := fixtureIndex(t)

	tests := []struct {
		path string
		want symbols.Visibility
	}{
		{"nested::ModuleStruct::public_field", symbols.Public},
		{"nested::ModuleStruct::crate_field", symbols.CratePublic},
		{"nested::ModuleStruct::module_field", symbols.SelfPublic},
		{"nested::ModuleStruct::private_field", symbols.Private},
		{"nested::ModuleStruct::public_method", symbols.Public},
		{"nested::ModuleStruct::crate_method", symbols.CratePublic},
		{"nested::ModuleStruct::module_method", symbols.SelfPublic},
		{"nested::ModuleStruct::private_method", symbols.Private},
		{"nested::MODULE_VERSION", symbols.Public},
		{"nested::PRIVATE_CONSTANT", symbols.Private},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lookup(t, idx, tt.path).Visibility, tt.path)
	}
}

func TestFixture_ReExports(t *testing.T) {
	t.Parallel()
	idx, _ := fixtureIndex(t)

	def := lookup(t, idx, "nested::submodule::SubmoduleStruct")
	assert.Equal(t, []string{"Struct in submodule"}, def.Doc())

	hop, err := idx.ResolveReExport("nested::SubmoduleStruct")
	require.NoError(t, err)
	assert.Same(t, def, hop.Target)
	assert.Equal(t, []string{"Re-export from submodule"}, hop.Edge.Doc)

	got, err := idx.Canonical("crate::nested::SubmoduleStruct")
	require.NoError(t, err)
	assert.Same(t, def, got)

	inner, err := idx.Canonical("edge_cases::inner_test::NoDocStruct")
	require.NoError(t, err)
	assert.Same(t, lookup(t, idx, "edge_cases::NoDocStruct"), inner)

	alias := lookup(t, idx, "edge_cases::inner_test::InnerAlias")
	assert.Equal(t, symbols.TypeAlias, alias.Kind)
}

func TestFixture_Macros(t *testing.T) {
	t.Parallel()
	idx, _ := fixtureIndex(t)

	def := lookup(t, idx, "edge_cases::test_macro")
	assert.Equal(t, symbols.MacroDef, def.Kind)
	assert.NotEmpty(t, def.Patterns)
	assert.Empty(t, def.Children)

	var invocations []*symbols.Symbol
	for _, s := range idx.LookupAll("edge_cases::test_macro") {
		if s.Kind == symbols.MacroInvocation {
			invocations = append(invocations, s)
		}
	}
	require.Len(t, invocations, 2)
	for _, inv := range invocations {
		assert.Empty(t, inv.Children)
	}

	_, err := idx.Lookup("edge_cases::generated_function")
	assert.ErrorIs(t, err, query.ErrNotFound)
}

func TestAnalyze_DocAttachesToNextItemOnly(t *testing.T) {
	t.Parallel()

	r := Analyze(Unit{ID: "src/lib.rs", Source: []byte("/// hi\npub fn a() {}\npub fn b() {}\n")})
	require.Empty(t, r.Diagnostics)
	require.Len(t, r.Root.Children, 2)
	assert.Equal(t, []string{"hi"}, r.Root.Children[0].Doc())
	assert.Empty(t, r.Root.Children[1].Doc())
}

func TestAnalyze_Malformed(t *testing.T) {
	t.Parallel()

	src := `pub fn before() {}
struct 123 garbage;
/// Survives.
pub fn after() {}
`
	r := Analyze(Unit{ID: "src/broken.rs", Source: []byte(src)})
	require.NotEmpty(t, r.Diagnostics)
	assert.Equal(t, diag.MalformedItem, r.Diagnostics[0].Code)
	assert.Equal(t, diag.SevError, r.Diagnostics[0].Severity)
	assert.Equal(t, "src/broken.rs", r.Diagnostics[0].Range.Unit)
	assert.Equal(t, 2, r.Diagnostics[0].Range.StartLine)

	after := r.Root.Child("after")
	require.NotNil(t, after)
	assert.Equal(t, []string{"Survives."}, after.Doc())
	assert.NotNil(t, r.Root.Child("before"))
	assert.Equal(t, []string{"broken"}, r.ModulePath)
}

func TestAnalyze_MaxDiagnostics(t *testing.T) {
	t.Parallel()

	src := "struct 1;\nstruct 2;\nstruct 3;\n"
	r := New(WithMaxDiagnostics(1)).Analyze(Unit{ID: "src/lib.rs", Source: []byte(src)})
	assert.Len(t, r.Diagnostics, 1)
	assert.Equal(t, 2, r.Dropped)
}

func TestAnalyze_ExplicitModulePath(t *testing.T) {
	t.Parallel()

	r := Analyze(Unit{ID: "gen.rs", Source: []byte("pub struct X;"), ModulePath: []string{"custom", "gen"}})
	idx, diags, err := Merge([]*Result{r})
	require.NoError(t, err)
	assert.Empty(t, diags)

	x, err := idx.Lookup("custom::gen::X")
	require.NoError(t, err)
	assert.Equal(t, symbols.Struct, x.Kind)
	custom, err := idx.Lookup("custom")
	require.NoError(t, err)
	assert.Equal(t, symbols.ModuleImplicit, custom.Module.Decl)
}

func TestAnalyzeAll_OrderIndependent(t *testing.T) {
	t.Parallel()

	units := fixture(t)
	reversed := slices.Clone(units)
	slices.Reverse(reversed)

	a := New(WithWorkers(3))
	idx1, diags1, err := a.Run(context.Background(), units)
	require.NoError(t, err)
	idx2, diags2, err := a.Run(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, diags1, diags2)
	assert.Equal(t, idx1.Stats(), idx2.Stats())

	var paths1, paths2 []string
	idx1.Walk(func(s *symbols.Symbol) bool { paths1 = append(paths1, s.QualifiedName()); return true })
	idx2.Walk(func(s *symbols.Symbol) bool { paths2 = append(paths2, s.QualifiedName()); return true })
	assert.Equal(t, paths1, paths2)
}

func TestAnalyzeAll_Progress(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	var last atomic.Int64
	a := New(WithWorkers(2), WithProgress(func(done, total int) {
		calls.Add(1)
		assert.Equal(t, 7, total)
		if int64(done) > last.Load() {
			last.Store(int64(done))
		}
	}))
	results, err := a.AnalyzeAll(context.Background(), fixture(t))
	require.NoError(t, err)
	assert.Len(t, results, 7)
	assert.Equal(t, int64(7), calls.Load())
	assert.Equal(t, int64(7), last.Load())
	assert.Equal(t, "src/advanced.rs", results[0].Unit)
}

func TestAnalyzeAll_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().AnalyzeAll(ctx, fixture(t))
	assert.ErrorIs(t, err, context.Canceled)

	results, err := New().AnalyzeAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCache(t *testing.T) {
	t.Parallel()

	cache, err := NewCache(64)
	require.NoError(t, err)
	defer cache.Close()

	_, err = NewCache(0)
	assert.Error(t, err)

	a := New(WithCache(cache))
	u := Unit{ID: "src/lib.rs", Source: []byte("pub mod m;\npub use m::S;\n")}
	m := Unit{ID: "src/m.rs", Source: []byte("/// S.\npub struct S;\n")}

	first := a.Analyze(u)
	again := a.Analyze(u)
	assert.Same(t, first, again)
	assert.Equal(t, int64(1), cache.Hits())

	changed := a.Analyze(Unit{ID: u.ID, Source: []byte("pub mod m;\n")})
	assert.NotSame(t, first, changed)

	other := New(WithCache(cache), WithReportSuperseded(true)).Analyze(u)
	assert.NotSame(t, first, other)

	sub := a.Analyze(m)
	idx1, _, err := a.Merge([]*Result{first, sub})
	require.NoError(t, err)
	idx2, _, err := a.Merge([]*Result{first, sub})
	require.NoError(t, err)

	s1, err := idx1.Canonical("S")
	require.NoError(t, err)
	s2, err := idx2.Canonical("S")
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	assert.Equal(t, []string{"S."}, s1.Doc())

	// The cached trees are untouched by merging.
	assert.Equal(t, symbols.ModuleStub, first.Root.Child("m").Module.Decl)
	assert.Nil(t, first.Root.Module.ReExports[0].Target)
	assert.Len(t, sub.Root.Children, 1)
}
