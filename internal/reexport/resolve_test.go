package reexport

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/symdex/internal/comments"
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/docassoc"
	"github.com/mvp-joe/symdex/internal/lexer"
	"github.com/mvp-joe/symdex/internal/parser"
	"github.com/mvp-joe/symdex/internal/symbols"
	"github.com/mvp-joe/symdex/internal/tree"
)

// Test Plan for Resolve:
// - Relative, crate::, self:: and super:: paths resolve to the definition itself
// - An alias naming another alias links through Next
// - Glob re-exports target the module and make its items visible to later paths
// - Paths through re-exported modules resolve regardless of declaration order
// - Mutually recursive and self-referential aliases link without diagnostics
// - Unresolvable paths stay dangling and are reported as warnings
// - Resolving twice gives the same links

func crate(t *testing.T, units map[string]string) *symbols.Symbol {
	t.Helper()
	ids := make([]string, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var roots []*symbols.Symbol
	for _, id := range ids {
		toks, lexDiags := lexer.Tokenize([]byte(units[id]))
		require.Empty(t, lexDiags)
		f, parseDiags := parser.Parse(toks)
		require.Empty(t, parseDiags)
		assoc := docassoc.Associate(f, comments.Group(toks), docassoc.Options{})
		roots = append(roots, tree.Build(id, tree.ModulePath(id), f, assoc))
	}
	root, diags := tree.Merge(roots)
	require.Empty(t, diags)
	return root
}

func edge(t *testing.T, root *symbols.Symbol, module, alias string) *symbols.ReExportEdge {
	t.Helper()
	m := root
	for _, seg := range symbols.SplitPath(module) {
		m = m.Child(seg)
		require.NotNil(t, m, "module %s", module)
	}
	require.NotNil(t, m.Module)
	for _, e := range m.Module.ReExports {
		if e.Name == alias {
			return e
		}
	}
	t.Fatalf("no edge %s in %s", alias, module)
	return nil
}

func TestResolve_Definitions(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub mod nested;
pub struct Top;
pub use crate::nested::submodule::SubmoduleStruct as Reexported;
`,
		"src/nested/mod.rs": `
pub mod submodule;
pub use submodule::SubmoduleStruct;
pub mod inner {
    pub use super::submodule::helper;
    pub use self::deep::Deep;
    pub use crate::Top;
    pub mod deep { pub struct Deep; }
}
`,
		"src/nested/submodule.rs": `
/// A struct in a submodule.
pub struct SubmoduleStruct;
pub fn helper() {}
`,
	})

	diags := Resolve(root)
	require.Empty(t, diags)

	sub := root.Child("nested").Child("submodule")
	def := sub.Child("SubmoduleStruct")
	require.NotNil(t, def)

	e := edge(t, root, "nested", "SubmoduleStruct")
	assert.Same(t, def, e.Target)
	assert.Nil(t, e.Next)
	assert.Equal(t, []string{"A struct in a submodule."}, e.Target.Doc())

	assert.Same(t, def, edge(t, root, "", "Reexported").Target)
	assert.Same(t, sub.Child("helper"), edge(t, root, "nested::inner", "helper").Target)
	assert.Same(t, root.Child("nested").Child("inner").Child("deep").Child("Deep"),
		edge(t, root, "nested::inner", "Deep").Target)
	assert.Same(t, root.Child("Top"), edge(t, root, "nested::inner", "Top").Target)
}

func TestResolve_AliasChain(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use nested::Again as Final;
pub mod nested {
    pub use self::submodule::S as Again;
    pub mod submodule { pub struct S; }
}
`,
	})

	require.Empty(t, Resolve(root))

	outer := edge(t, root, "", "Final")
	inner := edge(t, root, "nested", "Again")
	assert.Nil(t, outer.Target)
	assert.Same(t, inner, outer.Next)
	assert.Same(t, root.Child("nested").Child("submodule").Child("S"), inner.Target)
}

func TestResolve_Globs(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use a::*;
pub use self::Thing as Renamed;
pub mod a { pub struct Thing; }
`,
	})

	require.Empty(t, Resolve(root))

	glob := edge(t, root, "", "*")
	assert.True(t, glob.Glob)
	assert.Same(t, root.Child("a"), glob.Target)
	assert.Same(t, root.Child("a").Child("Thing"), edge(t, root, "", "Renamed").Target)
}

func TestResolve_ThroughReExportedModule(t *testing.T) {
	t.Parallel()

	// The second declaration depends on the first, which comes later.
	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use m::F as G;
pub use a as m;
pub mod a { pub fn F() {} }
`,
	})

	require.Empty(t, Resolve(root))
	assert.Same(t, root.Child("a"), edge(t, root, "", "m").Target)
	assert.Same(t, root.Child("a").Child("F"), edge(t, root, "", "G").Target)
}

func TestResolve_Cycles(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use self::Loop;
pub mod a { pub use crate::b::X; }
pub mod b { pub use crate::a::X; }
`,
	})

	require.Empty(t, Resolve(root))

	self := edge(t, root, "", "Loop")
	assert.Same(t, self, self.Next)

	ax := edge(t, root, "a", "X")
	bx := edge(t, root, "b", "X")
	assert.Same(t, bx, ax.Next)
	assert.Same(t, ax, bx.Next)
	assert.Nil(t, ax.Target)
	assert.Nil(t, bx.Target)
}

func TestResolve_Dangling(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use serde;
pub use nowhere::Thing;
pub use crate::missing::*;
`,
	})

	diags := Resolve(root)
	require.Len(t, diags, 3)
	for _, d := range diags {
		assert.Equal(t, diag.UnresolvedReExport, d.Code)
		assert.Equal(t, diag.SevWarning, d.Severity)
		assert.Equal(t, "src/lib.rs", d.Range.Unit)
	}
	assert.Contains(t, diags[1].Message, "nowhere::Thing")

	for _, e := range root.Module.ReExports {
		assert.True(t, e.Dangling(), e.Written())
	}
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	root := crate(t, map[string]string{
		"src/lib.rs": `
pub use a::S as T;
pub use nowhere::U;
pub mod a { pub struct S; }
`,
	})

	first := Resolve(root)
	target := edge(t, root, "", "T").Target
	second := Resolve(root)

	assert.Equal(t, first, second)
	assert.Same(t, target, edge(t, root, "", "T").Target)
}
