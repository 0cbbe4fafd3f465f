package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Discovery:
// - Files under src/ and at the root match **/*.rs; other extensions do not
// - Ignored directories are skipped entirely
// - Unit IDs are slash-separated relative paths in sorted order
// - Match, Rel and Keep agree with Files for watcher events
// - Invalid patterns fail New
// - The fixture crate yields seven units

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestDiscover(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "build.rs", "fn main() {}")
	writeFile(t, root, "src/main.rs", "mod a;")
	writeFile(t, root, "src/a/mod.rs", "pub fn x() {}")
	writeFile(t, root, "src/notes.md", "# notes")
	writeFile(t, root, "target/debug/build/out.rs", "fn gen() {}")
	writeFile(t, root, ".symdex/cache.rs", "")

	d, err := New(root, []string{"**/*.rs"}, []string{"target/**", ".symdex/**"})
	require.NoError(t, err)

	files, err := d.Files()
	require.NoError(t, err)
	assert.Equal(t, []string{"build.rs", "src/a/mod.rs", "src/main.rs"}, files)

	units, err := d.Discover()
	require.NoError(t, err)
	require.Len(t, units, 3)
	assert.Equal(t, "src/main.rs", units[2].ID)
	assert.Equal(t, "mod a;", string(units[2].Source))
	assert.Nil(t, units[2].ModulePath)
}

func TestMatchAndRel(t *testing.T) {
	t.Parallel()
	root := t.TempDir()

	d, err := New(root, []string{"**/*.rs"}, []string{"src/generated/**", "tests/**"})
	require.NoError(t, err)

	assert.True(t, d.Match("src/lib.rs"))
	assert.True(t, d.Match("src/a/b.rs"))
	assert.True(t, d.Match("build.rs"))
	assert.False(t, d.Match("src/generated/x.rs"))
	assert.False(t, d.Match("tests/it.rs"))
	assert.False(t, d.Match("src/lib.txt"))

	rel, ok := d.Rel(filepath.Join(root, "src", "lib.rs"))
	assert.True(t, ok)
	assert.Equal(t, "src/lib.rs", rel)

	_, ok = d.Rel(filepath.Join(filepath.Dir(root), "elsewhere.rs"))
	assert.False(t, ok)

	assert.True(t, d.Keep(root, true))
	assert.True(t, d.Keep(filepath.Join(root, "src"), true))
	assert.False(t, d.Keep(filepath.Join(root, "tests"), true))
	assert.False(t, d.Keep(filepath.Join(root, "src", "generated"), true))
	assert.True(t, d.Keep(filepath.Join(root, "src", "lib.rs"), false))
	assert.False(t, d.Keep(filepath.Join(root, "src", "generated", "x.rs"), false))
	assert.False(t, d.Keep(filepath.Join(filepath.Dir(root), "elsewhere.rs"), false))
}

func TestNew_InvalidPattern(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), []string{"src/[oops"}, nil)
	assert.Error(t, err)
}

func TestDiscover_Fixture(t *testing.T) {
	t.Parallel()

	d, err := New(filepath.Join("..", "..", "testdata", "rust"), []string{"**/*.rs"}, nil)
	require.NoError(t, err)
	units, err := d.Discover()
	require.NoError(t, err)

	var ids []string
	for _, u := range units {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{
		"src/advanced.rs",
		"src/edge_cases.rs",
		"src/main.rs",
		"src/nested/mod.rs",
		"src/nested/submodule.rs",
		"src/nested/utils.rs",
		"src/traits.rs",
	}, ids)
}
