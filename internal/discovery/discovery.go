// Package discovery finds the source units of a crate on disk.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/mvp-joe/symdex/internal/analyzer"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Discovery matches files under a crate root against include and ignore globs.
// Patterns are matched against slash-separated paths relative to the root.
type Discovery struct {
	rootDir string
	include []compiledPattern
	ignore  []compiledPattern
}

// New compiles the patterns for rootDir.
func New(rootDir string, include, ignore []string) (*Discovery, error) {
	d := &Discovery{rootDir: rootDir}
	var err error
	if d.include, err = compile(include); err != nil {
		return nil, err
	}
	if d.ignore, err = compile(ignore); err != nil {
		return nil, err
	}
	return d, nil
}

func compile(patterns []string) ([]compiledPattern, error) {
	out := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		out = append(out, compiledPattern{pattern: pattern, glob: g})
	}
	return out, nil
}

// Root returns the crate root directory.
func (d *Discovery) Root() string {
	return d.rootDir
}

// Files returns the relative paths of every matching file, sorted.
func (d *Discovery) Files() ([]string, error) {
	var files []string
	err := filepath.WalkDir(d.rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == d.rootDir {
			return nil
		}

		relPath, err := filepath.Rel(d.rootDir, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if entry.IsDir() {
			if d.ignored(relPath) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Match(relPath) {
			files = append(files, relPath)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", d.rootDir, err)
	}
	sort.Strings(files)
	return files, nil
}

// Discover reads every matching file into a unit. Unit IDs are the relative
// paths, so module paths follow the cargo layout under src/.
func (d *Discovery) Discover() ([]analyzer.Unit, error) {
	files, err := d.Files()
	if err != nil {
		return nil, err
	}
	units := make([]analyzer.Unit, 0, len(files))
	for _, rel := range files {
		src, err := os.ReadFile(filepath.Join(d.rootDir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		units = append(units, analyzer.Unit{ID: rel, Source: src})
	}
	return units, nil
}

// Match reports whether relPath is an included, non-ignored file.
func (d *Discovery) Match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	return !d.ignored(relPath) && matchesAny(relPath, d.include)
}

// Rel converts an absolute path under the root to a unit ID.
func (d *Discovery) Rel(path string) (string, bool) {
	rel, err := filepath.Rel(d.rootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Keep reports whether an absolute path under the root belongs to the crate:
// directories that are not ignored and files that Match. It fits
// watcher.WithFilter.
func (d *Discovery) Keep(path string, dir bool) bool {
	rel, ok := d.Rel(path)
	if !ok {
		return false
	}
	if rel == "." {
		return dir
	}
	if dir {
		return !d.ignored(rel)
	}
	return d.Match(rel)
}

func (d *Discovery) ignored(relPath string) bool {
	if matchesAny(relPath, d.ignore) {
		return true
	}
	// "target" should match pattern "target/**"
	if matchesAny(relPath+"/**", d.ignore) {
		return true
	}
	// Files inside an ignored directory are ignored too.
	for dir := parentDir(relPath); dir != ""; dir = parentDir(dir) {
		if matchesAny(dir+"/**", d.ignore) {
			return true
		}
	}
	return false
}

func parentDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}

// matchesAny checks a path against patterns. Files in the root also match
// patterns with a leading **/ so "**/*.rs" matches both "build.rs" and
// "src/main.rs".
func matchesAny(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	if strings.Contains(path, "/") {
		return false
	}
	for _, cp := range patterns {
		if !strings.HasPrefix(cp.pattern, "**/") {
			continue
		}
		if g, err := glob.Compile(strings.TrimPrefix(cp.pattern, "**/"), '/'); err == nil && g.Match(path) {
			return true
		}
	}
	return false
}
