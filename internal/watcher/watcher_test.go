package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Watcher:
// - New fails for a missing directory
// - A single .rs write is delivered after the debounce period
// - Rapid writes to several files arrive as one sorted, deduplicated batch
// - Non-.rs files and filtered paths never trigger a batch
// - Directories created after Start are watched
// - Pause holds batches back and Resume delivers them at once
// - Start twice fails; Stop is idempotent and safe concurrently
// - Cancelling the Start context ends the event loop

const testDebounce = 100 * time.Millisecond

// collector records batches and signals each one on ch.
type collector struct {
	mu      sync.Mutex
	batches [][]string
	ch      chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 16)}
}

func (c *collector) callback(files []string) {
	c.mu.Lock()
	c.batches = append(c.batches, files)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("no batch delivered")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches[len(c.batches)-1]
}

func (c *collector) none(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case <-c.ch:
		t.Fatal("unexpected batch")
	case <-time.After(d):
	}
}

func start(t *testing.T, dir string, opts ...Option) (*Watcher, *collector) {
	t.Helper()
	opts = append([]Option{WithDebounce(testDebounce)}, opts...)
	w, err := New([]string{dir}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	c := newCollector()
	require.NoError(t, w.Start(context.Background(), c.callback))
	time.Sleep(50 * time.Millisecond)
	return w, c
}

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_MissingDirectory(t *testing.T) {
	t.Parallel()

	w, err := New([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
	assert.Nil(t, w)
}

func TestWatcher_SingleWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := start(t, dir)

	lib := filepath.Join(dir, "lib.rs")
	write(t, lib, "pub fn f() {}")

	assert.Equal(t, []string{lib}, c.wait(t))
}

func TestWatcher_BatchesAndDeduplicates(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := start(t, dir)

	b := filepath.Join(dir, "b.rs")
	a := filepath.Join(dir, "a.rs")
	for i := 0; i < 3; i++ {
		write(t, b, strings.Repeat("x", i+1))
		write(t, a, strings.Repeat("y", i+1))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Equal(t, []string{a, b}, c.wait(t))
	c.none(t, 3*testDebounce)
}

func TestWatcher_Filtering(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	require.NoError(t, os.Mkdir(target, 0o755))

	keep := func(path string, _ bool) bool {
		return !strings.Contains(path, string(filepath.Separator)+"target")
	}
	_, c := start(t, dir, WithFilter(keep))

	write(t, filepath.Join(dir, "notes.md"), "# notes")
	write(t, filepath.Join(target, "gen.rs"), "fn g() {}")
	c.none(t, 3*testDebounce)

	main := filepath.Join(dir, "main.rs")
	write(t, main, "fn main() {}")
	assert.Equal(t, []string{main}, c.wait(t))
}

func TestWatcher_NewDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, c := start(t, dir)

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond)

	mod := filepath.Join(sub, "mod.rs")
	write(t, mod, "pub struct S;")
	assert.Contains(t, c.wait(t), mod)
}

func TestWatcher_PauseResume(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w, c := start(t, dir)

	w.Pause()
	lib := filepath.Join(dir, "lib.rs")
	write(t, lib, "pub fn f() {}")
	c.none(t, 3*testDebounce)

	w.Resume()
	assert.Equal(t, []string{lib}, c.wait(t))
}

func TestWatcher_StartStop(t *testing.T) {
	t.Parallel()

	w, err := New([]string{t.TempDir()})
	require.NoError(t, err)

	require.Error(t, w.Start(context.Background(), nil))
	require.NoError(t, w.Start(context.Background(), func([]string) {}))
	assert.ErrorIs(t, w.Start(context.Background(), func([]string) {}), ErrStarted)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Stop()
		}()
	}
	wg.Wait()
	assert.NoError(t, w.Stop())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	t.Parallel()

	w, err := New([]string{t.TempDir()})
	require.NoError(t, err)
	assert.NoError(t, w.Stop())
}

func TestWatcher_ContextCancel(t *testing.T) {
	t.Parallel()

	w, err := New([]string{t.TempDir()})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx, func([]string) {}))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("event loop did not exit")
	}
}
