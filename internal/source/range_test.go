package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRange_Join(t *testing.T) {
	t.Parallel()

	a := Range{Unit: "a.rs", StartLine: 3, EndLine: 4, StartOffset: 30, EndOffset: 45}
	b := Range{StartLine: 1, EndLine: 2, StartOffset: 0, EndOffset: 12}

	joined := a.Join(b)
	assert.Equal(t, Range{Unit: "a.rs", StartLine: 1, EndLine: 4, StartOffset: 0, EndOffset: 45}, joined)
	assert.True(t, joined.Contains(a))
	assert.True(t, joined.Contains(b))
	assert.False(t, b.Contains(a))
}

func TestRange_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7", Range{StartLine: 7, EndLine: 7}.String())
	assert.Equal(t, "src/lib.rs:7-9", Range{Unit: "src/lib.rs", StartLine: 7, EndLine: 9}.String())
}
