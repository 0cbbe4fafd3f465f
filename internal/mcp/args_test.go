package mcp

import (
	"errors"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for argument binding and metrics:
// - Native JSON values bind to their fields
// - String-encoded numbers, booleans and arrays are coerced
// - Comma-separated strings bind to slices
// - Values that cannot be coerced produce an error result
// - clamp applies the default and bounds
// - ReloadMetrics counts successes and failures and keeps the served symbol count

type testArgs struct {
	Path   string   `json:"path"`
	Limit  int      `json:"limit"`
	Score  float64  `json:"score"`
	Hover  bool     `json:"hover"`
	Follow *bool    `json:"follow"`
	Kinds  []string `json:"kinds"`
}

func request(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	t.Run("native values", func(t *testing.T) {
		args, errResult := parseArgs[testArgs](request(map[string]any{
			"path":   "crate::a",
			"limit":  float64(10),
			"hover":  true,
			"follow": false,
			"kinds":  []any{"struct", "enum"},
		}))
		require.Nil(t, errResult)
		assert.Equal(t, "crate::a", args.Path)
		assert.Equal(t, 10, args.Limit)
		assert.True(t, args.Hover)
		require.NotNil(t, args.Follow)
		assert.False(t, *args.Follow)
		assert.Equal(t, []string{"struct", "enum"}, args.Kinds)
	})

	t.Run("string encoded values", func(t *testing.T) {
		args, errResult := parseArgs[testArgs](request(map[string]any{
			"limit":  "25",
			"score":  "0.5",
			"hover":  "true",
			"follow": "false",
			"kinds":  `["trait", "impl"]`,
		}))
		require.Nil(t, errResult)
		assert.Equal(t, 25, args.Limit)
		assert.Equal(t, 0.5, args.Score)
		assert.True(t, args.Hover)
		require.NotNil(t, args.Follow)
		assert.False(t, *args.Follow)
		assert.Equal(t, []string{"trait", "impl"}, args.Kinds)
	})

	t.Run("comma separated slice", func(t *testing.T) {
		args, errResult := parseArgs[testArgs](request(map[string]any{"kinds": "struct,enum"}))
		require.Nil(t, errResult)
		assert.Equal(t, []string{"struct", "enum"}, args.Kinds)
	})

	t.Run("missing values keep zero", func(t *testing.T) {
		args, errResult := parseArgs[testArgs](request(nil))
		require.Nil(t, errResult)
		assert.Empty(t, args.Path)
		assert.Nil(t, args.Follow)
	})

	t.Run("not a number", func(t *testing.T) {
		_, errResult := parseArgs[testArgs](request(map[string]any{"limit": "lots"}))
		require.NotNil(t, errResult)
		assert.True(t, errResult.IsError)
	})
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 50, clamp(0, 50, 1, 500))
	assert.Equal(t, 1, clamp(-3, 50, 1, 500))
	assert.Equal(t, 500, clamp(9000, 50, 1, 500))
	assert.Equal(t, 20, clamp(20, 50, 1, 500))
}

func TestReloadMetrics(t *testing.T) {
	t.Parallel()
	m := NewReloadMetrics()

	m.RecordReload(120*time.Millisecond, nil, 42)
	m.RecordReload(5*time.Millisecond, errors.New("boom"), 0)

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.TotalReloads)
	assert.Equal(t, int64(1), s.SuccessfulReloads)
	assert.Equal(t, int64(1), s.FailedReloads)
	assert.Equal(t, "boom", s.LastReloadError)
	assert.Equal(t, int64(5), s.LastReloadDurationMS)
	assert.Equal(t, 42, s.Symbols)
	assert.False(t, s.LastReloadTime.IsZero())

	m.RecordReload(time.Millisecond, nil, 7)
	s = m.Snapshot()
	assert.Empty(t, s.LastReloadError)
	assert.Equal(t, 7, s.Symbols)
}
