package mcp

import (
	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/source"
	"github.com/mvp-joe/symdex/internal/symbols"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// LookupRequest is the argument schema of symbol_lookup.
type LookupRequest struct {
	Path           string `json:"path"`
	Hover          bool   `json:"hover"`
	FollowReExport *bool  `json:"follow_reexports"`
}

// LookupResponse answers symbol_lookup. Via is set when the path named a
// re-export rather than a definition.
type LookupResponse struct {
	Symbol  symbols.View `json:"symbol"`
	Hover   string       `json:"hover,omitempty"`
	Via     string       `json:"via,omitempty"`
	Matches int          `json:"matches"`
}

// ChildrenRequest is the argument schema of symbol_children.
type ChildrenRequest struct {
	Path string `json:"path"`
}

// ChildrenResponse answers symbol_children.
type ChildrenResponse struct {
	Path     string         `json:"path"`
	Children []symbols.View `json:"children"`
	Total    int            `json:"total"`
}

// KindRequest is the argument schema of symbols_by_kind.
type KindRequest struct {
	Kind   string `json:"kind"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// KindResponse answers symbols_by_kind. Total counts every symbol of the kind,
// not only the returned page.
type KindResponse struct {
	Kind    string         `json:"kind"`
	Symbols []symbols.View `json:"symbols"`
	Total   int            `json:"total"`
}

// ReExportRequest is the argument schema of resolve_reexport.
type ReExportRequest struct {
	Path      string `json:"path"`
	Canonical bool   `json:"canonical"`
}

// ReExportResponse answers resolve_reexport.
type ReExportResponse struct {
	Alias      string             `json:"alias"`
	Written    string             `json:"written"`
	Glob       bool               `json:"glob,omitempty"`
	Visibility symbols.Visibility `json:"visibility"`
	Doc        []string           `json:"doc,omitempty"`
	Range      source.Range       `json:"range"`
	Target     *symbols.View      `json:"target,omitempty"`
	Next       string             `json:"next,omitempty"`
	Canonical  *symbols.View      `json:"canonical,omitempty"`
	Dangling   bool               `json:"dangling,omitempty"`
	Cyclic     bool               `json:"cyclic,omitempty"`
}

// SearchRequest is the argument schema of search_docs.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// SearchResult is one search_docs hit.
type SearchResult struct {
	Path   string       `json:"path"`
	Kind   string       `json:"kind"`
	Score  float64      `json:"score"`
	Symbol symbols.View `json:"symbol"`
}

// SearchResponse answers search_docs.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}

// DiagnosticsRequest is the argument schema of list_diagnostics.
type DiagnosticsRequest struct {
	Unit        string `json:"unit"`
	Code        string `json:"code"`
	MinSeverity string `json:"min_severity"`
	Limit       int    `json:"limit"`
}

// DiagnosticsResponse answers list_diagnostics. Total counts matches before
// the limit is applied.
type DiagnosticsResponse struct {
	Diagnostics []diag.Diagnostic `json:"diagnostics"`
	Total       int               `json:"total"`
}

// StatsResponse answers index_stats.
type StatsResponse struct {
	Index   query.Stats     `json:"index"`
	Units   []string        `json:"units"`
	Reloads MetricsSnapshot `json:"reloads"`
}

func views(syms []*symbols.Symbol) []symbols.View {
	out := make([]symbols.View, 0, len(syms))
	for _, s := range syms {
		out = append(out, symbols.ViewOf(s))
	}
	return out
}
