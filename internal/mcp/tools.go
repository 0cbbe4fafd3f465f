package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/symbols"
)

type handlerFunc = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// AddSymbolLookupTool registers symbol_lookup.
func AddSymbolLookupTool(s *server.MCPServer, src IndexSource) {
	tool := mcp.NewTool(
		"symbol_lookup",
		mcp.WithDescription("Look up a Rust item by its qualified path (e.g. 'crate::shapes::Circle' or 'crate::Point::new'). Returns the declaration header, visibility, attributes and documentation. Paths that name a pub use re-export are followed to the definition."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Qualified path starting at 'crate'")),
		mcp.WithBoolean("hover",
			mcp.Description("Include a rendered hover text (default: false)")),
		mcp.WithBoolean("follow_reexports",
			mcp.Description("Resolve re-export aliases to their definition (default: true)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSymbolLookupHandler(src))
}

func createSymbolLookupHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[LookupRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		if args.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		idx, release := src.Acquire()
		defer release()

		resp := LookupResponse{}
		sym, err := idx.Lookup(args.Path)
		if errors.Is(err, query.ErrNotFound) && (args.FollowReExport == nil || *args.FollowReExport) {
			sym, err = idx.Canonical(args.Path)
			if err == nil {
				resp.Via = args.Path
			}
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		resp.Symbol = symbols.ViewOf(sym)
		resp.Matches = max(1, len(idx.LookupAll(sym.QualifiedName())))
		if args.Hover {
			resp.Hover = symbols.Render(sym)
		}
		return marshalToolResponse(resp)
	}
}

// AddSymbolChildrenTool registers symbol_children.
func AddSymbolChildrenTool(s *server.MCPServer, src IndexSource) {
	tool := mcp.NewTool(
		"symbol_children",
		mcp.WithDescription("List the direct children of a module, type, trait or impl block in declaration order: items of a module, fields and variants of a type, members of a trait or impl."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Qualified path of the parent ('crate' for the crate root)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSymbolChildrenHandler(src))
}

func createSymbolChildrenHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[ChildrenRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		if args.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}

		idx, release := src.Acquire()
		defer release()
		children, err := idx.Children(args.Path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return marshalToolResponse(ChildrenResponse{
			Path:     args.Path,
			Children: views(children),
			Total:    len(children),
		})
	}
}

// AddSymbolsByKindTool registers symbols_by_kind.
func AddSymbolsByKindTool(s *server.MCPServer, src IndexSource) {
	kinds := make([]string, 0, len(symbols.Kinds()))
	for _, k := range symbols.Kinds() {
		kinds = append(kinds, k.String())
	}
	tool := mcp.NewTool(
		"symbols_by_kind",
		mcp.WithDescription("List every symbol of one kind across the crate, in deterministic tree order. Supports paging with limit and offset."),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Enum(kinds...),
			mcp.Description("Symbol kind")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of symbols to return (1-%d, default: %d)", maxListLimit, defaultListLimit))),
		mcp.WithNumber("offset",
			mcp.Description("Number of symbols to skip (default: 0)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSymbolsByKindHandler(src))
}

func createSymbolsByKindHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[KindRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		kind, err := symbols.ParseKind(args.Kind)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		idx, release := src.Acquire()
		defer release()
		all := idx.ByKind(kind)
		limit := clamp(args.Limit, defaultListLimit, 1, maxListLimit)
		offset := min(max(args.Offset, 0), len(all))
		end := min(offset+limit, len(all))

		return marshalToolResponse(KindResponse{
			Kind:    kind.String(),
			Symbols: views(all[offset:end]),
			Total:   len(all),
		})
	}
}

// AddResolveReExportTool registers resolve_reexport.
func AddResolveReExportTool(s *server.MCPServer, src IndexSource) {
	tool := mcp.NewTool(
		"resolve_reexport",
		mcp.WithDescription("Explain a 'pub use' re-export: the path as written, the definition or alias it resolves to one step further, and optionally the final definition at the end of the alias chain. Reports dangling and cyclic re-exports."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Qualified path the re-export makes visible (e.g. 'crate::Circle')")),
		mcp.WithBoolean("canonical",
			mcp.Description("Follow the alias chain to the final definition (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createResolveReExportHandler(src))
}

func createResolveReExportHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[ReExportRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		if args.Path == "" {
			return mcp.NewToolResultError("path parameter is required"), nil
		}
		idx, release := src.Acquire()
		defer release()

		hop, err := idx.ResolveReExport(args.Path)
		if errors.Is(err, query.ErrNotFound) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		e := hop.Edge
		resp := ReExportResponse{
			Alias:      e.Alias(),
			Written:    e.Written(),
			Glob:       e.Glob,
			Visibility: e.Visibility,
			Doc:        e.Doc,
			Range:      e.Range,
			Next:       hop.Next,
			Dangling:   errors.Is(err, query.ErrDanglingReExport),
			Cyclic:     idx.IsCyclic(args.Path),
		}
		if hop.Target != nil {
			v := symbols.ViewOf(hop.Target)
			resp.Target = &v
		}

		if args.Canonical && !resp.Dangling {
			def, err := idx.Canonical(args.Path)
			switch {
			case err == nil:
				v := symbols.ViewOf(def)
				resp.Canonical = &v
			case errors.Is(err, query.ErrCyclicReExport):
				resp.Cyclic = true
			case errors.Is(err, query.ErrDanglingReExport):
				resp.Dangling = true
			default:
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		return marshalToolResponse(resp)
	}
}

// AddSearchDocsTool registers search_docs.
func AddSearchDocsTool(s *server.MCPServer, src IndexSource) {
	tool := mcp.NewTool(
		"search_docs",
		mcp.WithDescription("Full-text search over item names, paths, signatures and doc comments. Accepts query-string syntax: plain words, quoted phrases, +required, -excluded, and field prefixes (name:, path:, doc:, kind:)."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (e.g. 'radius', 'doc:\"thread safe\"', 'kind:trait')")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results to return (1-100, default: %d)", query.DefaultSearchLimit))),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createSearchDocsHandler(src))
}

func createSearchDocsHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[SearchRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		if args.Query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		idx, release := src.Acquire()
		defer release()
		hits, err := idx.Search(args.Query, args.Limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		results := make([]SearchResult, 0, len(hits))
		for _, h := range hits {
			results = append(results, SearchResult{
				Path:   h.Path,
				Kind:   h.Kind,
				Score:  h.Score,
				Symbol: symbols.ViewOf(h.Symbol),
			})
		}
		return marshalToolResponse(SearchResponse{Results: results, Total: len(results)})
	}
}

// AddListDiagnosticsTool registers list_diagnostics.
func AddListDiagnosticsTool(s *server.MCPServer, src IndexSource) {
	tool := mcp.NewTool(
		"list_diagnostics",
		mcp.WithDescription("List problems found while extracting symbols: unterminated comments or strings, malformed items, orphan doc comments, unresolved re-exports and duplicate modules. Sorted by unit and position."),
		mcp.WithString("unit",
			mcp.Description("Only diagnostics of this source file (e.g. 'src/lib.rs')")),
		mcp.WithString("code",
			mcp.Enum(string(diag.LexError), string(diag.MalformedItem), string(diag.OrphanDocComment),
				string(diag.UnresolvedReExport), string(diag.DuplicateModule)),
			mcp.Description("Only diagnostics with this code")),
		mcp.WithString("min_severity",
			mcp.Enum("info", "warning", "error"),
			mcp.Description("Lowest severity to include (default: info)")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of diagnostics to return (1-%d, default: %d)", maxListLimit, defaultListLimit))),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createListDiagnosticsHandler(src))
}

func createListDiagnosticsHandler(src IndexSource) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, errResult := parseArgs[DiagnosticsRequest](request)
		if errResult != nil {
			return errResult, nil
		}
		minSev := diag.SevInfo
		if args.MinSeverity != "" {
			sev, err := diag.ParseSeverity(args.MinSeverity)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			minSev = sev
		}

		matched := make([]diag.Diagnostic, 0)
		idx, release := src.Acquire()
		defer release()
		for _, d := range idx.Diagnostics() {
			if args.Unit != "" && d.Range.Unit != args.Unit {
				continue
			}
			if args.Code != "" && string(d.Code) != args.Code {
				continue
			}
			if d.Severity < minSev {
				continue
			}
			matched = append(matched, d)
		}
		total := len(matched)
		limit := clamp(args.Limit, defaultListLimit, 1, maxListLimit)
		if len(matched) > limit {
			matched = matched[:limit]
		}
		return marshalToolResponse(DiagnosticsResponse{Diagnostics: matched, Total: total})
	}
}

// AddIndexStatsTool registers index_stats.
func AddIndexStatsTool(s *server.MCPServer, src IndexSource, metrics *ReloadMetrics) {
	tool := mcp.NewTool(
		"index_stats",
		mcp.WithDescription("Summary of the current index: symbol counts per kind, analysed units, re-export and diagnostic totals, and re-index history."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createIndexStatsHandler(src, metrics))
}

func createIndexStatsHandler(src IndexSource, metrics *ReloadMetrics) handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		idx, release := src.Acquire()
		defer release()
		resp := StatsResponse{
			Index: idx.Stats(),
			Units: idx.Units(),
		}
		if metrics != nil {
			resp.Reloads = metrics.Snapshot()
		}
		return marshalToolResponse(resp)
	}
}
