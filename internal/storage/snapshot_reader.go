package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/mvp-joe/symdex/internal/diag"
	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/source"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Units       []string  `json:"units"`
	SymbolCount int       `json:"symbol_count"`
}

// Snapshots lists stored snapshots, newest first.
func (s *Store) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := sq.Select("snapshot_id", "created_at", "units", "symbol_count").
		From("snapshots").
		OrderBy("seq DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var created, units string
		if err := rows.Scan(&info.ID, &created, &units, &info.SymbolCount); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("snapshot %s: invalid created_at: %w", info.ID, err)
		}
		if info.Units, err = decodeStrings(units); err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// LoadLatest rebuilds the index from the newest snapshot.
func (s *Store) LoadLatest(ctx context.Context, opts ...query.Option) (*query.Index, error) {
	var id string
	err := sq.Select("snapshot_id").
		From("snapshots").
		OrderBy("seq DESC").
		Limit(1).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find latest snapshot: %w", err)
	}
	return s.Load(ctx, id, opts...)
}

// Load rebuilds the index stored as snapshotID. Symbol identity is preserved
// within the loaded index: re-export targets point at the loaded definitions.
func (s *Store) Load(ctx context.Context, snapshotID string, opts ...query.Option) (*query.Index, error) {
	var unitsJSON string
	err := sq.Select("units").
		From("snapshots").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		RunWith(s.db).
		QueryRowContext(ctx).
		Scan(&unitsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, snapshotID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	units, err := decodeStrings(unitsJSON)
	if err != nil {
		return nil, err
	}

	syms, err := s.loadSymbols(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if len(syms) == 0 || syms[0].Parent != nil {
		return nil, fmt.Errorf("snapshot %s has no root module", snapshotID)
	}
	if err := s.loadReExports(ctx, snapshotID, syms); err != nil {
		return nil, err
	}
	diags, err := s.loadDiagnostics(ctx, snapshotID)
	if err != nil {
		return nil, err
	}

	all := append([]query.Option{query.WithDiagnostics(diags), query.WithUnits(units)}, opts...)
	return query.NewIndex(syms[0], all...)
}

func (s *Store) loadSymbols(ctx context.Context, snapshotID string) ([]*symbols.Symbol, error) {
	rows, err := sq.Select("symbol_id", "parent_id", "kind", "name", "visibility", "visibility_text",
		"generics", "signature", "attributes", "doc", "inner_doc", "text", "patterns", "self_type", "trait",
		"unit", "start_line", "end_line", "start_offset", "end_offset",
		"module_path", "module_units", "module_decl").
		From("symbols").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		OrderBy("symbol_id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var syms []*symbols.Symbol
	for rows.Next() {
		var (
			id, vis                         int
			parentID, modDecl               sql.NullInt64
			kind, attrs, innerDoc, patterns string
			doc, modPath, modUnits          sql.NullString
			sym                             = &symbols.Symbol{}
		)
		err := rows.Scan(&id, &parentID, &kind, &sym.Name, &vis, &sym.VisibilityText,
			&sym.Generics, &sym.Signature, &attrs, &doc, &innerDoc, &sym.Text, &patterns, &sym.SelfType, &sym.Trait,
			&sym.Range.Unit, &sym.Range.StartLine, &sym.Range.EndLine, &sym.Range.StartOffset, &sym.Range.EndOffset,
			&modPath, &modUnits, &modDecl)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		if id != len(syms) {
			return nil, fmt.Errorf("symbol ids are not contiguous at %d", id)
		}

		if sym.Kind, err = symbols.ParseKind(kind); err != nil {
			return nil, err
		}
		sym.Visibility = symbols.Visibility(vis)
		if sym.Attributes, err = decodeStrings(attrs); err != nil {
			return nil, err
		}
		if sym.InnerDoc, err = decodeStrings(innerDoc); err != nil {
			return nil, err
		}
		if sym.Patterns, err = decodeStrings(patterns); err != nil {
			return nil, err
		}
		if doc.Valid {
			lines, err := decodeStrings(doc.String)
			if err != nil {
				return nil, err
			}
			if err := sym.SetDoc(lines); err != nil {
				return nil, err
			}
		}
		if modPath.Valid {
			info := &symbols.ModuleInfo{Decl: symbols.ModuleDecl(modDecl.Int64)}
			if info.Path, err = decodeStrings(modPath.String); err != nil {
				return nil, err
			}
			if info.Units, err = decodeStrings(modUnits.String); err != nil {
				return nil, err
			}
			sym.Module = info
		}

		if parentID.Valid {
			p := int(parentID.Int64)
			if p >= len(syms) {
				return nil, fmt.Errorf("symbol %d precedes its parent %d", id, p)
			}
			syms[p].AddChild(sym)
		}
		syms = append(syms, sym)
	}
	return syms, rows.Err()
}

func (s *Store) loadReExports(ctx context.Context, snapshotID string, syms []*symbols.Symbol) error {
	rows, err := sq.Select("edge_id", "module_id", "name", "path", "glob", "visibility", "doc",
		"unit", "start_line", "end_line", "start_offset", "end_offset", "target_id", "next_id").
		From("reexports").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		OrderBy("edge_id").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query re-exports: %w", err)
	}
	defer rows.Close()

	symbolAt := func(id int) (*symbols.Symbol, error) {
		if id < 0 || id >= len(syms) {
			return nil, fmt.Errorf("re-export references unknown symbol %d", id)
		}
		return syms[id], nil
	}

	var edges []*symbols.ReExportEdge
	var nexts []sql.NullInt64
	for rows.Next() {
		var (
			edgeID, moduleID, glob, vis int
			path, doc                   string
			targetID, nextID            sql.NullInt64
			e                           = &symbols.ReExportEdge{}
		)
		err := rows.Scan(&edgeID, &moduleID, &e.Name, &path, &glob, &vis, &doc,
			&e.Range.Unit, &e.Range.StartLine, &e.Range.EndLine, &e.Range.StartOffset, &e.Range.EndOffset,
			&targetID, &nextID)
		if err != nil {
			return fmt.Errorf("failed to scan re-export: %w", err)
		}
		if edgeID != len(edges) {
			return fmt.Errorf("re-export ids are not contiguous at %d", edgeID)
		}

		if e.Module, err = symbolAt(moduleID); err != nil {
			return err
		}
		if e.Module.Module == nil {
			return fmt.Errorf("re-export %d belongs to non-module %s", edgeID, e.Module.QualifiedName())
		}
		if e.Path, err = decodeStrings(path); err != nil {
			return err
		}
		if e.Doc, err = decodeStrings(doc); err != nil {
			return err
		}
		e.Glob = glob != 0
		e.Visibility = symbols.Visibility(vis)
		if targetID.Valid {
			if e.Target, err = symbolAt(int(targetID.Int64)); err != nil {
				return err
			}
		}

		e.Module.Module.ReExports = append(e.Module.Module.ReExports, e)
		edges = append(edges, e)
		nexts = append(nexts, nextID)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i, n := range nexts {
		if !n.Valid {
			continue
		}
		if n.Int64 < 0 || int(n.Int64) >= len(edges) {
			return fmt.Errorf("re-export %d links to unknown edge %d", i, n.Int64)
		}
		edges[i].Next = edges[n.Int64]
	}
	return nil
}

func (s *Store) loadDiagnostics(ctx context.Context, snapshotID string) ([]diag.Diagnostic, error) {
	rows, err := sq.Select("severity", "code", "unit", "start_line", "end_line", "start_offset", "end_offset", "message").
		From("diagnostics").
		Where(sq.Eq{"snapshot_id": snapshotID}).
		OrderBy("ordinal").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var sev int
		var code string
		var r source.Range
		if err := rows.Scan(&sev, &code, &r.Unit, &r.StartLine, &r.EndLine, &r.StartOffset, &r.EndOffset, &d.Message); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		d.Severity = diag.Severity(sev)
		d.Code = diag.Code(code)
		d.Range = r
		out = append(out, d)
	}
	return out, rows.Err()
}
