package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mvp-joe/symdex/internal/query"
	"github.com/mvp-joe/symdex/internal/symbols"
)

// SaveSnapshot writes idx as a new snapshot and returns its ID.
// All rows are written in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, idx *query.Index) (string, error) {
	snapshotID := uuid.New().String()
	err := s.withWriteLock(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer tx.Rollback() // Safe to call even after commit

		if err := writeSnapshot(tx, snapshotID, idx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return snapshotID, nil
}

func writeSnapshot(tx *sql.Tx, snapshotID string, idx *query.Index) error {
	ids := make(map[*symbols.Symbol]int)
	var order []*symbols.Symbol
	idx.Walk(func(sym *symbols.Symbol) bool {
		ids[sym] = len(order)
		order = append(order, sym)
		return true
	})

	_, err := sq.Insert("snapshots").
		Columns("snapshot_id", "created_at", "units", "symbol_count").
		Values(snapshotID, time.Now().UTC().Format(time.RFC3339Nano), encodeStrings(idx.Units()), len(order)).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for id, sym := range order {
		if err := insertSymbol(tx, snapshotID, id, sym, ids); err != nil {
			return err
		}
	}

	edges := idx.ReExports()
	edgeIDs := make(map[*symbols.ReExportEdge]int, len(edges))
	for i, e := range edges {
		edgeIDs[e] = i
	}
	for i, e := range edges {
		moduleID, ok := ids[e.Module]
		if !ok {
			return fmt.Errorf("re-export %s belongs to no indexed module", e.Alias())
		}
		targetID, hasTarget := ids[e.Target]
		nextID, hasNext := edgeIDs[e.Next]
		_, err := sq.Insert("reexports").
			Columns("snapshot_id", "edge_id", "module_id", "name", "path", "glob", "visibility", "doc",
				"unit", "start_line", "end_line", "start_offset", "end_offset", "target_id", "next_id").
			Values(snapshotID, i, moduleID, e.Name, encodeStrings(e.Path), boolInt(e.Glob), int(e.Visibility), encodeStrings(e.Doc),
				e.Range.Unit, e.Range.StartLine, e.Range.EndLine, e.Range.StartOffset, e.Range.EndOffset,
				nullableID(targetID, hasTarget && e.Target != nil), nullableID(nextID, hasNext && e.Next != nil)).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert re-export %s: %w", e.Alias(), err)
		}
	}

	for i, d := range idx.Diagnostics() {
		_, err := sq.Insert("diagnostics").
			Columns("snapshot_id", "ordinal", "severity", "code", "unit", "start_line", "end_line", "start_offset", "end_offset", "message").
			Values(snapshotID, i, int(d.Severity), string(d.Code), d.Range.Unit, d.Range.StartLine, d.Range.EndLine,
				d.Range.StartOffset, d.Range.EndOffset, d.Message).
			RunWith(tx).
			Exec()
		if err != nil {
			return fmt.Errorf("failed to insert diagnostic %d: %w", i, err)
		}
	}
	return nil
}

func insertSymbol(tx *sql.Tx, snapshotID string, id int, sym *symbols.Symbol, ids map[*symbols.Symbol]int) error {
	parentID, hasParent := ids[sym.Parent]

	var doc sql.NullString
	if sym.HasDoc() {
		doc = nullableStrings(sym.Doc(), true)
	}

	var modPath, modUnits sql.NullString
	var modDecl sql.NullInt64
	if sym.Module != nil {
		modPath = nullableStrings(sym.Module.Path, true)
		modUnits = nullableStrings(sym.Module.Units, true)
		modDecl = sql.NullInt64{Int64: int64(sym.Module.Decl), Valid: true}
	}

	_, err := sq.Insert("symbols").
		Columns("snapshot_id", "symbol_id", "parent_id", "kind", "name", "qualified_name",
			"visibility", "visibility_text", "generics", "signature", "attributes", "doc", "inner_doc",
			"text", "patterns", "self_type", "trait",
			"unit", "start_line", "end_line", "start_offset", "end_offset",
			"module_path", "module_units", "module_decl").
		Values(snapshotID, id, nullableID(parentID, hasParent && sym.Parent != nil), sym.Kind.String(), sym.Name, sym.QualifiedName(),
			int(sym.Visibility), sym.VisibilityText, sym.Generics, sym.Signature, encodeStrings(sym.Attributes), doc, encodeStrings(sym.InnerDoc),
			sym.Text, encodeStrings(sym.Patterns), sym.SelfType, sym.Trait,
			sym.Range.Unit, sym.Range.StartLine, sym.Range.EndLine, sym.Range.StartOffset, sym.Range.EndOffset,
			modPath, modUnits, modDecl).
		RunWith(tx).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to insert symbol %s: %w", sym.QualifiedName(), err)
	}
	return nil
}

// Prune deletes all but the newest keep snapshots and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	var removed int
	err := s.withWriteLock(ctx, func() error {
		res, err := sq.Delete("snapshots").
			Where(sq.Expr("seq NOT IN (SELECT seq FROM snapshots ORDER BY seq DESC LIMIT ?)", keep)).
			RunWith(s.db).
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to prune snapshots: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = int(n)
		return nil
	})
	return removed, err
}
