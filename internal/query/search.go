package query

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/mvp-joe/symdex/internal/symbols"
)

// DefaultSearchLimit is used when Search is given a non-positive limit.
const DefaultSearchLimit = 15

const maxSearchLimit = 100

// Hit is one full-text search result.
type Hit struct {
	Symbol *symbols.Symbol
	Path   string
	Kind   string
	Score  float64
}

// searcher is an in-memory bleve index over symbol names, paths and docs.
// Document IDs are positions in syms.
type searcher struct {
	index bleve.Index
	syms  []*symbols.Symbol
}

func newSearcher(ctx context.Context, syms []*symbols.Symbol) (*searcher, error) {
	index, err := bleve.NewMemOnly(buildMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	if err := indexSymbols(ctx, index, syms); err != nil {
		index.Close()
		return nil, fmt.Errorf("failed to index symbols: %w", err)
	}
	return &searcher{index: index, syms: syms}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	indexMapping := bleve.NewIndexMapping()

	text := func(analyzer string) *mapping.FieldMapping {
		m := bleve.NewTextFieldMapping()
		m.Analyzer = analyzer
		m.Store = true
		m.Index = true
		return m
	}

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("name", text("standard"))
	docMapping.AddFieldMappingsAt("path", text("standard"))
	docMapping.AddFieldMappingsAt("kind", text("keyword"))
	docMapping.AddFieldMappingsAt("signature", text("standard"))

	doc := text("standard")
	doc.IncludeTermVectors = true // phrase queries
	docMapping.AddFieldMappingsAt("doc", doc)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func indexSymbols(ctx context.Context, index bleve.Index, syms []*symbols.Symbol) error {
	const batchSize = 1000

	batch := index.NewBatch()
	for i, s := range syms {
		if i%batchSize == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		if err := batch.Index(strconv.Itoa(i), symbolDocument(s)); err != nil {
			return fmt.Errorf("failed to add symbol %s to batch: %w", s.QualifiedName(), err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				return fmt.Errorf("failed to execute batch: %w", err)
			}
			batch = index.NewBatch()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return fmt.Errorf("failed to execute final batch: %w", err)
		}
	}
	return nil
}

func symbolDocument(s *symbols.Symbol) map[string]interface{} {
	doc := slices.Concat(s.Doc(), s.InnerDoc)
	return map[string]interface{}{
		"name":      s.Name,
		"path":      s.QualifiedName(),
		"kind":      s.Kind.String(),
		"signature": s.Signature,
		"doc":       strings.Join(doc, "\n"),
	}
}

// Search runs a bleve query string over names, paths, signatures and docs.
// Field scoping such as `kind:struct doc:parser` is supported.
func (idx *Index) Search(queryStr string, limit int) ([]Hit, error) {
	if idx.search == nil {
		return nil, ErrSearchDisabled
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = DefaultSearchLimit
	}

	searchRequest := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(queryStr), limit, 0, false)
	searchRequest.Fields = []string{"path", "kind"}

	searchResult, err := idx.search.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	hits := make([]Hit, 0, len(searchResult.Hits))
	for _, h := range searchResult.Hits {
		i, err := strconv.Atoi(h.ID)
		if err != nil || i < 0 || i >= len(idx.search.syms) {
			continue
		}
		path, _ := h.Fields["path"].(string)
		kind, _ := h.Fields["kind"].(string)
		hits = append(hits, Hit{
			Symbol: idx.search.syms[i],
			Path:   path,
			Kind:   kind,
			Score:  h.Score,
		})
	}
	return hits, nil
}

func (s *searcher) close() error {
	return s.index.Close()
}
