package vectorstore

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// Filters mirrors spec.md §4.H's filter option set: every present
// field is conjoined (AND); PathPrefix matches as a text-contains
// condition rather than an exact match.
type Filters struct {
	Language   string
	SymbolType string
	PathPrefix string
	FileHash   string
}

func (f Filters) empty() bool {
	return f.Language == "" && f.SymbolType == "" && f.PathPrefix == "" && f.FileHash == ""
}

func (f Filters) toQdrant() *qdrant.Filter {
	if f.empty() {
		return nil
	}

	var conds []*qdrant.Condition
	if f.Language != "" {
		conds = append(conds, qdrant.NewMatch("language", f.Language))
	}
	if f.SymbolType != "" {
		conds = append(conds, qdrant.NewMatch("symbol_type", f.SymbolType))
	}
	if f.FileHash != "" {
		conds = append(conds, qdrant.NewMatch("file_hash", f.FileHash))
	}
	if f.PathPrefix != "" {
		conds = append(conds, qdrant.NewMatchText("path", f.PathPrefix))
	}

	return &qdrant.Filter{Must: conds}
}

// ScoredPoint is one match returned from a query, with its payload
// decoded back into plain fields.
type ScoredPoint struct {
	ChunkID    string
	Score      float32
	Path       string
	Language   string
	SymbolType string
	SymbolName string
	StartLine  int
	EndLine    int
	FileHash   string
	Text       string
}

// QueryRequest parameterizes a single query call.
type QueryRequest struct {
	Collection  string
	DenseVector []float32

	// SparseIdx/SparseValues are non-empty only when hybrid fusion is
	// requested; UseHybrid false issues a dense-only search.
	UseHybrid    bool
	SparseIdx    []uint32
	SparseValues []float32

	Limit   int
	Filters Filters
}

// Query issues either a dense-only search or, when UseHybrid is set,
// a two-prefetch RRF fusion query (dense + bm25, each over-fetching
// 2*Limit), per spec.md §4.H steps 2-4.
func (s *Store) Query(ctx context.Context, req QueryRequest) ([]ScoredPoint, error) {
	filter := req.Filters.toQdrant()
	withPayload := qdrant.NewWithPayload(true)

	if !req.UseHybrid {
		points, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: req.Collection,
			Query:          qdrant.NewQuery(req.DenseVector...),
			Using:          qdrant.PtrOf(DenseFieldName),
			Filter:         filter,
			Limit:          qdrant.PtrOf(uint64(req.Limit)),
			WithPayload:    withPayload,
		})
		if err != nil {
			return nil, err
		}
		return toScoredPoints(points), nil
	}

	prefetchLimit := uint64(2 * req.Limit)
	prefetches := []*qdrant.PrefetchQuery{
		{
			Query:  qdrant.NewQuery(req.DenseVector...),
			Using:  qdrant.PtrOf(DenseFieldName),
			Filter: filter,
			Limit:  qdrant.PtrOf(prefetchLimit),
		},
		{
			Query:  qdrant.NewQuerySparse(req.SparseIdx, req.SparseValues),
			Using:  qdrant.PtrOf(SparseFieldName),
			Filter: filter,
			Limit:  qdrant.PtrOf(prefetchLimit),
		},
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: req.Collection,
		Prefetch:       prefetches,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Filter:         filter,
		Limit:          qdrant.PtrOf(uint64(req.Limit)),
		WithPayload:    withPayload,
	})
	if err != nil {
		return nil, err
	}
	return toScoredPoints(points), nil
}

// ScrollByFilter returns every point matching filters with no vector
// scoring, backing search_by_metadata. Scores are reported as 0 since
// scroll is not a ranked operation.
func (s *Store) ScrollByFilter(ctx context.Context, collection string, filters Filters) ([]ScoredPoint, error) {
	filter := filters.toQdrant()
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter:         filter,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(points))
	for _, p := range points {
		out = append(out, toScoredPoint(p.GetId(), p.Payload, 0))
	}
	return out, nil
}

func toScoredPoints(points []*qdrant.ScoredPoint) []ScoredPoint {
	out := make([]ScoredPoint, 0, len(points))
	for _, p := range points {
		out = append(out, toScoredPoint(p.GetId(), p.Payload, p.GetScore()))
	}
	return out
}

// toScoredPoint decodes a point's payload into a ScoredPoint, falling
// back to the point's own ID string when the payload lacks chunk_id.
func toScoredPoint(id *qdrant.PointId, payload map[string]*qdrant.Value, score float32) ScoredPoint {
	sp := ScoredPoint{Score: score}

	if payload != nil {
		if v, ok := payload["chunk_id"]; ok {
			sp.ChunkID = v.GetStringValue()
		}
		if v, ok := payload["path"]; ok {
			sp.Path = v.GetStringValue()
		}
		if v, ok := payload["language"]; ok {
			sp.Language = v.GetStringValue()
		}
		if v, ok := payload["symbol_type"]; ok {
			sp.SymbolType = v.GetStringValue()
		}
		if v, ok := payload["symbol_name"]; ok {
			sp.SymbolName = v.GetStringValue()
		}
		if v, ok := payload["start_line"]; ok {
			sp.StartLine = int(v.GetIntegerValue())
		}
		if v, ok := payload["end_line"]; ok {
			sp.EndLine = int(v.GetIntegerValue())
		}
		if v, ok := payload["file_hash"]; ok {
			sp.FileHash = v.GetStringValue()
		}
		if v, ok := payload["text"]; ok {
			sp.Text = v.GetStringValue()
		}
	}

	if sp.ChunkID == "" {
		sp.ChunkID = fmt.Sprint(id)
	}

	return sp
}
