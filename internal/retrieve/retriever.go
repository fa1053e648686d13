// Package retrieve implements the hybrid dense+sparse search entry
// point: embed the query, build the store filter, fire a dense-only or
// RRF-fused query against the vector store, and degrade gracefully
// when the backend is unreachable or slow.
//
// The timeout/degradation idiom is grounded on the teacher's
// pkg/searcher/fusion.go graceful-degradation pattern, generalized
// from in-process RRF fusion (which this package no longer performs
// itself — Qdrant fuses server-side) to racing the whole pipeline
// against a deadline.
package retrieve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/codesearch/internal/embed"
	cserrors "github.com/Aman-CERP/codesearch/internal/errors"
	"github.com/Aman-CERP/codesearch/internal/sparse"
	"github.com/Aman-CERP/codesearch/internal/vectorstore"
)

const (
	DefaultLimit      = 10
	DefaultTimeoutMs  = 5000
	DefaultUseHybrid  = true
)

// Embedder is the narrow slice of the embedding client the retriever
// needs: turning a query string into its dense vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string, opts embed.Options) ([]float32, error)
}

// Store is the narrow slice of the vector-store client the retriever
// needs. *vectorstore.Store satisfies this; tests substitute a fake.
type Store interface {
	Query(ctx context.Context, req vectorstore.QueryRequest) ([]vectorstore.ScoredPoint, error)
	ScrollByFilter(ctx context.Context, collection string, filters vectorstore.Filters) ([]vectorstore.ScoredPoint, error)
}

// Options mirrors spec.md §4.H's hybrid_search option set.
type Options struct {
	Limit          int
	ScoreThreshold float32
	Filters        vectorstore.Filters
	UseHybrid      bool
	TimeoutMs      int
}

// withDefaults fills zero-valued Limit and TimeoutMs with spec.md
// §4.H's defaults. UseHybrid has no "unset" sentinel in a bool and is
// left as given, so a zero Options searches dense-only; NewOptions
// turns hybrid search on.
func (o Options) withDefaults() Options {
	if o.Limit == 0 {
		o.Limit = DefaultLimit
	}
	if o.TimeoutMs == 0 {
		o.TimeoutMs = DefaultTimeoutMs
	}
	return o
}

// NewOptions returns Options seeded with spec.md §4.H's defaults,
// including UseHybrid=true (which withDefaults cannot express since
// false is indistinguishable from unset for a bool).
func NewOptions() Options {
	return Options{
		Limit:     DefaultLimit,
		UseHybrid: DefaultUseHybrid,
		TimeoutMs: DefaultTimeoutMs,
	}
}

// Chunk is the subset of a stored chunk's payload returned with each
// search result.
type Chunk struct {
	Path       string
	Language   string
	SymbolType string
	SymbolName string
	StartLine  int
	EndLine    int
	FileHash   string
	Text       string
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ID    string
	Score float32
	Chunk Chunk
}

// SearchResponse pairs results with an optional degradation warning.
type SearchResponse struct {
	Results []SearchResult
	Warning string
}

// Retriever composes an embedding client and a vector store to answer
// hybrid_search queries.
type Retriever struct {
	embedder Embedder
	store    Store
}

// New constructs a Retriever.
func New(embedder Embedder, store Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// HybridSearch runs hybrid_search and discards the warning, matching
// spec.md §4.H's non-degradation-aware entry point: it still never
// throws on a degraded search, it simply returns no results.
func (r *Retriever) HybridSearch(ctx context.Context, collection, query string, opts Options) ([]SearchResult, error) {
	resp, err := r.HybridSearchWithWarning(ctx, collection, query, opts)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// HybridSearchWithWarning implements spec.md §4.H's 5-step algorithm,
// bounded by opts.TimeoutMs. Backend-unavailable and timeout failures
// degrade to an empty result with a warning; they are never returned
// as errors. The one error it returns is the caller's own ctx error,
// when ctx is cancelled or expires before the search finishes.
func (r *Retriever) HybridSearchWithWarning(ctx context.Context, collection, query string, opts Options) (SearchResponse, error) {
	opts = opts.withDefaults()

	searchCtx, cancel := context.WithTimeout(ctx, time.Duration(opts.TimeoutMs)*time.Millisecond)
	defer cancel()

	type searchOutcome struct {
		results []SearchResult
		err     error
	}
	outcome := make(chan searchOutcome, 1)

	go func() {
		results, err := r.search(searchCtx, collection, query, opts)
		outcome <- searchOutcome{results: results, err: err}
	}()

	select {
	case <-searchCtx.Done():
		if ctx.Err() != nil {
			return SearchResponse{Results: []SearchResult{}}, ctx.Err()
		}
		return SearchResponse{Results: []SearchResult{}, Warning: "Search timeout exceeded"}, nil

	case out := <-outcome:
		if out.err == nil {
			return SearchResponse{Results: out.results}, nil
		}
		// The search may fail on the expired deadline and report back
		// before the Done case above is chosen.
		if searchCtx.Err() != nil && ctx.Err() == nil {
			return SearchResponse{Results: []SearchResult{}, Warning: "Search timeout exceeded"}, nil
		}

		switch cserrors.GetKind(out.err) {
		case cserrors.KindBackendUnavailable:
			return SearchResponse{Results: []SearchResult{}, Warning: fmt.Sprintf("Qdrant unavailable: %v", out.err)}, nil
		case cserrors.KindTimeout:
			return SearchResponse{Results: []SearchResult{}, Warning: "Search timeout exceeded"}, nil
		}

		return SearchResponse{Results: []SearchResult{}, Warning: fmt.Sprintf("Search error: %v", out.err)}, nil
	}
}

// search performs steps 1-5 of the algorithm without any timeout
// handling of its own; HybridSearchWithWarning races it against the
// deadline.
func (r *Retriever) search(ctx context.Context, collection, query string, opts Options) ([]SearchResult, error) {
	denseVector, err := r.embedder.EmbedText(ctx, query, embed.Options{UseCache: true})
	if err != nil {
		return nil, cserrors.BackendUnavailable("failed to embed query", err).WithDetail("query", query)
	}

	req := vectorstore.QueryRequest{
		Collection:  collection,
		DenseVector: denseVector,
		UseHybrid:   opts.UseHybrid,
		Limit:       opts.Limit,
		Filters:     opts.Filters,
	}

	if opts.UseHybrid {
		sv := sparse.Vectorize(query)
		req.SparseIdx = sv.Indices
		req.SparseValues = sv.Values
	}

	points, err := r.store.Query(ctx, req)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		if p.Score < opts.ScoreThreshold {
			continue
		}
		results = append(results, SearchResult{
			ID:    p.ChunkID,
			Score: p.Score,
			Chunk: Chunk{
				Path:       p.Path,
				Language:   p.Language,
				SymbolType: p.SymbolType,
				SymbolName: p.SymbolName,
				StartLine:  p.StartLine,
				EndLine:    p.EndLine,
				FileHash:   p.FileHash,
				Text:       p.Text,
			},
		})
	}

	return results, nil
}

// SearchByMetadata issues a filter-only query (an all-zero dense
// vector placeholder is never sent — this bypasses the scoring path
// entirely by scrolling the collection's points matching filters).
// spec.md §4.H names this entry point as failing hard with
// InvalidArgument when no filters are present; unlike hybrid_search,
// this failure is not degraded to a warning.
func (r *Retriever) SearchByMetadata(ctx context.Context, collection string, filters vectorstore.Filters) ([]SearchResult, error) {
	if filters == (vectorstore.Filters{}) {
		return nil, cserrors.InvalidArgumentError("search_by_metadata requires at least one filter")
	}

	points, err := r.store.ScrollByFilter(ctx, collection, filters)
	if err != nil {
		return nil, classifyStoreError(err)
	}

	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, SearchResult{
			ID:    p.ChunkID,
			Score: p.Score,
			Chunk: Chunk{
				Path:       p.Path,
				Language:   p.Language,
				SymbolType: p.SymbolType,
				SymbolName: p.SymbolName,
				StartLine:  p.StartLine,
				EndLine:    p.EndLine,
				FileHash:   p.FileHash,
				Text:       p.Text,
			},
		})
	}
	return results, nil
}

// classifyStoreError maps a raw vectorstore error to the taxonomy:
// connection failures (refused, unreachable host, gRPC Unavailable)
// are BackendUnavailable (degrade to a warning), everything else is a
// generic BackendFailure.
func classifyStoreError(err error) error {
	if cserrors.GetKind(err) != "" {
		return err
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "no such host", "unavailable"} {
		if strings.Contains(msg, marker) {
			return cserrors.BackendUnavailable("vector store query failed", err)
		}
	}
	return cserrors.BackendFailure("vector store query failed", err)
}
