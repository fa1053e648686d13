// Package vectorstore wraps Qdrant as the external vector store: named
// dense+sparse collections, HNSW search, filterable payloads, and RRF
// query fusion.
package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	DenseFieldName  = "dense"
	SparseFieldName = "bm25"

	DefaultHNSWM           = 16
	DefaultHNSWEfConstruct = 100

	DefaultQuantizationQuantile = 0.99

	upsertBatchSize = 100
)

// Config configures the Qdrant connection.
type Config struct {
	Host   string
	Port   int // gRPC port, default 6334
	APIKey string
	UseTLS bool
}

// CollectionConfig describes how ensure_collection sizes a new
// collection's dense vector field.
type CollectionConfig struct {
	DenseDimensions int
	Quantization    *QuantizationConfig
}

// QuantizationConfig mirrors spec.md §4.G's optional scalar
// quantization block.
type QuantizationConfig struct {
	Enabled   bool
	Type      string // "int8"
	Quantile  float32
	AlwaysRAM bool
}

// Point is the logical view of a stored point: one chunk's dense and
// optional sparse vectors plus its payload.
type Point struct {
	ChunkID      string
	DenseVector  []float32
	SparseIdx    []uint32
	SparseValues []float32
	Path         string
	Language     string
	SymbolType   string
	SymbolName   string
	StartLine    int
	EndLine      int
	FileHash     string
	Text         string
}

// CollectionInfo reports point counts for an existing collection.
type CollectionInfo struct {
	PointsCount          uint64
	IndexedVectorsCount  uint64
}

// Store is the vector-store client. Grounded on kadirpekel-hector's
// QdrantProvider (collection/point/filter plumbing), extended to named
// dense+sparse vector fields, HNSW config, quantization, and RRF fusion
// queries, none of which the single-dense-vector reference example
// exercises.
type Store struct {
	client *qdrant.Client
	config Config
}

// New dials Qdrant's gRPC endpoint.
func New(cfg Config) (*Store, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client for %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &Store{client: client, config: cfg}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// EnsureCollection creates the named collection with a dense `dense`
// field (cosine, in-memory) and sparse `bm25` field (IDF modifier) if
// it does not already exist. Idempotent: an existing collection is
// left untouched.
func (s *Store) EnsureCollection(ctx context.Context, name string, cfg CollectionConfig) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", name, err)
	}
	if exists {
		return nil
	}

	onDisk := false
	create := &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			DenseFieldName: {
				Size:     uint64(cfg.DenseDimensions),
				Distance: qdrant.Distance_Cosine,
				OnDisk:   &onDisk,
				HnswConfig: &qdrant.HnswConfigDiff{
					M:           qdrant.PtrOf(uint64(DefaultHNSWM)),
					EfConstruct: qdrant.PtrOf(uint64(DefaultHNSWEfConstruct)),
				},
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			SparseFieldName: {
				Modifier: qdrant.Modifier_Idf.Enum(),
			},
		}),
	}

	if cfg.Quantization != nil && cfg.Quantization.Enabled {
		create.QuantizationConfig = quantizationConfig(*cfg.Quantization)
	}

	if err := s.client.CreateCollection(ctx, create); err != nil {
		return fmt.Errorf("failed to create collection %q: %w", name, err)
	}
	return nil
}

// EnableQuantization patches an existing collection to turn on int8
// scalar quantization.
func (s *Store) EnableQuantization(ctx context.Context, name string, opts QuantizationConfig) error {
	_, err := s.client.GetCollectionsClient().Update(ctx, &qdrant.UpdateCollection{
		CollectionName:      name,
		QuantizationConfig:  qdrant.NewQuantizationDiff(quantizationConfig(opts)),
	})
	if err != nil {
		return fmt.Errorf("failed to enable quantization on %q: %w", name, err)
	}
	return nil
}

func quantizationConfig(opts QuantizationConfig) *qdrant.QuantizationConfig {
	quantile := opts.Quantile
	if quantile == 0 {
		quantile = DefaultQuantizationQuantile
	}
	return qdrant.NewQuantizationScalar(&qdrant.ScalarQuantization{
		Type:      qdrant.QuantizationType_Int8,
		Quantile:  qdrant.PtrOf(quantile),
		AlwaysRam: qdrant.PtrOf(opts.AlwaysRAM),
	})
}

// Upsert writes points in batches of 100 with wait=true. Each point's
// internal ID is a synthesized UUIDv4; the logical chunk_id travels in
// the payload (spec.md §9 resolution: UUIDs, not batch offsets, which
// could collide across incremental re-indexing runs).
func (s *Store) Upsert(ctx context.Context, collection string, points []Point) error {
	for start := 0; start < len(points); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(points) {
			end = len(points)
		}

		batch := make([]*qdrant.PointStruct, 0, end-start)
		for _, p := range points[start:end] {
			batch = append(batch, pointToStruct(p))
		}

		wait := true
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         batch,
			Wait:           &wait,
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch [%d:%d]: %w", start, end, err)
		}
	}
	return nil
}

func pointToStruct(p Point) *qdrant.PointStruct {
	vectors := map[string]*qdrant.Vector{
		DenseFieldName: qdrant.NewVectorDense(p.DenseVector),
	}
	if len(p.SparseIdx) > 0 {
		vectors[SparseFieldName] = qdrant.NewVectorSparse(p.SparseIdx, p.SparseValues)
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewID(uuid.NewString()),
		Vectors: qdrant.NewVectorsMap(vectors),
		Payload: qdrant.NewValueMap(map[string]any{
			"chunk_id":    p.ChunkID,
			"text":        p.Text,
			"path":        p.Path,
			"language":    p.Language,
			"symbol_type": p.SymbolType,
			"symbol_name": p.SymbolName,
			"start_line":  p.StartLine,
			"end_line":    p.EndLine,
			"file_hash":   p.FileHash,
		}),
	}
}

// DeleteByFileHash removes every point payload-tagged with the given
// file_hash, wait=true.
func (s *Store) DeleteByFileHash(ctx context.Context, collection string, fileHash string) error {
	wait := true
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: matchKeyword("file_hash", fileHash),
			},
		},
		Wait: &wait,
	})
	if err != nil {
		return fmt.Errorf("failed to delete by file_hash %q: %w", fileHash, err)
	}
	return nil
}

// GetCollectionInfo returns point counts, or nil if the collection
// does not exist.
func (s *Store) GetCollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error) {
	exists, err := s.client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to check collection %q: %w", collection, err)
	}
	if !exists {
		return nil, nil
	}

	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info for %q: %w", collection, err)
	}

	return &CollectionInfo{
		PointsCount:         info.GetPointsCount(),
		IndexedVectorsCount: info.GetIndexedVectorsCount(),
	}, nil
}

// matchKeyword builds a single-field equality filter.
func matchKeyword(key, value string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch(key, value),
		},
	}
}
