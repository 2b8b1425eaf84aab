// Package vectorstore stores embedding records keyed by chunk id and
// answers top-k similarity queries, optionally enriched with each match's
// declared chunk relationships. Two backends implement
// Store: chromem (embedded, default) and qdrant (remote gRPC).
package vectorstore

import (
	"context"
	"fmt"
)

// ModelFingerprint identifies the embedding model whose vectors populate a
// collection. All records in one logical vector collection must share the
// same fingerprint; a mismatch forces the sync coordinator to re-embed.
type ModelFingerprint struct {
	ModelName      string
	Dimensionality int
}

func (f ModelFingerprint) String() string {
	return fmt.Sprintf("%s@%d", f.ModelName, f.Dimensionality)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingRecord is one vector tied to exactly one chunk id, with its
// already-normalized primitive metadata mirror (see metadata.go) and the
// model fingerprint it was produced under.
type EmbeddingRecord struct {
	ChunkID     string
	Vector      []float32
	Metadata    map[string]string
	Fingerprint ModelFingerprint
}

// RelatedIDs carries the chunk-relationship ids a match's metadata
// declares, decoded back out of the primitive metadata mirror.
type RelatedIDs struct {
	PrevID            string
	NextID            string
	OverlapPartnerIDs []string
	ParentSectionID   string
}

// SearchMatch is one ranked result from QueryWithRelationships.
type SearchMatch struct {
	ChunkID  string
	Score    float32
	Metadata map[string]string
	Related  RelatedIDs
}

// CollectionInfo describes one vector collection.
type CollectionInfo struct {
	Name       string
	PointCount int
	VectorSize int
}

// Store is the vector storage contract: no multi-tenant isolation surface
// (there is no tenant concept here), with
// UpsertEmbeddings/QueryWithRelationships/DeleteByCollection/Fingerprint
// matching the chunk/embedding-record model.
type Store interface {
	CreateCollection(ctx context.Context, collection string, vectorSize int) error
	DeleteCollection(ctx context.Context, collection string) error
	CollectionExists(ctx context.Context, collection string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	GetCollectionInfo(ctx context.Context, collection string) (CollectionInfo, error)

	// UpsertEmbeddings stores or replaces records keyed by ChunkID. It
	// refuses (KindChunkMetadata) to mix fingerprints within one
	// collection; callers must delete and re-embed on a model change
	// rather than upsert across fingerprints.
	UpsertEmbeddings(ctx context.Context, collection string, records []EmbeddingRecord) error

	// QueryWithRelationships returns the top-k matches for queryVector,
	// each carrying its declared relationship ids so the query pipeline
	// can decide whether to materialize expanded context.
	QueryWithRelationships(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]SearchMatch, error)

	DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error
	DeleteByCollection(ctx context.Context, collection string) error

	// GetByChunkIDs fetches records by chunk id with no similarity scoring,
	// used by the query pipeline's context-expansion stage to materialize a
	// match's declared related chunks. Missing ids are silently omitted
	// rather than erroring, since a related chunk may have been deleted by
	// a later sync.
	GetByChunkIDs(ctx context.Context, collection string, chunkIDs []string) ([]SearchMatch, error)

	// Fingerprint returns the fingerprint currently recorded for a
	// collection. ok is false if the collection has no records yet.
	Fingerprint(ctx context.Context, collection string) (fp ModelFingerprint, ok bool, err error)

	Close() error
}
