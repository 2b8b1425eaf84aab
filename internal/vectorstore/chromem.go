package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// fingerprintsFile records each collection's ModelFingerprint alongside the
// chromem-go data directory. chromem-go collections don't expose a place to
// stash the document-independent bookkeeping UpsertEmbeddings needs, so this
// stays a small sidecar JSON file rather than an extra chromem document.
const fingerprintsFile = "fingerprints.json"

// ChromemConfig configures the embedded chromem-go backend. Every caller
// here always names an explicit collection and vector size per
// UpsertEmbeddings record, so no default collection/vector-size fields
// are carried.
type ChromemConfig struct {
	// Path is the directory chromem-go persists to.
	Path string
	// Compress enables gzip compression of persisted data.
	Compress bool
}

// ChromemStore implements Store with the embedded, zero-dependency
// chromem-go vector database. This is the default backend
// (VECTOR_STORE_PROVIDER=chromem).
type ChromemStore struct {
	db     *chromem.DB
	logger *zap.Logger

	fingerprintPath string
	mu              sync.Mutex
	fingerprints    map[string]ModelFingerprint
}

var _ Store = (*ChromemStore)(nil)

// NewChromemStore opens (creating if necessary) a persistent chromem-go
// database at config.Path.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	path := config.Path
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, kberrors.Storage("", "resolve home directory", err)
		}
		path = filepath.Join(home, path[1:])
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, kberrors.Storage("", "create vector store directory", err)
	}

	db, err := chromem.NewPersistentDB(path, config.Compress)
	if err != nil {
		return nil, kberrors.Storage("", "open chromem database", err)
	}

	fpPath := filepath.Join(path, fingerprintsFile)
	fingerprints, err := loadFingerprints(fpPath)
	if err != nil {
		return nil, kberrors.Storage("", "load vector collection fingerprints", err)
	}

	return &ChromemStore{db: db, logger: logger, fingerprintPath: fpPath, fingerprints: fingerprints}, nil
}

func loadFingerprints(path string) (map[string]ModelFingerprint, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]ModelFingerprint{}, nil
	}
	if err != nil {
		return nil, err
	}
	var fingerprints map[string]ModelFingerprint
	if err := json.Unmarshal(raw, &fingerprints); err != nil {
		return nil, err
	}
	return fingerprints, nil
}

// saveFingerprints must be called with s.mu held.
func (s *ChromemStore) saveFingerprints() error {
	raw, err := json.Marshal(s.fingerprints)
	if err != nil {
		return err
	}
	return os.WriteFile(s.fingerprintPath, raw, 0o644)
}

func (s *ChromemStore) getCollection(name string) *chromem.Collection {
	return s.db.GetCollection(name, noopEmbeddingFunc)
}

func noopEmbeddingFunc(context.Context, string) ([]float32, error) {
	return nil, fmt.Errorf("embedding function should never be invoked: vectors are always precomputed")
}

func (s *ChromemStore) CreateCollection(_ context.Context, collection string, _ int) error {
	if existing := s.getCollection(collection); existing != nil {
		return nil
	}
	_, err := s.db.CreateCollection(collection, nil, noopEmbeddingFunc)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return kberrors.Storage("", "create vector collection", err)
	}
	return nil
}

func (s *ChromemStore) DeleteCollection(_ context.Context, collection string) error {
	if err := s.db.DeleteCollection(collection); err != nil {
		return kberrors.Storage("", "delete vector collection", err)
	}
	s.mu.Lock()
	delete(s.fingerprints, collection)
	err := s.saveFingerprints()
	s.mu.Unlock()
	if err != nil {
		return kberrors.Storage("", "persist vector collection fingerprints", err)
	}
	return nil
}

func (s *ChromemStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	return s.getCollection(collection) != nil, nil
}

func (s *ChromemStore) ListCollections(_ context.Context) ([]string, error) {
	names := make([]string, 0)
	for name := range s.db.ListCollections() {
		names = append(names, name)
	}
	return names, nil
}

func (s *ChromemStore) GetCollectionInfo(_ context.Context, collection string) (CollectionInfo, error) {
	c := s.getCollection(collection)
	if c == nil {
		return CollectionInfo{}, kberrors.NotFound(kberrors.CodeCollectionNotFound, "vector collection not found: "+collection)
	}
	dim := 0
	if c.Count() > 0 {
		// chromem-go doesn't expose vector dimensionality directly; the
		// fingerprint recorded at UpsertEmbeddings time is authoritative.
		s.mu.Lock()
		dim = s.fingerprints[collection].Dimensionality
		s.mu.Unlock()
	}
	return CollectionInfo{Name: collection, PointCount: c.Count(), VectorSize: dim}, nil
}

func (s *ChromemStore) UpsertEmbeddings(ctx context.Context, collection string, records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	existing, hasFingerprint := s.fingerprints[collection]
	s.mu.Unlock()
	for _, r := range records {
		if hasFingerprint && existing != r.Fingerprint {
			return kberrors.ChunkMetadata(kberrors.CodeModelFingerprintMix,
				fmt.Sprintf("collection %s has fingerprint %s, record has %s", collection, existing, r.Fingerprint))
		}
	}

	if err := s.CreateCollection(ctx, collection, records[0].Fingerprint.Dimensionality); err != nil {
		return err
	}
	c := s.getCollection(collection)

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		docs[i] = chromem.Document{
			ID:        r.ChunkID,
			Content:   r.ChunkID,
			Metadata:  r.Metadata,
			Embedding: r.Vector,
		}
	}

	if err := c.AddDocuments(ctx, docs, 1); err != nil {
		return kberrors.Storage("", "upsert embeddings", err)
	}

	s.mu.Lock()
	s.fingerprints[collection] = records[0].Fingerprint
	err := s.saveFingerprints()
	s.mu.Unlock()
	if err != nil {
		return kberrors.Storage("", "persist vector collection fingerprints", err)
	}
	return nil
}

func (s *ChromemStore) QueryWithRelationships(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]SearchMatch, error) {
	c := s.getCollection(collection)
	if c == nil {
		return nil, kberrors.NotFound(kberrors.CodeCollectionNotFound, "vector collection not found: "+collection)
	}

	docCount := c.Count()
	if docCount == 0 {
		return nil, nil
	}
	if k > docCount {
		k = docCount
	}

	results, err := c.QueryEmbedding(ctx, queryVector, k, filter, nil)
	if err != nil {
		return nil, kberrors.Storage("", "query vector collection", err)
	}

	matches := make([]SearchMatch, len(results))
	for i, r := range results {
		matches[i] = SearchMatch{
			ChunkID:  r.ID,
			Score:    r.Similarity,
			Metadata: r.Metadata,
			Related:  relationshipsFromMetadata(r.Metadata),
		}
	}
	return matches, nil
}

// GetByChunkIDs fetches records directly by id, with no similarity scoring
// (Score is left zero), for the query pipeline's context-expansion stage.
func (s *ChromemStore) GetByChunkIDs(ctx context.Context, collection string, chunkIDs []string) ([]SearchMatch, error) {
	c := s.getCollection(collection)
	if c == nil {
		return nil, nil
	}
	matches := make([]SearchMatch, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		doc, err := c.GetByID(ctx, id)
		if err != nil {
			continue
		}
		matches = append(matches, SearchMatch{
			ChunkID:  doc.ID,
			Metadata: doc.Metadata,
			Related:  relationshipsFromMetadata(doc.Metadata),
		})
	}
	return matches, nil
}

func (s *ChromemStore) DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	c := s.getCollection(collection)
	if c == nil {
		return kberrors.NotFound(kberrors.CodeCollectionNotFound, "vector collection not found: "+collection)
	}
	for _, id := range chunkIDs {
		if err := c.Delete(ctx, nil, nil, id); err != nil {
			return kberrors.Storage("", "delete embedding "+id, err)
		}
	}
	return nil
}

func (s *ChromemStore) DeleteByCollection(ctx context.Context, collection string) error {
	return s.DeleteCollection(ctx, collection)
}

func (s *ChromemStore) Fingerprint(_ context.Context, collection string) (ModelFingerprint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.fingerprints[collection]
	return fp, ok, nil
}

func (s *ChromemStore) Close() error {
	return nil
}
