package vectorstore

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// QdrantConfig configures the remote Qdrant gRPC backend. No tenant
// isolation, circuit-breaker, or retry surface: there is no multi-tenant
// concept here, and each Qdrant call is made once, its error mapped by
// qdrantErr.
type QdrantConfig struct {
	Host   string
	Port   int
	UseTLS bool
}

// QdrantStore implements Store against a remote Qdrant server, selected by
// VECTOR_STORE_PROVIDER=qdrant.
type QdrantStore struct {
	client *qdrant.Client
	logger *zap.Logger

	mu           sync.Mutex
	fingerprints map[string]ModelFingerprint
}

var _ Store = (*QdrantStore)(nil)

// NewQdrantStore dials a Qdrant gRPC endpoint. The fingerprint ledger is
// kept in-process (mirrors ChromemStore's sidecar file, minus the file —
// qdrant has no natural place for collection-scoped, non-point metadata
// either, so the same workaround applies); a process restart without
// persisted fingerprints degrades gracefully: the first UpsertEmbeddings
// after restart simply re-establishes the fingerprint for that collection.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
	})
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "connect to qdrant")
	}
	logger.Info("connected to qdrant", zap.String("host", config.Host), zap.Int("port", config.Port))
	return &QdrantStore{client: client, logger: logger, fingerprints: map[string]ModelFingerprint{}}, nil
}

func (s *QdrantStore) CreateCollection(ctx context.Context, collection string, vectorSize int) error {
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorSize),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return qdrantErr(collection, "create vector collection", err)
	}
	return nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return qdrantErr(collection, "delete vector collection", err)
	}
	s.mu.Lock()
	delete(s.fingerprints, collection)
	s.mu.Unlock()
	return nil
}

func (s *QdrantStore) CollectionExists(ctx context.Context, collection string) (bool, error) {
	_, err := s.client.GetCollectionInfo(ctx, collection)
	if err == nil {
		return true, nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
		return false, nil
	}
	return false, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "check vector collection: "+collection)
}

func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "list vector collections")
	}
	return names, nil
}

func (s *QdrantStore) GetCollectionInfo(ctx context.Context, collection string) (CollectionInfo, error) {
	info, err := s.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return CollectionInfo{}, kberrors.NotFound(kberrors.CodeCollectionNotFound, "vector collection not found: "+collection)
		}
		return CollectionInfo{}, qdrantErr(collection, "get vector collection info", err)
	}
	count := 0
	if info.PointsCount != nil {
		count = int(*info.PointsCount)
	}
	s.mu.Lock()
	dim := s.fingerprints[collection].Dimensionality
	s.mu.Unlock()
	return CollectionInfo{Name: collection, PointCount: count, VectorSize: dim}, nil
}

func (s *QdrantStore) UpsertEmbeddings(ctx context.Context, collection string, records []EmbeddingRecord) error {
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

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		payload := map[string]*qdrant.Value{
			"chunk_id": {Kind: &qdrant.Value_StringValue{StringValue: r.ChunkID}},
		}
		for k, v := range r.Metadata {
			payload[k] = &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: v}}
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(qdrantPointID(r.ChunkID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: payload,
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{CollectionName: collection, Points: points}); err != nil {
		return qdrantErr(collection, "upsert embeddings", err)
	}

	s.mu.Lock()
	s.fingerprints[collection] = records[0].Fingerprint
	s.mu.Unlock()
	return nil
}

func (s *QdrantStore) QueryWithRelationships(ctx context.Context, collection string, queryVector []float32, k int, filter map[string]string) ([]SearchMatch, error) {
	var qf *qdrant.Filter
	if len(filter) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter))
		for key, value := range filter {
			conditions = append(conditions, &qdrant.Condition{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   key,
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
					},
				},
			})
		}
		qf = &qdrant.Filter{Must: conditions}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         qf,
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return nil, kberrors.NotFound(kberrors.CodeCollectionNotFound, "vector collection not found: "+collection)
		}
		return nil, qdrantErr(collection, "query vector collection", err)
	}

	matches := make([]SearchMatch, len(results))
	for i, point := range results {
		meta := map[string]string{}
		chunkID := ""
		for k, v := range point.Payload {
			s := qdrantValueToString(v)
			if k == "chunk_id" {
				chunkID = s
				continue
			}
			meta[k] = s
		}
		matches[i] = SearchMatch{
			ChunkID:  chunkID,
			Score:    point.Score,
			Metadata: meta,
			Related:  relationshipsFromMetadata(meta),
		}
	}
	return matches, nil
}

// GetByChunkIDs fetches records directly by id via a scroll-with-filter
// call (no query vector needed), for the query pipeline's
// context-expansion stage. Missing ids are silently omitted.
func (s *QdrantStore) GetByChunkIDs(ctx context.Context, collection string, chunkIDs []string) ([]SearchMatch, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	points, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key:   "chunk_id",
						Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: chunkIDs}}},
					},
				},
			}},
		},
		Limit:       qdrant.PtrOf(uint32(len(chunkIDs))),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
			return nil, nil
		}
		return nil, qdrantErr(collection, "fetch embeddings by id", err)
	}

	matches := make([]SearchMatch, 0, len(points))
	for _, point := range points {
		meta := map[string]string{}
		chunkID := ""
		for k, v := range point.Payload {
			str := qdrantValueToString(v)
			if k == "chunk_id" {
				chunkID = str
				continue
			}
			meta[k] = str
		}
		matches = append(matches, SearchMatch{ChunkID: chunkID, Metadata: meta, Related: relationshipsFromMetadata(meta)})
	}
	return matches, nil
}

func (s *QdrantStore) DeleteByChunkIDs(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{{
						ConditionOneOf: &qdrant.Condition_Field{
							Field: &qdrant.FieldCondition{
								Key:   "chunk_id",
								Match: &qdrant.Match{MatchValue: &qdrant.Match_Keywords{Keywords: &qdrant.RepeatedStrings{Strings: chunkIDs}}},
							},
						},
					}},
				},
			},
		},
	})
	if err != nil {
		return qdrantErr(collection, "delete embeddings", err)
	}
	return nil
}

func (s *QdrantStore) DeleteByCollection(ctx context.Context, collection string) error {
	return s.DeleteCollection(ctx, collection)
}

func (s *QdrantStore) Fingerprint(_ context.Context, collection string) (ModelFingerprint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fp, ok := s.fingerprints[collection]
	return fp, ok, nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// qdrantPointID derives a stable UUID from a chunk id so chunk ids (which
// are not themselves UUIDs, see chunking.chunkID) can still address a
// Qdrant point, whose point ids must be UUIDs or unsigned integers.
func qdrantPointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

func qdrantValueToString(v *qdrant.Value) string {
	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return strconv.FormatInt(val.IntegerValue, 10)
	case *qdrant.Value_DoubleValue:
		return strconv.FormatFloat(val.DoubleValue, 'f', -1, 64)
	case *qdrant.Value_BoolValue:
		return strconv.FormatBool(val.BoolValue)
	default:
		return ""
	}
}

func qdrantErr(collection, op string, err error) error {
	if st, ok := status.FromError(err); ok &&
		(st.Code() == grpccodes.Unavailable || st.Code() == grpccodes.DeadlineExceeded) {
		return kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, op+" for "+collection+": vector store unavailable")
	}
	return kberrors.Storage("", op+" for "+collection, err)
}
