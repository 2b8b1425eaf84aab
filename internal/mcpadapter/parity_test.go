package mcpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/httpadapter"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/services"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/sqlstore"
	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// parityEmbedder embeds every text to the same fixed vector, so retrieval
// order is decided entirely by the scripted store below.
type parityEmbedder struct{}

func (parityEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0, 0}
	}
	return out, nil
}
func (parityEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0, 0, 0}, nil
}
func (parityEmbedder) Fingerprint() vectorstore.ModelFingerprint {
	return vectorstore.ModelFingerprint{ModelName: "parity", Dimensionality: 4}
}

// scriptedVectorStore returns a fixed, ordered match list for every query,
// so both adapters see byte-identical retrieval results.
type scriptedVectorStore struct {
	matches []vectorstore.SearchMatch
}

func (s *scriptedVectorStore) CreateCollection(context.Context, string, int) error { return nil }
func (s *scriptedVectorStore) DeleteCollection(context.Context, string) error      { return nil }
func (s *scriptedVectorStore) CollectionExists(context.Context, string) (bool, error) {
	return true, nil
}
func (s *scriptedVectorStore) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (s *scriptedVectorStore) GetCollectionInfo(context.Context, string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{}, nil
}
func (s *scriptedVectorStore) UpsertEmbeddings(context.Context, string, []vectorstore.EmbeddingRecord) error {
	return nil
}
func (s *scriptedVectorStore) QueryWithRelationships(_ context.Context, _ string, _ []float32, k int, _ map[string]string) ([]vectorstore.SearchMatch, error) {
	if k > len(s.matches) {
		k = len(s.matches)
	}
	return s.matches[:k], nil
}
func (s *scriptedVectorStore) GetByChunkIDs(context.Context, string, []string) ([]vectorstore.SearchMatch, error) {
	return nil, nil
}
func (s *scriptedVectorStore) DeleteByChunkIDs(context.Context, string, []string) error { return nil }
func (s *scriptedVectorStore) DeleteByCollection(context.Context, string) error         { return nil }
func (s *scriptedVectorStore) Fingerprint(context.Context, string) (vectorstore.ModelFingerprint, bool, error) {
	return vectorstore.ModelFingerprint{}, false, nil
}
func (s *scriptedVectorStore) Close() error { return nil }

func chunkMeta(text string) map[string]string {
	return map[string]string{
		"collection_id": "docs",
		"file_id":       "file-1",
		"position":      "0",
		"chunk_type":    "header_section",
		"contains_code": "false",
		"content_hash":  "abc",
		"token_count":   "3",
		"text":          text,
	}
}

// newParityFixture builds one container shared by an RPC adapter and an
// HTTP adapter, the configuration every parity assertion depends on.
func newParityFixture(t *testing.T) (*Server, *httpadapter.Server) {
	t.Helper()

	st, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	_, err = st.CreateCollection(context.Background(), "docs", "")
	require.NoError(t, err)

	vs := &scriptedVectorStore{matches: []vectorstore.SearchMatch{
		{ChunkID: "chunk-a", Score: 0.91, Metadata: chunkMeta("alpha")},
		{ChunkID: "chunk-b", Score: 0.74, Metadata: chunkMeta("beta")},
		{ChunkID: "chunk-c", Score: 0.62, Metadata: chunkMeta("gamma")},
	}}
	embedder := parityEmbedder{}

	coordinator := syncstate.NewCoordinator(st, st, vs, embedder, syncstate.Config{}, nil)
	cfg := query.DefaultConfig()
	cfg.DefaultSimilarityThresh = 0
	pipeline := query.NewPipeline(vs, embedder, nil, st, cfg, nil)

	container := services.NewContainer(services.Options{
		Collections:  st,
		SyncStatuses: st,
		VectorStore:  vs,
		Embedder:     embedder,
		Sync:         coordinator,
		Query:        pipeline,
	})
	uc := usecase.New(container)
	return NewServer(uc), httpadapter.NewServer(uc, nil, httpadapter.Config{})
}

func textPayload(t *testing.T, res *mcpsdk.CallToolResult) []byte {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)
	return []byte(text.Text)
}

// TestVectorSearchProtocolParity drives the same search through the RPC
// tool handler and the HTTP endpoint and requires the decoded result
// lists to agree on chunk ids, order, and scores.
func TestVectorSearchProtocolParity(t *testing.T) {
	rpc, httpSrv := newParityFixture(t)

	rpcRes, _, err := rpc.handleSearchCollectionVectors(context.Background(), nil, &searchCollectionVectorsParams{
		Query:      "what is alpha",
		Collection: "docs",
		Limit:      3,
	})
	require.NoError(t, err)
	var fromRPC query.SearchResult
	require.NoError(t, json.Unmarshal(textPayload(t, rpcRes), &fromRPC))

	body := `{"query":"what is alpha","collection":"docs","limit":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/vector-sync/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	httpSrv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var fromHTTP query.SearchResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fromHTTP))

	require.Len(t, fromRPC.Results, 3)
	require.Len(t, fromHTTP.Results, len(fromRPC.Results))
	for i := range fromRPC.Results {
		assert.Equal(t, fromRPC.Results[i].ChunkID, fromHTTP.Results[i].ChunkID)
		assert.Equal(t, fromRPC.Results[i].Score, fromHTTP.Results[i].Score)
		assert.Equal(t, fromRPC.Results[i].Text, fromHTTP.Results[i].Text)
	}
	assert.Equal(t, fromRPC.ExpansionUsed, fromHTTP.ExpansionUsed)
	assert.Equal(t, "chunk-a", fromRPC.Results[0].ChunkID)
}

// TestValidationErrorParity checks both adapters surface the same stable
// error code for the same bad input, each in its own envelope.
func TestValidationErrorParity(t *testing.T) {
	rpc, httpSrv := newParityFixture(t)

	rpcRes, _, err := rpc.handleSearchCollectionVectors(context.Background(), nil, &searchCollectionVectorsParams{
		Query:      "",
		Collection: "docs",
		Limit:      3,
	})
	require.NoError(t, err)
	var envelope struct {
		Success   bool   `json:"success"`
		ErrorCode string `json:"error_code"`
	}
	require.NoError(t, json.Unmarshal(textPayload(t, rpcRes), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "missing_query", envelope.ErrorCode)

	body := `{"query":"","collection":"docs","limit":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/vector-sync/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	httpSrv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var httpErr struct {
		Detail struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &httpErr))
	assert.Equal(t, "missing_query", httpErr.Detail.Error.Code)
}

// TestCollectionRoundTripParity creates a collection over RPC and reads it
// back over HTTP, asserting both see the identical record.
func TestCollectionRoundTripParity(t *testing.T) {
	rpc, httpSrv := newParityFixture(t)

	createRes, _, err := rpc.handleCreateCollection(context.Background(), nil, &createCollectionParams{Name: "notes", Description: "scratch"})
	require.NoError(t, err)
	var created map[string]any
	require.NoError(t, json.Unmarshal(textPayload(t, createRes), &created))

	req := httptest.NewRequest(http.MethodGet, "/api/file-collections/notes", nil)
	rec := httptest.NewRecorder()
	httpSrv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))

	assert.Equal(t, created, fetched)
}
