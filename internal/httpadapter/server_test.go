package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/services"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/sqlstore"
	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

type stubEmbedder struct{}

func (stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}
func (stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}
func (stubEmbedder) Fingerprint() vectorstore.ModelFingerprint {
	return vectorstore.ModelFingerprint{ModelName: "stub", Dimensionality: 2}
}

type stubVectorStore struct{}

func (stubVectorStore) CreateCollection(context.Context, string, int) error     { return nil }
func (stubVectorStore) DeleteCollection(context.Context, string) error          { return nil }
func (stubVectorStore) CollectionExists(context.Context, string) (bool, error)  { return false, nil }
func (stubVectorStore) ListCollections(context.Context) ([]string, error)       { return nil, nil }
func (stubVectorStore) GetCollectionInfo(context.Context, string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{}, nil
}
func (stubVectorStore) UpsertEmbeddings(context.Context, string, []vectorstore.EmbeddingRecord) error {
	return nil
}
func (stubVectorStore) QueryWithRelationships(context.Context, string, []float32, int, map[string]string) ([]vectorstore.SearchMatch, error) {
	return nil, nil
}
func (stubVectorStore) GetByChunkIDs(context.Context, string, []string) ([]vectorstore.SearchMatch, error) {
	return nil, nil
}
func (stubVectorStore) DeleteByChunkIDs(context.Context, string, []string) error { return nil }
func (stubVectorStore) DeleteByCollection(context.Context, string) error         { return nil }
func (stubVectorStore) Fingerprint(context.Context, string) (vectorstore.ModelFingerprint, bool, error) {
	return vectorstore.ModelFingerprint{}, false, nil
}
func (stubVectorStore) Close() error { return nil }

// newTestServer wires a server over an in-memory embedded-db backend, no
// LLM, no crawler, no reconciler.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	vs := stubVectorStore{}
	embedder := stubEmbedder{}
	coordinator := syncstate.NewCoordinator(st, st, vs, embedder, syncstate.Config{}, nil)
	pipeline := query.NewPipeline(vs, embedder, nil, st, query.DefaultConfig(), nil)

	container := services.NewContainer(services.Options{
		Collections:  st,
		SyncStatuses: st,
		VectorStore:  vs,
		Embedder:     embedder,
		Sync:         coordinator,
		Query:        pipeline,
	})
	return NewServer(usecase.New(container), nil, Config{})
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Detail struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		} `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Detail.Error.Code
}

func TestCollectionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs","description":"test docs"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "duplicate_name", errorCode(t, rec))

	rec = do(t, s, http.MethodGet, "/api/file-collections", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "docs", listed[0]["name"])

	rec = do(t, s, http.MethodGet, "/api/file-collections/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/file-collections/docs", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/file-collections/docs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileRoundTrip(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs"}`).Code)

	content := "# H\n\nhello"
	body, _ := json.Marshal(map[string]string{"folder": "folder", "name": "a.md", "content": content})
	rec := do(t, s, http.MethodPost, "/api/file-collections/docs/files", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/file-collections/docs/files/folder/a.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var file map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &file))
	assert.Equal(t, content, file["content"])
	assert.Equal(t, float64(len(content)), file["size"])

	rec = do(t, s, http.MethodGet, "/api/file-collections/docs/files", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var files []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &files))
	require.Len(t, files, 1)
	assert.Equal(t, "folder", files[0]["folder"])
	assert.Equal(t, "a.md", files[0]["name"])

	rec = do(t, s, http.MethodPut, "/api/file-collections/docs/files/folder/a.md", `{"content":"updated"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodDelete, "/api/file-collections/docs/files/folder/a.md", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/file-collections/docs/files/folder/a.md", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFileValidationErrors(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs"}`).Code)

	rec := do(t, s, http.MethodPost, "/api/file-collections/docs/files",
		`{"folder":"../escape","name":"a.md","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/file-collections/docs/files",
		`{"name":"evil.exe","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_extension", errorCode(t, rec))
}

func TestReconcileRequiresFilesystemBackend(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs"}`).Code)

	rec := do(t, s, http.MethodPost, "/api/file-collections/docs/reconcile", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "reconcile_unsupported", errorCode(t, rec))
}

func TestCrawlWithoutFetcherIsUnavailable(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/extract", `{"url":"https://example.com"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "service_unavailable", errorCode(t, rec))
}

func TestSyncStatusForUnknownCollectionIsNeverSynced(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusOK,
		do(t, s, http.MethodPost, "/api/file-collections", `{"name":"docs"}`).Code)

	rec := do(t, s, http.MethodGet, "/api/vector-sync/collections/docs/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "never_synced", status["state"])
}