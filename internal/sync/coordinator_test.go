package syncstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store/sqlstore"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// fakeEmbedder returns one fixed-dimensionality vector per input text,
// deterministic on text length so re-embeds of unchanged content are
// trivially comparable in assertions.
type fakeEmbedder struct {
	fp vectorstore.ModelFingerprint
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{fp: vectorstore.ModelFingerprint{ModelName: "fake-embedder", Dimensionality: 4}}
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1, 2, 3}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1, 2, 3}, nil
}

func (f *fakeEmbedder) Fingerprint() vectorstore.ModelFingerprint { return f.fp }

// fakeVectorStore is a minimal in-memory vectorstore.Store, enough to
// exercise the coordinator's upsert/delete calls without chromem-go's disk
// persistence.
type fakeVectorStore struct {
	records map[string]map[string]vectorstore.EmbeddingRecord // collection -> chunkID -> record
	fps     map[string]vectorstore.ModelFingerprint
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		records: map[string]map[string]vectorstore.EmbeddingRecord{},
		fps:     map[string]vectorstore.ModelFingerprint{},
	}
}

func (f *fakeVectorStore) CreateCollection(_ context.Context, collection string, _ int) error {
	if _, ok := f.records[collection]; !ok {
		f.records[collection] = map[string]vectorstore.EmbeddingRecord{}
	}
	return nil
}
func (f *fakeVectorStore) DeleteCollection(_ context.Context, collection string) error {
	delete(f.records, collection)
	delete(f.fps, collection)
	return nil
}
func (f *fakeVectorStore) CollectionExists(_ context.Context, collection string) (bool, error) {
	_, ok := f.records[collection]
	return ok, nil
}
func (f *fakeVectorStore) ListCollections(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(f.records))
	for name := range f.records {
		names = append(names, name)
	}
	return names, nil
}
func (f *fakeVectorStore) GetCollectionInfo(_ context.Context, collection string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{Name: collection, PointCount: len(f.records[collection])}, nil
}
func (f *fakeVectorStore) UpsertEmbeddings(_ context.Context, collection string, records []vectorstore.EmbeddingRecord) error {
	if _, ok := f.records[collection]; !ok {
		f.records[collection] = map[string]vectorstore.EmbeddingRecord{}
	}
	for _, r := range records {
		f.records[collection][r.ChunkID] = r
	}
	if len(records) > 0 {
		f.fps[collection] = records[0].Fingerprint
	}
	return nil
}
func (f *fakeVectorStore) QueryWithRelationships(_ context.Context, collection string, _ []float32, k int, _ map[string]string) ([]vectorstore.SearchMatch, error) {
	matches := make([]vectorstore.SearchMatch, 0, k)
	for _, r := range f.records[collection] {
		matches = append(matches, vectorstore.SearchMatch{ChunkID: r.ChunkID, Metadata: r.Metadata})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}
func (f *fakeVectorStore) GetByChunkIDs(_ context.Context, collection string, chunkIDs []string) ([]vectorstore.SearchMatch, error) {
	matches := make([]vectorstore.SearchMatch, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		if r, ok := f.records[collection][id]; ok {
			matches = append(matches, vectorstore.SearchMatch{ChunkID: r.ChunkID, Metadata: r.Metadata})
		}
	}
	return matches, nil
}
func (f *fakeVectorStore) DeleteByChunkIDs(_ context.Context, collection string, chunkIDs []string) error {
	for _, id := range chunkIDs {
		delete(f.records[collection], id)
	}
	return nil
}
func (f *fakeVectorStore) DeleteByCollection(_ context.Context, collection string) error {
	delete(f.records, collection)
	delete(f.fps, collection)
	return nil
}
func (f *fakeVectorStore) Fingerprint(_ context.Context, collection string) (vectorstore.ModelFingerprint, bool, error) {
	fp, ok := f.fps[collection]
	return fp, ok, nil
}
func (f *fakeVectorStore) Close() error { return nil }

func newTestCoordinator(t *testing.T) (*Coordinator, *sqlstore.Store, *fakeVectorStore) {
	t.Helper()
	s, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	vs := newFakeVectorStore()
	c := NewCoordinator(s, s, vs, newFakeEmbedder(), Config{}, nil)
	return c, s, vs
}

func TestEnableIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)

	st1, err := c.Enable(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNeverSynced, st1.State)

	st2, err := c.Enable(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNeverSynced, st2.State)
}

func TestSyncNowEmbedsNewFiles(t *testing.T) {
	ctx := context.Background()
	c, s, vs := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)

	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# Title\n\nSome content here.\n", "")
	require.NoError(t, err)

	st, err := c.SyncNow(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, StateInSync, st.State)
	assert.Equal(t, 1, st.FilesProcessed)
	assert.NotZero(t, st.ChunksAdded)
	assert.NotEmpty(t, vs.records[col.ID])
}

func TestSyncNowTwiceProcessesZeroOnSecondRun(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# Title\n\nSome content here.\n", "")
	require.NoError(t, err)

	_, err = c.SyncNow(ctx, col.ID)
	require.NoError(t, err)

	st, err := c.SyncNow(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.FilesProcessed)
}

func TestSyncNowReprocessesOnlyModifiedFile(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# A\n\nContent A.\n", "")
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, col.ID, "", "b.md", "# B\n\nContent B.\n", "")
	require.NoError(t, err)

	_, err = c.SyncNow(ctx, col.ID)
	require.NoError(t, err)

	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# A\n\nUpdated content A.\n", "")
	require.NoError(t, err)

	st, err := c.SyncNow(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.FilesProcessed)
}

func TestSyncNowRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)

	lock := c.lockFor(col.ID)
	require.True(t, lock.TryLock())
	defer lock.Unlock()

	_, err = c.SyncNow(ctx, col.ID)
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindConflict))
}

func TestStatusReportsOutOfSyncAfterExternalChange(t *testing.T) {
	ctx := context.Background()
	c, s, _ := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# A\n\nContent A.\n", "")
	require.NoError(t, err)

	_, err = c.SyncNow(ctx, col.ID)
	require.NoError(t, err)

	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# A\n\nChanged.\n", "")
	require.NoError(t, err)

	st, err := c.Status(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, StateOutOfSync, st.State)
}

func TestDeleteVectorsResetsStatus(t *testing.T) {
	ctx := context.Background()
	c, s, vs := newTestCoordinator(t)
	col, err := s.CreateCollection(ctx, "docs", "")
	require.NoError(t, err)
	_, err = c.Enable(ctx, col.ID)
	require.NoError(t, err)
	_, err = s.SaveFile(ctx, col.ID, "", "a.md", "# A\n\nContent A.\n", "")
	require.NoError(t, err)
	_, err = c.SyncNow(ctx, col.ID)
	require.NoError(t, err)

	require.NoError(t, c.DeleteVectors(ctx, col.ID))
	assert.Empty(t, vs.records[col.ID])

	st, err := c.Status(ctx, col.ID)
	require.NoError(t, err)
	assert.Equal(t, StateNeverSynced, st.State)
}
