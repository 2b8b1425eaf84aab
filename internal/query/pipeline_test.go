package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

type fakeVectors struct {
	matches map[string][]vectorstore.SearchMatch
	byID    map[string]vectorstore.SearchMatch
	failNF  bool
}

func (f *fakeVectors) CreateCollection(context.Context, string, int) error   { return nil }
func (f *fakeVectors) DeleteCollection(context.Context, string) error       { return nil }
func (f *fakeVectors) CollectionExists(context.Context, string) (bool, error) {
	return true, nil
}
func (f *fakeVectors) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (f *fakeVectors) GetCollectionInfo(context.Context, string) (vectorstore.CollectionInfo, error) {
	return vectorstore.CollectionInfo{}, nil
}
func (f *fakeVectors) UpsertEmbeddings(context.Context, string, []vectorstore.EmbeddingRecord) error {
	return nil
}
func (f *fakeVectors) QueryWithRelationships(_ context.Context, collection string, _ []float32, k int, _ map[string]string) ([]vectorstore.SearchMatch, error) {
	if f.failNF {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "down")
	}
	matches := f.matches[collection]
	if k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}
func (f *fakeVectors) DeleteByChunkIDs(context.Context, string, []string) error { return nil }
func (f *fakeVectors) DeleteByCollection(context.Context, string) error        { return nil }
func (f *fakeVectors) GetByChunkIDs(_ context.Context, _ string, ids []string) ([]vectorstore.SearchMatch, error) {
	out := make([]vectorstore.SearchMatch, 0, len(ids))
	for _, id := range ids {
		if m, ok := f.byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}
func (f *fakeVectors) Fingerprint(context.Context, string) (vectorstore.ModelFingerprint, bool, error) {
	return vectorstore.ModelFingerprint{}, false, nil
}
func (f *fakeVectors) Close() error { return nil }

type fakeCollections struct{ missing bool }

func (f *fakeCollections) CreateCollection(context.Context, string, string) (collections.Collection, error) {
	return collections.Collection{}, nil
}
func (f *fakeCollections) ListCollections(context.Context) ([]collections.Collection, error) {
	return nil, nil
}
func (f *fakeCollections) GetCollection(_ context.Context, id string) (collections.Collection, error) {
	if f.missing {
		return collections.Collection{}, kberrors.NotFound(kberrors.CodeCollectionNotFound, "not found")
	}
	return collections.Collection{ID: id}, nil
}
func (f *fakeCollections) DeleteCollection(context.Context, string) error { return nil }
func (f *fakeCollections) SaveFile(context.Context, string, string, string, string, string) (collections.File, error) {
	return collections.File{}, nil
}
func (f *fakeCollections) ReadFile(context.Context, string, string, string) (collections.File, error) {
	return collections.File{}, nil
}
func (f *fakeCollections) UpdateFile(_ context.Context, _ string, _ string, _ string, _ store.FileUpdate) (collections.File, error) {
	return collections.File{}, nil
}
func (f *fakeCollections) DeleteFile(context.Context, string, string, string) error { return nil }
func (f *fakeCollections) ListFiles(context.Context, string) ([]collections.File, error) {
	return nil, nil
}
func (f *fakeCollections) Close() error { return nil }

func mkMatch(id string, score float32, text string) vectorstore.SearchMatch {
	return vectorstore.SearchMatch{
		ChunkID: id,
		Score:   score,
		Metadata: map[string]string{
			"text":       text,
			"chunk_type": "paragraph",
		},
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	p := NewPipeline(&fakeVectors{}, fakeEmbedder{}, nil, nil, DefaultConfig(), nil)
	_, err := p.Search(context.Background(), SearchRequest{Query: "", Limit: 5})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestSearchRejectsInvalidLimit(t *testing.T) {
	p := NewPipeline(&fakeVectors{}, fakeEmbedder{}, nil, nil, DefaultConfig(), nil)
	_, err := p.Search(context.Background(), SearchRequest{Query: "q", Limit: 0})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestSearchRejectsInvalidThreshold(t *testing.T) {
	bad := 1.5
	p := NewPipeline(&fakeVectors{}, fakeEmbedder{}, nil, nil, DefaultConfig(), nil)
	_, err := p.Search(context.Background(), SearchRequest{Query: "q", Limit: 5, SimilarityThreshold: &bad})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestSearchCollectionNotFound(t *testing.T) {
	p := NewPipeline(&fakeVectors{}, fakeEmbedder{}, nil, &fakeCollections{missing: true}, DefaultConfig(), nil)
	_, err := p.Search(context.Background(), SearchRequest{Query: "q", Limit: 5, Collection: "missing"})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindNotFound))
}

func TestSearchReturnsResultsAboveThreshold(t *testing.T) {
	vec := &fakeVectors{matches: map[string][]vectorstore.SearchMatch{
		"docs": {mkMatch("c1", 0.9, "hello world"), mkMatch("c2", 0.1, "irrelevant")},
	}}
	cfg := DefaultConfig()
	cfg.DefaultSimilarityThresh = 0.5
	p := NewPipeline(vec, fakeEmbedder{}, nil, &fakeCollections{}, cfg, nil)
	res, err := p.Search(context.Background(), SearchRequest{Query: "hello", Limit: 5, Collection: "docs"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "c1", res.Results[0].ChunkID)
	assert.False(t, res.ExpansionUsed)
}

func TestSearchDegradesExpansionWithoutProvider(t *testing.T) {
	vec := &fakeVectors{matches: map[string][]vectorstore.SearchMatch{
		"docs": {mkMatch("c1", 0.9, "hi")},
	}}
	cfg := DefaultConfig()
	cfg.QueryExpansionEnabled = true
	p := NewPipeline(vec, fakeEmbedder{}, nil, &fakeCollections{}, cfg, nil)
	res, err := p.Search(context.Background(), SearchRequest{Query: "hi", Limit: 5, Collection: "docs"})
	require.NoError(t, err)
	assert.False(t, res.ExpansionUsed)
}

func TestSearchVectorStoreUnavailable(t *testing.T) {
	vec := &fakeVectors{failNF: true}
	p := NewPipeline(vec, fakeEmbedder{}, nil, &fakeCollections{}, DefaultConfig(), nil)
	_, err := p.Search(context.Background(), SearchRequest{Query: "q", Limit: 5, Collection: "docs"})
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindDependencyUnavailable))
}

type fakeLLM struct {
	response string
	err      error
}

func (f fakeLLM) Complete(context.Context, string) (string, error) { return f.response, f.err }

func TestRAGDegradesWithoutProvider(t *testing.T) {
	vec := &fakeVectors{matches: map[string][]vectorstore.SearchMatch{
		"docs": {mkMatch("c1", 0.9, "hi")},
	}}
	cfg := DefaultConfig()
	p := NewPipeline(vec, fakeEmbedder{}, nil, &fakeCollections{}, cfg, nil)
	res, err := p.RAG(context.Background(), RAGRequest{Query: "hi?", Limit: 5, Collection: "docs"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.Nil(t, res.Answer)
	assert.Len(t, res.Sources, 1)
}

func TestRAGAnswersWithProvider(t *testing.T) {
	vec := &fakeVectors{matches: map[string][]vectorstore.SearchMatch{
		"docs": {mkMatch("c1", 0.9, "paris is the capital of france")},
	}}
	cfg := DefaultConfig()
	p := NewPipeline(vec, fakeEmbedder{}, fakeLLM{response: "Paris"}, &fakeCollections{}, cfg, nil)
	res, err := p.RAG(context.Background(), RAGRequest{Query: "capital of france?", Limit: 5, Collection: "docs"})
	require.NoError(t, err)
	assert.False(t, res.Degraded)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "Paris", *res.Answer)
}

func TestRAGDegradesOnLLMFailure(t *testing.T) {
	vec := &fakeVectors{matches: map[string][]vectorstore.SearchMatch{
		"docs": {mkMatch("c1", 0.9, "text")},
	}}
	p := NewPipeline(vec, fakeEmbedder{}, fakeLLM{err: errors.New("boom")}, &fakeCollections{}, DefaultConfig(), nil)
	res, err := p.RAG(context.Background(), RAGRequest{Query: "q", Limit: 5, Collection: "docs"})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
}

func TestExpansionCacheExpires(t *testing.T) {
	c := newExpansionCache(time.Millisecond)
	c.put("q", []string{"variant"})
	_, ok := c.get("q")
	require.True(t, ok)
	time.Sleep(5 * time.Millisecond)
	_, ok = c.get("q")
	assert.False(t, ok)
}
