package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

type fakeFetcher struct {
	pages map[string]*Page
	fail  map[string]bool
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (*Page, error) {
	if f.fail[url] {
		return nil, errors.New("boom")
	}
	if p, ok := f.pages[url]; ok {
		return p, nil
	}
	return nil, errors.New("not found")
}

func (f *fakeFetcher) DeepCrawl(_ context.Context, req DeepCrawlRequest) ([]*Page, error) {
	return []*Page{f.pages[req.URL]}, nil
}

func (f *fakeFetcher) PreviewLinks(_ context.Context, _ string) ([]Link, error) {
	return []Link{{URL: "https://example.com/a", Text: "a"}}, nil
}

func TestBoundedCrawlerFetchOneValidatesURL(t *testing.T) {
	c := NewBoundedCrawler(&fakeFetcher{}, 2)
	_, err := c.FetchOne(context.Background(), "")
	require.Error(t, err)
	assert.True(t, kberrors.Is(err, kberrors.KindValidation))
}

func TestBoundedCrawlerFetchOne(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{"https://x": {URL: "https://x", Title: "X"}}}
	c := NewBoundedCrawler(f, 2)
	page, err := c.FetchOne(context.Background(), "https://x")
	require.NoError(t, err)
	assert.Equal(t, "X", page.Title)
}

func TestBoundedCrawlerDeepCrawlAppliesDefaults(t *testing.T) {
	f := &fakeFetcher{pages: map[string]*Page{"https://x": {URL: "https://x"}}}
	c := NewBoundedCrawler(f, 2)
	pages, err := c.DeepCrawl(context.Background(), DeepCrawlRequest{URL: "https://x"})
	require.NoError(t, err)
	require.Len(t, pages, 1)
}

func TestBoundedCrawlerFetchManyCollectsPerURLErrors(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]*Page{"https://ok": {URL: "https://ok"}},
		fail:  map[string]bool{"https://bad": true},
	}
	c := NewBoundedCrawler(f, 2)
	pages, errs := c.FetchMany(context.Background(), []string{"https://ok", "https://bad"})
	require.Len(t, pages, 2)
	assert.NotNil(t, pages[0])
	assert.Nil(t, pages[1])
	assert.Contains(t, errs, "https://bad")
}
