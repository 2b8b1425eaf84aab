// Package crawl owns the narrow boundary between this core and the
// external web-crawling library: the core only consumes page results.
// No concrete crawler is vendored here; Fetcher is the contract any
// crawler adapter must satisfy, and BoundedCrawler adds the
// bounded-concurrency fan-out deep_crawl needs on top of it.
package crawl

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// Page is one fetched page's result, the shape the use-case layer and
// collection store need from any crawler.
type Page struct {
	URL         string
	Title       string
	Markdown    string
	StatusCode  int
	FetchedLink []Link
}

// Link is one link discovered on a page, returned by PreviewLinks.
type Link struct {
	URL  string
	Text string
}

// DeepCrawlRequest bounds a multi-page crawl starting at URL.
type DeepCrawlRequest struct {
	URL      string
	MaxDepth int
	MaxPages int
	SameHost bool
	Exclude  []string
}

// Fetcher is the external crawler's contract. Concrete implementations
// live outside this module; this package only depends on the
// interface, never an import of a specific crawler library.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) (*Page, error)
	DeepCrawl(ctx context.Context, req DeepCrawlRequest) ([]*Page, error)
	PreviewLinks(ctx context.Context, url string) ([]Link, error)
}

// BoundedCrawler wraps a Fetcher with a context-aware concurrency bound
// for fan-out callers, grounded on internal/sync's errgroup.SetLimit usage
// for the same "named parallel fan-out" concern this calls for.
type BoundedCrawler struct {
	fetcher     Fetcher
	concurrency int
}

// NewBoundedCrawler wraps fetcher; concurrency <= 0 defaults to 4.
func NewBoundedCrawler(fetcher Fetcher, concurrency int) *BoundedCrawler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &BoundedCrawler{fetcher: fetcher, concurrency: concurrency}
}

// FetchOne fetches a single page.
func (b *BoundedCrawler) FetchOne(ctx context.Context, url string) (*Page, error) {
	if url == "" {
		return nil, kberrors.Validation("", "url must not be empty")
	}
	page, err := b.fetcher.FetchPage(ctx, url)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "crawl fetcher failed")
	}
	return page, nil
}

// PreviewLinks returns the links discovered on url without fetching each
// of them.
func (b *BoundedCrawler) PreviewLinks(ctx context.Context, url string) ([]Link, error) {
	if url == "" {
		return nil, kberrors.Validation("", "url must not be empty")
	}
	links, err := b.fetcher.PreviewLinks(ctx, url)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "crawl fetcher failed")
	}
	return links, nil
}

// DeepCrawl bounds the request to the crawler's own depth/count limits
// and
// observes ctx cancellation at the fetcher boundary; the fan-out itself
// is the crawler library's job, this method only applies defaults and
// translates errors.
func (b *BoundedCrawler) DeepCrawl(ctx context.Context, req DeepCrawlRequest) ([]*Page, error) {
	if req.URL == "" {
		return nil, kberrors.Validation("", "url must not be empty")
	}
	if req.MaxDepth <= 0 {
		req.MaxDepth = 2
	}
	if req.MaxPages <= 0 {
		req.MaxPages = 20
	}
	pages, err := b.fetcher.DeepCrawl(ctx, req)
	if err != nil {
		return nil, kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "crawl fetcher failed")
	}
	return pages, nil
}

// FetchMany fetches urls concurrently, bounded by b.concurrency, for
// callers holding an explicit link list rather than a single deep-crawl
// request. Per-URL failures are collected rather than
// aborting the whole fan-out, mirroring internal/sync's "one file's
// failure must not abort the whole sync" rule applied to crawling.
func (b *BoundedCrawler) FetchMany(ctx context.Context, urls []string) ([]*Page, map[string]error) {
	pages := make([]*Page, len(urls))
	errs := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			page, err := b.fetcher.FetchPage(gctx, url)
			if err != nil {
				mu.Lock()
				errs[url] = err
				mu.Unlock()
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()
	return pages, errs
}
