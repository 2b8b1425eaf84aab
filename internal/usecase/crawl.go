package usecase

import (
	"context"
	"path"
	"strings"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/crawl"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/kberrors"
)

// errNoCrawler is returned by every crawl operation when no Fetcher was
// configured.
var errNoCrawler = kberrors.DependencyUnavailable(kberrors.CodeServiceUnavailable, "no web-crawl fetcher configured")

// ExtractOne fetches a single URL's content.
func (u *UseCases) ExtractOne(ctx context.Context, in ExtractOneInput) (CrawlResult, error) {
	crawler := u.container.Crawler()
	if crawler == nil {
		return CrawlResult{}, errNoCrawler
	}
	page, err := crawler.FetchOne(ctx, in.URL)
	if err != nil {
		return CrawlResult{}, err
	}
	return CrawlResult{URL: page.URL, Title: page.Title, Markdown: page.Markdown, StatusCode: page.StatusCode}, nil
}

// DeepCrawl performs a bounded, multi-page crawl starting at a URL.
func (u *UseCases) DeepCrawl(ctx context.Context, in DeepCrawlInput) (DeepCrawlResult, error) {
	ctx, span := u.tracer.Start(ctx, "usecase.DeepCrawl")
	defer span.End()
	crawler := u.container.Crawler()
	if crawler == nil {
		return DeepCrawlResult{}, errNoCrawler
	}
	pages, err := crawler.DeepCrawl(ctx, toCrawlRequest(in))
	if err != nil {
		return DeepCrawlResult{}, err
	}
	out := make([]CrawlResult, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		out = append(out, CrawlResult{URL: p.URL, Title: p.Title, Markdown: p.Markdown, StatusCode: p.StatusCode})
	}
	return DeepCrawlResult{Pages: out}, nil
}

// PreviewLinks returns the links discovered on a page without fetching
// each of them.
func (u *UseCases) PreviewLinks(ctx context.Context, in PreviewLinksInput) (LinkPreviewResult, error) {
	crawler := u.container.Crawler()
	if crawler == nil {
		return LinkPreviewResult{}, errNoCrawler
	}
	links, err := crawler.PreviewLinks(ctx, in.URL)
	if err != nil {
		return LinkPreviewResult{}, err
	}
	return LinkPreviewResult{Links: links}, nil
}

// CrawlIntoCollection fetches one URL and saves its extracted markdown as
// a file inside an existing collection. When Name is empty, a filename is derived from
// the URL's last path segment.
func (u *UseCases) CrawlIntoCollection(ctx context.Context, in CrawlIntoCollectionInput) (CrawlIntoCollectionResult, error) {
	ctx, span := u.tracer.Start(ctx, "usecase.CrawlIntoCollection")
	defer span.End()
	crawler := u.container.Crawler()
	if crawler == nil {
		return CrawlIntoCollectionResult{}, errNoCrawler
	}
	if _, err := u.container.Collections().GetCollection(ctx, in.CollectionID); err != nil {
		return CrawlIntoCollectionResult{}, err
	}
	page, err := crawler.FetchOne(ctx, in.URL)
	if err != nil {
		return CrawlIntoCollectionResult{}, err
	}

	name := in.Name
	if name == "" {
		name = filenameFromURL(in.URL)
	}
	file, err := u.SaveFile(ctx, SaveFileInput{
		CollectionID: in.CollectionID,
		Folder:       in.Folder,
		Name:         name,
		Content:      page.Markdown,
		SourceURL:    in.URL,
	})
	if err != nil {
		return CrawlIntoCollectionResult{}, err
	}
	return CrawlIntoCollectionResult{File: file}, nil
}

func toCrawlRequest(in DeepCrawlInput) crawl.DeepCrawlRequest {
	return crawl.DeepCrawlRequest{
		URL:      in.URL,
		MaxDepth: in.MaxDepth,
		MaxPages: in.MaxPages,
		SameHost: in.SameHost,
		Exclude:  in.Exclude,
	}
}

// filenameFromURL derives a default .md filename from a URL's last
// non-empty path segment, falling back to "page" for a bare domain.
func filenameFromURL(url string) string {
	trimmed := strings.TrimRight(url, "/")
	base := path.Base(trimmed)
	if base == "." || base == "/" || base == "" {
		base = "page"
	}
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	if !strings.HasSuffix(base, ".md") {
		base += ".md"
	}
	return base
}
