// Package usecase is the single, protocol-agnostic home for every
// exposed operation: both the RPC adapter and the HTTP adapter
// translate their own wire shapes into one call here and serialize
// whatever comes back into their own envelope. Every exported method
// takes a context.Context first, a plain-value input struct second, and
// returns a plain-value result plus a *kberrors.Error — never a
// backend-specific error type.
package usecase

import (
	"github.com/fwegener83/crawl4ai-mcp-server/internal/collections"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/crawl"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
)

// CreateCollectionInput is the input to CreateCollection.
type CreateCollectionInput struct {
	Name        string
	Description string
}

// GetCollectionInput is the input to GetCollection and DeleteCollection.
type GetCollectionInput struct {
	CollectionID string
}

// SaveFileInput is the input to SaveFile.
type SaveFileInput struct {
	CollectionID string
	Folder       string
	Name         string
	Content      string
	SourceURL    string
}

// FileKeyInput addresses one file by its (collection, folder, name) key,
// the input to ReadFile, DeleteFile.
type FileKeyInput struct {
	CollectionID string
	Folder       string
	Name         string
}

// UpdateFileInput is the input to UpdateFile; nil fields leave the
// corresponding value unchanged.
type UpdateFileInput struct {
	CollectionID string
	Folder       string
	Name         string
	Content      *string
	SourceURL    *string
}

// ListFilesInput is the input to ListFiles.
type ListFilesInput struct {
	CollectionID string
}

// ExtractOneInput is the input to ExtractOne.
type ExtractOneInput struct {
	URL string
}

// DeepCrawlInput is the input to DeepCrawl.
type DeepCrawlInput struct {
	URL      string
	MaxDepth int
	MaxPages int
	SameHost bool
	Exclude  []string
}

// PreviewLinksInput is the input to PreviewLinks.
type PreviewLinksInput struct {
	URL string
}

// CrawlIntoCollectionInput is the input to CrawlIntoCollection: fetch one
// URL and save its extracted markdown as a file in an existing collection.
type CrawlIntoCollectionInput struct {
	CollectionID string
	URL          string
	Folder       string
	Name         string
}

// CollectionIDInput addresses one collection's sync state, the input to
// EnableSync, DisableSync, SyncNow, SyncStatus, DeleteVectors.
type CollectionIDInput struct {
	CollectionID string
}

// CrawlResult is the use-case-layer view of one fetched page.
type CrawlResult struct {
	URL        string
	Title      string
	Markdown   string
	StatusCode int
}

// DeepCrawlResult is DeepCrawl's return value.
type DeepCrawlResult struct {
	Pages []CrawlResult
}

// LinkPreviewResult is PreviewLinks's return value.
type LinkPreviewResult struct {
	Links []crawl.Link
}

// CrawlIntoCollectionResult is CrawlIntoCollection's return value.
type CrawlIntoCollectionResult struct {
	File collections.File
}

// SyncStatusResult mirrors syncstate.Status for the use-case boundary.
type SyncStatusResult = syncstate.Status

// SearchInput is the input to VectorSearch, mirroring query.SearchRequest
// at the use-case boundary.
type SearchInput = query.SearchRequest

// SearchResult mirrors query.SearchResult.
type SearchResult = query.SearchResult

// RAGInput is the input to RAGQuery, mirroring query.RAGRequest.
type RAGInput = query.RAGRequest

// RAGResult mirrors query.RAGResult.
type RAGResult = query.RAGResult
