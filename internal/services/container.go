// Package services wires every singleton the use-case layer and both
// protocol adapters depend on behind one accessor interface: one accessor
// method per singleton, built once at startup from an Options struct and
// threaded into everything downstream instead of reached for as a
// package-level global.
package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/crawl"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/llm"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/store"
	syncstate "github.com/fwegener83/crawl4ai-mcp-server/internal/sync"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/vectorstore"
)

// Reconciler is the on-demand reconciliation surface the filesystem
// storage backend provides. The embedded-db backend has no external-edit
// problem to reconcile, so the container's Reconciler is nil there.
type Reconciler interface {
	ReconcileCollection(ctx context.Context, collectionID string) error
}

// Container provides every singleton the use-case layer needs, exclusively
// owned for the process lifetime.
type Container interface {
	Collections() store.CollectionStore
	SyncStatuses() store.SyncStatusStore
	VectorStore() vectorstore.Store
	Embedder() vectorstore.Embedder
	LLM() llm.Provider // nil is a valid, expected configuration
	Crawler() *crawl.BoundedCrawler // nil if no crawler is configured
	Sync() *syncstate.Coordinator
	Query() *query.Pipeline
	// Reconciler returns the filesystem backend's on-demand reconciler,
	// or nil when the embedded-db backend is active.
	Reconciler() Reconciler
	Logger() *zap.Logger

	// Close releases every owned resource (DB handles, vector store
	// connections, lock files) in construction order reversed.
	Close() error
}

// Options configures the container with already-constructed service
// instances; cmd/crawl4ai-core builds these from loaded config before
// calling NewContainer.
type Options struct {
	Collections  store.CollectionStore
	SyncStatuses store.SyncStatusStore
	VectorStore  vectorstore.Store
	Embedder     vectorstore.Embedder
	LLM          llm.Provider
	Crawler      *crawl.BoundedCrawler
	Sync         *syncstate.Coordinator
	Query        *query.Pipeline
	Reconciler   Reconciler
	Logger       *zap.Logger
}

type container struct {
	collections  store.CollectionStore
	syncStatuses store.SyncStatusStore
	vectorStore  vectorstore.Store
	embedder     vectorstore.Embedder
	llmProvider  llm.Provider
	crawler      *crawl.BoundedCrawler
	sync         *syncstate.Coordinator
	query        *query.Pipeline
	reconciler   Reconciler
	logger       *zap.Logger
}

// NewContainer builds the process-wide Container from already-constructed
// singletons. Collections, SyncStatuses, VectorStore, Embedder, Sync, and
// Query are required; LLM, Crawler, and Reconciler may be nil.
func NewContainer(opts Options) Container {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &container{
		collections:  opts.Collections,
		syncStatuses: opts.SyncStatuses,
		vectorStore:  opts.VectorStore,
		embedder:     opts.Embedder,
		llmProvider:  opts.LLM,
		crawler:      opts.Crawler,
		sync:         opts.Sync,
		query:        opts.Query,
		reconciler:   opts.Reconciler,
		logger:       logger,
	}
}

func (c *container) Collections() store.CollectionStore { return c.collections }
func (c *container) SyncStatuses() store.SyncStatusStore { return c.syncStatuses }
func (c *container) VectorStore() vectorstore.Store { return c.vectorStore }
func (c *container) Embedder() vectorstore.Embedder { return c.embedder }
func (c *container) LLM() llm.Provider { return c.llmProvider }
func (c *container) Crawler() *crawl.BoundedCrawler { return c.crawler }
func (c *container) Sync() *syncstate.Coordinator { return c.sync }
func (c *container) Query() *query.Pipeline { return c.query }
func (c *container) Reconciler() Reconciler { return c.reconciler }
func (c *container) Logger() *zap.Logger { return c.logger }

func (c *container) Close() error {
	var firstErr error
	if err := c.vectorStore.Close(); err != nil {
		firstErr = err
	}
	if err := c.collections.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
