// Package mcpadapter implements the RPC tool surface over MCP stdio
// transport. Each handler calls straight into internal/usecase: this
// project is single-process, so RPC and HTTP are two front doors onto the
// same in-memory use-case layer rather than client and server of each
// other.
package mcpadapter

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

// Server is the RPC adapter: one MCP tool per use-case operation.
type Server struct {
	mcpServer *mcpsdk.Server
	uc        *usecase.UseCases
}

// NewServer builds the RPC adapter against an already-wired use-case layer.
func NewServer(uc *usecase.UseCases) *Server {
	mcpServer := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "crawl4ai-core",
		Version: "1.0.0",
	}, nil)

	s := &Server{mcpServer: mcpServer, uc: uc}
	s.registerTools()
	return s
}

// Run serves the RPC adapter over stdin/stdout until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "web_content_extract",
		Description: "Fetch a single URL and return its content converted to markdown.",
	}, s.handleWebContentExtract)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "domain_deep_crawl",
		Description: "Crawl outward from a starting URL up to a bounded depth and page count.",
	}, s.handleDomainDeepCrawl)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "domain_link_preview",
		Description: "List the links discoverable on a page without fetching each of them.",
	}, s.handleDomainLinkPreview)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "crawl_single_page_to_collection",
		Description: "Fetch one URL and save its markdown as a file inside a collection.",
	}, s.handleCrawlSinglePageToCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_collection",
		Description: "Create a new file collection.",
	}, s.handleCreateCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_file_collections",
		Description: "List every file collection.",
	}, s.handleListFileCollections)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_collection_info",
		Description: "Get a single collection's metadata.",
	}, s.handleGetCollectionInfo)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_file_collection",
		Description: "Delete a collection and every file it contains.",
	}, s.handleDeleteFileCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "save_to_collection",
		Description: "Create or overwrite a file inside a collection.",
	}, s.handleSaveToCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "read_from_collection",
		Description: "Read a file's full content from a collection.",
	}, s.handleReadFromCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "update_file",
		Description: "Apply a partial update (content and/or source URL) to an existing file.",
	}, s.handleUpdateFile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_file_from_collection",
		Description: "Delete a single file from a collection.",
	}, s.handleDeleteFile)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_files_in_collection",
		Description: "List every file in a collection.",
	}, s.handleListFilesInCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "reconcile_collection",
		Description: "Reconcile a collection's directory against the metadata index (filesystem backend only).",
	}, s.handleReconcileCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "enable_collection_sync",
		Description: "Enable vector sync for a collection.",
	}, s.handleEnableCollectionSync)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "disable_collection_sync",
		Description: "Disable vector sync for a collection and drop its persisted sync state.",
	}, s.handleDisableCollectionSync)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "sync_collection",
		Description: "Run an incremental sync of a collection's files into the vector store.",
	}, s.handleSyncCollection)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_collection_sync_status",
		Description: "Get a collection's current sync status.",
	}, s.handleGetCollectionSyncStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_collection_sync_statuses",
		Description: "List the sync status of every collection that has sync enabled.",
	}, s.handleListCollectionSyncStatuses)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_collection_vectors",
		Description: "Delete every embedding for a collection and reset its sync status.",
	}, s.handleDeleteCollectionVectors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "search_collection_vectors",
		Description: "Run a semantic vector search against a collection.",
	}, s.handleSearchCollectionVectors)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "rag_query",
		Description: "Answer a question using retrieval-augmented generation over a collection.",
	}, s.handleRAGQuery)
}
