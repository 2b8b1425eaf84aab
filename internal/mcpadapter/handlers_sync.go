package mcpadapter

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

func (s *Server) handleEnableCollectionSync(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	status, err := s.uc.EnableSync(ctx, usecase.CollectionIDInput{CollectionID: params.CollectionID})
	if err != nil {
		return errorResult(err)
	}
	return textResult(status)
}

func (s *Server) handleDisableCollectionSync(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.uc.DisableSync(ctx, usecase.CollectionIDInput{CollectionID: params.CollectionID}); err != nil {
		return errorResult(err)
	}
	return textResult(map[string]bool{"success": true})
}

func (s *Server) handleSyncCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	status, err := s.uc.SyncNow(ctx, usecase.CollectionIDInput{CollectionID: params.CollectionID})
	if err != nil {
		return errorResult(err)
	}
	return textResult(status)
}

func (s *Server) handleGetCollectionSyncStatus(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	status, err := s.uc.SyncStatus(ctx, usecase.CollectionIDInput{CollectionID: params.CollectionID})
	if err != nil {
		return errorResult(err)
	}
	return textResult(status)
}

func (s *Server) handleListCollectionSyncStatuses(ctx context.Context, req *mcpsdk.CallToolRequest, params *listFileCollectionsParams) (*mcpsdk.CallToolResult, any, error) {
	statuses, err := s.uc.ListSyncStatuses(ctx)
	if err != nil {
		return errorResult(err)
	}
	return textResult(statuses)
}

func (s *Server) handleDeleteCollectionVectors(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.uc.DeleteVectors(ctx, usecase.CollectionIDInput{CollectionID: params.CollectionID}); err != nil {
		return errorResult(err)
	}
	return textResult(map[string]bool{"success": true})
}
