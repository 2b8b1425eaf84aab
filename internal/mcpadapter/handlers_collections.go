package mcpadapter

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

func (s *Server) handleCreateCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *createCollectionParams) (*mcpsdk.CallToolResult, any, error) {
	col, err := s.uc.CreateCollection(ctx, usecase.CreateCollectionInput{Name: params.Name, Description: params.Description})
	if err != nil {
		return errorResult(err)
	}
	return textResult(col)
}

func (s *Server) handleListFileCollections(ctx context.Context, req *mcpsdk.CallToolRequest, params *listFileCollectionsParams) (*mcpsdk.CallToolResult, any, error) {
	cols, err := s.uc.ListCollections(ctx)
	if err != nil {
		return errorResult(err)
	}
	return textResult(cols)
}

func (s *Server) handleGetCollectionInfo(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	col, err := s.uc.GetCollection(ctx, usecase.GetCollectionInput{CollectionID: params.CollectionID})
	if err != nil {
		return errorResult(err)
	}
	return textResult(col)
}

func (s *Server) handleDeleteFileCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.uc.DeleteCollection(ctx, usecase.GetCollectionInput{CollectionID: params.CollectionID}); err != nil {
		return errorResult(err)
	}
	return textResult(map[string]bool{"success": true})
}

func (s *Server) handleReconcileCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *collectionIDParams) (*mcpsdk.CallToolResult, any, error) {
	if err := s.uc.ReconcileCollection(ctx, usecase.GetCollectionInput{CollectionID: params.CollectionID}); err != nil {
		return errorResult(err)
	}
	return textResult(map[string]bool{"reconciled": true})
}
