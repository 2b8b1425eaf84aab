package mcpadapter

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

func (s *Server) handleSaveToCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *saveToCollectionParams) (*mcpsdk.CallToolResult, any, error) {
	file, err := s.uc.SaveFile(ctx, usecase.SaveFileInput{
		CollectionID: params.CollectionID,
		Folder:       params.Folder,
		Name:         params.Name,
		Content:      params.Content,
		SourceURL:    params.SourceURL,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(file)
}

func (s *Server) handleReadFromCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *fileKeyParams) (*mcpsdk.CallToolResult, any, error) {
	file, err := s.uc.ReadFile(ctx, usecase.FileKeyInput{
		CollectionID: params.CollectionID,
		Folder:       params.Folder,
		Name:         params.Name,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(file)
}

func (s *Server) handleUpdateFile(ctx context.Context, req *mcpsdk.CallToolRequest, params *updateFileParams) (*mcpsdk.CallToolResult, any, error) {
	file, err := s.uc.UpdateFile(ctx, usecase.UpdateFileInput{
		CollectionID: params.CollectionID,
		Folder:       params.Folder,
		Name:         params.Name,
		Content:      params.Content,
		SourceURL:    params.SourceURL,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(file)
}

func (s *Server) handleDeleteFile(ctx context.Context, req *mcpsdk.CallToolRequest, params *fileKeyParams) (*mcpsdk.CallToolResult, any, error) {
	err := s.uc.DeleteFile(ctx, usecase.FileKeyInput{
		CollectionID: params.CollectionID,
		Folder:       params.Folder,
		Name:         params.Name,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(map[string]bool{"success": true})
}

func (s *Server) handleListFilesInCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *listFilesInCollectionParams) (*mcpsdk.CallToolResult, any, error) {
	files, err := s.uc.ListFiles(ctx, usecase.ListFilesInput{CollectionID: params.CollectionID})
	if err != nil {
		return errorResult(err)
	}
	return textResult(files)
}
