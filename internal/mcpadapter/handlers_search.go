package mcpadapter

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
)

func (s *Server) handleSearchCollectionVectors(ctx context.Context, req *mcpsdk.CallToolRequest, params *searchCollectionVectorsParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.VectorSearch(ctx, query.SearchRequest{
		Query:               params.Query,
		Collection:          params.Collection,
		Limit:               params.Limit,
		SimilarityThreshold: params.SimilarityThreshold,
		Filter:              params.Filter,
		ExpandContext:       params.ExpandContext,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}

func (s *Server) handleRAGQuery(ctx context.Context, req *mcpsdk.CallToolRequest, params *ragQueryParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.RAGQuery(ctx, query.RAGRequest{
		Query:               params.Query,
		Collection:          params.Collection,
		Limit:               params.Limit,
		SimilarityThreshold: params.SimilarityThreshold,
		Filter:              params.Filter,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}
