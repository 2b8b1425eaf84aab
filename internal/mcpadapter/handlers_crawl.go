package mcpadapter

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

func (s *Server) handleWebContentExtract(ctx context.Context, req *mcpsdk.CallToolRequest, params *webContentExtractParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.ExtractOne(ctx, usecase.ExtractOneInput{URL: params.URL})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}

func (s *Server) handleDomainDeepCrawl(ctx context.Context, req *mcpsdk.CallToolRequest, params *domainDeepCrawlParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.DeepCrawl(ctx, usecase.DeepCrawlInput{
		URL:      params.URL,
		MaxDepth: params.MaxDepth,
		MaxPages: params.MaxPages,
		SameHost: params.SameHost,
		Exclude:  params.Exclude,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}

func (s *Server) handleDomainLinkPreview(ctx context.Context, req *mcpsdk.CallToolRequest, params *domainLinkPreviewParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.PreviewLinks(ctx, usecase.PreviewLinksInput{URL: params.URL})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}

func (s *Server) handleCrawlSinglePageToCollection(ctx context.Context, req *mcpsdk.CallToolRequest, params *crawlSinglePageToCollectionParams) (*mcpsdk.CallToolResult, any, error) {
	res, err := s.uc.CrawlIntoCollection(ctx, usecase.CrawlIntoCollectionInput{
		CollectionID: params.CollectionID,
		URL:          params.URL,
		Folder:       params.Folder,
		Name:         params.Name,
	})
	if err != nil {
		return errorResult(err)
	}
	return textResult(res)
}
