package httpadapter

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/query"
)

type vectorSearchRequest struct {
	Query               string            `json:"query"`
	Collection          string            `json:"collection"`
	Limit               int               `json:"limit,omitempty"`
	SimilarityThreshold *float64          `json:"similarity_threshold,omitempty"`
	Filter              map[string]string `json:"filter,omitempty"`
	ExpandContext       bool              `json:"expand_context,omitempty"`
}

func (s *Server) handleVectorSearch(c echo.Context) error {
	var req vectorSearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.VectorSearch(c.Request().Context(), query.SearchRequest{
		Query:               req.Query,
		Collection:          req.Collection,
		Limit:               req.Limit,
		SimilarityThreshold: req.SimilarityThreshold,
		Filter:              req.Filter,
		ExpandContext:       req.ExpandContext,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type ragQueryRequest struct {
	Query               string            `json:"query"`
	Collection          string            `json:"collection"`
	Limit               int               `json:"limit,omitempty"`
	SimilarityThreshold *float64          `json:"similarity_threshold,omitempty"`
	Filter              map[string]string `json:"filter,omitempty"`
}

func (s *Server) handleRAGQuery(c echo.Context) error {
	var req ragQueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.RAGQuery(c.Request().Context(), query.RAGRequest{
		Query:               req.Query,
		Collection:          req.Collection,
		Limit:               req.Limit,
		SimilarityThreshold: req.SimilarityThreshold,
		Filter:              req.Filter,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
