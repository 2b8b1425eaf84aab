package httpadapter

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

type extractRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleExtract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.ExtractOne(c.Request().Context(), usecase.ExtractOneInput{URL: req.URL})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type deepCrawlRequest struct {
	URL      string   `json:"url"`
	MaxDepth int      `json:"max_depth,omitempty"`
	MaxPages int      `json:"max_pages,omitempty"`
	SameHost bool     `json:"same_host,omitempty"`
	Exclude  []string `json:"exclude,omitempty"`
}

func (s *Server) handleDeepCrawl(c echo.Context) error {
	var req deepCrawlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.DeepCrawl(c.Request().Context(), usecase.DeepCrawlInput{
		URL:      req.URL,
		MaxDepth: req.MaxDepth,
		MaxPages: req.MaxPages,
		SameHost: req.SameHost,
		Exclude:  req.Exclude,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type linkPreviewRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleLinkPreview(c echo.Context) error {
	var req linkPreviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.PreviewLinks(c.Request().Context(), usecase.PreviewLinksInput{URL: req.URL})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type crawlSingleRequest struct {
	URL    string `json:"url"`
	Folder string `json:"folder,omitempty"`
	Name   string `json:"name,omitempty"`
}

func (s *Server) handleCrawlSingle(c echo.Context) error {
	var req crawlSingleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	res, err := s.uc.CrawlIntoCollection(c.Request().Context(), usecase.CrawlIntoCollectionInput{
		CollectionID: c.Param("id"),
		URL:          req.URL,
		Folder:       req.Folder,
		Name:         req.Name,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
