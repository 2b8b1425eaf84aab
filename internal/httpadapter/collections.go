package httpadapter

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

type createCollectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleCreateCollection(c echo.Context) error {
	var req createCollectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	col, err := s.uc.CreateCollection(c.Request().Context(), usecase.CreateCollectionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, col)
}

func (s *Server) handleListCollections(c echo.Context) error {
	cols, err := s.uc.ListCollections(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cols)
}

func (s *Server) handleGetCollection(c echo.Context) error {
	col, err := s.uc.GetCollection(c.Request().Context(), usecase.GetCollectionInput{CollectionID: c.Param("id")})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, col)
}

func (s *Server) handleDeleteCollection(c echo.Context) error {
	if err := s.uc.DeleteCollection(c.Request().Context(), usecase.GetCollectionInput{CollectionID: c.Param("id")}); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReconcileCollection(c echo.Context) error {
	if err := s.uc.ReconcileCollection(c.Request().Context(), usecase.GetCollectionInput{CollectionID: c.Param("id")}); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"reconciled": true})
}
