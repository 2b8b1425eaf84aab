package httpadapter

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

func (s *Server) handleEnableSync(c echo.Context) error {
	status, err := s.uc.EnableSync(c.Request().Context(), usecase.CollectionIDInput{CollectionID: c.Param("id")})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleDisableSync(c echo.Context) error {
	if err := s.uc.DisableSync(c.Request().Context(), usecase.CollectionIDInput{CollectionID: c.Param("id")}); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleSyncNow(c echo.Context) error {
	status, err := s.uc.SyncNow(c.Request().Context(), usecase.CollectionIDInput{CollectionID: c.Param("id")})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleSyncStatus(c echo.Context) error {
	status, err := s.uc.SyncStatus(c.Request().Context(), usecase.CollectionIDInput{CollectionID: c.Param("id")})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleListSyncStatuses(c echo.Context) error {
	statuses, err := s.uc.ListSyncStatuses(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, statuses)
}

func (s *Server) handleDeleteVectors(c echo.Context) error {
	if err := s.uc.DeleteVectors(c.Request().Context(), usecase.CollectionIDInput{CollectionID: c.Param("id")}); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
