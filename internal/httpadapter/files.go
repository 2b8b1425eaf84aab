package httpadapter

import (
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

type saveFileRequest struct {
	Folder    string `json:"folder,omitempty"`
	Name      string `json:"name"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url,omitempty"`
}

func (s *Server) handleSaveFile(c echo.Context) error {
	var req saveFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	file, err := s.uc.SaveFile(c.Request().Context(), usecase.SaveFileInput{
		CollectionID: c.Param("id"),
		Folder:       req.Folder,
		Name:         req.Name,
		Content:      req.Content,
		SourceURL:    req.SourceURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, file)
}

func (s *Server) handleListFiles(c echo.Context) error {
	files, err := s.uc.ListFiles(c.Request().Context(), usecase.ListFilesInput{CollectionID: c.Param("id")})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, files)
}

// splitFilePath splits an echo wildcard path segment ("folder/sub/name.md")
// into its folder and filename parts, the inverse of how a file's
// (collection, folder, filename) key is joined into a URL path.
func splitFilePath(wildcard string) (folder, name string) {
	wildcard = strings.TrimPrefix(wildcard, "/")
	folder, name = path.Split(wildcard)
	folder = strings.TrimSuffix(folder, "/")
	return folder, name
}

func (s *Server) handleReadFile(c echo.Context) error {
	folder, name := splitFilePath(c.Param("*"))
	file, err := s.uc.ReadFile(c.Request().Context(), usecase.FileKeyInput{
		CollectionID: c.Param("id"),
		Folder:       folder,
		Name:         name,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, file)
}

type updateFileRequest struct {
	Content   *string `json:"content,omitempty"`
	SourceURL *string `json:"source_url,omitempty"`
}

func (s *Server) handleUpdateFile(c echo.Context) error {
	var req updateFileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	folder, name := splitFilePath(c.Param("*"))
	file, err := s.uc.UpdateFile(c.Request().Context(), usecase.UpdateFileInput{
		CollectionID: c.Param("id"),
		Folder:       folder,
		Name:         name,
		Content:      req.Content,
		SourceURL:    req.SourceURL,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, file)
}

func (s *Server) handleDeleteFile(c echo.Context) error {
	folder, name := splitFilePath(c.Param("*"))
	err := s.uc.DeleteFile(c.Request().Context(), usecase.FileKeyInput{
		CollectionID: c.Param("id"),
		Folder:       folder,
		Name:         name,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
