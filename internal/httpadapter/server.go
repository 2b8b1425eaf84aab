package httpadapter

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fwegener83/crawl4ai-mcp-server/internal/telemetry"
	"github.com/fwegener83/crawl4ai-mcp-server/internal/usecase"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server is the HTTP adapter: one echo route per use-case operation,
// mirroring the RPC adapter's tool list.
type Server struct {
	echo   *echo.Echo
	uc     *usecase.UseCases
	logger *zap.Logger
	config Config
}

// NewServer builds the HTTP adapter against an already-wired use-case
// layer, grounded on internal/http/server.go's NewServer (Recover +
// RequestID + structured-logging middleware, Prometheus /metrics route).
func NewServer(uc *usecase.UseCases, logger *zap.Logger, cfg Config) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8088
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			elapsed := time.Since(start)
			telemetry.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method, c.Path(), strconv.Itoa(c.Response().Status)).Inc()
			telemetry.HTTPRequestDuration.WithLabelValues(
				c.Request().Method, c.Path()).Observe(elapsed.Seconds())
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{echo: e, uc: uc, logger: logger, config: cfg}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := s.echo.Group("/api")

	api.POST("/file-collections", s.handleCreateCollection)
	api.GET("/file-collections", s.handleListCollections)
	api.GET("/file-collections/:id", s.handleGetCollection)
	api.DELETE("/file-collections/:id", s.handleDeleteCollection)
	api.POST("/file-collections/:id/reconcile", s.handleReconcileCollection)

	api.POST("/file-collections/:id/files", s.handleSaveFile)
	api.GET("/file-collections/:id/files", s.handleListFiles)
	api.GET("/file-collections/:id/files/*", s.handleReadFile)
	api.PUT("/file-collections/:id/files/*", s.handleUpdateFile)
	api.DELETE("/file-collections/:id/files/*", s.handleDeleteFile)

	api.POST("/crawl/single/:id", s.handleCrawlSingle)
	api.POST("/extract", s.handleExtract)
	api.POST("/deep-crawl", s.handleDeepCrawl)
	api.POST("/link-preview", s.handleLinkPreview)

	api.POST("/vector-sync/collections/:id/sync", s.handleSyncNow)
	api.POST("/vector-sync/collections/:id/enable", s.handleEnableSync)
	api.POST("/vector-sync/collections/:id/disable", s.handleDisableSync)
	api.GET("/vector-sync/collections/:id/status", s.handleSyncStatus)
	api.GET("/vector-sync/statuses", s.handleListSyncStatuses)
	api.DELETE("/vector-sync/collections/:id/vectors", s.handleDeleteVectors)

	api.POST("/vector-sync/search", s.handleVectorSearch)
	api.POST("/query", s.handleRAGQuery)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}

// Start listens and serves until the process is terminated or Shutdown is
// called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully drains in-flight requests before returning.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// ServeHTTP lets the adapter be driven as a plain http.Handler, which the
// protocol-parity tests use to issue requests without a listening socket.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}
