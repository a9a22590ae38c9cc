// Package api exposes the segmentation pipeline over HTTP: upload, analysis
// dispatch, SSE progress, segment retrieval and tagged export.
package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/bakerbass/GuitarChops/internal/analysis"
	"github.com/bakerbass/GuitarChops/internal/analysis/cache"
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/datastore"
)

// taskRetention is how long terminal tasks stay queryable after creation.
const taskRetention = time.Hour

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	DS       datastore.Interface
	Manager  file.Manager
	Analyzer *analysis.Analyzer
	Exporter *analysis.Exporter
	Registry *analysis.Registry

	logger *slog.Logger
}

// New creates the controller, wires its collaborators and registers routes.
func New(settings *conf.Settings, ds datastore.Interface, featureCache *cache.FeatureCache) (*Controller, error) {
	if err := os.MkdirAll(settings.WebServer.Uploads, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(settings.Output.Path, 0o755); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	manager := file.NewManager(settings.Export.FfmpegPath, settings.Debug)

	c := &Controller{
		Echo:     e,
		Settings: settings,
		DS:       ds,
		Manager:  manager,
		Analyzer: analysis.NewAnalyzer(settings, manager, featureCache, ds),
		Exporter: analysis.NewExporter(settings, manager),
		Registry: analysis.NewRegistry(taskRetention),
		logger:   slog.Default().With("component", "api"),
	}

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c, nil
}

func (c *Controller) initRoutes() {
	c.Group.POST("/upload", c.UploadFile)
	c.Group.GET("/files", c.ListFiles)
	c.Group.GET("/files/:id/info", c.GetFileInfo)
	c.Group.POST("/files/:id/analyze", c.StartAnalysis)
	c.Group.GET("/tasks/:id/progress", c.StreamProgress)
	c.Group.GET("/files/:id/segments", c.GetSegments)
	c.Group.POST("/files/:id/export", c.ExportSegments)
	c.Group.GET("/download/:filename", c.Download)
}

// Start runs the HTTP server until it fails or is shut down.
func (c *Controller) Start() error {
	c.logger.Info("starting web server", "port", c.Settings.WebServer.Port)
	return c.Echo.Start(":" + c.Settings.WebServer.Port)
}

// errorResponse is the uniform error body.
type errorResponse struct {
	Error string `json:"error"`
}

func jsonError(ctx echo.Context, code int, msg string) error {
	return ctx.JSON(code, errorResponse{Error: msg})
}

func notFound(ctx echo.Context, msg string) error {
	return jsonError(ctx, http.StatusNotFound, msg)
}

// sanitizeFilename rejects path traversal in download names.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	if base == "." || base == ".." || strings.ContainsAny(name, `/\`) {
		return ""
	}
	return base
}
