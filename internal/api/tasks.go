package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bakerbass/GuitarChops/internal/analysis"
	"github.com/bakerbass/GuitarChops/internal/datastore"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// analyzeRequest selects the detectors to run.
type analyzeRequest struct {
	Silence bool `json:"silence"`
	Onset   bool `json:"onset"`
	Key     bool `json:"key"`
	Tempo   bool `json:"tempo"`
}

func (r analyzeRequest) detectorTypes() []segment.DetectorType {
	var types []segment.DetectorType
	if r.Silence {
		types = append(types, segment.DetectorSilence)
	}
	if r.Onset {
		types = append(types, segment.DetectorOnset)
	}
	if r.Key {
		types = append(types, segment.DetectorKey)
	}
	if r.Tempo {
		types = append(types, segment.DetectorTempo)
	}
	return types
}

// taskResponse is returned on dispatch and status queries.
type taskResponse struct {
	TaskID   string          `json:"task_id"`
	FileID   string          `json:"file_id"`
	Status   analysis.Status `json:"status"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

// StartAnalysis dispatches an asynchronous analysis task for a file and
// returns its id immediately.
func (c *Controller) StartAnalysis(ctx echo.Context) error {
	record, err := c.lookupFile(ctx.Param("id"))
	if err != nil {
		return notFound(ctx, err.Error())
	}

	var req analyzeRequest
	if err := ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "invalid request body")
	}
	types := req.detectorTypes()
	if len(types) == 0 {
		return jsonError(ctx, http.StatusBadRequest, "no detectors selected")
	}

	task := analysis.NewTask(record.ID, record.Path, segment.Fingerprint(record.Fingerprint), types)
	c.Registry.Add(task)

	go func() {
		if err := c.Analyzer.Run(context.Background(), task); err != nil {
			c.logger.Error("analysis failed", "task_id", task.ID, "file_id", record.ID, "error", err)
		} else {
			c.logger.Info("analysis completed", "task_id", task.ID, "file_id", record.ID)
		}
	}()

	return ctx.JSON(http.StatusAccepted, taskResponse{
		TaskID:   task.ID,
		FileID:   record.ID,
		Status:   task.Status(),
		Progress: task.Progress(),
	})
}

// StreamProgress streams {progress, status} updates for a task as SSE,
// terminated by the terminal state.
func (c *Controller) StreamProgress(ctx echo.Context) error {
	task, err := c.Registry.Get(ctx.Param("id"))
	if err != nil {
		return notFound(ctx, err.Error())
	}

	ctx.Response().Header().Set("Content-Type", "text/event-stream")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	ctx.Response().Header().Set("Connection", "keep-alive")
	ctx.Response().WriteHeader(http.StatusOK)

	updates := task.Observe()
	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Request().Context().Done():
			return nil
		case <-heartbeat.C:
			if _, err := fmt.Fprint(ctx.Response(), ": heartbeat\n\n"); err != nil {
				return nil
			}
			ctx.Response().Flush()
		case update, ok := <-updates:
			if !ok {
				// Terminal transition closed the channel; send the final
				// snapshot so a late subscriber still sees the outcome.
				final := analysis.ProgressUpdate{
					TaskID:   task.ID,
					Progress: task.Progress(),
					Status:   task.Status(),
					Error:    task.Err(),
				}
				_ = writeSSE(ctx, final)
				return nil
			}
			if err := writeSSE(ctx, update); err != nil {
				return nil
			}
			if update.Status == analysis.StatusCompleted || update.Status == analysis.StatusFailed {
				return nil
			}
		}
	}
}

func writeSSE(ctx echo.Context, update analysis.ProgressUpdate) error {
	raw, err := json.Marshal(update)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(ctx.Response(), "data: %s\n\n", raw); err != nil {
		return err
	}
	ctx.Response().Flush()
	return nil
}

// GetSegments returns the aggregated segment set for a file, grouped by
// detector type. Results come from the datastore, so they survive task
// registry expiry and server restarts.
func (c *Controller) GetSegments(ctx echo.Context) error {
	record, err := c.lookupFile(ctx.Param("id"))
	if err != nil {
		return notFound(ctx, err.Error())
	}

	set, err := c.DS.GetResults(record.ID)
	if errors.Is(err, datastore.ErrNoResults) {
		return jsonError(ctx, http.StatusConflict, "analysis not completed for file "+record.ID)
	}
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, err.Error())
	}
	return ctx.JSON(http.StatusOK, set)
}

// exportRequest selects segments to export.
type exportRequest struct {
	SegmentIDs []string `json:"segment_ids"`
}

// exportResponse lists the produced artifacts.
type exportResponse struct {
	Artifacts []exportArtifact `json:"artifacts"`
}

type exportArtifact struct {
	SegmentID string `json:"segment_id"`
	Filename  string `json:"filename,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ExportSegments slices and encodes the requested segments. Per-segment
// failures are reported inline; a sibling failure never aborts the batch.
func (c *Controller) ExportSegments(ctx echo.Context) error {
	record, err := c.lookupFile(ctx.Param("id"))
	if err != nil {
		return notFound(ctx, err.Error())
	}

	var req exportRequest
	if err := ctx.Bind(&req); err != nil {
		return jsonError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if len(req.SegmentIDs) == 0 {
		return jsonError(ctx, http.StatusBadRequest, "no segment ids given")
	}

	set, err := c.DS.GetResults(record.ID)
	if errors.Is(err, datastore.ErrNoResults) {
		return jsonError(ctx, http.StatusConflict, "analysis not completed for file "+record.ID)
	}
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, err.Error())
	}

	results := c.Exporter.ExportSegments(ctx.Request().Context(), record.Path, set, req.SegmentIDs, c.Settings.Output.Path)

	resp := exportResponse{Artifacts: make([]exportArtifact, 0, len(results))}
	for _, r := range results {
		artifact := exportArtifact{SegmentID: r.SegmentID, Error: r.Error}
		if r.Error == "" {
			artifact.Filename = r.Filename
			artifact.URL = "/api/v1/download/" + r.Filename
		}
		resp.Artifacts = append(resp.Artifacts, artifact)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// Download serves a previously exported artifact.
func (c *Controller) Download(ctx echo.Context) error {
	filename := ctx.Param("filename")
	if filename == "" || filename != sanitizeFilename(filename) {
		return jsonError(ctx, http.StatusBadRequest, "invalid filename")
	}
	path := filepath.Join(c.Settings.Output.Path, filename)
	if err := ctx.File(path); err != nil {
		if errors.Is(err, echo.ErrNotFound) {
			return notFound(ctx, "artifact not found: "+filename)
		}
		return err
	}
	return nil
}
