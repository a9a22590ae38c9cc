package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bakerbass/GuitarChops/internal/analysis"
	"github.com/bakerbass/GuitarChops/internal/datastore"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// fileResponse describes an ingested file.
type fileResponse struct {
	ID          string  `json:"id"`
	Filename    string  `json:"filename"`
	Fingerprint string  `json:"fingerprint"`
	Duration    float64 `json:"duration"`
	SampleRate  int     `json:"sample_rate"`
	Channels    int     `json:"channels"`
}

// UploadFile accepts a multipart audio upload, stores it in the uploads
// directory and registers it under a fresh file id. Re-uploading identical
// content yields the existing record.
func (c *Controller) UploadFile(ctx echo.Context) error {
	header, err := ctx.FormFile("file")
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "missing file field")
	}

	src, err := header.Open()
	if err != nil {
		return jsonError(ctx, http.StatusBadRequest, "failed to open upload")
	}
	defer src.Close()

	id := uuid.New().String()
	destPath := filepath.Join(c.Settings.WebServer.Uploads, id+filepath.Ext(header.Filename))
	dest, err := os.Create(destPath)
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, "failed to store upload")
	}
	if _, err := io.Copy(dest, src); err != nil {
		dest.Close()
		_ = os.Remove(destPath)
		return jsonError(ctx, http.StatusInternalServerError, "failed to store upload")
	}
	dest.Close()

	if err := c.Manager.ValidateFile(destPath); err != nil {
		_ = os.Remove(destPath)
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	info, err := c.Manager.GetFileInfo(destPath)
	if err != nil {
		_ = os.Remove(destPath)
		return jsonError(ctx, http.StatusBadRequest, err.Error())
	}

	fingerprint, err := segment.ComputeFingerprint(destPath, info.SampleRate, info.NumChannels)
	if err != nil {
		_ = os.Remove(destPath)
		return jsonError(ctx, http.StatusInternalServerError, err.Error())
	}

	// Identical content under identical decode parameters is the same file.
	if existing, err := c.DS.GetFileByFingerprint(fingerprint); err == nil {
		_ = os.Remove(destPath)
		return ctx.JSON(http.StatusOK, toFileResponse(existing))
	}

	record := &datastore.AudioFile{
		ID:          id,
		Path:        destPath,
		Fingerprint: string(fingerprint),
		SampleRate:  info.SampleRate,
		Channels:    info.NumChannels,
		Duration:    info.Duration.Seconds(),
	}
	if err := c.DS.SaveFile(record); err != nil {
		_ = os.Remove(destPath)
		return jsonError(ctx, http.StatusInternalServerError, "failed to register file")
	}

	c.logger.Info("file uploaded", "id", id, "filename", header.Filename, "duration", record.Duration)
	return ctx.JSON(http.StatusCreated, toFileResponse(record))
}

// ListFiles returns every registered file, newest first.
func (c *Controller) ListFiles(ctx echo.Context) error {
	files, err := c.DS.ListFiles()
	if err != nil {
		return jsonError(ctx, http.StatusInternalServerError, err.Error())
	}
	out := make([]fileResponse, 0, len(files))
	for i := range files {
		out = append(out, toFileResponse(&files[i]))
	}
	return ctx.JSON(http.StatusOK, out)
}

// GetFileInfo returns stream parameters for one file.
func (c *Controller) GetFileInfo(ctx echo.Context) error {
	record, err := c.lookupFile(ctx.Param("id"))
	if err != nil {
		return notFound(ctx, err.Error())
	}
	return ctx.JSON(http.StatusOK, toFileResponse(record))
}

// lookupFile resolves a file id, mapping a missing record to ErrUnknownFile.
func (c *Controller) lookupFile(id string) (*datastore.AudioFile, error) {
	record, err := c.DS.GetFile(id)
	if errors.Is(err, datastore.ErrFileNotFound) {
		return nil, analysisUnknownFile(id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// analysisUnknownFile wraps ErrUnknownFile with the offending id.
func analysisUnknownFile(id string) error {
	return fmt.Errorf("%w: %s", analysis.ErrUnknownFile, id)
}

func toFileResponse(f *datastore.AudioFile) fileResponse {
	return fileResponse{
		ID:          f.ID,
		Filename:    filepath.Base(f.Path),
		Fingerprint: f.Fingerprint,
		Duration:    f.Duration,
		SampleRate:  f.SampleRate,
		Channels:    f.Channels,
	}
}
