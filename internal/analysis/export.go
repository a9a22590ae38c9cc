package analysis

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/bakerbass/GuitarChops/internal/audio/ffmpeg"
	"github.com/bakerbass/GuitarChops/internal/audio/file"
	"github.com/bakerbass/GuitarChops/internal/conf"
	"github.com/bakerbass/GuitarChops/internal/segment"
)

// ExportResult describes one produced artifact.
type ExportResult struct {
	SegmentID string `json:"segment_id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	Error     string `json:"error,omitempty"`
}

// Exporter slices selected segments out of a source file and writes one
// tagged artifact per segment. Failures are per-segment: a bad segment id or
// encoder error is reported in its result and does not abort siblings.
type Exporter struct {
	Settings *conf.Settings
	Manager  file.Manager
}

// NewExporter creates an exporter using the configured output format.
func NewExporter(settings *conf.Settings, manager file.Manager) *Exporter {
	return &Exporter{Settings: settings, Manager: manager}
}

// ExportSegments produces one artifact per requested segment id into
// outputDir. The returned slice has one entry per requested id, in request
// order.
func (e *Exporter) ExportSegments(ctx context.Context, sourcePath string, set segment.Set, segmentIDs []string, outputDir string) []ExportResult {
	results := make([]ExportResult, 0, len(segmentIDs))
	for _, id := range segmentIDs {
		result := ExportResult{SegmentID: id}

		seg, ok := set.Find(id)
		if !ok {
			result.Error = fmt.Sprintf("%v: %s", ErrUnknownSegment, id)
			results = append(results, result)
			continue
		}

		path, err := e.exportSegment(ctx, sourcePath, seg, outputDir)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.Path = path
			result.Filename = filepath.Base(path)
		}
		results = append(results, result)
	}
	return results
}

// exportSegment decodes the segment's sample range and encodes it with the
// segment's metadata embedded as tags.
func (e *Exporter) exportSegment(ctx context.Context, sourcePath string, seg segment.Segment, outputDir string) (string, error) {
	info, err := e.Manager.GetFileInfo(sourcePath)
	if err != nil {
		return "", fmt.Errorf("error getting audio info: %w", err)
	}

	startSample := int(math.Round(seg.Start * float64(info.SampleRate)))
	numSamples := int(math.Round((seg.End - seg.Start) * float64(info.SampleRate)))
	if numSamples <= 0 {
		return "", fmt.Errorf("segment %s has no samples", seg.ID)
	}

	samples, err := e.Manager.ReadRange(sourcePath, startSample, numSamples)
	if err != nil {
		return "", fmt.Errorf("failed to read segment audio: %w", err)
	}
	pcm := file.FloatToPCM16(samples)

	exportType := e.Settings.Export.Type
	if exportType == "" {
		exportType = "wav"
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	filename := fmt.Sprintf("%s_%s.%s", base, seg.ID, file.GetFileExtension(exportType))
	outputPath := filepath.Join(outputDir, filename)

	if exportType == "wav" {
		tags := &file.Tags{
			Title:    seg.ID,
			Genre:    string(seg.Type),
			Comment:  segmentComment(seg),
			Software: "GuitarChops",
		}
		if err := file.SavePCMToWAV(outputPath, pcm, info.SampleRate, file.DefaultBitDepth, file.DefaultChannels, tags); err != nil {
			return "", err
		}
		return outputPath, nil
	}

	ffmpegPath, err := ffmpeg.LookPath(e.Settings.Export.FfmpegPath)
	if err != nil {
		return "", err
	}

	err = ffmpeg.Export(ctx, pcm, &ffmpeg.ExportOptions{
		FFmpegPath: ffmpegPath,
		Format: ffmpeg.ExportFormat{
			Type:    exportType,
			Bitrate: e.Settings.Export.Bitrate,
		},
		StreamFormat: ffmpeg.StreamFormat{
			SampleRate: info.SampleRate,
			Channels:   file.DefaultChannels,
			BitDepth:   file.DefaultBitDepth,
		},
		OutputPath: outputPath,
		Metadata: map[string]string{
			"title":   seg.ID,
			"genre":   string(seg.Type),
			"comment": segmentComment(seg),
		},
	})
	if err != nil {
		return "", err
	}
	return outputPath, nil
}

// segmentComment renders the segment's detected attributes for the artifact's
// comment tag.
func segmentComment(seg segment.Segment) string {
	parts := []string{fmt.Sprintf("%.2fs-%.2fs", seg.Start, seg.End)}
	if seg.Key != "" {
		parts = append(parts, "key "+seg.Key)
	}
	if seg.Tempo > 0 {
		parts = append(parts, fmt.Sprintf("%.0f BPM", seg.Tempo))
	}
	parts = append(parts, fmt.Sprintf("confidence %.2f", seg.Confidence))
	return strings.Join(parts, ", ")
}
