// Package file provides chunked streaming access to audio files for the
// segmentation pipeline: format-specific readers decode to normalized mono
// float32 and hand out fixed-duration windows with trailing overlap context.
package file

import (
	"context"
	"errors"
	"time"
)

// ErrDecode marks source audio that cannot be decoded. A reader that returns
// a decode failure is unusable and must be reopened.
var ErrDecode = errors.New("audio decode failure")

// ErrNotOpen is returned by operations on a closed reader.
var ErrNotOpen = errors.New("file not open")

// Format represents the supported audio file formats.
type Format string

const (
	// FormatWAV represents the WAV audio format.
	FormatWAV Format = "wav"

	// FormatFLAC represents the FLAC audio format.
	FormatFLAC Format = "flac"

	// FormatFFmpeg represents any other format decoded through FFmpeg.
	FormatFFmpeg Format = "ffmpeg"
)

// Info contains metadata about an audio file.
type Info struct {
	SampleRate   int           // Sample rate in Hz
	TotalSamples int           // Total number of sample frames
	NumChannels  int           // Number of audio channels in the source
	BitDepth     int           // Bit depth (e.g., 16, 24, 32)
	Duration     time.Duration // Duration of the audio file
	Format       Format        // Audio format
	Path         string        // File path
}

// Chunk is one analysis window of mono audio. Each chunk after the first
// starts OverlapSamples before the previous chunk's end of step, so detectors
// see trailing context across window boundaries. The final chunk may be
// shorter than the nominal window.
type Chunk struct {
	Index          int       // 0-based chunk ordinal
	Data           []float32 // mono samples normalized to [-1, 1]
	StartSample    int       // absolute frame offset of Data[0]
	EndSample      int       // absolute frame offset one past the last sample
	OverlapSamples int       // leading samples shared with the previous chunk
	SampleRate     int       // sample rate in Hz
}

// StartSeconds returns the chunk's absolute start time in seconds.
func (c Chunk) StartSeconds() float64 {
	return float64(c.StartSample) / float64(c.SampleRate)
}

// ChunkProcessor is a function that processes audio chunks.
type ChunkProcessor func(chunk Chunk) error

// Reader defines the interface for reading audio files.
type Reader interface {
	// Open opens the audio file and prepares it for reading.
	Open(filePath string) error

	// Close closes the audio file and releases any resources.
	Close() error

	// GetInfo returns metadata about the audio file.
	GetInfo() (Info, error)

	// ReadChunk reads the next chunk of audio data.
	// Returns io.EOF when the end of the file is reached.
	ReadChunk(chunkDuration, overlap float64) (Chunk, error)

	// ProcessFile processes the entire file in chunks using the provided
	// processor function.
	ProcessFile(ctx context.Context, chunkDuration, overlap float64, processor ChunkProcessor) error

	// ReadRange decodes exactly numSamples mono samples starting at the given
	// absolute frame offset, independent of any chunk state. A range that
	// extends past the end of the file is truncated.
	ReadRange(startSample, numSamples int) ([]float32, error)

	// IsValid validates if the file format is supported and readable.
	IsValid() (bool, error)
}

// ReaderFactory creates appropriate readers for different audio formats.
type ReaderFactory interface {
	// CreateReader creates a reader for the specified file.
	CreateReader(filePath string) (Reader, error)
}

// Manager coordinates file operations and provides a simplified API.
type Manager interface {
	// GetFileInfo returns metadata about the specified audio file.
	GetFileInfo(filePath string) (Info, error)

	// ValidateFile checks if the file is a valid, supported audio file.
	ValidateFile(filePath string) error

	// ProcessAudioFile processes an audio file with the provided processor function.
	ProcessAudioFile(ctx context.Context, filePath string, chunkDuration, overlap float64, processor ChunkProcessor) error

	// CountChunks returns how many chunks ProcessAudioFile will produce for
	// the file with the given window parameters.
	CountChunks(info *Info, chunkDuration, overlap float64) int

	// ReadRange decodes a bounded sample range from the file.
	ReadRange(filePath string, startSample, numSamples int) ([]float32, error)
}
