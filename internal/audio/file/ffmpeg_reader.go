package file

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/bakerbass/GuitarChops/internal/audio/ffmpeg"
)

// decodeAheadSeconds sizes the ring buffer between the FFmpeg stdout drain
// goroutine and the chunker.
const decodeAheadSeconds = 10

// FFmpegReader decodes any format FFmpeg understands by spawning a subprocess
// that converts the file to 32-bit float mono PCM on stdout. A drain goroutine
// feeds the decoded stream into a blocking ring buffer so decoding runs ahead
// of analysis.
type FFmpegReader struct {
	filePath   string
	ffmpegPath string
	executor   ffmpeg.CommandExecutor
	info       Info
	isOpen     bool
	debug      bool

	proc    *ffmpeg.Process
	ring    *ringbuffer.RingBuffer
	chunker *chunker
}

// NewFFmpegReader creates a reader backed by the given ffmpeg binary. An empty
// ffmpegPath falls back to PATH lookup.
func NewFFmpegReader(ffmpegPath string, debug bool) *FFmpegReader {
	return &FFmpegReader{
		ffmpegPath: ffmpegPath,
		executor:   ffmpeg.DefaultExecutor,
		debug:      debug,
	}
}

// Open probes the file and starts the decoding subprocess.
func (r *FFmpegReader) Open(filePath string) error {
	if r.isOpen {
		if err := r.Close(); err != nil {
			return fmt.Errorf("failed to close previous file: %w", err)
		}
	}

	if _, err := os.Stat(filePath); err != nil {
		return fmt.Errorf("failed to access file: %w", err)
	}

	probe, err := ffmpeg.Probe(filePath, r.executor)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	r.filePath = filePath
	r.info = Info{
		SampleRate:   probe.SampleRate,
		TotalSamples: int(probe.Duration * float64(probe.SampleRate)),
		NumChannels:  probe.Channels,
		BitDepth:     32,
		Duration:     time.Duration(probe.Duration * float64(time.Second)),
		Format:       FormatFFmpeg,
		Path:         filePath,
	}

	if err := r.startDecode(); err != nil {
		return err
	}

	r.isOpen = true
	return nil
}

// startDecode launches the subprocess and the stdout drain goroutine. The
// chunker pulls f32le frames out of the ring buffer.
func (r *FFmpegReader) startDecode() error {
	binPath, err := ffmpeg.LookPath(r.ffmpegPath)
	if err != nil {
		return err
	}

	proc, err := ffmpeg.Start(context.Background(), &ffmpeg.ProcessOptions{
		FFmpegPath: binPath,
		Args:       ffmpeg.DecodeArgs(r.filePath, r.info.SampleRate),
		Executor:   r.executor,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	ring := ringbuffer.New(r.info.SampleRate * 4 * decodeAheadSeconds).SetBlocking(true)
	go func() {
		_, copyErr := io.Copy(ring, proc.StdoutReader())
		if copyErr != nil {
			ring.CloseWithError(copyErr)
			return
		}
		ring.CloseWriter()
	}()

	r.proc = proc
	r.ring = ring
	r.chunker = &chunker{decode: r.decodeFrames, sampleRate: r.info.SampleRate, debug: r.debug}
	return nil
}

// decodeFrames reads up to n f32le frames from the ring buffer.
func (r *FFmpegReader) decodeFrames(n int) ([]float32, error) {
	raw := make([]byte, n*4)
	read, err := io.ReadFull(r.ring, raw)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err != nil && err != io.EOF {
		return nil, err
	}

	read -= read % 4
	frames := make([]float32, read/4)
	for i := range frames {
		frames[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return frames, err
}

// stopDecode tears down the subprocess and ring buffer.
func (r *FFmpegReader) stopDecode() error {
	var err error
	if r.proc != nil {
		err = r.proc.Stop()
		r.proc = nil
	}
	if r.ring != nil {
		r.ring.Reset()
		r.ring = nil
	}
	r.chunker = nil
	return err
}

// Close stops the decoding subprocess.
func (r *FFmpegReader) Close() error {
	if !r.isOpen {
		return nil
	}
	r.isOpen = false
	return r.stopDecode()
}

// GetInfo returns metadata about the audio file.
func (r *FFmpegReader) GetInfo() (Info, error) {
	if !r.isOpen {
		return Info{}, ErrNotOpen
	}
	return r.info, nil
}

// ReadChunk reads the next chunk of audio data.
func (r *FFmpegReader) ReadChunk(chunkDuration, overlap float64) (Chunk, error) {
	if !r.isOpen {
		return Chunk{}, ErrNotOpen
	}
	return r.chunker.next(chunkDuration, overlap)
}

// ProcessFile streams the whole file through the processor. The subprocess is
// restarted so iteration always begins at the first chunk.
func (r *FFmpegReader) ProcessFile(ctx context.Context, chunkDuration, overlap float64, processor ChunkProcessor) error {
	if !r.isOpen {
		return ErrNotOpen
	}

	if err := r.stopDecode(); err != nil {
		return fmt.Errorf("failed to stop previous decode: %w", err)
	}
	if err := r.startDecode(); err != nil {
		return err
	}

	return processAll(ctx, func() (Chunk, error) {
		return r.chunker.next(chunkDuration, overlap)
	}, processor)
}

// ReadRange decodes a bounded sample range through an independent subprocess,
// leaving the reader's own chunk iteration untouched.
func (r *FFmpegReader) ReadRange(startSample, numSamples int) ([]float32, error) {
	if !r.isOpen {
		return nil, ErrNotOpen
	}

	sub := NewFFmpegReader(r.ffmpegPath, r.debug)
	sub.executor = r.executor
	if err := sub.Open(r.filePath); err != nil {
		return nil, err
	}
	defer func() { _ = sub.Close() }()

	return readRange(sub.decodeFrames, startSample, numSamples)
}

// IsValid validates if the file format is supported and readable.
func (r *FFmpegReader) IsValid() (bool, error) {
	if !r.isOpen {
		return false, ErrNotOpen
	}
	if r.info.SampleRate <= 0 || r.info.NumChannels <= 0 {
		return false, nil
	}
	return true, nil
}
