package file

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tphakala/flac"
)

// FLACReader implements the Reader interface for FLAC files.
type FLACReader struct {
	file    *os.File
	decoder *flac.Decoder
	info    Info
	isOpen  bool
	debug   bool

	chunker chunker
	divisor float32
	pending []float32 // mono frames decoded but not yet handed out
}

// NewFLACReader creates a new FLAC file reader.
func NewFLACReader(debug bool) *FLACReader {
	return &FLACReader{debug: debug}
}

// Open opens the FLAC file and initializes the reader.
func (r *FLACReader) Open(filePath string) error {
	if r.isOpen {
		r.Close()
	}

	var err error
	r.file, err = os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open FLAC file: %w", err)
	}

	r.decoder, err = flac.NewDecoder(r.file)
	if err != nil {
		r.file.Close()
		return fmt.Errorf("%w: failed to create FLAC decoder: %v", ErrDecode, err)
	}

	r.divisor, err = getAudioDivisor(r.decoder.BitsPerSample)
	if err != nil {
		r.file.Close()
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	duration := time.Duration(float64(r.decoder.TotalSamples) / float64(r.decoder.SampleRate) * float64(time.Second))

	r.info = Info{
		SampleRate:   r.decoder.SampleRate,
		TotalSamples: int(r.decoder.TotalSamples),
		NumChannels:  r.decoder.NChannels,
		BitDepth:     r.decoder.BitsPerSample,
		Duration:     duration,
		Format:       FormatFLAC,
		Path:         filePath,
	}

	r.isOpen = true
	r.pending = nil
	r.chunker = chunker{decode: r.decodeFrames, sampleRate: r.info.SampleRate, debug: r.debug}

	if r.debug {
		fmt.Printf("FLAC Info: %+v\n", r.info)
	}

	return nil
}

// Close closes the file and releases resources.
func (r *FLACReader) Close() error {
	r.isOpen = false
	r.pending = nil
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// GetInfo returns metadata about the audio file.
func (r *FLACReader) GetInfo() (Info, error) {
	if !r.isOpen {
		return Info{}, ErrNotOpen
	}
	return r.info, nil
}

// decodeFrames returns up to n mono frames, pulling FLAC frames as needed.
func (r *FLACReader) decodeFrames(n int) ([]float32, error) {
	for len(r.pending) < n {
		frame, err := r.decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading FLAC frame: %w", err)
		}
		r.pending = append(r.pending, r.frameToMono(frame)...)
	}

	if len(r.pending) == 0 {
		return nil, io.EOF
	}

	if n > len(r.pending) {
		n = len(r.pending)
	}
	out := r.pending[:n:n]
	r.pending = r.pending[n:]
	return out, nil
}

// frameToMono converts one FLAC frame of interleaved PCM bytes to normalized
// mono float32.
func (r *FLACReader) frameToMono(frame []byte) []float32 {
	bytesPerSample := r.decoder.BitsPerSample / 8
	stride := bytesPerSample * r.decoder.NChannels
	frames := len(frame) / stride

	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := float32(0)
		for ch := 0; ch < r.decoder.NChannels; ch++ {
			off := i*stride + ch*bytesPerSample
			var sample int32
			switch r.decoder.BitsPerSample {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[off:])))
			case 24:
				sample = int32(frame[off]) | int32(frame[off+1])<<8 | int32(frame[off+2])<<16
				// Sign extension for 24-bit
				if sample&0x800000 != 0 {
					sample |= -1 << 24
				}
			case 32:
				sample = int32(binary.LittleEndian.Uint32(frame[off:]))
			}
			sum += float32(sample) / r.divisor
		}
		mono[i] = sum / float32(r.decoder.NChannels)
	}
	return mono
}

// ReadChunk reads the next chunk of audio data.
func (r *FLACReader) ReadChunk(chunkDuration, overlap float64) (Chunk, error) {
	if !r.isOpen {
		return Chunk{}, ErrNotOpen
	}
	return r.chunker.next(chunkDuration, overlap)
}

// ProcessFile processes the entire file in chunks.
func (r *FLACReader) ProcessFile(ctx context.Context, chunkDuration, overlap float64, processor ChunkProcessor) error {
	if !r.isOpen {
		return ErrNotOpen
	}

	// The FLAC decoder has no rewind; reopen to restart from the top.
	path := r.info.Path
	if err := r.Open(path); err != nil {
		return err
	}

	return processAll(ctx, func() (Chunk, error) {
		return r.chunker.next(chunkDuration, overlap)
	}, processor)
}

// ReadRange decodes a bounded sample range using an independent decoder so
// concurrent exports cannot disturb each other or the chunk stream.
func (r *FLACReader) ReadRange(startSample, numSamples int) ([]float32, error) {
	if !r.isOpen {
		return nil, ErrNotOpen
	}

	sub := NewFLACReader(r.debug)
	if err := sub.Open(r.info.Path); err != nil {
		return nil, err
	}
	defer sub.Close()

	return readRange(sub.decodeFrames, startSample, numSamples)
}

// IsValid validates if the file is a valid FLAC file.
func (r *FLACReader) IsValid() (bool, error) {
	if !r.isOpen {
		return false, ErrNotOpen
	}

	if r.info.BitDepth != 16 && r.info.BitDepth != 24 && r.info.BitDepth != 32 {
		if r.debug {
			fmt.Printf("Unsupported bit depth: %d\n", r.info.BitDepth)
		}
		return false, nil
	}

	if r.info.NumChannels < 1 || r.info.NumChannels > 2 {
		if r.debug {
			fmt.Printf("Unsupported number of channels: %d\n", r.info.NumChannels)
		}
		return false, nil
	}

	if r.info.TotalSamples == 0 {
		if r.debug {
			fmt.Println("File contains no samples")
		}
		return false, nil
	}

	return true, nil
}
