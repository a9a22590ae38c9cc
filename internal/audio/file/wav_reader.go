package file

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVReader implements the Reader interface for WAV files.
type WAVReader struct {
	file    *os.File
	decoder *wav.Decoder
	info    Info
	isOpen  bool
	debug   bool

	chunker chunker
	divisor float32
}

// NewWAVReader creates a new WAV file reader.
func NewWAVReader(debug bool) *WAVReader {
	return &WAVReader{debug: debug}
}

// Open opens the WAV file and initializes the reader.
func (r *WAVReader) Open(filePath string) error {
	if r.isOpen {
		r.Close()
	}

	var err error
	r.file, err = os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open WAV file: %w", err)
	}

	r.decoder = wav.NewDecoder(r.file)
	r.decoder.ReadInfo()

	if !r.decoder.IsValidFile() {
		r.file.Close()
		return fmt.Errorf("%w: invalid WAV file format", ErrDecode)
	}

	r.divisor, err = getAudioDivisor(int(r.decoder.BitDepth))
	if err != nil {
		r.file.Close()
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	// Total frames from the data chunk size. The file size is no proxy:
	// tagged files carry a LIST-INFO chunk after the audio data.
	dataSize, err := wavDataChunkSize(filePath)
	if err != nil {
		r.file.Close()
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	bytesPerFrame := int(r.decoder.BitDepth/8) * int(r.decoder.NumChans)
	totalFrames := int(dataSize) / bytesPerFrame

	duration := time.Duration(float64(totalFrames) / float64(r.decoder.SampleRate) * float64(time.Second))

	r.info = Info{
		SampleRate:   int(r.decoder.SampleRate),
		TotalSamples: totalFrames,
		NumChannels:  int(r.decoder.NumChans),
		BitDepth:     int(r.decoder.BitDepth),
		Duration:     duration,
		Format:       FormatWAV,
		Path:         filePath,
	}

	r.isOpen = true
	r.chunker = chunker{decode: r.decodeFrames, sampleRate: r.info.SampleRate, debug: r.debug}

	if r.debug {
		fmt.Printf("WAV Info: %+v\n", r.info)
	}

	return nil
}

// wavDataChunkSize walks the RIFF chunk list and returns the data chunk's
// byte length.
func wavDataChunkSize(filePath string) (int64, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var riff [12]byte // "RIFF" <size> "WAVE"
	if _, err := io.ReadFull(f, riff[:]); err != nil {
		return 0, fmt.Errorf("failed to read RIFF header: %w", err)
	}

	for {
		var header [8]byte
		if _, err := io.ReadFull(f, header[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return 0, fmt.Errorf("no data chunk found")
			}
			return 0, err
		}
		size := int64(binary.LittleEndian.Uint32(header[4:8]))
		if string(header[:4]) == "data" {
			return size, nil
		}
		// Chunks are word-aligned.
		if _, err := f.Seek(size+size%2, io.SeekCurrent); err != nil {
			return 0, err
		}
	}
}

// Close closes the file and releases resources.
func (r *WAVReader) Close() error {
	r.isOpen = false
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// GetInfo returns metadata about the audio file.
func (r *WAVReader) GetInfo() (Info, error) {
	if !r.isOpen {
		return Info{}, ErrNotOpen
	}
	return r.info, nil
}

// decodeFrames reads up to n frames from the decoder, mixed down to mono.
func (r *WAVReader) decodeFrames(n int) ([]float32, error) {
	buf := &audio.IntBuffer{
		Data:   make([]int, n*r.info.NumChannels),
		Format: &audio.Format{SampleRate: r.info.SampleRate, NumChannels: r.info.NumChannels},
	}

	read, err := r.decoder.PCMBuffer(buf)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("error reading WAV data: %w", err)
	}

	interleaved := make([]float32, read)
	for i := 0; i < read; i++ {
		interleaved[i] = float32(buf.Data[i]) / r.divisor
	}
	mono := mixToMono(interleaved, r.info.NumChannels)

	if read == 0 {
		return nil, io.EOF
	}
	return mono, err
}

// ReadChunk reads the next chunk of audio data.
func (r *WAVReader) ReadChunk(chunkDuration, overlap float64) (Chunk, error) {
	if !r.isOpen {
		return Chunk{}, ErrNotOpen
	}
	return r.chunker.next(chunkDuration, overlap)
}

// ProcessFile processes the entire file in chunks.
func (r *WAVReader) ProcessFile(ctx context.Context, chunkDuration, overlap float64, processor ChunkProcessor) error {
	if !r.isOpen {
		return ErrNotOpen
	}

	// Restart decoding from the top of the file.
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	r.decoder = wav.NewDecoder(r.file)
	r.decoder.ReadInfo()
	r.chunker.reset(r.info.SampleRate)

	return processAll(ctx, func() (Chunk, error) {
		return r.chunker.next(chunkDuration, overlap)
	}, processor)
}

// ReadRange decodes a bounded sample range by re-reading from the top of the
// file. Export boundaries rarely align with chunk boundaries, so the chunk
// window state is left untouched.
func (r *WAVReader) ReadRange(startSample, numSamples int) ([]float32, error) {
	if !r.isOpen {
		return nil, ErrNotOpen
	}

	sub := NewWAVReader(r.debug)
	if err := sub.Open(r.info.Path); err != nil {
		return nil, err
	}
	defer sub.Close()

	return readRange(sub.decodeFrames, startSample, numSamples)
}

// IsValid validates if the file is a valid WAV file.
func (r *WAVReader) IsValid() (bool, error) {
	if !r.isOpen {
		return false, ErrNotOpen
	}

	if !r.decoder.IsValidFile() {
		return false, nil
	}

	if r.info.BitDepth != 16 && r.info.BitDepth != 24 && r.info.BitDepth != 32 {
		if r.debug {
			fmt.Printf("Unsupported bit depth: %d\n", r.info.BitDepth)
		}
		return false, nil
	}

	if r.info.NumChannels != 1 && r.info.NumChannels != 2 {
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

// readRange skips to startSample and decodes numSamples frames.
func readRange(decode frameDecoder, startSample, numSamples int) ([]float32, error) {
	const skipBlock = 65536

	remaining := startSample
	for remaining > 0 {
		n := skipBlock
		if remaining < n {
			n = remaining
		}
		frames, err := decode(n)
		if err == io.EOF || len(frames) == 0 {
			return nil, fmt.Errorf("range start %d is past end of file", startSample)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
		remaining -= len(frames)
	}

	out := make([]float32, 0, numSamples)
	for len(out) < numSamples {
		frames, err := decode(numSamples - len(out))
		out = append(out, frames...)
		if err == io.EOF || len(frames) == 0 {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}
	return out, nil
}
