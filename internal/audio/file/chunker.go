package file

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// frameDecoder pulls up to n mono sample frames from the underlying codec.
// It returns io.EOF once the source is exhausted; a short read together with
// a nil error is allowed.
type frameDecoder func(n int) ([]float32, error)

// chunker implements the sliding analysis window shared by all readers.
// It holds at most one window plus read-ahead in memory regardless of file
// length.
type chunker struct {
	decode frameDecoder

	sampleRate   int
	buf          []float32 // frames [pos, pos+len(buf))
	pos          int       // absolute frame offset of buf[0]
	index        int       // next chunk ordinal
	chunkSamples int
	stepSamples  int
	overlap      int
	eof          bool
	initialized  bool
	debug        bool
}

func (c *chunker) reset(sampleRate int) {
	*c = chunker{decode: c.decode, sampleRate: sampleRate, debug: c.debug}
}

// next returns the next analysis window, or io.EOF when only already-seen
// overlap context remains.
func (c *chunker) next(chunkDuration, overlap float64) (Chunk, error) {
	if !c.initialized {
		c.chunkSamples = int(chunkDuration * float64(c.sampleRate))
		c.overlap = int(overlap * float64(c.sampleRate))
		c.stepSamples = c.chunkSamples - c.overlap
		if c.chunkSamples <= 0 || c.stepSamples <= 0 {
			return Chunk{}, fmt.Errorf("invalid window: chunk %.2fs overlap %.2fs", chunkDuration, overlap)
		}
		c.initialized = true
	}

	if err := c.fill(c.chunkSamples); err != nil {
		return Chunk{}, err
	}

	if len(c.buf) == 0 {
		return Chunk{}, io.EOF
	}
	// A trailing window that holds nothing beyond the previous chunk's
	// overlap context carries no new audio.
	if c.index > 0 && len(c.buf) <= c.overlap {
		return Chunk{}, io.EOF
	}

	n := len(c.buf)
	if n > c.chunkSamples {
		n = c.chunkSamples
	}

	data := make([]float32, n)
	copy(data, c.buf[:n])

	chunk := Chunk{
		Index:       c.index,
		Data:        data,
		StartSample: c.pos,
		EndSample:   c.pos + n,
		SampleRate:  c.sampleRate,
	}
	if c.index > 0 {
		chunk.OverlapSamples = c.overlap
	}

	if c.debug {
		fmt.Printf("DEBUG chunker: chunk %d covers samples [%d, %d)\n", c.index, chunk.StartSample, chunk.EndSample)
	}

	c.index++
	c.pos += c.stepSamples
	if c.stepSamples >= len(c.buf) {
		c.buf = nil
	} else {
		c.buf = c.buf[c.stepSamples:]
	}

	return chunk, nil
}

// fill tops the buffer up to want frames, decoding from the source.
func (c *chunker) fill(want int) error {
	for len(c.buf) < want && !c.eof {
		frames, err := c.decode(want - len(c.buf))
		c.buf = append(c.buf, frames...)
		if errors.Is(err, io.EOF) {
			c.eof = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDecode, err)
		}
		if len(frames) == 0 {
			// Defensive: a decoder that returns neither data nor EOF would
			// otherwise spin forever.
			c.eof = true
			return nil
		}
	}
	return nil
}

// processAll drives next until EOF, honoring context cancellation between
// chunks.
func processAll(ctx context.Context, read func() (Chunk, error), processor ChunkProcessor) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		chunk, err := read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := processor(chunk); err != nil {
			return err
		}
	}
}

// mixToMono folds interleaved multi-channel samples into mono by averaging.
func mixToMono(interleaved []float32, channels int) []float32 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += interleaved[i*channels+ch]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

// getAudioDivisor returns the normalization divisor for a bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
