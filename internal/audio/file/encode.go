package file

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Standard audio constants
const (
	DefaultBitDepth = 16
	DefaultChannels = 1
)

// Tags holds the metadata written into an exported segment file. Fields map
// onto WAV LIST-INFO entries; lossy exports carry them as format tags instead.
type Tags struct {
	Title    string // segment identifier
	Genre    string // segment type
	Comment  string // detected key, tempo, confidence
	Software string
}

// GetFileExtension returns the file extension for a given format type.
func GetFileExtension(formatType string) string {
	switch formatType {
	case "wav":
		return "wav"
	case "flac":
		return "flac"
	case "mp3":
		return "mp3"
	case "aac", "m4a":
		return "m4a"
	case "opus":
		return "opus"
	case "ogg":
		return "ogg"
	default:
		return formatType
	}
}

// SavePCMToWAV saves 16-bit PCM data to a WAV file, embedding the given tags
// as a LIST-INFO chunk.
func SavePCMToWAV(filePath string, pcmData []byte, sampleRate, bitDepth, channels int, tags *Tags) error {
	// Create the directory structure if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	// Open a new file for writing.
	outFile, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer outFile.Close() // Ensure file closure on function exit.

	// Create a new WAV encoder with the specified format settings.
	enc := wav.NewEncoder(outFile, sampleRate, bitDepth, channels, 1)
	if tags != nil {
		enc.Metadata = &wav.Metadata{
			Title:    tags.Title,
			Genre:    tags.Genre,
			Comments: tags.Comment,
			Software: tags.Software,
		}
	}

	// Convert the byte slice to a slice of integer samples.
	intSamples := byteSliceToInts(pcmData)

	// Write the integer samples to the WAV file.
	if err := enc.Write(&audio.IntBuffer{
		Data:   intSamples,
		Format: &audio.Format{SampleRate: sampleRate, NumChannels: channels},
	}); err != nil {
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}

	// Close the WAV encoder, which finalizes the file format.
	return enc.Close()
}

// FloatToPCM16 converts normalized mono float32 samples to interleaved 16-bit
// little-endian PCM, clipping out-of-range values.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := float64(s)
		if v > 1.0 {
			v = 1.0
		} else if v < -1.0 {
			v = -1.0
		}
		sample := int16(math.Round(v * 32767.0))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// byteSliceToInts converts a byte slice to a slice of integers.
// Each pair of bytes is treated as a single 16-bit sample.
func byteSliceToInts(pcmData []byte) []int {
	var samples []int
	buf := bytes.NewBuffer(pcmData)

	// Read each 16-bit sample from the byte buffer and store it as an int.
	for {
		var sample int16
		if err := binary.Read(buf, binary.LittleEndian, &sample); err != nil {
			break // Exit loop on read error (e.g., end of buffer).
		}
		samples = append(samples, int(sample))
	}

	return samples
}
