package ffmpeg

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writingCommander materializes the output file on Start, like a successful
// encode would.
type writingCommander struct {
	mockCommander
	outputPath string
}

func (c *writingCommander) Start() error {
	if err := os.WriteFile(c.outputPath, []byte("encoded"), 0o644); err != nil {
		return err
	}
	return c.mockCommander.Start()
}

func TestExport_WritesTaggedArtifact(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "clip_onset_1.mp3")
	mc := &writingCommander{outputPath: outPath + ".temp"}
	ex := &mockExecutor{commander: mc}

	err := Export(context.Background(), []byte("pcm"), &ExportOptions{
		FFmpegPath: "/fake/ffmpeg",
		Format:     ExportFormat{Type: "mp3", Bitrate: "999k"},
		StreamFormat: StreamFormat{
			SampleRate: 44100,
			Channels:   1,
			BitDepth:   16,
		},
		OutputPath: outPath,
		Metadata:   map[string]string{"title": "onset_1"},
		Executor:   ex,
	})
	require.NoError(t, err)

	// The temp file was renamed into place.
	_, statErr := os.Stat(outPath)
	assert.NoError(t, statErr)
	_, statErr = os.Stat(outPath + ".temp")
	assert.True(t, os.IsNotExist(statErr))

	s := strings.Join(ex.args, " ")
	assert.Contains(t, s, "-c:a libmp3lame")
	assert.Contains(t, s, "-f mp3")
	// Requested bitrate is clamped to the codec maximum.
	assert.Contains(t, s, "-b:a 320k")
	assert.Contains(t, s, "-metadata title=onset_1")
	assert.Contains(t, s, "-f s16le")

	// The full PCM payload was piped to the encoder's stdin before Export
	// returned; Stop waits for the feeder rather than closing under it.
	assert.Equal(t, "pcm", mc.stdinContents())
}

func TestExport_LosslessFormatOmitsBitrate(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "clip.flac")
	mc := &writingCommander{outputPath: outPath + ".temp"}
	ex := &mockExecutor{commander: mc}

	err := Export(context.Background(), []byte("pcm"), &ExportOptions{
		FFmpegPath:   "/fake/ffmpeg",
		Format:       ExportFormat{Type: "flac", Bitrate: "192k"},
		StreamFormat: StreamFormat{SampleRate: 44100, Channels: 1, BitDepth: 16},
		OutputPath:   outPath,
		Executor:     ex,
	})
	require.NoError(t, err)

	s := strings.Join(ex.args, " ")
	assert.Contains(t, s, "-c:a flac")
	assert.NotContains(t, s, "-b:a")
}

func TestExport_FailedEncodeLeavesNoArtifact(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "clip.mp3")
	// The commander never produces the temp file.
	ex := &mockExecutor{commander: &mockCommander{}}

	err := Export(context.Background(), []byte("pcm"), &ExportOptions{
		FFmpegPath:   "/fake/ffmpeg",
		Format:       ExportFormat{Type: "mp3"},
		StreamFormat: StreamFormat{SampleRate: 44100, Channels: 1, BitDepth: 16},
		OutputPath:   outPath,
		Executor:     ex,
	})
	require.Error(t, err)

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExport_ValidatesOptions(t *testing.T) {
	err := Export(context.Background(), nil, &ExportOptions{OutputPath: "x.mp3"})
	assert.Error(t, err)

	err = Export(context.Background(), nil, &ExportOptions{FFmpegPath: "/fake/ffmpeg"})
	assert.Error(t, err)
}
