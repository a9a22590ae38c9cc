package ffmpeg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argsString(args []string) string {
	return strings.Join(args, " ")
}

func TestCommandBuilder_FileToFile(t *testing.T) {
	args := NewCommandBuilder("/usr/bin/ffmpeg").
		WithInputFile("in.mp3").
		WithOutputCodec("flac").
		WithOutputFile("out.flac").
		Build()

	s := argsString(args)
	assert.Contains(t, s, "-hide_banner")
	assert.Contains(t, s, "-i in.mp3")
	assert.Contains(t, s, "-c:a flac")
	// Overwrite flag precedes the output path.
	assert.Equal(t, "out.flac", args[len(args)-1])
	assert.Equal(t, "-y", args[len(args)-2])
}

func TestCommandBuilder_PipedInputDeclaresRawFormat(t *testing.T) {
	args := NewCommandBuilder("ffmpeg").
		WithInputPipe().
		WithFormat(StreamFormat{SampleRate: 44100, Channels: 1, BitDepth: 16}).
		WithOutputFile("out.mp3").
		Build()

	s := argsString(args)
	// Raw PCM parameters must appear before -i -.
	idx := strings.Index(s, "-i -")
	require.Greater(t, idx, 0)
	prefix := s[:idx]
	assert.Contains(t, prefix, "-f s16le")
	assert.Contains(t, prefix, "-ar 44100")
	assert.Contains(t, prefix, "-ac 1")
}

func TestCommandBuilder_Metadata(t *testing.T) {
	args := NewCommandBuilder("ffmpeg").
		WithInputPipe().
		WithMetadata("title", "onset_1").
		WithMetadata("comment", "2.00s-4.50s, confidence 0.90").
		WithOutputFile("out.mp3").
		Build()

	s := argsString(args)
	assert.Contains(t, s, "-metadata title=onset_1")
	assert.Contains(t, s, "-metadata comment=2.00s-4.50s, confidence 0.90")
}

func TestCommandBuilder_BuildCommandIncludesPath(t *testing.T) {
	b := NewCommandBuilder("/opt/ffmpeg").WithInputFile("x.wav").WithOutputFile("y.mp3")
	assert.True(t, strings.HasPrefix(b.BuildCommand(), "/opt/ffmpeg "))
}

func TestDecodeArgs(t *testing.T) {
	args := DecodeArgs("song.m4a", 44100)

	s := argsString(args)
	assert.Contains(t, s, "-vn")
	assert.Contains(t, s, "-i song.m4a")
	assert.Contains(t, s, "-ar 44100")
	assert.Contains(t, s, "-ac 1")
	assert.Contains(t, s, "-c:a pcm_f32le")
	assert.Contains(t, s, "-f f32le")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func TestGetFormatForBitDepth(t *testing.T) {
	assert.Equal(t, "s16le", getFormatForBitDepth(16))
	assert.Equal(t, "s24le", getFormatForBitDepth(24))
	assert.Equal(t, "s32le", getFormatForBitDepth(32))
	assert.Equal(t, "s16le", getFormatForBitDepth(8))
}

func TestGetEncoder(t *testing.T) {
	assert.Equal(t, "flac", getEncoder("flac"))
	assert.Equal(t, "libmp3lame", getEncoder("mp3"))
	assert.Equal(t, "libopus", getEncoder("opus"))
	assert.Equal(t, "pcm_s16le", getEncoder("wav"))
	assert.Equal(t, "weird", getEncoder("weird"))
}

func TestGetLimitedBitrate(t *testing.T) {
	assert.Equal(t, "192k", getLimitedBitrate("mp3", ""))
	assert.Equal(t, "192k", getLimitedBitrate("mp3", "bogus"))
	assert.Equal(t, "256k", getLimitedBitrate("mp3", "256k"))
	assert.Equal(t, "320k", getLimitedBitrate("mp3", "999k"))
	assert.Equal(t, "256k", getLimitedBitrate("opus", "999k"))
	assert.Equal(t, "32k", getLimitedBitrate("mp3", "8k"))
}

func TestIsLossy(t *testing.T) {
	assert.True(t, isLossy("mp3"))
	assert.True(t, isLossy("aac"))
	assert.True(t, isLossy("opus"))
	assert.False(t, isLossy("flac"))
	assert.False(t, isLossy("wav"))
}

func TestLookPath_ConfiguredPathWins(t *testing.T) {
	path, err := LookPath("/custom/ffmpeg")
	require.NoError(t, err)
	assert.Equal(t, "/custom/ffmpeg", path)
}
