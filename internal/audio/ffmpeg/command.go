package ffmpeg

import (
	"fmt"
	"strings"
)

// StreamFormat defines raw PCM format parameters.
type StreamFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// CommandBuilder builds FFmpeg commands.
type CommandBuilder struct {
	ffmpegPath string
	input      string
	inputOpts  []string
	output     string
	outputOpts []string
	format     StreamFormat
	globalOpts []string
}

// NewCommandBuilder creates a new command builder with the given FFmpeg path.
func NewCommandBuilder(ffmpegPath string) *CommandBuilder {
	return &CommandBuilder{
		ffmpegPath: ffmpegPath,
		inputOpts:  make([]string, 0),
		outputOpts: make([]string, 0),
		globalOpts: []string{"-hide_banner", "-loglevel", "error"},
	}
}

// WithFormat sets the raw PCM format applied to piped input.
func (b *CommandBuilder) WithFormat(format StreamFormat) *CommandBuilder {
	b.format = format
	return b
}

// WithInputFile sets an input file.
func (b *CommandBuilder) WithInputFile(filePath string) *CommandBuilder {
	b.input = filePath
	return b
}

// WithInputPipe configures input from stdin.
func (b *CommandBuilder) WithInputPipe() *CommandBuilder {
	b.input = "-"
	return b
}

// WithOutputPipe configures output to stdout.
func (b *CommandBuilder) WithOutputPipe() *CommandBuilder {
	b.output = "pipe:1"
	return b
}

// WithOutputFile sets an output file.
func (b *CommandBuilder) WithOutputFile(filePath string) *CommandBuilder {
	b.output = filePath
	return b
}

// WithOutputFormat sets the output container format.
func (b *CommandBuilder) WithOutputFormat(format string) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-f", format)
	return b
}

// WithOutputCodec sets the output audio codec.
func (b *CommandBuilder) WithOutputCodec(codec string) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-c:a", codec)
	return b
}

// WithOutputBitrate sets the output bitrate.
func (b *CommandBuilder) WithOutputBitrate(bitrate string) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-b:a", bitrate)
	return b
}

// WithOutputSampleRate resamples the output.
func (b *CommandBuilder) WithOutputSampleRate(rate int) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-ar", fmt.Sprintf("%d", rate))
	return b
}

// WithOutputChannels sets the output channel count.
func (b *CommandBuilder) WithOutputChannels(channels int) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-ac", fmt.Sprintf("%d", channels))
	return b
}

// WithMetadata embeds a metadata tag in the output container.
func (b *CommandBuilder) WithMetadata(key, value string) *CommandBuilder {
	b.outputOpts = append(b.outputOpts, "-metadata", fmt.Sprintf("%s=%s", key, value))
	return b
}

// DisableVideo disables video processing.
func (b *CommandBuilder) DisableVideo() *CommandBuilder {
	b.globalOpts = append(b.globalOpts, "-vn")
	return b
}

// Build builds the complete command arguments.
func (b *CommandBuilder) Build() []string {
	args := make([]string, 0)
	args = append(args, b.globalOpts...)
	args = append(args, b.inputOpts...)

	// Raw PCM piped in needs its format declared before -i.
	if b.input == "-" && b.format.SampleRate > 0 {
		args = append(args,
			"-f", getFormatForBitDepth(b.format.BitDepth),
			"-ar", fmt.Sprintf("%d", b.format.SampleRate),
			"-ac", fmt.Sprintf("%d", b.format.Channels),
		)
	}

	args = append(args, "-i", b.input)
	args = append(args, b.outputOpts...)

	// Force overwrite
	args = append(args, "-y")
	args = append(args, b.output)

	return args
}

// BuildCommand returns the command string (for debugging).
func (b *CommandBuilder) BuildCommand() string {
	return fmt.Sprintf("%s %s", b.ffmpegPath, strings.Join(b.Build(), " "))
}

// getFormatForBitDepth returns the FFmpeg raw format for a given bit depth.
func getFormatForBitDepth(bitDepth int) string {
	switch bitDepth {
	case 16:
		return "s16le"
	case 24:
		return "s24le"
	case 32:
		return "s32le"
	default:
		return "s16le"
	}
}

// DecodeArgs returns the arguments to decode any input file to 32-bit float
// little-endian mono PCM on stdout, used by the FFmpeg chunk reader.
func DecodeArgs(inputPath string, sampleRate int) []string {
	return NewCommandBuilder("").
		DisableVideo().
		WithInputFile(inputPath).
		WithOutputSampleRate(sampleRate).
		WithOutputChannels(1).
		WithOutputCodec("pcm_f32le").
		WithOutputFormat("f32le").
		WithOutputPipe().
		Build()
}
