package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCommander simulates an ffmpeg process without executing anything.
type mockCommander struct {
	stdout  string
	stderr  string
	waitErr error

	mu       sync.Mutex
	started  bool
	stdinBuf bytes.Buffer
	attr     *syscall.SysProcAttr
}

func (c *mockCommander) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started = true
	return nil
}

func (c *mockCommander) Wait() error { return c.waitErr }

func (c *mockCommander) StdoutPipe() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(c.stdout)), nil
}

func (c *mockCommander) StderrPipe() (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(c.stderr)), nil
}

func (c *mockCommander) StdinPipe() (io.WriteCloser, error) {
	return &syncedWriter{c: c}, nil
}

func (c *mockCommander) SetSysProcAttr(attr *syscall.SysProcAttr) { c.attr = attr }

func (c *mockCommander) Process() *os.Process { return nil }

type syncedWriter struct {
	c *mockCommander
}

func (w *syncedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.stdinBuf.Write(p)
}

func (w *syncedWriter) Close() error { return nil }

// mockExecutor hands out a fixed commander and records the invocation.
type mockExecutor struct {
	commander Commander
	name      string
	args      []string
}

func (e *mockExecutor) Command(name string, args ...string) Commander {
	e.name = name
	e.args = args
	return e.commander
}

func (c *mockCommander) stdinContents() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stdinBuf.String()
}

func TestStart_RequiresFFmpegPath(t *testing.T) {
	_, err := Start(context.Background(), &ProcessOptions{})
	assert.Error(t, err)
}

func TestStart_RunsCommandInProcessGroup(t *testing.T) {
	mc := &mockCommander{}
	ex := &mockExecutor{commander: mc}

	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		Args:       []string{"-i", "in.wav", "out.mp3"},
		Executor:   ex,
	})
	require.NoError(t, err)
	defer proc.Stop()

	assert.Equal(t, "/fake/ffmpeg", ex.name)
	assert.Equal(t, []string{"-i", "in.wav", "out.mp3"}, ex.args)
	assert.True(t, mc.started)
	assert.NotNil(t, mc.attr)
}

func TestStart_CollectsStderr(t *testing.T) {
	mc := &mockCommander{stderr: "Invalid data found\nDecoder error\n"}
	ex := &mockExecutor{commander: mc}

	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		Executor:   ex,
	})
	require.NoError(t, err)
	require.NoError(t, proc.Stop())

	out := proc.StderrOutput()
	assert.Contains(t, out, "Invalid data found")
	assert.Contains(t, out, "Decoder error")
}

func TestStart_WritesInputDataToStdin(t *testing.T) {
	mc := &mockCommander{}
	ex := &mockExecutor{commander: mc}

	data := []byte("raw pcm payload")
	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		InputData:  data,
		Executor:   ex,
	})
	require.NoError(t, err)
	defer proc.Stop()

	assert.Eventually(t, func() bool {
		return mc.stdinContents() == string(data)
	}, time.Second, 10*time.Millisecond)
}

// slowDrainCommander models an encoder that consumes stdin slowly: data only
// lands if the pipe is still open once the drain completes.
type slowDrainCommander struct {
	mockCommander
	drain  time.Duration
	closed atomic.Bool
}

func (c *slowDrainCommander) StdinPipe() (io.WriteCloser, error) {
	return &slowDrainPipe{c: c}, nil
}

type slowDrainPipe struct {
	c *slowDrainCommander
}

func (w *slowDrainPipe) Write(p []byte) (int, error) {
	time.Sleep(w.c.drain)
	if w.c.closed.Load() {
		return 0, io.ErrClosedPipe
	}
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.stdinBuf.Write(p)
}

func (w *slowDrainPipe) Close() error {
	w.c.closed.Store(true)
	return nil
}

func TestStop_WaitsForStdinFeeder(t *testing.T) {
	mc := &slowDrainCommander{drain: 150 * time.Millisecond}
	ex := &mockExecutor{commander: mc}

	data := bytes.Repeat([]byte("pcm!"), 4096)
	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		InputData:  data,
		Executor:   ex,
	})
	require.NoError(t, err)

	// Stop must not close stdin under the in-flight write; the full
	// payload reaches the encoder before EOF.
	require.NoError(t, proc.Stop())
	assert.Equal(t, string(data), mc.stdinContents())
}

// brokenPipeCommander rejects every stdin write, like an encoder that died
// before reading its input.
type brokenPipeCommander struct {
	mockCommander
}

func (c *brokenPipeCommander) StdinPipe() (io.WriteCloser, error) {
	return &brokenPipe{}, nil
}

type brokenPipe struct{}

func (w *brokenPipe) Write(p []byte) (int, error) { return 0, io.ErrClosedPipe }
func (w *brokenPipe) Close() error                { return nil }

func TestStop_ReportsStdinWriteFailure(t *testing.T) {
	mc := &brokenPipeCommander{}
	ex := &mockExecutor{commander: mc}

	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		InputData:  []byte("pcm payload"),
		Executor:   ex,
	})
	require.NoError(t, err)

	// The process itself exits cleanly, but the input never arrived.
	err = proc.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, io.ErrClosedPipe)
	assert.Contains(t, err.Error(), "failed to feed input data")
}

func TestStart_StdoutReaderStreamsOutput(t *testing.T) {
	mc := &mockCommander{stdout: "decoded audio bytes"}
	ex := &mockExecutor{commander: mc}

	proc, err := Start(context.Background(), &ProcessOptions{
		FFmpegPath: "/fake/ffmpeg",
		Executor:   ex,
	})
	require.NoError(t, err)
	defer proc.Stop()

	got, err := io.ReadAll(proc.StdoutReader())
	require.NoError(t, err)
	assert.Equal(t, "decoded audio bytes", string(got))
}

func TestProcessError_WrapsCauseAndStderr(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ProcessError{Err: cause, Stderr: "no such file"}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "exit status 1")
	assert.Contains(t, err.Error(), "no such file")
}

func TestBoundedBuffer_KeepsMostRecent(t *testing.T) {
	b := NewBoundedBuffer(10)

	_, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, "abcdef", b.String())

	// Overflow discards the oldest bytes.
	_, err = b.Write([]byte("ghijkl"))
	require.NoError(t, err)
	assert.Equal(t, "cdefghijkl", b.String())
}

func TestBoundedBuffer_OversizedWriteKeepsTail(t *testing.T) {
	b := NewBoundedBuffer(4)

	_, err := b.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, "6789", b.String())
}
