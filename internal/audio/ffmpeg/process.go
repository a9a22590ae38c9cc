package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// Process represents a running FFmpeg process.
type Process struct {
	cmd             Commander
	stdout          io.ReadCloser
	stderr          io.ReadCloser
	stdin           io.WriteCloser
	stderrBuf       *BoundedBuffer
	mu              sync.Mutex
	stderrCollector sync.WaitGroup
	stdinFeeder     sync.WaitGroup
	stdinMu         sync.Mutex
	stdinErr        error
}

// ProcessOptions contains options for starting an FFmpeg process.
type ProcessOptions struct {
	FFmpegPath string
	Args       []string
	InputData  []byte          // Optional: data to write to stdin
	Executor   CommandExecutor // Optional: custom command executor
}

// ProcessError is an error with FFmpeg stderr output.
type ProcessError struct {
	Err    error
	Stderr string
}

// Error implements the error interface.
func (e *ProcessError) Error() string {
	return fmt.Sprintf("%v\nStderr: %s", e.Err, e.Stderr)
}

// Unwrap returns the underlying error.
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// BoundedBuffer is a thread-safe bounded buffer keeping the most recent data.
type BoundedBuffer struct {
	data []byte
	size int
	mu   sync.Mutex
}

// NewBoundedBuffer creates a new bounded buffer with the specified size.
func NewBoundedBuffer(size int) *BoundedBuffer {
	return &BoundedBuffer{
		data: make([]byte, 0, size),
		size: size,
	}
}

// Write implements io.Writer.
func (b *BoundedBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(p) >= b.size {
		// If data is larger than buffer, just keep the end
		b.data = append(b.data[:0], p[len(p)-b.size:]...)
		return len(p), nil
	}

	// If buffer would overflow, make room
	if len(b.data)+len(p) > b.size {
		b.data = b.data[len(b.data)+len(p)-b.size:]
	}

	b.data = append(b.data, p...)
	return len(p), nil
}

// String returns the buffer contents as a string.
func (b *BoundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.data)
}

// Start starts a new FFmpeg process.
func Start(_ context.Context, opts *ProcessOptions) (*Process, error) {
	if opts.FFmpegPath == "" {
		return nil, errors.New("FFmpeg path not specified")
	}

	executor := opts.Executor
	if executor == nil {
		executor = DefaultExecutor
	}

	cmd := executor.Command(opts.FFmpegPath, opts.Args...)
	setupProcessGroup(cmd)

	stderrBuf := NewBoundedBuffer(4096)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	proc := &Process{
		cmd:       cmd,
		stdout:    stdout,
		stderr:    stderr,
		stdin:     stdin,
		stderrBuf: stderrBuf,
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start FFmpeg: %w", err)
	}

	proc.stderrCollector.Add(1)
	go func() {
		defer proc.stderrCollector.Done()
		proc.collectStderr()
	}()

	if len(opts.InputData) > 0 {
		proc.stdinFeeder.Add(1)
		go func() {
			defer proc.stdinFeeder.Done()
			defer stdin.Close()
			if _, err := stdin.Write(opts.InputData); err != nil {
				proc.setStdinErr(err)
			}
		}()
	}

	return proc, nil
}

func (p *Process) setStdinErr(err error) {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if p.stdinErr == nil {
		p.stdinErr = err
	}
}

func (p *Process) stdinError() error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	return p.stdinErr
}

// collectStderr reads stderr output and stores it in the buffer.
func (p *Process) collectStderr() {
	scanner := bufio.NewScanner(p.stderr)
	for scanner.Scan() {
		line := scanner.Bytes()
		_, _ = p.stderrBuf.Write(append(line, '\n'))
	}
}

// StdoutReader returns a reader for stdout.
func (p *Process) StdoutReader() io.Reader {
	return p.stdout
}

// StderrOutput returns captured stderr output.
func (p *Process) StderrOutput() string {
	return p.stderrBuf.String()
}

// Stop waits for the FFmpeg process to exit, killing it after a grace period.
func (p *Process) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Let the input feeder finish before closing stdin: closing the pipe
	// under an in-flight write truncates what the encoder receives. A
	// process that stopped draining is unblocked by the close below.
	feederDone := make(chan struct{})
	go func() {
		p.stdinFeeder.Wait()
		close(feederDone)
	}()
	select {
	case <-feederDone:
	case <-time.After(30 * time.Second):
	}

	// Close stdin so a pipe-fed process sees EOF and finishes.
	if p.stdin != nil {
		p.stdin.Close()
		p.stdin = nil
	}

	stderrDone := make(chan struct{})
	go func() {
		p.stderrCollector.Wait()
		close(stderrDone)
	}()

	select {
	case <-stderrDone:
	case <-time.After(2 * time.Second):
	}

	done := make(chan error, 1)
	go func() {
		if p.cmd != nil && p.cmd.Process() != nil {
			done <- p.cmd.Wait()
		} else {
			done <- nil
		}
	}()

	var err error
	select {
	case err = <-done:
		// Process exited
	case <-time.After(30 * time.Second):
		// Force kill if it doesn't exit gracefully
		_ = killProcessGroup(p.cmd)
		err = errors.New("process killed after timeout")
	}

	if p.stdout != nil {
		p.stdout.Close()
		p.stdout = nil
	}
	if p.stderr != nil {
		p.stderr.Close()
		p.stderr = nil
	}

	// An encoder can exit 0 on early EOF, so a failed input write still
	// means a truncated artifact.
	if err == nil {
		if werr := p.stdinError(); werr != nil {
			err = fmt.Errorf("failed to feed input data: %w", werr)
		}
	}

	if err != nil && p.stderrBuf.String() != "" {
		return &ProcessError{
			Err:    err,
			Stderr: p.stderrBuf.String(),
		}
	}

	return err
}
