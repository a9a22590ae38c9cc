package analysis

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bakerbass/GuitarChops/internal/segment"
)

// ErrAnalysisCanceled indicates the analysis was canceled by the user
var ErrAnalysisCanceled = errors.New("analysis canceled")

// ErrUnknownFile is returned when a caller references a file id that has no
// stored analysis results.
var ErrUnknownFile = errors.New("unknown file")

// ErrUnknownSegment is returned when a caller references a segment id absent
// from a result set.
var ErrUnknownSegment = errors.New("unknown segment")

// Status is the lifecycle state of an analysis task. The state machine is
// pending → running → {completed, failed}; terminal states never transition.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// ProgressUpdate is one message on a task's observer channel.
type ProgressUpdate struct {
	TaskID   string `json:"task_id"`
	Progress int    `json:"progress"`
	Status   Status `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Task tracks one asynchronous analysis run: its state, monotone progress,
// cancellation flag and, once completed, the aggregated segment set.
type Task struct {
	ID          string
	FileID      string
	FilePath    string
	Fingerprint segment.Fingerprint
	Detectors   []segment.DetectorType
	CreatedAt   time.Time

	mu         sync.RWMutex
	status     Status
	progress   int
	errMsg     string
	result     segment.Set
	canceled   bool
	cancelWhy  string
	observer   chan ProgressUpdate
	finishedAt time.Time
}

// NewTask creates a pending task for the given file and detector selection.
func NewTask(fileID, filePath string, fingerprint segment.Fingerprint, detectors []segment.DetectorType) *Task {
	return &Task{
		ID:          uuid.New().String(),
		FileID:      fileID,
		FilePath:    filePath,
		Fingerprint: fingerprint,
		Detectors:   detectors,
		CreatedAt:   time.Now(),
		status:      StatusPending,
	}
}

// Start transitions pending → running. Any other starting state is an error.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusPending {
		return fmt.Errorf("cannot start task in state %q", t.status)
	}
	t.status = StatusRunning
	t.publishLocked()
	return nil
}

// SetProgress advances progress while running. Progress never decreases and
// is capped at 99 until the task completes; only Complete sets 100.
func (t *Task) SetProgress(p int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	if p > 99 {
		p = 99
	}
	if p <= t.progress {
		return
	}
	t.progress = p
	t.publishLocked()
}

// Complete transitions running → completed with the final segment set.
func (t *Task) Complete(result segment.Set) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusRunning {
		return
	}
	t.status = StatusCompleted
	t.progress = 100
	t.result = result
	t.finishedAt = time.Now()
	t.publishLocked()
	t.closeObserverLocked()
}

// Fail transitions running (or pending) → failed with a captured message.
// No partial result is retained.
func (t *Task) Fail(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCompleted || t.status == StatusFailed {
		return
	}
	t.status = StatusFailed
	t.errMsg = err.Error()
	t.result = nil
	t.finishedAt = time.Now()
	t.publishLocked()
	t.closeObserverLocked()
}

// Cancel marks the task for cancellation. The pipeline honors the flag at the
// next chunk boundary and fails the task with the given reason.
func (t *Task) Cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == StatusCompleted || t.status == StatusFailed {
		return
	}
	t.canceled = true
	t.cancelWhy = reason
}

// Canceled reports the cancellation flag and its reason.
func (t *Task) Canceled() (bool, string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.canceled, t.cancelWhy
}

// Status returns the current lifecycle state.
func (t *Task) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Progress returns the current progress in percent.
func (t *Task) Progress() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Err returns the failure message, empty unless failed.
func (t *Task) Err() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.errMsg
}

// Result returns the aggregated segment set. The boolean is false unless the
// task completed.
func (t *Task) Result() (segment.Set, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.status != StatusCompleted {
		return nil, false
	}
	return t.result, true
}

// Observe attaches the single observer channel and returns it. A second call
// replaces the previous observer; the channel is closed on the terminal
// transition. A task already terminal yields a closed channel carrying one
// final snapshot.
func (t *Task) Observe() <-chan ProgressUpdate {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeObserverLocked()
	ch := make(chan ProgressUpdate, 16)
	t.observer = ch
	t.publishLocked()
	if t.status == StatusCompleted || t.status == StatusFailed {
		t.closeObserverLocked()
	}
	return ch
}

// publishLocked sends the current snapshot without ever blocking the
// pipeline: a full or absent observer simply misses the update.
func (t *Task) publishLocked() {
	if t.observer == nil {
		return
	}
	update := ProgressUpdate{
		TaskID:   t.ID,
		Progress: t.progress,
		Status:   t.status,
		Error:    t.errMsg,
	}
	select {
	case t.observer <- update:
	default:
	}
}

func (t *Task) closeObserverLocked() {
	if t.observer != nil {
		close(t.observer)
		t.observer = nil
	}
}
