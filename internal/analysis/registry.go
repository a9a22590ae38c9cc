package analysis

import (
	"errors"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrUnknownTask is returned when a caller references a task id that is not
// registered or has expired from retention.
var ErrUnknownTask = errors.New("unknown task")

// Registry is the keyed store of analysis tasks. Tasks are retained for a
// bounded period after registration so clients can poll terminal state, then
// expire.
type Registry struct {
	tasks *gocache.Cache
}

// NewRegistry creates a registry with the given retention period.
func NewRegistry(retention time.Duration) *Registry {
	return &Registry{
		tasks: gocache.New(retention, retention/4),
	}
}

// Add registers a task under its id.
func (r *Registry) Add(task *Task) {
	r.tasks.Set(task.ID, task, gocache.DefaultExpiration)
}

// Get returns the task with the given id.
func (r *Registry) Get(id string) (*Task, error) {
	v, ok := r.tasks.Get(id)
	if !ok {
		return nil, ErrUnknownTask
	}
	return v.(*Task), nil
}
