package importtask

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"testplan/internal/api"
	"testplan/pkg/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// ErrInvalidTransition is returned when a task is moved out of a state it
// cannot leave, e.g. completing a task that already failed.
var ErrInvalidTransition = errors.New("invalid task state transition")

// ListFilter narrows Registry.List.
type ListFilter struct {
	Status  api.TaskStatus
	Project string
	Limit   int
	Offset  int
}

// Registry owns every import task. All mutations happen in a single critical
// section and readers always receive copies.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	clock Clock
}

// NewRegistry creates an empty registry. A nil clock uses wall time.
func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = systemClock{}
	}
	return &Registry{
		tasks: make(map[string]*Task),
		clock: clock,
	}
}

// Create registers a pending task and returns its id.
func (r *Registry) Create(project, version string) string {
	now := r.clock.Now()
	t := &Task{
		ID:        uuid.New().String(),
		Project:   project,
		Version:   version,
		Status:    api.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()

	logging.Debug("Orchestrator", "Registered import task %s for %s v%s", t.ID, project, version)
	return t.ID
}

// MarkRunning moves a pending task to running.
func (r *Registry) MarkRunning(id string) error {
	return r.update(id, func(t *Task) error {
		if t.Status != api.TaskPending {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, api.TaskRunning)
		}
		t.Status = api.TaskRunning
		return nil
	})
}

// AppendLog adds a timestamped line. Only running tasks accept log lines.
func (r *Registry) AppendLog(id, message string) error {
	return r.update(id, func(t *Task) error {
		if t.Status != api.TaskRunning {
			return fmt.Errorf("%w: log on %s task", ErrInvalidTransition, t.Status)
		}
		t.Logs = append(t.Logs, LogEntry{Time: r.clock.Now(), Message: message})
		return nil
	})
}

// SetProgress raises the progress of a running task. Values are clamped to
// 0..100 and never lower the current progress.
func (r *Registry) SetProgress(id string, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return r.update(id, func(t *Task) error {
		if t.Status != api.TaskRunning {
			return fmt.Errorf("%w: progress on %s task", ErrInvalidTransition, t.Status)
		}
		if percent > t.Progress {
			t.Progress = percent
		}
		return nil
	})
}

// Complete stores the result of a running task.
func (r *Registry) Complete(id string, result api.ImportResult) error {
	return r.update(id, func(t *Task) error {
		if t.Status != api.TaskRunning {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, api.TaskCompleted)
		}
		t.Status = api.TaskCompleted
		t.Progress = 100
		t.Result = &result
		return nil
	})
}

// Fail records a failure. Pending tasks may fail too, for runs that never
// got to start.
func (r *Registry) Fail(id, message string) error {
	return r.update(id, func(t *Task) error {
		if t.Status.IsTerminal() {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, api.TaskFailed)
		}
		t.Status = api.TaskFailed
		t.Error = message
		return nil
	})
}

func (r *Registry) update(id string, fn func(t *Task) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return api.NewTaskNotFoundError(id)
	}
	if err := fn(t); err != nil {
		return err
	}
	t.UpdatedAt = r.clock.Now()
	return nil
}

// Get returns a snapshot of the task including its log.
func (r *Registry) Get(id string) (api.ImportStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok {
		return api.ImportStatus{}, api.NewTaskNotFoundError(id)
	}
	return t.snapshot(true), nil
}

// List returns task snapshots without logs, newest first.
func (r *Registry) List(filter ListFilter) api.ListImportsResponse {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	var matched []*Task
	for _, t := range r.tasks {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Project != "" && projectKey(t.Project) != projectKey(filter.Project) {
			continue
		}
		matched = append(matched, t)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	page := []api.ImportStatus{}
	for i := offset; i < total && i < offset+limit; i++ {
		page = append(page, matched[i].snapshot(false))
	}
	r.mu.RUnlock()

	return api.ListImportsResponse{
		Tasks:   page,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+len(page) < total,
	}
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tasks)
}
