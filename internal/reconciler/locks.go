package reconciler

import (
	"context"
	"strings"
	"sync"
)

// ProjectLocks is a keyed mutex that lets at most one reconciliation per
// project run at a time. Keys are case-insensitive because the remote service
// treats project names that way.
type ProjectLocks struct {
	mu sync.Mutex

	// held tracks projects currently being reconciled
	held map[string]bool

	// waiting counts goroutines blocked per project
	waiting map[string]int

	// cond is broadcast whenever a lock is released
	cond *sync.Cond
}

// NewProjectLocks creates an empty lock set.
func NewProjectLocks() *ProjectLocks {
	l := &ProjectLocks{
		held:    make(map[string]bool),
		waiting: make(map[string]int),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func projectKey(project string) string {
	return strings.ToLower(strings.TrimSpace(project))
}

// Lock blocks until the project is free or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *ProjectLocks) Lock(ctx context.Context, project string) (func(), error) {
	key := projectKey(project)

	l.mu.Lock()
	defer l.mu.Unlock()

	for l.held[key] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.waiting[key]++

		// Wake the wait when the context is cancelled. Closing done lets the
		// helper exit when we are woken up by an Unlock instead.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				l.mu.Lock()
				l.cond.Broadcast()
				l.mu.Unlock()
			case <-done:
			}
		}()

		l.cond.Wait()
		close(done)

		l.waiting[key]--
		if l.waiting[key] == 0 {
			delete(l.waiting, key)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.held[key] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.cond.Broadcast()
			l.mu.Unlock()
		})
	}, nil
}

// IsLocked reports whether a reconciliation of project is in progress.
func (l *ProjectLocks) IsLocked(project string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[projectKey(project)]
}

// Waiting returns the number of goroutines queued behind project.
func (l *ProjectLocks) Waiting(project string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiting[projectKey(project)]
}
