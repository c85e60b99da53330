package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestProjectLocks_SerializesSameProject(t *testing.T) {
	l := NewProjectLocks()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			project := "Demo"
			if i%2 == 0 {
				project = "DEMO"
			}
			unlock, err := l.Lock(context.Background(), project)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			unlock()
		}(i)
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("expected at most one holder, saw %d", maxActive)
	}
	if l.IsLocked("demo") {
		t.Error("expected lock to be released")
	}
}

func TestProjectLocks_DifferentProjectsDoNotBlock(t *testing.T) {
	l := NewProjectLocks()

	unlockA, err := l.Lock(context.Background(), "A")
	if err != nil {
		t.Fatal(err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "B")
	if err != nil {
		t.Fatalf("expected B to be acquired, got %v", err)
	}
	unlockB()
}

func TestProjectLocks_ContextCancellation(t *testing.T) {
	l := NewProjectLocks()

	unlock, err := l.Lock(context.Background(), "Demo")
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "Demo")
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if w := l.Waiting("Demo"); w != 0 {
		t.Errorf("expected no waiters after cancellation, got %d", w)
	}
}

func TestProjectLocks_UnlockIsIdempotent(t *testing.T) {
	l := NewProjectLocks()

	unlock, err := l.Lock(context.Background(), "Demo")
	if err != nil {
		t.Fatal(err)
	}
	unlock()

	other, err := l.Lock(context.Background(), "Demo")
	if err != nil {
		t.Fatal(err)
	}
	unlock() // must not release the second holder
	if !l.IsLocked("Demo") {
		t.Error("second holder lost its lock")
	}
	other()
}
