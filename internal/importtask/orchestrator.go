package importtask

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/semaphore"

	"testplan/internal/api"
	"testplan/internal/reconciler"
	"testplan/internal/remote"
	"testplan/internal/testtree"
	"testplan/internal/version"
	"testplan/pkg/logging"
)

// DefaultMaxConcurrent bounds parallel reconciliations when Options leaves it unset.
const DefaultMaxConcurrent = 4

// Options configures an Orchestrator.
type Options struct {
	// MaxConcurrent is the number of imports that may reconcile at once
	// across all projects.
	MaxConcurrent int64
	Clock         Clock
	Metrics       *Metrics
}

// Orchestrator accepts import requests, runs them in the background and
// answers status queries. Imports of the same project never overlap.
type Orchestrator struct {
	registry *Registry
	policy   *reconciler.Policy
	factory  remote.Factory
	locks    *reconciler.ProjectLocks
	slots    *semaphore.Weighted
	metrics  *Metrics

	wg sync.WaitGroup
}

// job is a validated request ready to run.
type job struct {
	id      string
	project string
	version version.SemanticVersion
	token   string
	tree    *testtree.Tree
}

// New creates an Orchestrator. factory builds the gateway for each request's
// credential.
func New(policy *reconciler.Policy, factory remote.Factory, opts Options) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	return &Orchestrator{
		registry: NewRegistry(opts.Clock),
		policy:   policy,
		factory:  factory,
		locks:    reconciler.NewProjectLocks(),
		slots:    semaphore.NewWeighted(opts.MaxConcurrent),
		metrics:  opts.Metrics,
	}
}

// Submit validates req, registers a pending task and schedules it. It never
// talks to the remote service. Validation failures wrap api.ErrInvalidRequest
// and register no task.
func (o *Orchestrator) Submit(ctx context.Context, req api.ImportRequest) (api.ImportAccepted, error) {
	if err := ctx.Err(); err != nil {
		return api.ImportAccepted{}, err
	}

	j, err := prepare(req)
	if err != nil {
		logging.Debug("Orchestrator", "Rejected import of %q: %v", req.ProjectName, err)
		return api.ImportAccepted{}, err
	}

	j.id = o.registry.Create(j.project, j.version.String())
	o.metrics.taskSubmitted()

	o.wg.Add(1)
	go o.run(context.WithoutCancel(ctx), j)

	logging.Info("Orchestrator", "Accepted import %s: %s v%s (%d scenarios)",
		j.id, j.project, j.version, j.tree.ScenarioCount())
	return api.ImportAccepted{
		TaskID:  j.id,
		Status:  api.TaskPending,
		Message: fmt.Sprintf("Import of %s v%s scheduled", j.project, j.version),
	}, nil
}

func prepare(req api.ImportRequest) (*job, error) {
	if err := ValidateProjectName(req.ProjectName); err != nil {
		return nil, err
	}
	v, err := version.Parse(req.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", api.ErrInvalidRequest, err)
	}
	if _, err := remote.ParseCredential(req.Token); err != nil {
		return nil, err
	}
	tree, err := testtree.Decode(req.Content)
	if err != nil {
		return nil, err
	}
	return &job{
		project: req.ProjectName,
		version: v,
		token:   req.Token,
		tree:    tree,
	}, nil
}

// run drives one task to a terminal state.
func (o *Orchestrator) run(ctx context.Context, j *job) {
	defer o.wg.Done()

	started := false
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Orchestrator", fmt.Errorf("panic: %v", r), "Import %s crashed\n%s", j.id, debug.Stack())
			o.finish(j.id, started, api.ImportResult{}, fmt.Errorf("internal error: %v", r))
		}
	}()

	unlock, err := o.locks.Lock(ctx, j.project)
	if err != nil {
		o.finish(j.id, started, api.ImportResult{}, fmt.Errorf("waiting for project %s: %w", j.project, err))
		return
	}
	defer unlock()

	if err := o.slots.Acquire(ctx, 1); err != nil {
		o.finish(j.id, started, api.ImportResult{}, fmt.Errorf("waiting for an import slot: %w", err))
		return
	}
	defer o.slots.Release(1)

	if err := o.registry.MarkRunning(j.id); err != nil {
		logging.Error("Orchestrator", err, "Cannot start import %s", j.id)
		return
	}
	started = true
	o.metrics.taskStarted()

	sink := &taskSink{registry: o.registry, id: j.id}
	sink.Logf("Starting import of %s v%s", j.project, j.version)

	gw, err := o.factory(j.token)
	if err != nil {
		o.finish(j.id, started, api.ImportResult{}, fmt.Errorf("connecting to remote service: %w", err))
		return
	}

	result, err := o.policy.Reconcile(ctx, gw, reconciler.Request{
		Project: j.project,
		Version: j.version,
		Tree:    j.tree,
	}, sink)
	o.finish(j.id, started, result, err)
}

func (o *Orchestrator) finish(id string, started bool, result api.ImportResult, err error) {
	if err != nil {
		if ferr := o.registry.Fail(id, err.Error()); ferr != nil {
			logging.Warn("Orchestrator", "Cannot mark import %s failed: %v", id, ferr)
			return
		}
		o.metrics.taskFinished(api.TaskFailed, started)
		logging.Error("Orchestrator", err, "Import %s failed", id)
		return
	}

	if cerr := o.registry.Complete(id, result); cerr != nil {
		logging.Warn("Orchestrator", "Cannot complete import %s: %v", id, cerr)
		return
	}
	o.metrics.taskFinished(api.TaskCompleted, started)
	logging.Info("Orchestrator", "Import %s finished with %s: %d created, %d errors",
		id, result.Status, result.Created, result.Errors)
}

// Status returns a snapshot of one task.
func (o *Orchestrator) Status(id string) (api.ImportStatus, error) {
	return o.registry.Get(id)
}

// List returns task snapshots, newest first.
func (o *Orchestrator) List(filter ListFilter) api.ListImportsResponse {
	return o.registry.List(filter)
}

// Wait blocks until every scheduled import has finished or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
