package importtask

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testplan/internal/api"
	"testplan/internal/reconciler"
	"testplan/internal/remote"
	"testplan/internal/testing/mock"
	"testplan/internal/version"
)

const demoContent = `{
  "name": "Demo",
  "features": [{
    "name": "Login",
    "scenarios": [
      {"name": "Valid login", "steps": [{"keyword": "When", "text": "user logs in"}]},
      {"name": "Invalid login", "steps": [{"keyword": "When", "text": "user mistypes"}]}
    ]
  }]
}`

func demoRequest(project, v string) api.ImportRequest {
	return api.ImportRequest{
		ProjectName: project,
		Version:     v,
		Token:       ":pat-token",
		Content:     json.RawMessage(demoContent),
	}
}

func newTestOrchestrator(t *testing.T, factory remote.Factory, opts Options) *Orchestrator {
	t.Helper()
	policy, err := reconciler.NewPolicy(reconciler.Options{})
	require.NoError(t, err)
	return New(policy, factory, opts)
}

func waitAll(t *testing.T, o *Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, o.Wait(ctx))
}

func TestOrchestrator_FirstImport(t *testing.T) {
	gw := mock.NewGateway()
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, api.TaskPending, accepted.Status)
	assert.NotEmpty(t, accepted.TaskID)

	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	require.NotNil(t, st.Result)
	assert.Equal(t, api.ResultSuccess, st.Result.Status)
	assert.Equal(t, 2, st.Result.Created)
	assert.Equal(t, 0, st.Result.Errors)
	assert.Equal(t, "Demo Test Plan v1.0.0", st.Result.TestPlanName)

	require.NotEmpty(t, st.Logs)
	stamp := regexp.MustCompile(`^\[\d{2}:\d{2}:\d{2}\] `)
	for _, line := range st.Logs {
		assert.Regexp(t, stamp, line)
	}

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.0", plans[0].Name)
}

func TestOrchestrator_PatchReplacesPlan(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.1"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, st.Status)
	assert.Equal(t, string(version.Patch), st.Result.Transition)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.1", plans[0].Name)
}

func TestOrchestrator_ConcurrentSameProjectImportsAreSerialized(t *testing.T) {
	gw := mock.NewGateway()
	gw.Delay = 5 * time.Millisecond
	o := newTestOrchestrator(t, gw.Factory(), Options{MaxConcurrent: 8})

	const n = 4
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
			assert.NoError(t, err)
			ids[i] = accepted.TaskID
		}(i)
	}
	wg.Wait()
	waitAll(t, o)

	for _, id := range ids {
		st, err := o.Status(id)
		require.NoError(t, err)
		assert.Equal(t, api.TaskCompleted, st.Status)
	}

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.0", plans[0].Name)
}

func TestOrchestrator_DifferentProjectsRunIndependently(t *testing.T) {
	gw := mock.NewGateway()
	o := newTestOrchestrator(t, gw.Factory(), Options{MaxConcurrent: 2})

	_, err := o.Submit(context.Background(), demoRequest("Alpha", "1.0.0"))
	require.NoError(t, err)
	_, err = o.Submit(context.Background(), demoRequest("Beta", "2.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	assert.Len(t, gw.Plans("Alpha"), 1)
	assert.Len(t, gw.Plans("Beta"), 1)
	assert.Equal(t, 2, o.List(ListFilter{Status: api.TaskCompleted}).Total)
}

func TestOrchestrator_SubmitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *api.ImportRequest)
		is     error
	}{
		{"empty project", func(r *api.ImportRequest) { r.ProjectName = "" }, api.ErrInvalidRequest},
		{"forbidden character", func(r *api.ImportRequest) { r.ProjectName = "De/mo" }, api.ErrInvalidRequest},
		{"malformed version", func(r *api.ImportRequest) { r.Version = "1.0" }, version.ErrInvalidVersion},
		{"version also invalid request", func(r *api.ImportRequest) { r.Version = "x.y.z" }, api.ErrInvalidRequest},
		{"empty token", func(r *api.ImportRequest) { r.Token = "" }, api.ErrInvalidRequest},
		{"missing content", func(r *api.ImportRequest) { r.Content = nil }, api.ErrInvalidRequest},
		{"no features", func(r *api.ImportRequest) { r.Content = json.RawMessage(`{"features": []}`) }, api.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := mock.NewGateway()
			o := newTestOrchestrator(t, gw.Factory(), Options{})

			req := demoRequest("Demo", "1.0.0")
			tt.mutate(&req)

			_, err := o.Submit(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			assert.Equal(t, 0, o.List(ListFilter{}).Total)
			assert.Empty(t, gw.Calls())
		})
	}
}

func TestOrchestrator_StatusUnknownTask(t *testing.T) {
	o := newTestOrchestrator(t, mock.NewGateway().Factory(), Options{})

	_, err := o.Status("does-not-exist")
	assert.True(t, api.IsNotFound(err))
}

func TestOrchestrator_RegressionFailsTask(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v2.0.0")
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.5.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskFailed, st.Status)
	assert.Contains(t, st.Error, version.ErrVersionRegression.Error())
	assert.Nil(t, st.Result)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v2.0.0", plans[0].Name)
}

func TestOrchestrator_RemoteFailureFailsTask(t *testing.T) {
	gw := mock.NewGateway()
	gw.FailList = errors.Join(api.ErrRemoteUnavailable, mock.ErrInjected)
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskFailed, st.Status)
	assert.Contains(t, st.Error, "resolving current test plan")
}

func TestOrchestrator_PartialSuccess(t *testing.T) {
	gw := mock.NewGateway()
	gw.FailCaseTitles["Invalid login"] = true
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, st.Status)
	assert.Equal(t, api.ResultPartialSuccess, st.Result.Status)
	assert.Equal(t, 1, st.Result.Created)
	assert.Equal(t, 1, st.Result.Errors)
	require.Len(t, st.Result.Failures, 1)
	assert.Equal(t, "Invalid login", st.Result.Failures[0].Scenario)
}

func TestOrchestrator_FactoryErrorFailsTask(t *testing.T) {
	factory := func(string) (remote.Gateway, error) {
		return nil, errors.New("no route to collection")
	}
	o := newTestOrchestrator(t, factory, Options{})

	accepted, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskFailed, st.Status)
	assert.Contains(t, st.Error, "no route to collection")
}

func TestOrchestrator_PanicFailsTaskAndReleasesProject(t *testing.T) {
	gw := mock.NewGateway()
	var calls int
	var mu sync.Mutex
	factory := func(token string) (remote.Gateway, error) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			panic("gateway exploded")
		}
		return gw, nil
	}
	o := newTestOrchestrator(t, factory, Options{MaxConcurrent: 1})

	crashed, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err := o.Status(crashed.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskFailed, st.Status)
	assert.Contains(t, st.Error, "gateway exploded")

	next, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	st, err = o.Status(next.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, st.Status)
}

func TestOrchestrator_SubmitSurvivesCallerCancellation(t *testing.T) {
	gw := mock.NewGateway()
	gw.Delay = 10 * time.Millisecond
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	accepted, err := o.Submit(ctx, demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	cancel()
	waitAll(t, o)

	st, err := o.Status(accepted.TaskID)
	require.NoError(t, err)
	assert.Equal(t, api.TaskCompleted, st.Status)
}

func TestOrchestrator_WaitHonoursContext(t *testing.T) {
	gw := mock.NewGateway()
	gw.Delay = 200 * time.Millisecond
	o := newTestOrchestrator(t, gw.Factory(), Options{})

	_, err := o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, o.Wait(ctx), context.DeadlineExceeded)

	waitAll(t, o)
}

func TestOrchestrator_Metrics(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v3.0.0")
	metrics := NewMetrics(prometheus.NewRegistry())
	o := newTestOrchestrator(t, gw.Factory(), Options{Metrics: metrics})

	_, err := o.Submit(context.Background(), demoRequest("Demo", "3.1.0"))
	require.NoError(t, err)
	_, err = o.Submit(context.Background(), demoRequest("Other", "1.0.0"))
	require.NoError(t, err)
	_, err = o.Submit(context.Background(), demoRequest("Demo", "1.0.0"))
	require.NoError(t, err)
	waitAll(t, o)

	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.submitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.finished.WithLabelValues(string(api.TaskCompleted))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.finished.WithLabelValues(string(api.TaskFailed))))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.running))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.queued))
}

func TestValidateProjectName(t *testing.T) {
	assert.NoError(t, ValidateProjectName("Demo Project"))
	for _, bad := range []string{"", "   ", " Demo", "a<b", `a\b`, "a?b", strings.Repeat("a", 101)} {
		err := ValidateProjectName(bad)
		assert.ErrorIs(t, err, api.ErrInvalidRequest, "name %q", bad)
	}
}
