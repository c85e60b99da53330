package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testplan/internal/api"
	"testplan/internal/testing/mock"
	"testplan/internal/testtree"
	"testplan/internal/version"
)

type recordingSink struct {
	mu       sync.Mutex
	logs     []string
	progress []int
}

func (s *recordingSink) Logf(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, fmt.Sprintf(format, args...))
}

func (s *recordingSink) SetProgress(p int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
}

func demoTree(scenarios ...string) *testtree.Tree {
	f := testtree.Feature{Name: "Login"}
	for _, name := range scenarios {
		f.Scenarios = append(f.Scenarios, testtree.Scenario{
			Name:  name,
			Steps: []testtree.Step{{Keyword: "When", Text: name + " happens"}},
		})
	}
	return &testtree.Tree{Name: "Demo", Features: []testtree.Feature{f}}
}

func newPolicy(t *testing.T) *Policy {
	t.Helper()
	p, err := NewPolicy(Options{})
	require.NoError(t, err)
	return p
}

func TestReconcile_FirstImportCreatesPlan(t *testing.T) {
	gw := mock.NewGateway()
	sink := &recordingSink{}

	result, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo",
		Version: version.MustParse("1.0.0"),
		Tree:    demoTree("Valid login", "Invalid login"),
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Errors)
	assert.Equal(t, api.ResultSuccess, result.Status)
	assert.Equal(t, string(version.Major), result.Transition)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.0", plans[0].Name)
	assert.Equal(t, result.TestPlanID, plans[0].ID)
	require.Len(t, plans[0].Suites, 1)
	assert.Equal(t, "Login - v1.0.0", plans[0].Suites[0].Title)
	require.Len(t, plans[0].Suites[0].Cases, 2)
	assert.Equal(t, "Valid login", plans[0].Suites[0].Cases[0].Title)
	assert.Equal(t, "Created by automation script - Version 1.0.0", plans[0].Suites[0].Cases[0].Description)
	assert.Contains(t, plans[0].Suites[0].Cases[0].StepsXML, "When Valid login happens")

	assert.Equal(t, []int{50, 100, 100}, sink.progress)
}

func TestReconcile_PatchDeletesAndRecreates(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")

	result, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo",
		Version: version.MustParse("1.0.1"),
		Tree:    demoTree("Only new"),
	}, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, string(version.Patch), result.Transition)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.1", plans[0].Name)
	require.Len(t, plans[0].Suites[0].Cases, 1)
	assert.Equal(t, "Only new", plans[0].Suites[0].Cases[0].Title)

	assert.Equal(t, []string{
		"ListPlans Demo",
		"DeletePlan Demo Test Plan v1.0.0",
		"CreatePlan Demo Test Plan v1.0.1",
		"CreateSuite Login - v1.0.1",
		"CreateCase Only new",
	}, gw.Calls())
}

func TestReconcile_MinorKeepsExistingPlans(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")

	_, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo",
		Version: version.MustParse("1.1.0"),
		Tree:    demoTree("a"),
	}, &recordingSink{})
	require.NoError(t, err)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 2)
	assert.Equal(t, "Demo Test Plan v1.0.0", plans[0].Name)
	assert.Equal(t, "Demo Test Plan v1.1.0", plans[1].Name)
}

func TestReconcile_SameVersionIsIdempotent(t *testing.T) {
	gw := mock.NewGateway()
	p := newPolicy(t)
	req := Request{Project: "Demo", Version: version.MustParse("2.0.0"), Tree: demoTree("a", "b")}

	_, err := p.Reconcile(context.Background(), gw, req, &recordingSink{})
	require.NoError(t, err)
	first := gw.Plans("Demo")

	result, err := p.Reconcile(context.Background(), gw, req, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, string(version.Same), result.Transition)

	second := gw.Plans("Demo")
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Name, second[0].Name)

	titles := func(plans []mock.Plan) []string {
		var out []string
		for _, s := range plans[0].Suites {
			for _, c := range s.Cases {
				out = append(out, s.Title+"/"+c.Title+"/"+c.StepsXML)
			}
		}
		return out
	}
	assert.Equal(t, titles(first), titles(second))
}

func TestReconcile_SameVersionSweepsDuplicates(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")
	gw.SeedPlan("Demo", "Demo Test Plan v0.9.0")

	_, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo",
		Version: version.MustParse("1.0.0"),
		Tree:    demoTree("a"),
	}, &recordingSink{})
	require.NoError(t, err)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 2)
	assert.Equal(t, "Demo Test Plan v0.9.0", plans[0].Name)
	assert.Equal(t, "Demo Test Plan v1.0.0", plans[1].Name)
}

func TestReconcile_PartialFailure(t *testing.T) {
	gw := mock.NewGateway()
	gw.FailCaseTitles["b"] = true
	sink := &recordingSink{}

	result, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo",
		Version: version.MustParse("1.0.0"),
		Tree:    demoTree("a", "b", "c"),
	}, sink)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, api.ResultPartialSuccess, result.Status)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "b", result.Failures[0].Scenario)
	assert.Equal(t, 100, sink.progress[len(sink.progress)-1])
}

func TestReconcile_SuiteFailureCountsScenarios(t *testing.T) {
	gw := mock.NewGateway()
	gw.FailSuiteTitles["Login - v1.0.0"] = true
	tree := demoTree("a", "b")
	tree.Features = append(tree.Features, testtree.Feature{
		Name:      "Search",
		Scenarios: []testtree.Scenario{{Name: "c", Steps: []testtree.Step{{Keyword: "When", Text: "x"}}}},
	})

	result, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo", Version: version.MustParse("1.0.0"), Tree: tree,
	}, &recordingSink{})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Errors)
	assert.Len(t, result.SuiteIDs, 1)
}

func TestReconcile_FatalErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*mock.Gateway)
		check func(*testing.T, error)
	}{
		{
			name:  "list fails",
			setup: func(g *mock.Gateway) { g.FailList = fmt.Errorf("down: %w", api.ErrRemoteUnavailable) },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, api.ErrRemoteUnavailable) },
		},
		{
			name: "delete fails",
			setup: func(g *mock.Gateway) {
				g.SeedPlan("Demo", "Demo Test Plan v1.0.0")
				g.FailDelete = errors.New("locked")
			},
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "deleting test plan") },
		},
		{
			name:  "create fails",
			setup: func(g *mock.Gateway) { g.FailCreatePlan = errors.New("quota") },
			check: func(t *testing.T, err error) { assert.Contains(t, err.Error(), "creating test plan") },
		},
		{
			name:  "regression",
			setup: func(g *mock.Gateway) { g.SeedPlan("Demo", "Demo Test Plan v2.0.0") },
			check: func(t *testing.T, err error) { assert.ErrorIs(t, err, version.ErrVersionRegression) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := mock.NewGateway()
			tt.setup(gw)
			_, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
				Project: "Demo", Version: version.MustParse("1.0.0"), Tree: demoTree("a"),
			}, &recordingSink{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestReconcile_OutlineCarriesExamples(t *testing.T) {
	gw := mock.NewGateway()
	tree := &testtree.Tree{Features: []testtree.Feature{{
		Name: "Login",
		Scenarios: []testtree.Scenario{{
			Name:        "Params",
			Description: "Try users",
			Type:        testtree.TypeScenarioOutline,
			Steps:       []testtree.Step{{Keyword: "When", Text: "<user> logs in"}},
			Examples: &testtree.ExampleTable{
				Headers: []string{"user"},
				Rows:    []testtree.ExampleRow{{"admin"}, {"guest"}},
			},
		}},
	}}}

	result, err := newPolicy(t).Reconcile(context.Background(), gw, Request{
		Project: "Demo", Version: version.MustParse("1.0.0"), Tree: tree,
	}, &recordingSink{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	c := gw.Plans("Demo")[0].Suites[0].Cases[0]
	assert.Contains(t, c.Description, "Try users")
	assert.Contains(t, c.Description, ">guest</td>")
	assert.Contains(t, c.ParametersXML, `<parametr id="1" name="user">`)
	assert.Contains(t, c.StepsXML, "&lt;user&gt; logs in")
}

func TestDecide(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")

	d, err := newPolicy(t).Decide(context.Background(), gw, "Demo", version.MustParse("1.0.0"))
	require.NoError(t, err)
	assert.Equal(t, version.Same, d.Transition)
	assert.Equal(t, ActionDeleteThenCreate, d.Action)
	require.Len(t, d.ToDelete, 1)
	assert.Equal(t, "Demo Test Plan v1.0.0", d.NewPlanTitle)

	d, err = newPolicy(t).Decide(context.Background(), gw, "Demo", version.MustParse("3.0.0"))
	require.NoError(t, err)
	assert.Equal(t, ActionCreateNew, d.Action)
	assert.Empty(t, d.ToDelete)

	// Decide never writes.
	assert.Len(t, gw.Plans("Demo"), 1)
}

func TestNewPolicy_InvalidTemplate(t *testing.T) {
	_, err := NewPolicy(Options{CaseDescriptionTemplate: "{{ if }}"})
	assert.Error(t, err)
}

func TestReconcile_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	p, err := NewPolicy(Options{Metrics: m})
	require.NoError(t, err)

	gw := mock.NewGateway()
	gw.FailCaseTitles["b"] = true
	_, err = p.Reconcile(context.Background(), gw, Request{
		Project: "Demo", Version: version.MustParse("1.0.0"), Tree: demoTree("a", "b"),
	}, &recordingSink{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cases.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cases.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("major", "create_new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.planOps.WithLabelValues("create", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciles.WithLabelValues(api.ResultPartialSuccess)))
}
