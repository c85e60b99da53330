package reconciler

import (
	"context"
	"fmt"
	"time"

	"testplan/internal/api"
	"testplan/internal/remote"
	"testplan/internal/template"
	"testplan/internal/testtree"
	"testplan/internal/version"
	"testplan/pkg/logging"
)

// Action is what a reconciliation does with the existing plans.
type Action string

const (
	// ActionCreateNew adds a plan and leaves existing plans untouched.
	ActionCreateNew Action = "create_new"
	// ActionDeleteThenCreate replaces the plans of the current version.
	ActionDeleteThenCreate Action = "delete_then_create"
)

// Decision is the read-only outcome of plan discovery and classification.
type Decision struct {
	Project        string
	Version        version.SemanticVersion
	Current        *remote.TestPlanRef
	CurrentVersion *version.SemanticVersion
	Transition     version.Transition
	Action         Action
	// ToDelete lists the plans removed before creation; empty for ActionCreateNew.
	ToDelete     []remote.TestPlanRef
	NewPlanTitle string
}

// Request is one reconciliation input.
type Request struct {
	Project string
	Version version.SemanticVersion
	Tree    *testtree.Tree
}

// ProgressSink receives log lines and progress updates while a
// reconciliation runs.
type ProgressSink interface {
	Logf(format string, args ...interface{})
	SetProgress(percent int)
}

// Options configures a Policy.
type Options struct {
	// CaseDescriptionTemplate renders System.Description of each test case.
	CaseDescriptionTemplate string
	// PlanDescriptionTemplate renders the description of new plans.
	PlanDescriptionTemplate string
	Metrics                 *Metrics
}

// Policy decides and executes reconciliations. It is stateless apart from
// parsed templates and safe for concurrent use.
type Policy struct {
	engine       *template.Engine
	caseTemplate string
	planTemplate string
	metrics      *Metrics
}

// NewPolicy creates a Policy. Empty templates fall back to the defaults.
func NewPolicy(opts Options) (*Policy, error) {
	p := &Policy{
		engine:       template.New(),
		caseTemplate: opts.CaseDescriptionTemplate,
		planTemplate: opts.PlanDescriptionTemplate,
		metrics:      opts.Metrics,
	}
	if p.caseTemplate == "" {
		p.caseTemplate = template.DefaultCaseDescription
	}
	if p.planTemplate == "" {
		p.planTemplate = template.DefaultPlanDescription
	}
	if err := p.engine.Validate(p.caseTemplate); err != nil {
		return nil, fmt.Errorf("case description template: %w", err)
	}
	if err := p.engine.Validate(p.planTemplate); err != nil {
		return nil, fmt.Errorf("plan description template: %w", err)
	}
	return p, nil
}

// Decide lists the project's plans and classifies v against the current one.
// It performs no writes.
func (p *Policy) Decide(ctx context.Context, gw remote.Gateway, project string, v version.SemanticVersion) (Decision, error) {
	plans, err := gw.ListPlans(ctx, project)
	if err != nil {
		return Decision{}, fmt.Errorf("resolving current test plan: %w", err)
	}

	current, currentVer, siblings := FindCurrentPlan(project, plans)
	transition, err := version.Classify(currentVer, v)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Project:        project,
		Version:        v,
		Current:        current,
		CurrentVersion: currentVer,
		Transition:     transition,
		NewPlanTitle:   PlanTitle(project, v),
	}
	if transition.CreatesNewPlan() {
		d.Action = ActionCreateNew
	} else {
		d.Action = ActionDeleteThenCreate
		d.ToDelete = siblings
	}

	logging.Debug("Reconciler", "Project %s: %d plans, current %v, transition %s, action %s",
		project, len(plans), currentVer, transition, d.Action)
	return d, nil
}

// Reconcile applies the tree in req to the remote service. Only failures to
// resolve, delete or create the plan are returned as errors; suite and case
// failures are counted in the result.
func (p *Policy) Reconcile(ctx context.Context, gw remote.Gateway, req Request, sink ProgressSink) (api.ImportResult, error) {
	started := time.Now()
	result, err := p.reconcile(ctx, gw, req, sink)
	if err != nil {
		p.metrics.recordReconcile("failed", started)
		return api.ImportResult{}, err
	}
	p.metrics.recordReconcile(result.Status, started)
	return result, nil
}

func (p *Policy) reconcile(ctx context.Context, gw remote.Gateway, req Request, sink ProgressSink) (api.ImportResult, error) {
	sink.Logf("Resolving current test plan of project %q", req.Project)
	d, err := p.Decide(ctx, gw, req.Project, req.Version)
	if err != nil {
		return api.ImportResult{}, err
	}
	p.metrics.recordDecision(d)

	if d.Current == nil {
		sink.Logf("No existing test plan found, treating v%s as a first import", req.Version)
	} else {
		sink.Logf("Current test plan is %q (v%s), transition %s", d.Current.Name, d.CurrentVersion, d.Transition)
	}

	for _, old := range d.ToDelete {
		sink.Logf("Deleting test plan %q", old.Name)
		err := gw.DeletePlan(ctx, old)
		p.metrics.recordPlanOp("delete", err)
		if err != nil {
			return api.ImportResult{}, fmt.Errorf("deleting test plan %q: %w", old.Name, err)
		}
	}

	baseCtx := map[string]interface{}{
		"Project":       req.Project,
		"Version":       req.Version.String(),
		"Transition":    string(d.Transition),
		"TreeName":      req.Tree.Name,
		"ScenarioCount": req.Tree.ScenarioCount(),
	}
	planDesc, err := p.engine.Render(p.planTemplate, baseCtx)
	if err != nil {
		return api.ImportResult{}, fmt.Errorf("rendering plan description: %w", err)
	}

	plan, err := gw.CreatePlan(ctx, req.Project, d.NewPlanTitle, planDesc)
	p.metrics.recordPlanOp("create", err)
	if err != nil {
		return api.ImportResult{}, fmt.Errorf("creating test plan %q: %w", d.NewPlanTitle, err)
	}
	sink.Logf("Created test plan %q (id %d)", plan.Name, plan.ID)

	result := api.ImportResult{
		Transition:   string(d.Transition),
		TestPlanID:   plan.ID,
		TestPlanName: plan.Name,
	}

	total := req.Tree.ScenarioCount()
	done := 0
	advance := func() {
		done++
		sink.SetProgress(done * 100 / total)
	}
	fail := func(feature, scenario string, err error) {
		f := api.ScenarioFailure{Feature: feature, Scenario: scenario, Reason: err.Error()}
		result.Errors++
		result.Failures = append(result.Failures, f)
		sink.Logf("Failed: %s", f)
	}

	for _, feature := range req.Tree.Features {
		title := SuiteTitle(feature.Name, req.Version)
		suiteID, err := gw.CreateSuite(ctx, plan, title)
		if err != nil {
			logging.Warn("Reconciler", "Suite %q of plan %d failed: %v", title, plan.ID, err)
			for _, s := range feature.Scenarios {
				fail(feature.Name, s.Name, fmt.Errorf("suite %q could not be created: %w", title, err))
				advance()
			}
			continue
		}
		result.SuiteIDs = append(result.SuiteIDs, suiteID)
		sink.Logf("Created suite %q (id %d)", title, suiteID)

		for _, s := range feature.Scenarios {
			tc, err := p.buildCase(feature, s, baseCtx)
			if err == nil {
				_, err = gw.CreateCase(ctx, plan, suiteID, tc)
			}
			p.metrics.recordCase(err)
			if err != nil {
				fail(feature.Name, s.Name, err)
			} else {
				result.Created++
				sink.Logf("Created test case %q", s.Name)
			}
			advance()
		}
	}

	sink.SetProgress(100)
	result.Status = api.ResultSuccess
	if result.Errors > 0 {
		result.Status = api.ResultPartialSuccess
	}
	sink.Logf("Import finished: %d created, %d updated, %d errors", result.Created, result.Updated, result.Errors)
	return result, nil
}

func (p *Policy) buildCase(f testtree.Feature, s testtree.Scenario, base map[string]interface{}) (remote.TestCase, error) {
	steps, err := testtree.StepsXML(f.StepLines(s))
	if err != nil {
		return remote.TestCase{}, fmt.Errorf("rendering steps: %w", err)
	}

	desc, err := p.engine.Render(p.caseTemplate, template.MergeContexts(base, map[string]interface{}{
		"Feature":     f.Name,
		"Scenario":    s.Name,
		"Description": s.Description,
		"Outline":     s.IsOutline(),
	}))
	if err != nil {
		return remote.TestCase{}, fmt.Errorf("rendering description: %w", err)
	}

	tc := remote.TestCase{Title: s.Name, Description: desc, StepsXML: steps}
	if table := s.Table(); s.IsOutline() && table != nil {
		tc.Description += "\n\n" + testtree.ExamplesHTML(table)
		if tc.ParametersXML, err = testtree.ParametersXML(table); err != nil {
			return remote.TestCase{}, fmt.Errorf("rendering parameters: %w", err)
		}
	}
	return tc, nil
}
