package mock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"testplan/internal/api"
	"testplan/internal/remote"
)

// ErrInjected is returned by operations configured to fail.
var ErrInjected = errors.New("injected failure")

// Plan is the stored state of one plan.
type Plan struct {
	remote.TestPlanRef
	Description string
	Suites      []*Suite
}

// Suite is the stored state of one suite.
type Suite struct {
	ID    int
	Title string
	Cases []Case
}

// Case is the stored state of one test case.
type Case struct {
	ID int
	remote.TestCase
}

// Gateway is an in-memory remote.Gateway. The zero value is not usable; call NewGateway.
type Gateway struct {
	mu     sync.Mutex
	nextID int
	plans  map[int]*Plan
	calls  []string

	// Failure injection. Matching is by exact title.
	FailList        error
	FailCreatePlan  error
	FailDelete      error
	FailSuiteTitles map[string]bool
	FailCaseTitles  map[string]bool

	// Delay is applied to every call; used to widen race windows in tests.
	Delay time.Duration
}

// NewGateway creates an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{
		nextID:          1,
		plans:           make(map[int]*Plan),
		FailSuiteTitles: make(map[string]bool),
		FailCaseTitles:  make(map[string]bool),
	}
}

// Factory returns a remote.Factory that always yields g.
func (g *Gateway) Factory() remote.Factory {
	return func(token string) (remote.Gateway, error) {
		if _, err := remote.ParseCredential(token); err != nil {
			return nil, err
		}
		return g, nil
	}
}

// SeedPlan stores a plan as if it had been created earlier.
func (g *Gateway) SeedPlan(project, title string) remote.TestPlanRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addPlanLocked(project, title, "")
}

func (g *Gateway) addPlanLocked(project, title, description string) remote.TestPlanRef {
	ref := remote.TestPlanRef{ID: g.id(), Name: title, Project: project, RootSuiteID: g.id()}
	g.plans[ref.ID] = &Plan{TestPlanRef: ref, Description: description}
	return ref
}

func (g *Gateway) id() int {
	id := g.nextID
	g.nextID++
	return id
}

func (g *Gateway) record(format string, args ...interface{}) {
	g.calls = append(g.calls, fmt.Sprintf(format, args...))
}

func (g *Gateway) sleep(ctx context.Context) error {
	if g.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(g.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ListPlans implements remote.Gateway.
func (g *Gateway) ListPlans(ctx context.Context, project string) ([]remote.TestPlanRef, error) {
	if err := g.sleep(ctx); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ListPlans %s", project)
	if g.FailList != nil {
		return nil, g.FailList
	}

	var out []remote.TestPlanRef
	for _, p := range g.plans {
		if strings.EqualFold(p.Project, project) {
			out = append(out, p.TestPlanRef)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CreatePlan implements remote.Gateway.
func (g *Gateway) CreatePlan(ctx context.Context, project, title, description string) (remote.TestPlanRef, error) {
	if err := g.sleep(ctx); err != nil {
		return remote.TestPlanRef{}, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreatePlan %s", title)
	if g.FailCreatePlan != nil {
		return remote.TestPlanRef{}, g.FailCreatePlan
	}
	return g.addPlanLocked(project, title, description), nil
}

// DeletePlan implements remote.Gateway.
func (g *Gateway) DeletePlan(ctx context.Context, plan remote.TestPlanRef) error {
	if err := g.sleep(ctx); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeletePlan %s", plan.Name)
	if g.FailDelete != nil {
		return g.FailDelete
	}
	delete(g.plans, plan.ID)
	return nil
}

// CreateSuite implements remote.Gateway.
func (g *Gateway) CreateSuite(ctx context.Context, plan remote.TestPlanRef, title string) (int, error) {
	if err := g.sleep(ctx); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateSuite %s", title)
	if g.FailSuiteTitles[title] {
		return 0, fmt.Errorf("creating suite %q: %w", title, ErrInjected)
	}
	p, ok := g.plans[plan.ID]
	if !ok {
		return 0, api.NewNotFoundError("test plan", plan.Name)
	}
	s := &Suite{ID: g.id(), Title: title}
	p.Suites = append(p.Suites, s)
	return s.ID, nil
}

// CreateCase implements remote.Gateway.
func (g *Gateway) CreateCase(ctx context.Context, plan remote.TestPlanRef, suiteID int, tc remote.TestCase) (int, error) {
	if err := g.sleep(ctx); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateCase %s", tc.Title)
	if g.FailCaseTitles[tc.Title] {
		return 0, fmt.Errorf("creating test case %q: %w", tc.Title, ErrInjected)
	}
	p, ok := g.plans[plan.ID]
	if !ok {
		return 0, api.NewNotFoundError("test plan", plan.Name)
	}
	for _, s := range p.Suites {
		if s.ID == suiteID {
			c := Case{ID: g.id(), TestCase: tc}
			s.Cases = append(s.Cases, c)
			return c.ID, nil
		}
	}
	return 0, api.NewNotFoundError("test suite", fmt.Sprint(suiteID))
}

// Plans returns deep copies of the plans of project ordered by id.
func (g *Gateway) Plans(project string) []Plan {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Plan
	for _, p := range g.plans {
		if !strings.EqualFold(p.Project, project) {
			continue
		}
		cp := Plan{TestPlanRef: p.TestPlanRef, Description: p.Description}
		for _, s := range p.Suites {
			sc := &Suite{ID: s.ID, Title: s.Title, Cases: append([]Case(nil), s.Cases...)}
			cp.Suites = append(cp.Suites, sc)
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlanByName returns the plan with the given title.
func (g *Gateway) PlanByName(project, title string) (Plan, bool) {
	for _, p := range g.Plans(project) {
		if p.Name == title {
			return p, true
		}
	}
	return Plan{}, false
}

// Calls returns the recorded operations in order.
func (g *Gateway) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

// allocate reserves an id the way the remote service assigns work item ids.
func (g *Gateway) allocate() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id()
}

// attachCase adds an already created work item to a suite.
func (g *Gateway) attachCase(planID, suiteID int, c Case) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateCase %s", c.Title)
	p, ok := g.plans[planID]
	if !ok {
		return api.NewNotFoundError("test plan", fmt.Sprint(planID))
	}
	for _, s := range p.Suites {
		if s.ID == suiteID {
			s.Cases = append(s.Cases, c)
			return nil
		}
	}
	return api.NewNotFoundError("test suite", fmt.Sprint(suiteID))
}

func (g *Gateway) planByID(id int) (remote.TestPlanRef, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.plans[id]
	if !ok {
		return remote.TestPlanRef{}, false
	}
	return p.TestPlanRef, true
}
