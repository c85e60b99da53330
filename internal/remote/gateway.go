// Package remote talks to the test-management service that stores test plans,
// suites and test cases.
package remote

import (
	"context"
	"fmt"
)

// TestPlanRef identifies a plan on the remote service.
type TestPlanRef struct {
	ID          int
	Name        string
	Project     string
	RootSuiteID int
}

func (p TestPlanRef) String() string {
	return fmt.Sprintf("%q (id %d)", p.Name, p.ID)
}

// TestCase is the payload of one case creation.
type TestCase struct {
	Title       string
	Description string
	// StepsXML is stored in Microsoft.VSTS.TCM.Steps.
	StepsXML string
	// ParametersXML is stored in Microsoft.VSTS.TCM.LocalDataSource; empty for
	// plain scenarios.
	ParametersXML string
}

// Gateway is the contract the import pipeline needs from the remote service.
// Implementations are bound to a single credential.
type Gateway interface {
	ListPlans(ctx context.Context, project string) ([]TestPlanRef, error)
	CreatePlan(ctx context.Context, project, title, description string) (TestPlanRef, error)
	DeletePlan(ctx context.Context, plan TestPlanRef) error
	// CreateSuite creates a static suite below the plan's root suite.
	CreateSuite(ctx context.Context, plan TestPlanRef, title string) (int, error)
	// CreateCase creates a test case work item and adds it to the suite.
	CreateCase(ctx context.Context, plan TestPlanRef, suiteID int, tc TestCase) (int, error)
}

// Factory builds a Gateway for the credential token supplied with a request.
type Factory func(token string) (Gateway, error)
