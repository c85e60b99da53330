package api

import (
	"encoding/json"
	"time"
)

// TaskStatus is the lifecycle state of an import task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Result status values reported in ImportResult.Status.
const (
	ResultSuccess        = "success"
	ResultPartialSuccess = "partial_success"
)

// ImportRequest is the body of POST /api/v1/imports.
type ImportRequest struct {
	ProjectName string `json:"project_name"`
	Version     string `json:"version"`
	// Token is either "domain\user:password" (NTLM) or a personal access token,
	// optionally prefixed by ":".
	Token string `json:"token"`
	// Content is the feature tree; see package testtree for its shape.
	Content json.RawMessage `json:"content"`
}

// ImportAccepted is returned immediately after a submission.
type ImportAccepted struct {
	TaskID  string     `json:"task_id"`
	Status  TaskStatus `json:"status"`
	Message string     `json:"message,omitempty"`
}

// ImportResult summarizes a completed import.
type ImportResult struct {
	Status       string            `json:"status"`
	Created      int               `json:"created"`
	Updated      int               `json:"updated"`
	Errors       int               `json:"errors"`
	Transition   string            `json:"transition,omitempty"`
	TestPlanID   int               `json:"test_plan_id,omitempty"`
	TestPlanName string            `json:"test_plan_name,omitempty"`
	SuiteIDs     []int             `json:"suite_ids,omitempty"`
	Failures     []ScenarioFailure `json:"failures,omitempty"`
}

// ImportStatus is the polled view of one import task.
type ImportStatus struct {
	TaskID      string        `json:"task_id"`
	ProjectName string        `json:"project_name"`
	Version     string        `json:"version"`
	Status      TaskStatus    `json:"status"`
	Progress    int           `json:"progress"`
	Result      *ImportResult `json:"result"`
	Error       string        `json:"error"`
	Logs        []string      `json:"logs"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MarshalJSON always emits result, error and logs: an absent result or error
// is null and an empty log is [].
func (s ImportStatus) MarshalJSON() ([]byte, error) {
	type plain ImportStatus
	out := struct {
		plain
		Error *string  `json:"error"`
		Logs  []string `json:"logs"`
	}{plain: plain(s), Logs: s.Logs}
	if s.Error != "" {
		out.Error = &s.Error
	}
	if out.Logs == nil {
		out.Logs = []string{}
	}
	return json.Marshal(out)
}

// ListImportsResponse is returned by GET /api/v1/imports. Tasks carry no logs.
type ListImportsResponse struct {
	Tasks   []ImportStatus `json:"tasks"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

// TestPlanInfo describes one remote test plan.
type TestPlanInfo struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version,omitempty"`
	RootSuiteID int    `json:"root_suite_id,omitempty"`
}

// ListPlansResponse is returned by GET /api/v1/test-plans/{project}.
type ListPlansResponse struct {
	Project string         `json:"project"`
	Plans   []TestPlanInfo `json:"plans"`
	Current *TestPlanInfo  `json:"current,omitempty"`
}

// ClassifyResponse is returned by GET /api/v1/debug/classify.
type ClassifyResponse struct {
	Old        string `json:"old,omitempty"`
	New        string `json:"new"`
	Transition string `json:"transition"`
}

// VersionDecisionResponse is returned by GET /api/v1/debug/version/{project}/{version}.
type VersionDecisionResponse struct {
	Project       string         `json:"project"`
	Version       string         `json:"version"`
	CurrentPlan   *TestPlanInfo  `json:"current_plan,omitempty"`
	Transition    string         `json:"transition"`
	Action        string         `json:"action"`
	PlansToDelete []TestPlanInfo `json:"plans_to_delete,omitempty"`
	NewPlanName   string         `json:"new_plan_name"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// InfoResponse is returned by GET /info.
type InfoResponse struct {
	Service         string   `json:"service"`
	Version         string   `json:"version"`
	OrganizationURL string   `json:"organization_url"`
	APIVersion      string   `json:"api_version"`
	Endpoints       []string `json:"endpoints"`
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
