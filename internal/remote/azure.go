package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/util/retry"

	"testplan/internal/api"
	"testplan/pkg/logging"
)

const (
	DefaultAPIVersion     = "5.0"
	DefaultRequestTimeout = 60 * time.Second

	maxErrorBody = 500
)

// DefaultBackoff retries transient failures four times, starting at 500ms.
var DefaultBackoff = wait.Backoff{
	Steps:    4,
	Duration: 500 * time.Millisecond,
	Factor:   2.0,
	Jitter:   0.1,
}

// ClientConfig configures AzureClient.
type ClientConfig struct {
	OrganizationURL string
	APIVersion      string
	RequestTimeout  time.Duration
	Backoff         wait.Backoff
	// Transport is the base round tripper below authentication; nil means
	// http.DefaultTransport.
	Transport http.RoundTripper
}

// AzureClient implements Gateway over the Azure DevOps / TFS REST API.
type AzureClient struct {
	baseURL    string
	apiVersion string
	backoff    wait.Backoff
	http       *http.Client
}

// NewAzureClient creates a client authenticated with cred.
func NewAzureClient(cfg ClientConfig, cred Credential) (*AzureClient, error) {
	base := strings.TrimRight(cfg.OrganizationURL, "/")
	if base == "" {
		return nil, errors.New("organization URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid organization URL: %w", err)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Backoff.Steps == 0 {
		cfg.Backoff = DefaultBackoff
	}

	return &AzureClient{
		baseURL:    base,
		apiVersion: cfg.APIVersion,
		backoff:    cfg.Backoff,
		http: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: cred.Transport(cfg.Transport),
		},
	}, nil
}

// NewFactory returns a Factory that parses the token and builds an AzureClient.
func NewFactory(cfg ClientConfig) Factory {
	return func(token string) (Gateway, error) {
		cred, err := ParseCredential(token)
		if err != nil {
			return nil, err
		}
		return NewAzureClient(cfg, cred)
	}
}

// flexID decodes ids the service returns either as numbers or as strings.
type flexID int

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", b, err)
	}
	*f = flexID(n)
	return nil
}

type reference struct {
	ID   flexID `json:"id"`
	Name string `json:"name,omitempty"`
}

type planResource struct {
	ID        flexID     `json:"id"`
	Name      string     `json:"name"`
	RootSuite *reference `json:"rootSuite,omitempty"`
}

type listResponse[T any] struct {
	Count int `json:"count"`
	Value []T `json:"value"`
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value string `json:"value"`
}

// ListPlans returns every plan of the project.
func (c *AzureClient) ListPlans(ctx context.Context, project string) ([]TestPlanRef, error) {
	var resp listResponse[planResource]
	if err := c.do(ctx, http.MethodGet, c.projectURL(project, "_apis/test/plans"), "", nil, &resp); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, api.NewNotFoundErrorWithMessage("project", project,
				fmt.Sprintf("project %q not found on remote service", project))
		}
		return nil, fmt.Errorf("listing test plans of %q: %w", project, err)
	}

	plans := make([]TestPlanRef, 0, len(resp.Value))
	for _, p := range resp.Value {
		plans = append(plans, p.ref(project))
	}
	return plans, nil
}

// CreatePlan creates a plan and resolves its root suite.
func (c *AzureClient) CreatePlan(ctx context.Context, project, title, description string) (TestPlanRef, error) {
	body := map[string]interface{}{
		"name":        title,
		"description": description,
		"iteration":   project,
		"area":        map[string]string{"name": project},
	}
	var created planResource
	if err := c.do(ctx, http.MethodPost, c.projectURL(project, "_apis/test/plans"), "application/json", body, &created); err != nil {
		adopted, ok := c.findCreatedPlan(ctx, project, title, err)
		if !ok {
			return TestPlanRef{}, fmt.Errorf("creating test plan %q: %w", title, err)
		}
		logging.Warn("AzureClient", "Creating test plan %q reported %v, but the plan exists as id %d", title, err, adopted.ID)
		created = adopted
	}

	ref := created.ref(project)
	if ref.RootSuiteID == 0 {
		var fetched planResource
		path := fmt.Sprintf("_apis/test/plans/%d", ref.ID)
		if err := c.do(ctx, http.MethodGet, c.projectURL(project, path), "", nil, &fetched); err != nil {
			return ref, fmt.Errorf("resolving root suite of plan %d: %w", ref.ID, err)
		}
		ref.RootSuiteID = fetched.ref(project).RootSuiteID
	}
	if ref.RootSuiteID == 0 {
		return ref, fmt.Errorf("plan %d has no root suite", ref.ID)
	}

	logging.Info("AzureClient", "Created test plan %s in %s", ref, project)
	return ref, nil
}

// findCreatedPlan looks for a plan titled title after a create request failed
// in a way that does not tell whether the service stored it.
func (c *AzureClient) findCreatedPlan(ctx context.Context, project, title string, createErr error) (planResource, bool) {
	if !errors.Is(createErr, api.ErrRemoteUnavailable) {
		return planResource{}, false
	}
	var resp listResponse[planResource]
	if err := c.do(ctx, http.MethodGet, c.projectURL(project, "_apis/test/plans"), "", nil, &resp); err != nil {
		logging.Debug("AzureClient", "Cannot check for plan %q after failed create: %v", title, err)
		return planResource{}, false
	}
	var found planResource
	for _, p := range resp.Value {
		if strings.EqualFold(p.Name, title) && p.ID > found.ID {
			found = p
		}
	}
	return found, found.ID != 0
}

// DeletePlan deletes a plan. A plan that is already gone counts as deleted.
func (c *AzureClient) DeletePlan(ctx context.Context, plan TestPlanRef) error {
	path := fmt.Sprintf("_apis/test/plans/%d", plan.ID)
	err := c.do(ctx, http.MethodDelete, c.projectURL(plan.Project, path), "", nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		logging.Warn("AzureClient", "Test plan %s was already deleted", plan)
		return nil
	}
	if err != nil {
		return fmt.Errorf("deleting test plan %s: %w", plan, err)
	}
	logging.Info("AzureClient", "Deleted test plan %s", plan)
	return nil
}

// CreateSuite creates a static suite under the plan's root suite.
func (c *AzureClient) CreateSuite(ctx context.Context, plan TestPlanRef, title string) (int, error) {
	path := fmt.Sprintf("_apis/test/plans/%d/suites/%d", plan.ID, plan.RootSuiteID)
	body := map[string]string{
		"name":      title,
		"suiteType": "StaticTestSuite",
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, c.projectURL(plan.Project, path), "application/json", body, &raw); err != nil {
		return 0, fmt.Errorf("creating suite %q: %w", title, err)
	}

	// The service answers with either a list or a single suite.
	var list listResponse[reference]
	if err := json.Unmarshal(raw, &list); err == nil && len(list.Value) > 0 && list.Value[0].ID != 0 {
		return int(list.Value[0].ID), nil
	}
	var single reference
	if err := json.Unmarshal(raw, &single); err == nil && single.ID != 0 {
		return int(single.ID), nil
	}
	return 0, fmt.Errorf("creating suite %q: response carries no suite id", title)
}

// CreateCase creates a Test Case work item with all fields in one request and
// adds it to the suite.
func (c *AzureClient) CreateCase(ctx context.Context, plan TestPlanRef, suiteID int, tc TestCase) (int, error) {
	ops := []patchOperation{
		{Op: "add", Path: "/fields/System.Title", Value: tc.Title},
		{Op: "add", Path: "/fields/System.Description", Value: tc.Description},
		{Op: "add", Path: "/fields/Microsoft.VSTS.TCM.Steps", Value: tc.StepsXML},
	}
	if tc.ParametersXML != "" {
		ops = append(ops, patchOperation{Op: "add", Path: "/fields/Microsoft.VSTS.TCM.LocalDataSource", Value: tc.ParametersXML})
	}

	var item reference
	if err := c.do(ctx, http.MethodPost, c.projectURL(plan.Project, "_apis/wit/workitems/$Test%20Case"),
		"application/json-patch+json", ops, &item); err != nil {
		return 0, fmt.Errorf("creating test case %q: %w", tc.Title, err)
	}
	if item.ID == 0 {
		return 0, fmt.Errorf("creating test case %q: response carries no work item id", tc.Title)
	}

	path := fmt.Sprintf("_apis/test/plans/%d/suites/%d/testcases/%d", plan.ID, suiteID, item.ID)
	if err := c.do(ctx, http.MethodPost, c.projectURL(plan.Project, path), "", nil, nil); err != nil {
		return int(item.ID), fmt.Errorf("adding test case %d to suite %d (%s): %w",
			item.ID, suiteID, c.discardWorkItem(ctx, plan.Project, int(item.ID)), err)
	}
	return int(item.ID), nil
}

// discardWorkItem deletes a test case that could not be added to its suite
// and describes the outcome for the failure reason.
func (c *AzureClient) discardWorkItem(ctx context.Context, project string, id int) string {
	path := fmt.Sprintf("_apis/wit/workitems/%d", id)
	if err := c.do(ctx, http.MethodDelete, c.projectURL(project, path), "", nil, nil); err != nil {
		logging.Warn("AzureClient", "Work item %d in %s is not in any suite and could not be deleted: %v", id, project, err)
		return fmt.Sprintf("work item %d left orphaned", id)
	}
	logging.Info("AzureClient", "Deleted work item %d after it could not be added to a suite", id)
	return fmt.Sprintf("work item %d deleted", id)
}

func (p planResource) ref(project string) TestPlanRef {
	ref := TestPlanRef{ID: int(p.ID), Name: p.Name, Project: project}
	if p.RootSuite != nil {
		ref.RootSuiteID = int(p.RootSuite.ID)
	}
	return ref
}

// projectURL builds {org}/{project}/{path}?api-version=... . path is used
// verbatim so that pre-escaped segments survive.
func (c *AzureClient) projectURL(project, path string) string {
	return fmt.Sprintf("%s/%s/%s?api-version=%s", c.baseURL, url.PathEscape(project), path, url.QueryEscape(c.apiVersion))
}

// do executes one request, retrying transient failures with backoff.
func (c *AzureClient) do(ctx context.Context, method, target, contentType string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	attempt := 0
	return retry.OnError(c.backoff, retryableFor(method), func() error {
		attempt++
		if attempt > 1 {
			logging.Warn("AzureClient", "Retrying %s %s (attempt %d)", method, target, attempt)
		} else {
			logging.Debug("AzureClient", "%s %s", method, target)
		}
		return c.roundTrip(ctx, method, target, contentType, payload, out)
	})
}

func (c *AzureClient) roundTrip(ctx context.Context, method, target, contentType string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(method, target, resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response of %s %s: %w", method, target, err)
	}
	return nil
}

// retryableFor decides which failures of method are retried. Requests that
// may have been applied are only retried when repeating them is harmless:
// a POST is retried on 429 or when the connection was never established.
func retryableFor(method string) func(error) bool {
	idempotent := method != http.MethodPost && method != http.MethodPatch
	return func(err error) bool {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.StatusCode == http.StatusTooManyRequests {
				return true
			}
			return idempotent && apiErr.StatusCode >= 500
		}
		var tErr *TransportError
		if errors.As(err, &tErr) {
			return idempotent || neverSent(tErr.Err)
		}
		return false
	}
}

func neverSent(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
