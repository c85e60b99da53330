package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"testplan/internal/api"
	"testplan/pkg/logging"
)

const (
	// DefaultEndpoint is used when neither --server nor TESTPLAN_SERVER is set.
	DefaultEndpoint = "http://localhost:5050"
	// EnvEndpoint overrides DefaultEndpoint.
	EnvEndpoint = "TESTPLAN_SERVER"

	defaultTimeout = 30 * time.Second
	tokenHeader    = "X-Remote-Token"
)

// GetDefaultEndpoint returns the endpoint from the environment or DefaultEndpoint.
func GetDefaultEndpoint() string {
	if v := os.Getenv(EnvEndpoint); v != "" {
		return v
	}
	return DefaultEndpoint
}

// Client talks to a running import server.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// ListOptions filters ListImports.
type ListOptions struct {
	Status  api.TaskStatus
	Project string
	Limit   int
	Offset  int
}

// New creates a client for the server at endpoint. A zero timeout uses a
// conservative default.
func New(endpoint string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server endpoint %q: scheme must be http or https", endpoint)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Endpoint returns the server base URL.
func (c *Client) Endpoint() string {
	return c.baseURL.String()
}

// SubmitImport posts an import request.
func (c *Client) SubmitImport(ctx context.Context, req api.ImportRequest) (api.ImportAccepted, error) {
	var out api.ImportAccepted
	err := c.do(ctx, http.MethodPost, "/api/v1/imports", nil, nil, req, &out)
	return out, err
}

// GetImport fetches one task, including its log.
func (c *Client) GetImport(ctx context.Context, id string) (api.ImportStatus, error) {
	var out api.ImportStatus
	err := c.do(ctx, http.MethodGet, "/api/v1/imports/"+url.PathEscape(id), nil, nil, nil, &out)
	return out, err
}

// ListImports lists tasks, newest first.
func (c *Client) ListImports(ctx context.Context, opts ListOptions) (api.ListImportsResponse, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Project != "" {
		q.Set("project", opts.Project)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	var out api.ListImportsResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/imports", q, nil, nil, &out)
	return out, err
}

// ListPlans lists the remote plans of project using token as the remote credential.
func (c *Client) ListPlans(ctx context.Context, project, token string) (api.ListPlansResponse, error) {
	var out api.ListPlansResponse
	h := http.Header{tokenHeader: {token}}
	err := c.do(ctx, http.MethodGet, "/api/v1/test-plans/"+url.PathEscape(project), nil, h, nil, &out)
	return out, err
}

// Decide reports what importing project at version would do.
func (c *Client) Decide(ctx context.Context, project, version, token string) (api.VersionDecisionResponse, error) {
	var out api.VersionDecisionResponse
	h := http.Header{tokenHeader: {token}}
	path := "/api/v1/debug/version/" + url.PathEscape(project) + "/" + url.PathEscape(version)
	err := c.do(ctx, http.MethodGet, path, nil, h, nil, &out)
	return out, err
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var out api.HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body, out interface{}) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawPath = ""
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}

	logging.Debug("CLI", "%s %s", method, u.Path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ClassifyConnectionError(err, c.Endpoint())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &ServerError{StatusCode: resp.StatusCode}
		var e api.ErrorResponse
		if json.Unmarshal(data, &e) == nil {
			se.Message, se.Detail = e.Error, e.Detail
		} else {
			se.Message = strings.TrimSpace(string(data))
		}
		return se
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u.Path, err)
	}
	return nil
}
