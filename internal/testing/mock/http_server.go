package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"testplan/internal/api"
	"testplan/internal/remote"
)

// CollectionPath is the organization path the fake service is mounted on.
const CollectionPath = "/tfs/DefaultCollection"

// HTTPServer serves a Gateway over the Azure DevOps REST endpoints used by
// remote.AzureClient.
type HTTPServer struct {
	gateway *Gateway

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener
	running    bool
	workItems  map[int]remote.TestCase
}

// NewHTTPServer creates a server backed by g.
func NewHTTPServer(g *Gateway) *HTTPServer {
	return &HTTPServer{gateway: g, workItems: make(map[int]remote.TestCase)}
}

// Start listens on a free loopback port and returns the organization URL.
func (s *HTTPServer) Start(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.urlLocked(), nil
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", fmt.Errorf("failed to find available port: %w", err)
	}
	s.listener = listener
	s.httpServer = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("mock remote server stopped: %v\n", err)
		}
	}()

	s.running = true
	return s.urlLocked(), nil
}

// Stop gracefully shuts down the HTTP server
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	shutdownCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.httpServer.Close()
	}

	s.running = false
	s.httpServer = nil
	return nil
}

// URL returns the organization URL, or "" when stopped.
func (s *HTTPServer) URL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return ""
	}
	return s.urlLocked()
}

func (s *HTTPServer) urlLocked() string {
	return "http://" + s.listener.Addr().String() + CollectionPath
}

// Handler returns the routing table; it can also be mounted on an httptest.Server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	base := CollectionPath + "/{project}/_apis"
	mux.HandleFunc("GET "+base+"/test/plans", s.listPlans)
	mux.HandleFunc("POST "+base+"/test/plans", s.createPlan)
	mux.HandleFunc("GET "+base+"/test/plans/{plan}", s.getPlan)
	mux.HandleFunc("DELETE "+base+"/test/plans/{plan}", s.deletePlan)
	mux.HandleFunc("POST "+base+"/test/plans/{plan}/suites/{suite}", s.createSuite)
	mux.HandleFunc("POST "+base+"/test/plans/{plan}/suites/{suite}/testcases/{case}", s.addCase)
	mux.HandleFunc("POST "+base+"/wit/workitems/{type}", s.createWorkItem)
	return requireAuth(mux)
}

func requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeError(w, http.StatusUnauthorized, "authorization required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type planBody struct {
	ID        int            `json:"id"`
	Name      string         `json:"name"`
	RootSuite map[string]any `json:"rootSuite"`
}

func toBody(p remote.TestPlanRef) planBody {
	return planBody{ID: p.ID, Name: p.Name, RootSuite: map[string]any{"id": strconv.Itoa(p.RootSuiteID)}}
}

func (s *HTTPServer) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.gateway.ListPlans(r.Context(), r.PathValue("project"))
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	out := make([]planBody, 0, len(plans))
	for _, p := range plans {
		out = append(out, toBody(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "value": out})
}

func (s *HTTPServer) createPlan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ref, err := s.gateway.CreatePlan(r.Context(), r.PathValue("project"), body.Name, body.Description)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	// The real service omits the root suite on creation in some versions.
	writeJSON(w, http.StatusOK, map[string]any{"id": ref.ID, "name": ref.Name})
}

func (s *HTTPServer) getPlan(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("plan"))
	ref, ok := s.gateway.planByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "test plan not found")
		return
	}
	writeJSON(w, http.StatusOK, toBody(ref))
}

func (s *HTTPServer) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("plan"))
	ref, ok := s.gateway.planByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "test plan not found")
		return
	}
	if err := s.gateway.DeletePlan(r.Context(), ref); err != nil {
		writeGatewayError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) createSuite(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(r.PathValue("plan"))
	ref, ok := s.gateway.planByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "test plan not found")
		return
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	suiteID, err := s.gateway.CreateSuite(r.Context(), ref, body.Name)
	if err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": 1,
		"value": []map[string]any{{"id": suiteID, "name": body.Name}},
	})
}

func (s *HTTPServer) createWorkItem(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("type") != "$Test Case" {
		writeError(w, http.StatusBadRequest, "unsupported work item type")
		return
	}
	var ops []struct {
		Path  string `json:"path"`
		Value string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&ops); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var tc remote.TestCase
	for _, op := range ops {
		switch op.Path {
		case "/fields/System.Title":
			tc.Title = op.Value
		case "/fields/System.Description":
			tc.Description = op.Value
		case "/fields/Microsoft.VSTS.TCM.Steps":
			tc.StepsXML = op.Value
		case "/fields/Microsoft.VSTS.TCM.LocalDataSource":
			tc.ParametersXML = op.Value
		}
	}
	s.gateway.mu.Lock()
	failing := s.gateway.FailCaseTitles[tc.Title]
	s.gateway.mu.Unlock()
	if failing {
		writeError(w, http.StatusBadRequest, "injected failure")
		return
	}

	id := s.gateway.allocate()
	s.mu.Lock()
	s.workItems[id] = tc
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"id": id})
}

func (s *HTTPServer) addCase(w http.ResponseWriter, r *http.Request) {
	planID, _ := strconv.Atoi(r.PathValue("plan"))
	suiteID, _ := strconv.Atoi(r.PathValue("suite"))
	caseID, _ := strconv.Atoi(r.PathValue("case"))

	s.mu.RLock()
	tc, ok := s.workItems[caseID]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusNotFound, "work item not found")
		return
	}
	if err := s.gateway.attachCase(planID, suiteID, Case{ID: caseID, TestCase: tc}); err != nil {
		writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{{"testCase": map[string]any{"id": strconv.Itoa(caseID)}}})
}

func writeGatewayError(w http.ResponseWriter, err error) {
	switch {
	case api.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInjected):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
