package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"testplan/internal/api"
	"testplan/internal/importtask"
	"testplan/internal/reconciler"
	"testplan/internal/remote"
	"testplan/internal/version"
)

func (s *Server) handleSubmitImport(w http.ResponseWriter, r *http.Request) {
	var req api.ImportRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, api.InvalidRequestf("malformed JSON body: %v", err))
		return
	}

	accepted, err := s.opts.Importer.Submit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, accepted)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	st, err := s.opts.Importer.Status(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := importtask.ListFilter{
		Status:  api.TaskStatus(q.Get("status")),
		Project: q.Get("project"),
	}
	switch filter.Status {
	case "", api.TaskPending, api.TaskRunning, api.TaskCompleted, api.TaskFailed:
	default:
		writeError(w, api.InvalidRequestf("unknown status %q", filter.Status))
		return
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, api.InvalidRequestf("limit: %v", err))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, api.InvalidRequestf("offset: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, s.opts.Importer.List(filter))
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// gatewayFor builds a gateway from the credential attached by remoteTokenInjector.
func (s *Server) gatewayFor(r *http.Request) (remote.Gateway, string, error) {
	token, ok := RemoteTokenFromContext(r.Context())
	if !ok {
		return nil, "", api.InvalidRequestf("a remote credential is required in the %s header or token query parameter", RemoteTokenHeader)
	}
	gw, err := s.opts.Factory(token)
	if err != nil {
		return nil, "", err
	}
	return gw, token, nil
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	if err := importtask.ValidateProjectName(project); err != nil {
		writeError(w, err)
		return
	}
	gw, token, err := s.gatewayFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	// The shared call must not die with whichever request started it.
	ctx := context.WithoutCancel(r.Context())
	key := strings.ToLower(project) + "\x00" + token
	v, err, _ := s.plans.Do(key, func() (interface{}, error) {
		return gw.ListPlans(ctx, project)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	plans := v.([]remote.TestPlanRef)
	resp := api.ListPlansResponse{Project: project, Plans: make([]api.TestPlanInfo, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, planInfo(project, p))
	}
	if current, _, _ := reconciler.FindCurrentPlan(project, plans); current != nil {
		info := planInfo(project, *current)
		resp.Current = &info
	}
	writeJSON(w, http.StatusOK, resp)
}

func planInfo(project string, p remote.TestPlanRef) api.TestPlanInfo {
	info := api.TestPlanInfo{ID: p.ID, Name: p.Name, RootSuiteID: p.RootSuiteID}
	if v, ok := reconciler.ParsePlanVersion(project, p.Name); ok {
		info.Version = v.String()
	}
	return info
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	oldV := strings.TrimSpace(r.URL.Query().Get("old"))
	newV := strings.TrimSpace(r.URL.Query().Get("new"))
	if newV == "" {
		writeError(w, api.InvalidRequestf("query parameter new is required"))
		return
	}

	t, err := version.ClassifyStrings(oldV, newV)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.ClassifyResponse{Old: oldV, New: newV, Transition: string(t)})
}

func (s *Server) handleVersionDecision(w http.ResponseWriter, r *http.Request) {
	project := r.PathValue("project")
	if err := importtask.ValidateProjectName(project); err != nil {
		writeError(w, err)
		return
	}
	v, err := version.Parse(r.PathValue("version"))
	if err != nil {
		writeError(w, err)
		return
	}
	gw, _, err := s.gatewayFor(r)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := s.opts.Policy.Decide(r.Context(), gw, project, v)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := api.VersionDecisionResponse{
		Project:     project,
		Version:     v.String(),
		Transition:  string(d.Transition),
		Action:      string(d.Action),
		NewPlanName: d.NewPlanTitle,
	}
	if d.Current != nil {
		info := planInfo(project, *d.Current)
		resp.CurrentPlan = &info
	}
	for _, p := range d.ToDelete {
		resp.PlansToDelete = append(resp.PlansToDelete, planInfo(project, p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok", Version: s.opts.Version})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.InfoResponse{
		Service:         serviceName,
		Version:         s.opts.Version,
		OrganizationURL: s.opts.OrganizationURL,
		APIVersion:      s.opts.APIVersion,
		Endpoints:       endpoints,
	})
}
