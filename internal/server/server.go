package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"testplan/internal/api"
	"testplan/internal/importtask"
	"testplan/internal/reconciler"
	"testplan/internal/remote"
	"testplan/pkg/logging"
)

const (
	// DefaultReadHeaderTimeout is the default timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultWriteTimeout is the default timeout for writing responses.
	DefaultWriteTimeout = 120 * time.Second
	// DefaultIdleTimeout is the default idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	// maxRequestBody bounds import payloads.
	maxRequestBody = 32 << 20

	serviceName = "testplan"
)

// Importer is the part of the orchestrator the HTTP layer needs.
type Importer interface {
	Submit(ctx context.Context, req api.ImportRequest) (api.ImportAccepted, error)
	Status(id string) (api.ImportStatus, error)
	List(filter importtask.ListFilter) api.ListImportsResponse
}

// Options wires a Server to the rest of the service.
type Options struct {
	Importer Importer
	// Policy and Factory back the read-only plan endpoints.
	Policy  *reconciler.Policy
	Factory remote.Factory
	// Gatherer is exposed on /metrics when set.
	Gatherer prometheus.Gatherer

	Version           string
	OrganizationURL   string
	APIVersion        string
	ReadHeaderTimeout time.Duration
}

// Server exposes the import API over HTTP.
type Server struct {
	opts Options

	// plans collapses concurrent list-plans reads for the same project and credential
	plans singleflight.Group

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.ReadHeaderTimeout <= 0 {
		opts.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	return &Server{opts: opts}
}

// endpoints lists the routes registered by CreateMux, as reported by /info.
var endpoints = []string{
	"POST /api/v1/imports",
	"GET /api/v1/imports",
	"GET /api/v1/imports/{id}",
	"GET /api/v1/test-plans/{project}",
	"GET /api/v1/debug/classify",
	"GET /api/v1/debug/version/{project}/{version}",
	"GET /api/v1/health",
	"GET /info",
	"GET /metrics",
}

// CreateMux builds the HTTP handler with every route registered.
func (s *Server) CreateMux() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/imports", s.handleSubmitImport)
	mux.HandleFunc("GET /api/v1/imports", s.handleListImports)
	mux.HandleFunc("GET /api/v1/imports/{id}", s.handleGetImport)

	mux.Handle("GET /api/v1/test-plans/{project}", remoteTokenInjector(http.HandlerFunc(s.handleListPlans)))
	mux.HandleFunc("GET /api/v1/debug/classify", s.handleClassify)
	mux.Handle("GET /api/v1/debug/version/{project}/{version}", remoteTokenInjector(http.HandlerFunc(s.handleVersionDecision)))

	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /info", s.handleInfo)

	if s.opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	return requestLogger(mux)
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	srv := &http.Server{
		Handler:           s.CreateMux(),
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
	}

	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	logging.Info("Server", "Listening on %s", l.Addr())
	if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and serves until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests and waits for active ones to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.Debug("Server", "%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(started).Round(time.Millisecond))
	})
}
