package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"k8s.io/apimachinery/pkg/util/wait"

	"testplan/internal/config"
	"testplan/internal/importtask"
	"testplan/internal/reconciler"
	"testplan/internal/remote"
	"testplan/internal/server"
	"testplan/pkg/logging"
)

// Services holds all initialized components used by the application.
//
// Initialization order follows the dependencies:
//  1. Metrics registry
//  2. Reconciliation policy (templates are validated here)
//  3. Remote gateway factory
//  4. Import orchestrator
//  5. HTTP server
type Services struct {
	Registry     *prometheus.Registry
	Policy       *reconciler.Policy
	Factory      remote.Factory
	Orchestrator *importtask.Orchestrator
	Server       *server.Server
}

// InitializeServices creates every component from the service configuration.
// A nil transport uses http.DefaultTransport for remote calls.
func InitializeServices(cfg *Config, svc config.Config, transport http.RoundTripper) (*Services, error) {
	if svc.Remote.OrganizationURL == "" {
		return nil, errors.New("remote.organizationURL is required (set it in config.yaml or " + config.EnvOrganizationURL + ")")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	policy, err := reconciler.NewPolicy(reconciler.Options{
		CaseDescriptionTemplate: svc.Imports.CaseDescriptionTemplate,
		PlanDescriptionTemplate: svc.Imports.PlanDescriptionTemplate,
		Metrics:                 reconciler.NewMetrics(reg),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciliation policy: %w", err)
	}

	factory := remote.NewFactory(remote.ClientConfig{
		OrganizationURL: svc.Remote.OrganizationURL,
		APIVersion:      svc.Remote.APIVersion,
		RequestTimeout:  svc.Remote.RequestTimeout,
		Backoff: wait.Backoff{
			Steps:    svc.Remote.RetrySteps,
			Duration: svc.Remote.RetryInitialBackoff,
			Factor:   2.0,
			Jitter:   0.1,
		},
		Transport: transport,
	})

	orch := importtask.New(policy, factory, importtask.Options{
		MaxConcurrent: int64(svc.Imports.MaxConcurrent),
		Metrics:       importtask.NewMetrics(reg),
	})

	srv := server.New(server.Options{
		Importer:          orch,
		Policy:            policy,
		Factory:           factory,
		Gatherer:          reg,
		Version:           cfg.Version,
		OrganizationURL:   svc.Remote.OrganizationURL,
		APIVersion:        svc.Remote.APIVersion,
		ReadHeaderTimeout: svc.Server.ReadHeaderTimeout,
	})

	logging.Info("Bootstrap", "Services initialized (remote %s, api-version %s, max concurrent imports %d)",
		svc.Remote.OrganizationURL, svc.Remote.APIVersion, svc.Imports.MaxConcurrent)

	return &Services{
		Registry:     reg,
		Policy:       policy,
		Factory:      factory,
		Orchestrator: orch,
		Server:       srv,
	}, nil
}
