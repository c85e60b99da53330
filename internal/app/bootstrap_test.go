package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testplan/internal/api"
	"testplan/internal/client"
	"testplan/internal/cli"
	"testplan/internal/config"
	"testplan/internal/testing/mock"
)

const treeJSON = `{"name":"Demo","features":[{"name":"Login","scenarios":[
  {"name":"Valid login","steps":[{"keyword":"When","text":"user logs in"}]},
  {"name":"Locked out","steps":[{"keyword":"Then","text":"an error is shown"}]}]}]}`

func serviceConfig(orgURL string) *config.Config {
	cfg := config.GetDefaultConfig()
	cfg.Remote.OrganizationURL = orgURL
	cfg.Remote.RetrySteps = 1
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return &cfg
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range []string{config.EnvOrganizationURL, config.EnvAPIVersion, config.EnvLogLevel, config.EnvPort} {
		t.Setenv(env, "")
	}
}

func TestInitializeServices_RequiresOrganizationURL(t *testing.T) {
	_, err := InitializeServices(&Config{}, *serviceConfig(""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvOrganizationURL)
}

func TestInitializeServices_RejectsBrokenTemplate(t *testing.T) {
	svc := serviceConfig("http://tfs.local/tfs/DefaultCollection")
	svc.Imports.CaseDescriptionTemplate = "{{ .Feature "

	_, err := InitializeServices(&Config{}, *svc, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case description template")
}

func TestNewApplication_LoadsConfigFromPath(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)
	content := "remote:\n  organizationURL: http://tfs.local/tfs/DefaultCollection\nlogging:\n  level: warn\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	application, err := NewApplication(&Config{ConfigPath: dir, LogOutput: io.Discard})
	require.NoError(t, err)
	assert.Equal(t, "http://tfs.local/tfs/DefaultCollection", application.service.Remote.OrganizationURL)
	assert.NotNil(t, application.Services().Orchestrator)
}

func TestNewApplication_MissingOrganizationURL(t *testing.T) {
	dir := t.TempDir()
	clearEnv(t)

	_, err := NewApplication(&Config{ConfigPath: dir, LogOutput: io.Discard})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize services")
}

// TestApplication_EndToEnd runs the whole service against the fake
// test-management server and drives it through the HTTP client.
func TestApplication_EndToEnd(t *testing.T) {
	gw := mock.NewGateway()
	gw.SeedPlan("Demo", "Demo Test Plan v1.0.0")
	remoteSrv := mock.NewHTTPServer(gw)
	orgURL, err := remoteSrv.Start(context.Background())
	require.NoError(t, err)
	defer func() { _ = remoteSrv.Stop(context.Background()) }()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	application, err := NewApplication(&Config{
		Version:   "9.9.9",
		Service:   serviceConfig(orgURL),
		Listener:  l,
		LogOutput: io.Discard,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx) }()

	c, err := client.New("http://"+l.Addr().String(), 5*time.Second)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return cli.CheckServerRunning(context.Background(), c) == nil
	}, 5*time.Second, 20*time.Millisecond)

	accepted, err := c.SubmitImport(context.Background(), api.ImportRequest{
		ProjectName: "Demo",
		Version:     "1.0.1",
		Token:       ":pat",
		Content:     json.RawMessage(treeJSON),
	})
	require.NoError(t, err)

	st, err := cli.WaitForImport(context.Background(), c, accepted.TaskID, cli.WaitOptions{Interval: 20 * time.Millisecond, Quiet: true})
	require.NoError(t, err)
	require.Equal(t, api.TaskCompleted, st.Status, st.Error)
	require.NotNil(t, st.Result)
	assert.Equal(t, 2, st.Result.Created)
	assert.Equal(t, "patch", st.Result.Transition)

	plans := gw.Plans("Demo")
	require.Len(t, plans, 1)
	assert.Equal(t, "Demo Test Plan v1.0.1", plans[0].Name)

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
