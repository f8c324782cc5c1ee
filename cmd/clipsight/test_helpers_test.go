package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/server"
	"clipsight/internal/testsupport"
)

type fakeSubmitter struct {
	jobID   string
	gotURL  string
	uploads []string
}

func (f *fakeSubmitter) SubmitURL(ctx context.Context, rawURL string) (string, error) {
	f.gotURL = rawURL
	if f.jobID == "" {
		return "job-cli-test", nil
	}
	return f.jobID, nil
}

func (f *fakeSubmitter) SubmitUpload(ctx context.Context, jobID string) error {
	f.uploads = append(f.uploads, jobID)
	return nil
}

type cliTestEnv struct {
	cfg        *config.Config
	store      *jobstore.Store
	events     *bus.Bus
	submitter  *fakeSubmitter
	server     *httptest.Server
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	events := bus.New(cfg.Workflow.EventBufferSize)
	submitter := &fakeSubmitter{}

	srv := server.New(cfg, store, events, submitter, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{
		cfg:        cfg,
		store:      store,
		events:     events,
		submitter:  submitter,
		server:     ts,
		configPath: configPath,
	}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, serverURL, configPath string) (string, string, error) {
	t.Helper()

	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--server", serverURL}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected output to contain %q, got %q", substr, output)
	}
}
