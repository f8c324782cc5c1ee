package daemon_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/daemon"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/notifications"
	"clipsight/internal/pipeline"
	"clipsight/internal/server"
	"clipsight/internal/testsupport"
)

type stubDownloader struct{}

func (stubDownloader) Fetch(context.Context, string, string) (string, error) { return "", nil }

type stubMedia struct{}

func (stubMedia) ExtractAudio(context.Context, string, string) error { return nil }
func (stubMedia) DetectScenes(context.Context, string) ([]media.Scene, error) {
	return nil, nil
}
func (stubMedia) ExtractFrame(context.Context, string, int, string) (bool, error) {
	return false, nil
}

type stubTranscriber struct{}

func (stubTranscriber) Transcribe(context.Context, string, string) (string, error) {
	return "", nil
}

type stubGenerator struct{}

func (stubGenerator) Generate(context.Context, string, []string, string) (bool, error) {
	return false, nil
}

func newDaemon(t *testing.T, cfg *config.Config, store *jobstore.Store) *daemon.Daemon {
	t.Helper()
	logger := logging.NewNop()
	events := bus.New(cfg.Workflow.EventBufferSize)
	orch := pipeline.New(cfg, store, events, notifications.NewService(cfg), pipeline.Services{
		Downloader:  stubDownloader{},
		Media:       stubMedia{},
		Transcriber: stubTranscriber{},
		Generator:   stubGenerator{},
	}, logger)
	api := server.New(cfg, store, events, orch, logger)
	d, err := daemon.New(cfg, store, logger, orch, api)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	return d
}

func TestStartServesAPIAndStops(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	addr := d.Addr()
	if addr == "" {
		t.Fatal("missing api address")
	}

	resp, err := http.Get("http://" + addr + "/api/health")
	if err != nil {
		t.Fatalf("health check: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status %d", resp.StatusCode)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
}

func TestSecondInstanceRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	first := newDaemon(t, cfg, store)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start first: %v", err)
	}
	defer first.Stop()

	second := newDaemon(t, cfg, store)
	err := second.Start(context.Background())
	if err == nil {
		second.Stop()
		t.Fatal("second instance should fail to acquire the lock")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestStartTwiceFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	d := newDaemon(t, cfg, store)

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	if err := d.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
}
