package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/notifications"
	"clipsight/internal/pipeline"
	"clipsight/internal/services"
	"clipsight/internal/testsupport"
)

type fakeDownloader struct {
	err   error
	calls int
}

func (f *fakeDownloader) Fetch(ctx context.Context, rawURL, destBase string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := destBase + ".mp4"
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

type fakeMedia struct {
	scenes       []media.Scene
	audioErr     error
	scenesErr    error
	extractCalls int
}

func (f *fakeMedia) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if f.audioErr != nil {
		return f.audioErr
	}
	return os.WriteFile(audioPath, []byte("RIFF"), 0o644)
}

func (f *fakeMedia) DetectScenes(ctx context.Context, videoPath string) ([]media.Scene, error) {
	return f.scenes, f.scenesErr
}

func (f *fakeMedia) ExtractFrame(ctx context.Context, videoPath string, frameIndex int, dest string) (bool, error) {
	f.extractCalls++
	return true, os.WriteFile(dest, []byte("jpeg"), 0o644)
}

type fakeTranscriber struct {
	err      error
	lastPath string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath, transcriptPath string) (string, error) {
	f.lastPath = audioPath
	if f.err != nil {
		return "", f.err
	}
	if err := os.WriteFile(transcriptPath, []byte("spoken words"), 0o644); err != nil {
		return "", err
	}
	return "spoken words", nil
}

type fakeGenerator struct {
	err       error
	fallback  bool
	gotFrames []string
}

func (f *fakeGenerator) Generate(ctx context.Context, transcript string, keyframePaths []string, reportPath string) (bool, error) {
	f.gotFrames = keyframePaths
	if f.err != nil {
		return false, f.err
	}
	return f.fallback, os.WriteFile(reportPath, []byte("# Report"), 0o644)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(ctx context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingNotifier) recorded() []notifications.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Event(nil), r.events...)
}

type harness struct {
	cfg         *config.Config
	store       *jobstore.Store
	events      *bus.Bus
	notifier    *recordingNotifier
	downloader  *fakeDownloader
	media       *fakeMedia
	transcriber *fakeTranscriber
	generator   *fakeGenerator
	orch        *pipeline.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	h := &harness{
		cfg:        cfg,
		store:      testsupport.MustOpenStore(t, cfg),
		events:     bus.New(cfg.Workflow.EventBufferSize),
		notifier:   &recordingNotifier{},
		downloader: &fakeDownloader{},
		media: &fakeMedia{scenes: []media.Scene{
			{Start: 0, End: 60},
			{Start: 60, End: 120},
		}},
		transcriber: &fakeTranscriber{},
		generator:   &fakeGenerator{},
	}
	h.orch = pipeline.New(cfg, h.store, h.events, h.notifier, pipeline.Services{
		Downloader:  h.downloader,
		Media:       h.media,
		Transcriber: h.transcriber,
		Generator:   h.generator,
	}, logging.NewNop())
	if err := h.orch.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(h.orch.Stop)
	return h
}

// drainEvents collects published events until the subscription channel is
// closed or a terminal event arrives.
func drainEvents(t *testing.T, sub interface{ Events() <-chan string }) []string {
	t.Helper()
	var got []string
	for event := range sub.Events() {
		got = append(got, event)
		if event == string(jobstore.StageComplete) || event == string(jobstore.StageFailed) {
			break
		}
	}
	return got
}

func submitUpload(t *testing.T, h *harness) (string, []string) {
	t.Helper()
	jobID := "upload-job"
	dir := testsupport.NewJob(t, h.store, jobID)
	if err := os.WriteFile(filepath.Join(dir, "video.mp4"), []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub, err := h.events.Subscribe(jobID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()
	if err := h.orch.SubmitUpload(context.Background(), jobID); err != nil {
		t.Fatalf("SubmitUpload: %v", err)
	}
	got := drainEvents(t, sub)
	h.orch.Wait()
	return jobID, got
}

func TestUploadJobRunsFullPipeline(t *testing.T) {
	h := newHarness(t)
	jobID, events := submitUpload(t, h)

	want := []string{"extracting_audio", "transcribing", "extracting_frames", "generating_report", "complete"}
	if len(events) != len(want) {
		t.Fatalf("unexpected event sequence %v", events)
	}
	for i, event := range events {
		if event != want[i] {
			t.Fatalf("event %d: got %q want %q (all: %v)", i, event, want[i], events)
		}
	}

	stage, err := h.store.GetStage(context.Background(), jobID)
	if err != nil || stage != jobstore.StageComplete {
		t.Fatalf("final stage %q, err %v", stage, err)
	}
	if h.downloader.calls != 0 {
		t.Fatal("upload job must not download")
	}
	if len(h.generator.gotFrames) != 2 {
		t.Fatalf("expected 2 keyframes for 2 scenes, got %v", h.generator.gotFrames)
	}
	if _, err := os.Stat(h.store.AudioPath(jobID)); !os.IsNotExist(err) {
		t.Fatal("intermediate audio should be removed after transcription")
	}
	if _, err := h.store.ArtifactPath(jobID, jobstore.ArtifactReport); err != nil {
		t.Fatalf("report artifact missing: %v", err)
	}
	if got := h.notifier.recorded(); len(got) != 1 || got[0] != notifications.EventJobCompleted {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestURLJobStartsWithDownload(t *testing.T) {
	h := newHarness(t)

	jobID, err := h.orch.SubmitURL(context.Background(), "https://example.com/video/abc123")
	if err != nil {
		t.Fatalf("SubmitURL: %v", err)
	}
	h.orch.Wait()

	if h.downloader.calls != 1 {
		t.Fatalf("expected one download, got %d", h.downloader.calls)
	}
	stage, err := h.store.GetStage(context.Background(), jobID)
	if err != nil || stage != jobstore.StageComplete {
		t.Fatalf("final stage %q, err %v", stage, err)
	}
}

func TestInvalidURLFailsJobWithoutDownload(t *testing.T) {
	h := newHarness(t)

	jobID, err := h.orch.SubmitURL(context.Background(), "ftp://example.com/video/abc")
	if err != nil {
		t.Fatalf("SubmitURL: %v", err)
	}
	h.orch.Wait()

	if h.downloader.calls != 0 {
		t.Fatal("invalid URL must not trigger a download")
	}
	record, err := h.store.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.Stage != jobstore.StageFailed {
		t.Fatalf("expected failed stage, got %q", record.Stage)
	}
	if !strings.Contains(record.Detail, "validation") {
		t.Fatalf("expected validation detail, got %q", record.Detail)
	}
}

func TestTranscriptionFailureHaltsPipeline(t *testing.T) {
	h := newHarness(t)
	h.transcriber.err = services.Wrap(services.ErrTranscription, "transcribing", "whisper", "", errors.New("boom"))

	jobID, events := submitUpload(t, h)

	if events[len(events)-1] != string(jobstore.StageFailed) {
		t.Fatalf("expected terminal error event, got %v", events)
	}
	record, err := h.store.Status(context.Background(), jobID)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.Stage != jobstore.StageFailed || record.Detail == "" {
		t.Fatalf("unexpected failure record %+v", record)
	}
	if _, err := os.Stat(h.store.KeyframesDir(jobID)); !os.IsNotExist(err) {
		t.Fatal("failed job must not reach keyframe extraction")
	}
	if _, err := os.Stat(h.store.AudioPath(jobID)); !os.IsNotExist(err) {
		t.Fatal("intermediate audio should be removed even on failure")
	}
	if got := h.notifier.recorded(); len(got) != 1 || got[0] != notifications.EventJobFailed {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestGeneratorFallbackStillCompletes(t *testing.T) {
	h := newHarness(t)
	h.generator.fallback = true

	jobID, events := submitUpload(t, h)

	if events[len(events)-1] != string(jobstore.StageComplete) {
		t.Fatalf("fallback report should still complete, got %v", events)
	}
	stage, _ := h.store.GetStage(context.Background(), jobID)
	if stage != jobstore.StageComplete {
		t.Fatalf("final stage %q", stage)
	}
}

func TestGeneratorStorageErrorFailsJob(t *testing.T) {
	h := newHarness(t)
	h.generator.err = services.Wrap(services.ErrStorage, "generating_report", "write-report", "", errors.New("disk full"))

	_, events := submitUpload(t, h)
	if events[len(events)-1] != string(jobstore.StageFailed) {
		t.Fatalf("expected failure, got %v", events)
	}
}

func TestStageTransitionsAreMonotonic(t *testing.T) {
	h := newHarness(t)
	_, events := submitUpload(t, h)

	lastRank := -1
	for _, event := range events {
		rank := jobstore.Stage(event).Rank()
		if rank <= lastRank {
			t.Fatalf("stage %q out of order in %v", event, events)
		}
		lastRank = rank
	}
}

func TestSceneCapLimitsKeyframes(t *testing.T) {
	h := newHarness(t)
	h.cfg.Media.MaxKeyframes = 1

	_, events := submitUpload(t, h)
	if events[len(events)-1] != string(jobstore.StageComplete) {
		t.Fatalf("unexpected events %v", events)
	}
	if len(h.generator.gotFrames) != 1 {
		t.Fatalf("expected keyframe cap of 1, got %v", h.generator.gotFrames)
	}
}

func TestSubmitRequiresRunningOrchestrator(t *testing.T) {
	h := newHarness(t)
	h.orch.Stop()

	if _, err := h.orch.SubmitURL(context.Background(), "https://example.com/video/abc"); !errors.Is(err, pipeline.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning, got %v", err)
	}
}
