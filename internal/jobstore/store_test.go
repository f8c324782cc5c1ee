package jobstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"clipsight/internal/jobstore"
	"clipsight/internal/testsupport"
)

func TestCreateInitializesStatusRecord(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	dir, err := store.Create(t.Context(), "job-1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if dir != store.Dir("job-1") {
		t.Fatalf("unexpected job dir: %q", dir)
	}

	stage, err := store.GetStage(t.Context(), "job-1")
	if err != nil {
		t.Fatalf("GetStage: %v", err)
	}
	if stage != jobstore.StageCreated {
		t.Fatalf("expected created stage, got %q", stage)
	}
}

func TestCreateFailsWhenDirectoryExists(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.NewJob(t, store, "job-1")
	if _, err := store.Create(t.Context(), "job-1"); !errors.Is(err, jobstore.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestSetStageFailsForUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	err := store.SetStage(t.Context(), "missing", jobstore.StageDownloading)
	if !errors.Is(err, jobstore.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestSetFailureRecordsDetailAndAllowsLaterWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "job-1")

	if err := store.SetFailure(t.Context(), "job-1", "download timed out"); err != nil {
		t.Fatalf("SetFailure: %v", err)
	}
	record, err := store.Status(t.Context(), "job-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if record.Stage != jobstore.StageFailed {
		t.Fatalf("expected failed stage, got %q", record.Stage)
	}
	if record.Detail != "download timed out" {
		t.Fatalf("unexpected detail: %q", record.Detail)
	}

	if err := store.SetStage(t.Context(), "job-1", jobstore.StageDownloading); err != nil {
		t.Fatalf("SetStage after failure: %v", err)
	}
	stage, err := store.GetStage(t.Context(), "job-1")
	if err != nil {
		t.Fatalf("GetStage: %v", err)
	}
	if stage != jobstore.StageDownloading {
		t.Fatalf("expected downloading, got %q", stage)
	}
}

func TestArtifactPathResolvesVideoByExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	dir := testsupport.NewJob(t, store, "job-1")

	if _, err := store.ArtifactPath("job-1", jobstore.ArtifactVideo); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound before video exists, got %v", err)
	}

	testsupport.WriteFile(t, filepath.Join(dir, "video.webm"), 16)
	path, err := store.ArtifactPath("job-1", jobstore.ArtifactVideo)
	if err != nil {
		t.Fatalf("ArtifactPath: %v", err)
	}
	if filepath.Base(path) != "video.webm" {
		t.Fatalf("unexpected video path: %q", path)
	}
}

func TestArtifactPathReportAndKeyframes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "job-1")

	if _, err := store.ArtifactPath("job-1", jobstore.ArtifactReport); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing report, got %v", err)
	}
	testsupport.WriteFile(t, store.ReportPath("job-1"), 32)
	if _, err := store.ArtifactPath("job-1", jobstore.ArtifactReport); err != nil {
		t.Fatalf("report ArtifactPath: %v", err)
	}

	if _, err := store.ArtifactPath("job-1", jobstore.ArtifactKeyframesDir); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing keyframes, got %v", err)
	}
	if err := os.MkdirAll(store.KeyframesDir("job-1"), 0o755); err != nil {
		t.Fatalf("mkdir keyframes: %v", err)
	}
	if _, err := store.ArtifactPath("job-1", jobstore.ArtifactKeyframesDir); err != nil {
		t.Fatalf("keyframes ArtifactPath: %v", err)
	}
}

func TestArtifactPathUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.ArtifactPath("missing", jobstore.ArtifactReport); !errors.Is(err, jobstore.ErrUnknownJob) {
		t.Fatalf("expected ErrUnknownJob, got %v", err)
	}
}

func TestListReturnsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	testsupport.NewJob(t, store, "job-a")
	testsupport.NewJob(t, store, "job-b")
	if err := store.SetStage(t.Context(), "job-a", jobstore.StageComplete); err != nil {
		t.Fatalf("SetStage: %v", err)
	}

	records, err := store.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	byID := map[string]jobstore.Record{}
	for _, record := range records {
		byID[record.JobID] = record
	}
	if byID["job-a"].Stage != jobstore.StageComplete {
		t.Fatalf("expected job-a complete, got %q", byID["job-a"].Stage)
	}
	if byID["job-b"].Stage != jobstore.StageCreated {
		t.Fatalf("expected job-b created, got %q", byID["job-b"].Stage)
	}
}

func TestIndexResetsOnReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "job-1")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	records, err := reopened.List(t.Context())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty index after reopen, got %d records", len(records))
	}

	// The filesystem record survives and remains authoritative.
	stage, err := reopened.GetStage(t.Context(), "job-1")
	if err != nil {
		t.Fatalf("GetStage after reopen: %v", err)
	}
	if stage != jobstore.StageCreated {
		t.Fatalf("expected created stage after reopen, got %q", stage)
	}
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, "job-1")

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		stages := []jobstore.Stage{
			jobstore.StageDownloading,
			jobstore.StageExtractingAudio,
			jobstore.StageTranscribing,
			jobstore.StageExtractingFrames,
			jobstore.StageGeneratingReport,
			jobstore.StageComplete,
		}
		for _, stage := range stages {
			if err := store.SetStage(ctx, "job-1", stage); err != nil {
				t.Errorf("SetStage %q: %v", stage, err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for range 50 {
			stage, err := store.GetStage(ctx, "job-1")
			if err != nil {
				t.Errorf("GetStage: %v", err)
				return
			}
			if !stage.Valid() {
				t.Errorf("observed invalid stage %q", stage)
				return
			}
		}
	}()
	wg.Wait()
}

func TestStageRankOrdering(t *testing.T) {
	prev := -1
	for _, stage := range jobstore.PipelineOrder {
		rank := stage.Rank()
		if rank <= prev {
			t.Fatalf("stage %q rank %d not increasing", stage, rank)
		}
		prev = rank
	}
	if jobstore.StageFailed.Rank() != -1 {
		t.Fatalf("failed stage should have no rank")
	}
	if !jobstore.StageFailed.Terminal() || !jobstore.StageComplete.Terminal() {
		t.Fatal("terminal stages misreported")
	}
	if jobstore.StageDownloading.Terminal() {
		t.Fatal("downloading should not be terminal")
	}
}
