package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipsight/internal/jobstore"
	"clipsight/internal/testsupport"
)

func TestAnalyzeCommandSubmitsURL(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"analyze", "https://example.com/video"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	requireContains(t, out, "Submitted job job-cli-test")
	if env.submitter.gotURL != "https://example.com/video" {
		t.Fatalf("submitter got url %q", env.submitter.gotURL)
	}
}

func TestUploadCommandSendsFile(t *testing.T) {
	env := setupCLITestEnv(t)

	videoPath := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(videoPath, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	out, _, err := runCLI(t, []string{"upload", videoPath}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	requireContains(t, out, "Uploaded clip.mp4 as job")
	if len(env.submitter.uploads) != 1 {
		t.Fatalf("expected one upload submission, got %d", len(env.submitter.uploads))
	}

	stored := env.store.VideoDestination(env.submitter.uploads[0], "mp4")
	if _, err := os.Stat(stored); err != nil {
		t.Fatalf("expected stored video at %s: %v", stored, err)
	}
}

func TestUploadCommandRejectsUnsupportedExtension(t *testing.T) {
	env := setupCLITestEnv(t)

	textPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(textPath, []byte("not a video"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, _, err := runCLI(t, []string{"upload", textPath}, env.server.URL, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "unsupported file extension") {
		t.Fatalf("expected extension error, got %v", err)
	}
}

func TestStatusCommandPrintsRecord(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.NewJob(t, env.store, "job-status")

	out, _, err := runCLI(t, []string{"status", "job-status"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "job-status")
	requireContains(t, out, string(jobstore.StageCreated))
}

func TestStatusCommandUnknownJob(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"status", "missing"}, env.server.URL, env.configPath)
	if err == nil {
		t.Fatal("expected error for unknown job")
	}
}

func TestJobsCommandListsJobs(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewJob(t, env.store, "job-a")
	testsupport.NewJob(t, env.store, "job-b")
	if err := env.store.SetStage(ctx, "job-b", jobstore.StageTranscribing); err != nil {
		t.Fatalf("SetStage: %v", err)
	}

	out, _, err := runCLI(t, []string{"jobs"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "job-a")
	requireContains(t, out, "job-b")
	requireContains(t, out, string(jobstore.StageTranscribing))
}

func TestJobsCommandEmpty(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No jobs")
}

func TestWatchCommandFinishedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewJob(t, env.store, "job-done")
	if err := env.store.SetStage(ctx, "job-done", jobstore.StageComplete); err != nil {
		t.Fatalf("SetStage: %v", err)
	}

	out, _, err := runCLI(t, []string{"watch", "job-done"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	requireContains(t, out, string(jobstore.StageComplete))
}

func TestWatchCommandFailedJob(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	testsupport.NewJob(t, env.store, "job-bad")
	if err := env.store.SetFailure(ctx, "job-bad", "transcription: whisper exploded"); err != nil {
		t.Fatalf("SetFailure: %v", err)
	}

	_, _, err := runCLI(t, []string{"watch", "job-bad"}, env.server.URL, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "whisper exploded") {
		t.Fatalf("expected failure detail in error, got %v", err)
	}
}

func TestReportCommandFetchesMarkdown(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewJob(t, env.store, "job-report")
	reportPath := env.store.ReportPath("job-report")
	if err := os.MkdirAll(filepath.Dir(reportPath), 0o755); err != nil {
		t.Fatalf("mkdir report dir: %v", err)
	}
	if err := os.WriteFile(reportPath, []byte("# Video Analysis\n\ncontent here\n"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	out, _, err := runCLI(t, []string{"report", "job-report"}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	requireContains(t, out, "# Video Analysis")
}

func TestReportCommandWritesFile(t *testing.T) {
	env := setupCLITestEnv(t)

	testsupport.NewJob(t, env.store, "job-save")
	reportPath := env.store.ReportPath("job-save")
	if err := os.MkdirAll(filepath.Dir(reportPath), 0o755); err != nil {
		t.Fatalf("mkdir report dir: %v", err)
	}
	if err := os.WriteFile(reportPath, []byte("saved report"), 0o644); err != nil {
		t.Fatalf("write report: %v", err)
	}

	target := filepath.Join(t.TempDir(), "report.md")
	out, _, err := runCLI(t, []string{"report", "job-save", "--output", target}, env.server.URL, env.configPath)
	if err != nil {
		t.Fatalf("report --output: %v", err)
	}
	requireContains(t, out, "Wrote report to")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read saved report: %v", err)
	}
	if string(data) != "saved report" {
		t.Fatalf("unexpected saved report content %q", data)
	}
}

func TestRenderJobsTableIncludesHeaders(t *testing.T) {
	records := []jobstore.Record{
		{JobID: "job-x", Stage: jobstore.StageComplete},
	}
	out := renderJobsTable(records)
	requireContains(t, out, "JOB")
	requireContains(t, out, "STAGE")
	requireContains(t, out, "job-x")
}
