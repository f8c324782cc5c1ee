// Package pipeline coordinates the per-job analysis flow: download, audio
// extraction, transcription, keyframe selection, and report generation. Each
// job runs in its own goroutine; stage transitions are persisted before the
// matching progress event is published so observers never see an event the
// store does not yet reflect.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/download"
	"clipsight/internal/jobstore"
	"clipsight/internal/keyframes"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/notifications"
	"clipsight/internal/services"
)

// Downloader fetches a remote video to local storage.
type Downloader interface {
	Fetch(ctx context.Context, rawURL, destBase string) (string, error)
}

// Media covers the ffmpeg-backed operations the pipeline needs.
type Media interface {
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	DetectScenes(ctx context.Context, videoPath string) ([]media.Scene, error)
	ExtractFrame(ctx context.Context, videoPath string, frameIndex int, dest string) (bool, error)
}

// Transcriber converts extracted audio into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, transcriptPath string) (string, error)
}

// Generator produces the final markdown report.
type Generator interface {
	Generate(ctx context.Context, transcript string, keyframePaths []string, reportPath string) (bool, error)
}

// Services bundles the stage implementations consumed by the orchestrator.
type Services struct {
	Downloader  Downloader
	Media       Media
	Transcriber Transcriber
	Generator   Generator
}

// Orchestrator owns job submission and drives each job through the pipeline.
type Orchestrator struct {
	cfg      *config.Config
	store    *jobstore.Store
	events   *bus.Bus
	notifier notifications.Service
	svcs     Services
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// ErrNotRunning is returned when a job is submitted before Start or after Stop.
var ErrNotRunning = errors.New("pipeline not running")

// New constructs an orchestrator.
func New(cfg *config.Config, store *jobstore.Store, events *bus.Bus, notifier notifications.Service, svcs Services, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		store:    store,
		events:   events,
		notifier: notifier,
		svcs:     svcs,
		logger:   logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Start enables job submission. The supplied context bounds all job work.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		return errors.New("pipeline already running")
	}
	o.runCtx, o.cancel = context.WithCancel(ctx)
	o.running = true
	return nil
}

// Stop cancels running jobs and waits for them to drain, bounded by the
// configured shutdown timeout.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	cancel := o.cancel
	o.running = false
	o.cancel = nil
	o.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	timeout := time.Duration(o.cfg.Workflow.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		o.logger.Warn("shutdown timeout elapsed with jobs still running")
	}
}

// Wait blocks until all in-flight jobs finish. Used in tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// SubmitURL creates a job and starts the full pipeline. URL validation runs
// inside the job so rejected URLs surface as a failed job, never as a
// download attempt.
func (o *Orchestrator) SubmitURL(ctx context.Context, rawURL string) (string, error) {
	if !o.isRunning() {
		return "", ErrNotRunning
	}
	jobID := uuid.NewString()
	if _, err := o.store.Create(ctx, jobID); err != nil {
		return "", services.Wrap(services.ErrStorage, "", "create-job", jobID, err)
	}
	if err := o.launch(jobID, rawURL); err != nil {
		return "", err
	}
	return jobID, nil
}

// SubmitUpload starts the pipeline for a job whose video was already stored.
// The caller is responsible for creating the job and writing the video file.
func (o *Orchestrator) SubmitUpload(ctx context.Context, jobID string) error {
	if _, err := o.store.ArtifactPath(jobID, jobstore.ArtifactVideo); err != nil {
		return err
	}
	return o.launch(jobID, "")
}

func (o *Orchestrator) isRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

func (o *Orchestrator) launch(jobID, sourceURL string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return ErrNotRunning
	}
	o.wg.Add(1)
	ctx := o.runCtx
	go func() {
		defer o.wg.Done()
		o.runJob(ctx, jobID, sourceURL)
	}()
	return nil
}

func (o *Orchestrator) runJob(ctx context.Context, jobID, sourceURL string) {
	logger := o.logger.With(logging.String("job_id", jobID))
	start := time.Now()
	logger.Info("job started", logging.Bool("from_url", sourceURL != ""))

	if err := o.process(ctx, jobID, sourceURL, logger); err != nil {
		o.fail(jobID, err, logger)
		return
	}

	if err := o.advance(ctx, jobID, jobstore.StageComplete); err != nil {
		o.fail(jobID, err, logger)
		return
	}
	logger.Info("job completed", logging.Duration("duration", time.Since(start)))
	o.notify(notifications.EventJobCompleted, notifications.Payload{"jobID": jobID})
}

func (o *Orchestrator) process(ctx context.Context, jobID, sourceURL string, logger *slog.Logger) error {
	var videoPath string
	if sourceURL != "" {
		if err := download.ValidateURL(sourceURL); err != nil {
			return err
		}
		if err := o.runStage(ctx, jobID, jobstore.StageDownloading, func(ctx context.Context) error {
			path, err := o.svcs.Downloader.Fetch(ctx, sourceURL, filepath.Join(o.store.Dir(jobID), "video"))
			videoPath = path
			return err
		}, nil); err != nil {
			return err
		}
	} else {
		path, err := o.store.ArtifactPath(jobID, jobstore.ArtifactVideo)
		if err != nil {
			return err
		}
		videoPath = path
	}

	audioPath := o.store.AudioPath(jobID)
	if err := o.runStage(ctx, jobID, jobstore.StageExtractingAudio, func(ctx context.Context) error {
		return o.svcs.Media.ExtractAudio(ctx, videoPath, audioPath)
	}, nil); err != nil {
		return err
	}

	var transcript string
	// The WAV is an intermediate: remove it whether or not transcription
	// succeeded so failed jobs do not pin large files.
	if err := o.runStage(ctx, jobID, jobstore.StageTranscribing, func(ctx context.Context) error {
		text, err := o.svcs.Transcriber.Transcribe(ctx, audioPath, o.store.TranscriptPath(jobID))
		transcript = text
		return err
	}, func() {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove intermediate audio", logging.Error(err))
		}
	}); err != nil {
		return err
	}

	var keyframePaths []string
	if err := o.runStage(ctx, jobID, jobstore.StageExtractingFrames, func(ctx context.Context) error {
		scenes, err := o.svcs.Media.DetectScenes(ctx, videoPath)
		if err != nil {
			return err
		}
		scenes = capScenes(scenes, o.cfg.Media.MaxKeyframes)
		keyframePaths, err = keyframes.Select(ctx, o.svcs.Media, videoPath, scenes, o.store.KeyframesDir(jobID))
		if err == nil {
			logger.Info("keyframes selected",
				logging.Int("scenes", len(scenes)),
				logging.Int("keyframes", len(keyframePaths)))
		}
		return err
	}, nil); err != nil {
		return err
	}

	return o.runStage(ctx, jobID, jobstore.StageGeneratingReport, func(ctx context.Context) error {
		fallback, err := o.svcs.Generator.Generate(ctx, transcript, keyframePaths, o.store.ReportPath(jobID))
		if fallback {
			logger.Warn("report generation degraded to transcript fallback")
		}
		return err
	}, nil)
}

func (o *Orchestrator) fail(jobID string, jobErr error, logger *slog.Logger) {
	category := services.Kind(jobErr)
	logger.Error("job failed",
		logging.String("category", category),
		logging.Error(jobErr))

	// Failure handling must outlive the run context so state is persisted
	// even during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stage := o.failedStage(ctx, jobID, jobErr)
	if err := o.store.SetFailure(ctx, jobID, jobErr.Error()); err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
	}
	o.events.Publish(jobID, string(jobstore.StageFailed))
	o.notify(notifications.EventJobFailed, notifications.Payload{
		"jobID":  jobID,
		"stage":  stage,
		"detail": fmt.Sprintf("%s: %v", category, jobErr),
	})
}

func (o *Orchestrator) failedStage(ctx context.Context, jobID string, jobErr error) string {
	var stageErr *StageError
	if errors.As(jobErr, &stageErr) {
		return string(stageErr.Stage)
	}
	stage, err := o.store.GetStage(ctx, jobID)
	if err != nil {
		return "unknown"
	}
	return string(stage)
}

func (o *Orchestrator) notify(event notifications.Event, payload notifications.Payload) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := o.notifier.Publish(ctx, event, payload); err != nil {
		o.logger.Warn("notification failed", logging.Error(err))
	}
}

func capScenes(scenes []media.Scene, limit int) []media.Scene {
	if limit <= 0 || len(scenes) <= limit {
		return scenes
	}
	return scenes[:limit]
}
