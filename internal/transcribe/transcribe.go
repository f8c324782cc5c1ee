// Package transcribe runs the Whisper CLI against extracted audio and
// collects the resulting transcript text.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clipsight/internal/config"
	langpkg "clipsight/internal/language"
	"clipsight/internal/logging"
	"clipsight/internal/services"
)

// CommandRunner executes an external command. Tests inject fakes here.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Service wraps the Whisper CLI. Whisper loads its model into memory per
// invocation, so concurrent runs would thrash the machine; the mutex keeps
// transcriptions serialized across jobs.
type Service struct {
	mu     sync.Mutex
	cfg    config.Transcription
	logger *slog.Logger
	runner CommandRunner
}

// NewService creates a transcription service from configuration.
func NewService(cfg config.Transcription, logger *slog.Logger) *Service {
	svc := &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
	svc.runner = svc.run
	return svc
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) *Service {
	if runner != nil {
		s.runner = runner
	}
	return s
}

// Transcribe runs Whisper against audioPath and writes the plain transcript
// to transcriptPath. It returns the transcript text.
func (s *Service) Transcribe(ctx context.Context, audioPath, transcriptPath string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if audioPath == "" {
		return "", services.Wrap(services.ErrTranscription, "transcribing", "transcribe", "audio path required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribing", "transcribe", "audio file missing", err)
	}

	outputDir := filepath.Dir(transcriptPath)
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStorage, "transcribing", "transcribe", "ensure output dir", err)
	}

	if s.cfg.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	args := s.buildArgs(audioPath, outputDir)
	s.logger.Info("transcribing audio",
		logging.String("audio", audioPath),
		logging.String("model", s.cfg.Model))
	if err := s.runner(ctx, s.cfg.WhisperBinary, args...); err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribing", "whisper", "", err)
	}

	text, err := collectTranscript(audioPath, outputDir)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribing", "collect", "", err)
	}

	if err := os.WriteFile(transcriptPath, []byte(text), 0o644); err != nil {
		return "", services.Wrap(services.ErrStorage, "transcribing", "write-transcript", "", err)
	}
	return text, nil
}

// buildArgs constructs the Whisper CLI arguments.
func (s *Service) buildArgs(audioPath, outputDir string) []string {
	args := []string{
		audioPath,
		"--model", s.cfg.Model,
		"--output_format", "json",
		"--output_dir", outputDir,
	}
	if lang := langpkg.ToISO2(s.cfg.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	return args
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// Segment is one transcribed span from the Whisper JSON output.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type whisperPayload struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments"`
}

// collectTranscript reads the Whisper JSON written next to the audio file and
// concatenates the segment text.
func collectTranscript(audioPath, outputDir string) (string, error) {
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	var payload whisperPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("parse whisper json: %w", err)
	}
	if text := strings.TrimSpace(payload.Text); text != "" {
		return text, nil
	}
	var parts []string
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
