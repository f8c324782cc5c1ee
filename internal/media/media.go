// Package media wraps the ffmpeg and ffprobe invocations that extract audio,
// detect scene boundaries, and pull individual frames from a stored video.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"strings"

	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/media/ffprobe"
	"clipsight/internal/services"
)

// Scene is a half-open frame-index interval [Start, End) produced by scene
// detection. Immutable once emitted.
type Scene struct {
	Start int
	End   int
}

// Frames returns the number of frames the scene spans.
func (s Scene) Frames() int {
	return s.End - s.Start
}

// CommandRunner executes an external command. Injectable for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// OutputRunner executes an external command and captures stdout. Injectable
// for tests.
type OutputRunner func(ctx context.Context, name string, args ...string) (string, error)

// Service shells out to ffmpeg and ffprobe for all media work.
type Service struct {
	cfg    config.Media
	logger *slog.Logger
	runner CommandRunner
	output OutputRunner
}

// NewService builds a media service from configuration.
func NewService(cfg *config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		cfg:    cfg.Media,
		logger: logging.NewComponentLogger(logger, "media"),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner CommandRunner) {
	s.runner = runner
}

// WithOutputRunner sets a custom output-capturing runner (for testing).
func (s *Service) WithOutputRunner(runner OutputRunner) {
	s.output = runner
}

// ExtractAudio writes the video's audio track as a mono 16kHz WAV file
// suitable for speech-to-text.
func (s *Service) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		audioPath,
	}
	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrMedia, "extracting_audio", "ffmpeg", videoPath, err)
	}
	if info, err := os.Stat(audioPath); err != nil || info.Size() == 0 {
		return services.Wrap(services.ErrMedia, "extracting_audio", "verify-output",
			fmt.Sprintf("audio file %q is missing or empty", audioPath), err)
	}
	return nil
}

// DetectScenes returns the ordered scene list for the video. A video with no
// detected cuts yields a single scene covering every frame; a video with no
// readable frames yields an empty list.
func (s *Service) DetectScenes(ctx context.Context, videoPath string) ([]Scene, error) {
	probeOut, err := s.capture(ctx, s.cfg.FFprobeBinary,
		"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", videoPath)
	if err != nil {
		return nil, services.Wrap(services.ErrMedia, "extracting_frames", "ffprobe-inspect", videoPath, err)
	}
	probe, err := ffprobe.Parse([]byte(probeOut))
	if err != nil {
		return nil, services.Wrap(services.ErrMedia, "extracting_frames", "ffprobe-parse", videoPath, err)
	}

	fps := probe.FrameRate()
	totalFrames := probe.FrameCount()
	if totalFrames <= 0 || fps <= 0 {
		return nil, nil
	}

	cutsOut, err := s.capture(ctx, s.cfg.FFprobeBinary,
		"-v", "error",
		"-f", "lavfi",
		"-i", fmt.Sprintf("movie=%s,select=gt(scene\\,%s)", escapeFilterPath(videoPath), formatThreshold(s.cfg.SceneThreshold)),
		"-show_entries", "frame=pts_time",
		"-of", "csv=p=0")
	if err != nil {
		return nil, services.Wrap(services.ErrMedia, "extracting_frames", "ffprobe-scenes", videoPath, err)
	}

	cuts := parseCutFrames(cutsOut, fps, totalFrames)
	scenes := buildScenes(cuts, totalFrames)
	s.logger.DebugContext(ctx, "scene detection complete",
		logging.String("video", videoPath),
		logging.Int("frames", totalFrames),
		logging.Int("scenes", len(scenes)))
	return scenes, nil
}

// ExtractFrame writes a single frame as a JPEG image. It returns ok=false
// without error when the frame index is outside the video.
func (s *Service) ExtractFrame(ctx context.Context, videoPath string, frameIndex int, dest string) (bool, error) {
	if frameIndex < 0 {
		return false, nil
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select=eq(n\\,%d)", frameIndex),
		"-frames:v", "1",
		"-update", "1",
		dest,
	}
	if err := s.run(ctx, s.cfg.FFmpegBinary, args...); err != nil {
		return false, services.Wrap(services.ErrMedia, "extracting_frames", "ffmpeg-frame",
			fmt.Sprintf("%s frame %d", videoPath, frameIndex), err)
	}

	// ffmpeg exits zero for an out-of-range select; the output file simply
	// never appears or stays empty.
	info, err := os.Stat(dest)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrStorage, "extracting_frames", "stat-frame", dest, err)
	}
	if info.Size() == 0 {
		_ = os.Remove(dest)
		return false, nil
	}
	return true, nil
}

// parseCutFrames converts ffprobe pts_time lines into frame indexes, keeping
// only cuts strictly inside the video.
func parseCutFrames(output string, fps float64, totalFrames int) []int {
	seen := make(map[int]struct{})
	var cuts []int
	for _, line := range strings.Split(output, "\n") {
		// csv=p=0 emits one pts_time per line, sometimes with a trailing comma.
		field := strings.TrimSuffix(strings.TrimSpace(line), ",")
		if field == "" {
			continue
		}
		seconds, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		frame := int(math.Round(seconds * fps))
		if frame <= 0 || frame >= totalFrames {
			continue
		}
		if _, dup := seen[frame]; dup {
			continue
		}
		seen[frame] = struct{}{}
		cuts = append(cuts, frame)
	}
	sort.Ints(cuts)
	return cuts
}

// buildScenes turns sorted cut frames into contiguous half-open intervals
// covering [0, totalFrames).
func buildScenes(cuts []int, totalFrames int) []Scene {
	if totalFrames <= 0 {
		return nil
	}
	bounds := make([]int, 0, len(cuts)+2)
	bounds = append(bounds, 0)
	bounds = append(bounds, cuts...)
	bounds = append(bounds, totalFrames)

	scenes := make([]Scene, 0, len(bounds)-1)
	for i := 0; i < len(bounds)-1; i++ {
		if bounds[i] >= bounds[i+1] {
			continue
		}
		scenes = append(scenes, Scene{Start: bounds[i], End: bounds[i+1]})
	}
	return scenes
}

func formatThreshold(threshold float64) string {
	return strconv.FormatFloat(threshold, 'f', -1, 64)
}

// escapeFilterPath escapes the characters the lavfi movie filter treats as
// syntax.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`,`, `\,`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
	)
	return replacer.Replace(path)
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.runner != nil {
		return s.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (s *Service) capture(ctx context.Context, name string, args ...string) (string, error) {
	if s.output != nil {
		return s.output(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
