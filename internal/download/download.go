package download

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ytdl "github.com/kkdai/youtube/v2"

	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/services"
)

// CommandRunner executes an external command. Injectable for tests.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// Downloader fetches a remote video to a local file.
type Downloader struct {
	cfg     config.Download
	yt      ytdl.Client
	runner  CommandRunner
	logger  *slog.Logger
	timeout time.Duration
}

// New builds a downloader from configuration.
func New(cfg *config.Config, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Downloader{
		cfg:     cfg.Download,
		logger:  logging.NewComponentLogger(logger, "download"),
		timeout: time.Duration(cfg.Download.TimeoutSeconds) * time.Second,
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (d *Downloader) WithCommandRunner(runner CommandRunner) {
	d.runner = runner
}

// Fetch downloads the video behind rawURL. destBase is the output path
// without extension; the final extension depends on the delivered format.
// The stored file path is returned.
func (d *Downloader) Fetch(ctx context.Context, rawURL, destBase string) (string, error) {
	if err := ValidateURL(rawURL); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		path string
		err  error
	)
	if IsYouTubeURL(rawURL) {
		path, err = d.fetchYouTube(ctx, rawURL, destBase)
	} else {
		path, err = d.fetchWithYtDlp(ctx, rawURL, destBase)
	}
	if err != nil {
		return "", err
	}

	info, statErr := os.Stat(path)
	if statErr != nil || info.Size() == 0 {
		return "", services.Wrap(services.ErrDownload, "downloading", "verify-output",
			fmt.Sprintf("downloaded file %q is missing or empty", path), statErr)
	}
	d.logger.InfoContext(ctx, "download complete",
		logging.String("url", rawURL),
		logging.String("path", path),
		logging.Int64("bytes", info.Size()))
	return path, nil
}

func (d *Downloader) fetchYouTube(ctx context.Context, rawURL, destBase string) (string, error) {
	video, err := d.yt.GetVideoContext(ctx, rawURL)
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "downloading", "resolve-video", rawURL, err)
	}

	format, err := pickMuxedFormat(video)
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "downloading", "select-format", video.ID, err)
	}

	stream, _, err := d.yt.GetStreamContext(ctx, video, format)
	if err != nil {
		return "", services.Wrap(services.ErrDownload, "downloading", "open-stream", video.ID, err)
	}
	defer stream.Close()

	dest := destBase + "." + extensionFor(format.MimeType)
	file, err := os.Create(dest)
	if err != nil {
		return "", services.Wrap(services.ErrStorage, "downloading", "create-file", dest, err)
	}
	defer file.Close()

	if _, err := io.Copy(file, stream); err != nil {
		_ = os.Remove(dest)
		return "", services.Wrap(services.ErrDownload, "downloading", "stream-copy", video.ID, err)
	}
	return dest, nil
}

// pickMuxedFormat chooses the best combined audio+video format.
func pickMuxedFormat(video *ytdl.Video) (*ytdl.Format, error) {
	candidates := make([]*ytdl.Format, 0, len(video.Formats))
	for i := range video.Formats {
		f := &video.Formats[i]
		if f.AudioChannels == 0 || !strings.HasPrefix(f.MimeType, "video/") {
			continue
		}
		candidates = append(candidates, f)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no muxed audio+video format available")
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Height != candidates[j].Height {
			return candidates[i].Height > candidates[j].Height
		}
		return candidates[i].Bitrate > candidates[j].Bitrate
	})
	return candidates[0], nil
}

func extensionFor(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "mp4"):
		return "mp4"
	case strings.Contains(mimeType, "webm"):
		return "webm"
	case strings.Contains(mimeType, "3gpp"):
		return "3gp"
	default:
		return "mp4"
	}
}

func (d *Downloader) fetchWithYtDlp(ctx context.Context, rawURL, destBase string) (string, error) {
	args := []string{
		"-f", "b",
		"--no-warnings",
		"--no-playlist",
		"-o", destBase + ".%(ext)s",
	}
	if d.cfg.CookiesFile != "" {
		args = append(args, "--cookies", d.cfg.CookiesFile)
	}
	args = append(args, rawURL)

	if err := d.run(ctx, d.cfg.YtDlpBinary, args...); err != nil {
		return "", services.Wrap(services.ErrDownload, "downloading", "yt-dlp", rawURL, err)
	}

	matches, err := filepath.Glob(destBase + ".*")
	if err != nil || len(matches) == 0 {
		return "", services.Wrap(services.ErrDownload, "downloading", "yt-dlp",
			fmt.Sprintf("no output file matching %s.*", destBase), err)
	}
	sort.Strings(matches)
	return matches[0], nil
}

func (d *Downloader) run(ctx context.Context, name string, args ...string) error {
	if d.runner != nil {
		return d.runner(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("%w: %s", err, lastLine(detail))
		}
		return err
	}
	return nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
