// Package deps checks availability of the external tools the pipeline shells
// out to.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"clipsight/internal/config"
)

// Requirement defines an external dependency Clipsight relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the tool set for the configured binaries.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.Media.FFmpegBinary, Description: "Audio and keyframe extraction"},
		{Name: "FFprobe", Command: cfg.Media.FFprobeBinary, Description: "Scene boundary detection"},
		{Name: "yt-dlp", Command: cfg.Download.YtDlpBinary, Description: "Video download fallback", Optional: true},
		{Name: "Whisper", Command: cfg.Transcription.WhisperBinary, Description: "Speech-to-text transcription"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify reports an error when a required binary is missing.
func Verify(cfg *config.Config) error {
	for _, status := range CheckBinaries(Requirements(cfg)) {
		if status.Available || status.Optional {
			continue
		}
		return fmt.Errorf("%s unavailable: %s", status.Name, status.Detail)
	}
	return nil
}
