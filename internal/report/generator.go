// Package report turns a transcript and selected keyframes into a markdown
// analysis via a multimodal chat completion model. When the model is
// unreachable the generator still produces a readable fallback report so the
// job can finish with its transcript intact.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"clipsight/internal/config"
	"clipsight/internal/logging"
	"clipsight/internal/services"
)

const analysisPrompt = `You are analyzing a video. You are given its full transcript and a set of
keyframe images sampled from the video's scenes, in chronological order.

Write a markdown report with these sections:

# Video Analysis

## Summary
A few sentences describing what the video is about.

## Visual Content
What the keyframes show, scene by scene.

## Transcript Highlights
The most important points from the transcript.

## Key Takeaways
A short bullet list.

Transcript:

%s`

// Completer produces a text completion for a prompt and attached images.
type Completer interface {
	Complete(ctx context.Context, prompt string, images [][]byte) (string, error)
}

// Generator writes the final analysis report for a job.
type Generator struct {
	client Completer
	cfg    config.LLMConfig
	logger *slog.Logger
}

// NewGenerator creates a report generator backed by the given completion client.
func NewGenerator(client Completer, cfg config.LLMConfig, logger *slog.Logger) *Generator {
	return &Generator{
		client: client,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "report"),
	}
}

// Generate produces the markdown report and writes it to reportPath. When the
// model call fails the report is replaced with a fallback that preserves the
// transcript, and fallback is true; the job is still considered successful.
// Only a storage failure returns an error.
func (g *Generator) Generate(ctx context.Context, transcript string, keyframePaths []string, reportPath string) (fallback bool, err error) {
	images, skipped := g.loadImages(keyframePaths)
	if skipped > 0 {
		g.logger.Warn("skipped unreadable keyframes", logging.Int("count", skipped))
	}

	content, genErr := g.client.Complete(ctx, fmt.Sprintf(analysisPrompt, transcript), images)
	if genErr != nil {
		g.logger.Warn("report generation failed, writing fallback", logging.Error(genErr))
		content = fallbackReport(genErr, transcript)
		fallback = true
	}

	if err := os.WriteFile(reportPath, []byte(content), 0o644); err != nil {
		return fallback, services.Wrap(services.ErrStorage, "generating_report", "write-report", "", err)
	}
	return fallback, nil
}

// loadImages reads keyframe files up to the configured image cap. Unreadable
// files are skipped rather than failing the report.
func (g *Generator) loadImages(paths []string) ([][]byte, int) {
	limit := g.cfg.MaxImages
	if limit <= 0 || limit > len(paths) {
		limit = len(paths)
	}
	images := make([][]byte, 0, limit)
	skipped := 0
	for _, path := range paths {
		if len(images) >= limit {
			break
		}
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			skipped++
			continue
		}
		images = append(images, data)
	}
	return images, skipped
}

func fallbackReport(genErr error, transcript string) string {
	var b strings.Builder
	b.WriteString("# LLM Analysis Failed\n\n")
	fmt.Fprintf(&b, "Error: %v\n\n", genErr)
	b.WriteString("## Transcript\n")
	b.WriteString(transcript)
	b.WriteString("\n")
	return b.String()
}
