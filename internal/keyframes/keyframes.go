// Package keyframes selects one representative frame per scene and persists
// it as a numbered JPEG image.
//
// Selection is pure and deterministic: the same scene list against the same
// video always yields the same ordered output paths and images. Scenes whose
// midpoint cannot be decoded are skipped without aborting the run and
// without consuming a sequence number.
package keyframes

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"clipsight/internal/media"
	"clipsight/internal/services"
)

// FrameExtractor seeks to a frame index and decodes it to an image file.
// ok=false reports an undecodable or out-of-range frame.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, videoPath string, frameIndex int, dest string) (ok bool, err error)
}

// Midpoint returns the representative frame index for a scene: the integer
// midpoint, rounding down. A degenerate scene (End == Start) maps to Start.
func Midpoint(scene media.Scene) int {
	return scene.Start + (scene.End-scene.Start)/2
}

// Select extracts one keyframe per scene into destDir, creating it if
// needed. Emitted files are named keyframe_NNN.jpg with a 1-based
// zero-padded sequence number; skipped scenes do not consume a number. The
// ordered list of produced paths is returned. Zero scenes yields an empty
// list and an existing, empty directory.
func Select(ctx context.Context, extractor FrameExtractor, videoPath string, scenes []media.Scene, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStorage, "extracting_frames", "create-keyframes-dir", destDir, err)
	}

	paths := make([]string, 0, len(scenes))
	for _, scene := range scenes {
		index := Midpoint(scene)
		dest := filepath.Join(destDir, fmt.Sprintf("keyframe_%03d.jpg", len(paths)+1))
		ok, err := extractor.ExtractFrame(ctx, videoPath, index, dest)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		paths = append(paths, dest)
	}
	return paths, nil
}
