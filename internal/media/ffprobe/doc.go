// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no clipsight-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size)
//
// Primary entry points:
//   - Inspect: executes ffprobe and returns a parsed Result
//   - Parse: decodes an already-captured ffprobe JSON payload
//
// Helper methods on Result expose the video frame rate and total frame
// count, falling back to duration-based estimates when the container does
// not report exact values.
package ffprobe
