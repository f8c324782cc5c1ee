package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers classify stage failures. Every error crossing a stage
// boundary is tagged with exactly one of these so the orchestrator and the
// status surface can report a uniform failure category.
var (
	ErrValidation    = errors.New("validation error")
	ErrDownload      = errors.New("download error")
	ErrMedia         = errors.New("media error")
	ErrTranscription = errors.New("transcription error")
	ErrGeneration    = errors.New("generation error")
	ErrStorage       = errors.New("storage error")
	ErrExternalTool  = errors.New("external tool error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns the short taxonomy name for an error's marker, or "internal"
// when the error carries no marker.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDownload):
		return "download"
	case errors.Is(err, ErrMedia):
		return "media"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrGeneration):
		return "generation"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "internal"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
