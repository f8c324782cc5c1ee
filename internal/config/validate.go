package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration for fatal problems. It assumes normalize
// has already run, so defaults are in place and paths are absolute.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.SceneThreshold <= 0 || c.Media.SceneThreshold >= 1 {
		return errors.New("media.scene_threshold must be between 0 and 1")
	}
	if c.Media.MaxKeyframes < 0 {
		return errors.New("media.max_keyframes must not be negative")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"download.timeout_seconds":          c.Download.TimeoutSeconds,
		"transcription.timeout_seconds":     c.Transcription.TimeoutSeconds,
		"llm.timeout_seconds":               c.LLM.TimeoutSeconds,
		"notifications.request_timeout":     c.Notifications.RequestTimeout,
		"workflow.event_buffer_size":        c.Workflow.EventBufferSize,
		"workflow.shutdown_timeout_seconds": c.Workflow.ShutdownTimeoutSeconds,
		"api.max_upload_mib":                c.API.MaxUploadMiB,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}
