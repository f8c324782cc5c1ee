package main

import (
	"log/slog"
	"path/filepath"

	"clipsight/internal/config"
	"clipsight/internal/download"
	"clipsight/internal/logging"
	"clipsight/internal/media"
	"clipsight/internal/pipeline"
	"clipsight/internal/report"
	"clipsight/internal/transcribe"
)

func buildLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", buildLogPath(cfg)},
	})
}

func buildLogPath(cfg *config.Config) string {
	if cfg == nil {
		return "clipsightd.log"
	}
	return filepath.Join(cfg.Paths.LogDir, "clipsightd.log")
}

func buildServices(cfg *config.Config, logger *slog.Logger) pipeline.Services {
	llm := report.NewClient(cfg.GetLLM())
	return pipeline.Services{
		Downloader:  download.New(cfg, logger),
		Media:       media.NewService(cfg, logger),
		Transcriber: transcribe.NewService(cfg.Transcription, logger),
		Generator:   report.NewGenerator(llm, cfg.GetLLM(), logger),
	}
}
