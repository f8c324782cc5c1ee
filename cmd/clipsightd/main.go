package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"clipsight/internal/bus"
	"clipsight/internal/config"
	"clipsight/internal/daemon"
	"clipsight/internal/deps"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/notifications"
	"clipsight/internal/pipeline"
	"clipsight/internal/server"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	// Secrets like the LLM API key may live in a local .env file.
	godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolved, exists, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if !exists {
		fmt.Fprintf(os.Stderr, "no config file at %s, using defaults (run `clipsight config init` to create one)\n", resolved)
	}

	logger, err := buildLogger(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if err := deps.Verify(cfg); err != nil {
		logger.Error("dependency check failed", logging.Error(err))
		os.Exit(1)
	}

	store, err := jobstore.Open(cfg)
	if err != nil {
		logger.Error("open job store", logging.Error(err))
		os.Exit(1)
	}

	events := bus.New(cfg.Workflow.EventBufferSize)
	notifier := notifications.NewService(cfg)
	orch := pipeline.New(cfg, store, events, notifier, buildServices(cfg, logger), logger)
	api := server.New(cfg, store, events, orch, logger)

	d, err := daemon.New(cfg, store, logger, orch, api)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("clipsightd shutting down")
}
