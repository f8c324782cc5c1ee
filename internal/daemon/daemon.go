// Package daemon ties the long-running clipsightd process together: instance
// locking, pipeline lifecycle, and the HTTP API server. Individual pipeline
// steps live in their own packages; the daemon owns startup and shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"clipsight/internal/config"
	"clipsight/internal/jobstore"
	"clipsight/internal/logging"
	"clipsight/internal/pipeline"
	"clipsight/internal/server"
)

// Daemon coordinates the clipsightd process lifecycle.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *jobstore.Store
	orch   *pipeline.Orchestrator
	api    *server.Server

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *jobstore.Store, logger *slog.Logger, orch *pipeline.Orchestrator, api *server.Server) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || orch == nil || api == nil {
		return nil, errors.New("daemon requires config, store, logger, orchestrator, and api server")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		orch:     orch,
		api:      api,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the pipeline and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clipsightd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.orch.Start(runCtx); err != nil {
		cancel()
		d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	if err := d.api.Start(); err != nil {
		d.orch.Stop()
		cancel()
		d.lock.Unlock()
		return fmt.Errorf("start api: %w", err)
	}

	d.cancel = cancel
	d.running.Store(true)
	d.logger.Info("clipsightd started",
		logging.String("lock", d.lockPath),
		logging.String("addr", d.api.Addr()))
	return nil
}

// Stop shuts down the API server, drains the pipeline, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.api.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown", logging.Error(err))
	}

	d.orch.Stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("clipsightd stopped")
}

// Close stops the daemon and releases held resources.
func (d *Daemon) Close() error {
	d.Stop()
	return d.store.Close()
}

// Running reports whether the daemon has been started.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Addr returns the API server's bound address after Start.
func (d *Daemon) Addr() string {
	return d.api.Addr()
}
