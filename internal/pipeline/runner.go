package pipeline

import (
	"context"
	"fmt"

	"clipsight/internal/jobstore"
	"clipsight/internal/services"
)

// StageError records which stage a job failed in. The wrapped error keeps its
// services taxonomy marker so Kind still classifies it.
type StageError struct {
	Stage jobstore.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// runStage drives a single pipeline stage: it persists the stage transition
// (store write precedes the progress event), executes the handler, and runs
// the cleanup on success and failure alike. Handler failures come back as
// StageError.
func (o *Orchestrator) runStage(ctx context.Context, jobID string, stage jobstore.Stage, fn func(context.Context) error, cleanup func()) error {
	if cleanup != nil {
		defer cleanup()
	}
	ctx = services.WithStage(services.WithJobID(ctx, jobID), string(stage))
	if err := o.advance(ctx, jobID, stage); err != nil {
		return err
	}
	if err := fn(ctx); err != nil {
		return &StageError{Stage: stage, Err: err}
	}
	return nil
}

// advance persists the stage transition and then publishes the progress event.
func (o *Orchestrator) advance(ctx context.Context, jobID string, stage jobstore.Stage) error {
	if err := o.store.SetStage(ctx, jobID, stage); err != nil {
		return services.Wrap(services.ErrStorage, string(stage), "set-stage", jobID, err)
	}
	o.events.Publish(jobID, string(stage))
	return nil
}
