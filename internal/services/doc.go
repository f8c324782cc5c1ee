// Package services defines shared utilities consumed by the pipeline stage
// handlers and external collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers, stage names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate collaborator
//     failures into the uniform stage-error taxonomy.
//
// Use these helpers when wiring new stage logic so operational behaviour (error
// handling, observability) stays uniform across the pipeline.
package services
