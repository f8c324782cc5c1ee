// Package logging wraps log/slog with the handlers and attribute helpers used
// across clipsight.
//
// Two output formats are supported: a console handler that renders
// single-line, field-suffixed records for interactive use, and a JSON handler
// for machine consumption. Context helpers lift job, stage, and correlation
// identifiers out of a context.Context so stage code never threads them by
// hand.
package logging
