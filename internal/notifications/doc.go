// Package notifications delivers job lifecycle pushes through ntfy.
//
// The service is optional: when no topic is configured a noop implementation
// is returned so callers never branch on configuration. Delivery failures are
// reported to the caller but are never fatal to the pipeline.
package notifications
