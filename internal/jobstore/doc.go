// Package jobstore persists per-job state on the filesystem and mirrors it
// into a SQLite index for listing.
//
// Each job owns one directory under the jobs root. The directory holds the
// stored video, intermediate artifacts, the final report, and a status record
// that is overwritten atomically on every stage transition. The status record
// on disk is authoritative; the SQLite index is an advisory mirror that is
// recreated empty on daemon startup and exists to make listing and sorting
// cheap without walking the tree.
//
// Treat this package as the single source of truth for job lifecycle
// semantics; when you add stages, update stage.go and the pipeline order.
package jobstore
