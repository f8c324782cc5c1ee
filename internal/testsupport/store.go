package testsupport

import (
	"context"
	"testing"

	"clipsight/internal/config"
	"clipsight/internal/jobstore"
)

// MustOpenStore opens a jobstore.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob creates a job directory for tests using the provided store.
func NewJob(t testing.TB, store *jobstore.Store, jobID string) string {
	t.Helper()

	dir, err := store.Create(context.Background(), jobID)
	if err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return dir
}
