package testsupport

import (
	"testing"

	"rhythm/internal/config"
	"rhythm/internal/queue"
)

// MustOpenLedger opens a queue.Store for tests and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
