package testsupport

import (
	"context"
	"testing"

	"patchtrack/internal/catalog"
	"patchtrack/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustEnsureHost creates (or fetches) a host row for tests.
func MustEnsureHost(t testing.TB, store *catalog.Store, name string) *catalog.Host {
	t.Helper()

	host, err := store.EnsureHost(context.Background(), name)
	if err != nil {
		t.Fatalf("store.EnsureHost: %v", err)
	}
	return host
}
