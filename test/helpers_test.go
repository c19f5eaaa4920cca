//go:build integration
// +build integration

package test

import (
	"testing"

	authsess "github.com/lumora-app/authsess"
	"github.com/lumora-app/authsess/api"
	"github.com/lumora-app/authsess/authtest"
	"github.com/lumora-app/authsess/storage"
)

const (
	seedEmail    = "alice@example.com"
	seedPassword = "correct-horse"
)

func seedUser() authtest.User {
	return authtest.User{
		ID:          "user-1",
		Email:       seedEmail,
		Password:    seedPassword,
		DisplayName: "Alice",
		Role:        "teacher",
		SchoolID:    "school-42",
	}
}

// newIntegrationClient wires a client against an in-process stub backend
// with one seeded user and a shared memory store.
func newIntegrationClient(t *testing.T) (*authsess.Client, *authtest.Backend, storage.Store, func()) {
	t.Helper()

	backend := authtest.NewBackend()
	backend.AddUser(seedUser())

	repo, err := api.New(backend.URL())
	if err != nil {
		backend.Close()
		t.Fatalf("api client failed: %v", err)
	}

	store := storage.NewMemoryStore()

	client, err := authsess.New().
		WithRepository(repo).
		WithStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		backend.Close()
		t.Fatalf("client build failed: %v", err)
	}

	return client, backend, store, func() {
		client.Close()
		backend.Close()
	}
}

// rebuildClient constructs a second client over an existing store and
// backend, the shape of an app restart.
func rebuildClient(t *testing.T, backend *authtest.Backend, store storage.Store) *authsess.Client {
	t.Helper()

	repo, err := api.New(backend.URL())
	if err != nil {
		t.Fatalf("api client failed: %v", err)
	}

	client, err := authsess.New().
		WithRepository(repo).
		WithStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("client rebuild failed: %v", err)
	}
	return client
}
