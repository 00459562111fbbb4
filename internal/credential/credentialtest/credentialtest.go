// Package credentialtest builds in-memory credential providers for tests.
package credentialtest

import (
	"testing"

	"github.com/ecoai-civic/ecoai-client/internal/credential"
	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/repository"
)

// NewProvider returns a provider over memory storage and an in-memory dispatcher.
func NewProvider(t testing.TB) (*credential.Provider, events.Dispatcher) {
	t.Helper()
	sealer, err := credential.NewSealer("test-secret")
	if err != nil {
		t.Fatalf("sealer: %v", err)
	}
	dispatcher := events.NewInMemoryDispatcher()
	return credential.NewProvider(repository.NewMemoryStorageRepository(), sealer, dispatcher, nil), dispatcher
}
