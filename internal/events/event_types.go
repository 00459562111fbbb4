package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventStorageChanged fires after any credential-store mutation.
	EventStorageChanged EventType = "storage_changed"
)

// Event is a notification about one storage namespace.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Namespace string    `json:"namespace"`
	Keys      []string  `json:"keys,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStorageChanged builds a storage_changed event for the namespace.
func NewStorageChanged(namespace string, keys ...string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      EventStorageChanged,
		Namespace: namespace,
		Keys:      keys,
		Timestamp: time.Now().UTC(),
	}
}
