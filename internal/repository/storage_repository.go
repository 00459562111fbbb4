package repository

import (
	"context"
	"sync"
	"time"
)

// StorageRepository persists string values under a namespace, the way a
// browser's local storage does for one origin. A namespace is one browser
// session (or one CLI profile).
type StorageRepository interface {
	// Get returns the value and whether it was present and unexpired.
	Get(ctx context.Context, namespace, key string) (string, bool, error)
	// Set writes all values at once. A positive ttl expires them afterwards.
	Set(ctx context.Context, namespace string, values map[string]string, ttl time.Duration) error
	// Delete removes the keys and reports how many were present.
	Delete(ctx context.Context, namespace string, keys ...string) (int, error)
}

// ExpiryPurger is implemented by backends that keep expired entries until
// something removes them.
type ExpiryPurger interface {
	PurgeExpired(ctx context.Context) (int, error)
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

type memoryStorageRepository struct {
	mu    sync.Mutex
	data  map[string]map[string]memoryEntry
	clock func() time.Time
}

// NewMemoryStorageRepository returns a process-local implementation.
func NewMemoryStorageRepository() StorageRepository {
	return &memoryStorageRepository{
		data:  make(map[string]map[string]memoryEntry),
		clock: time.Now,
	}
}

func (r *memoryStorageRepository) Get(_ context.Context, namespace, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.data[namespace][key]
	if !ok {
		return "", false, nil
	}
	if entry.expired(r.clock()) {
		delete(r.data[namespace], key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (r *memoryStorageRepository) Set(_ context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = r.clock().Add(ttl)
	}
	ns, ok := r.data[namespace]
	if !ok {
		ns = make(map[string]memoryEntry, len(values))
		r.data[namespace] = ns
	}
	for k, v := range values {
		ns[k] = memoryEntry{value: v, expiresAt: expiresAt}
	}
	return nil
}

func (r *memoryStorageRepository) Delete(_ context.Context, namespace string, keys ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ns, ok := r.data[namespace]
	if !ok {
		return 0, nil
	}
	now := r.clock()
	removed := 0
	for _, k := range keys {
		entry, exists := ns[k]
		if !exists {
			continue
		}
		if !entry.expired(now) {
			removed++
		}
		delete(ns, k)
	}
	if len(ns) == 0 {
		delete(r.data, namespace)
	}
	return removed, nil
}

func (r *memoryStorageRepository) PurgeExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	purged := 0
	for name, ns := range r.data {
		for k, entry := range ns {
			if entry.expired(now) {
				delete(ns, k)
				purged++
			}
		}
		if len(ns) == 0 {
			delete(r.data, name)
		}
	}
	return purged, nil
}
