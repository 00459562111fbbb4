package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

type fileEntry struct {
	Value     string     `yaml:"value"`
	ExpiresAt *time.Time `yaml:"expires_at,omitempty"`
}

type fileDocument struct {
	Namespaces map[string]map[string]fileEntry `yaml:"namespaces"`
}

type fileStorageRepository struct {
	mu    sync.Mutex
	path  string
	clock func() time.Time
}

// NewFileStorageRepository persists values in a YAML document at path.
// It is meant for single-user tools such as the CLI.
func NewFileStorageRepository(path string) StorageRepository {
	return &fileStorageRepository{path: path, clock: time.Now}
}

func (r *fileStorageRepository) Get(_ context.Context, namespace, key string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return "", false, err
	}
	entry, ok := doc.Namespaces[namespace][key]
	if !ok || r.expired(entry) {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (r *fileStorageRepository) Set(_ context.Context, namespace string, values map[string]string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if ttl > 0 {
		at := r.clock().Add(ttl).UTC()
		expiresAt = &at
	}
	ns, ok := doc.Namespaces[namespace]
	if !ok {
		ns = make(map[string]fileEntry, len(values))
		doc.Namespaces[namespace] = ns
	}
	for k, v := range values {
		ns[k] = fileEntry{Value: v, ExpiresAt: expiresAt}
	}
	return r.write(doc)
}

func (r *fileStorageRepository) Delete(_ context.Context, namespace string, keys ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return 0, err
	}
	ns, ok := doc.Namespaces[namespace]
	if !ok {
		return 0, nil
	}
	removed, touched := 0, false
	for _, k := range keys {
		entry, exists := ns[k]
		if !exists {
			continue
		}
		if !r.expired(entry) {
			removed++
		}
		delete(ns, k)
		touched = true
	}
	if !touched {
		return 0, nil
	}
	if len(ns) == 0 {
		delete(doc.Namespaces, namespace)
	}
	return removed, r.write(doc)
}

func (r *fileStorageRepository) PurgeExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.read()
	if err != nil {
		return 0, err
	}
	purged := 0
	for name, ns := range doc.Namespaces {
		for k, entry := range ns {
			if r.expired(entry) {
				delete(ns, k)
				purged++
			}
		}
		if len(ns) == 0 {
			delete(doc.Namespaces, name)
		}
	}
	if purged == 0 {
		return 0, nil
	}
	return purged, r.write(doc)
}

func (r *fileStorageRepository) expired(e fileEntry) bool {
	return e.ExpiresAt != nil && !r.clock().Before(*e.ExpiresAt)
}

func (r *fileStorageRepository) read() (*fileDocument, error) {
	doc := &fileDocument{}
	raw, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read storage file: %w", err)
	}
	if len(raw) > 0 {
		if err := yaml.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("decode storage file: %w", err)
		}
	}
	if doc.Namespaces == nil {
		doc.Namespaces = make(map[string]map[string]fileEntry)
	}
	return doc, nil
}

func (r *fileStorageRepository) write(doc *fileDocument) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode storage file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write storage file: %w", err)
	}
	return os.Rename(tmp, r.path)
}
