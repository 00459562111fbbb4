package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newRepos(t *testing.T, clock *fakeClock) map[string]StorageRepository {
	t.Helper()
	mem := NewMemoryStorageRepository().(*memoryStorageRepository)
	mem.clock = clock.Now
	file := NewFileStorageRepository(filepath.Join(t.TempDir(), "nested", "storage.yaml")).(*fileStorageRepository)
	file.clock = clock.Now
	return map[string]StorageRepository{"memory": mem, "file": file}
}

func TestStorageRepository_SetGetDelete(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for name, repo := range newRepos(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, ok, err := repo.Get(ctx, "tab", "access_token")
			require.NoError(t, err)
			assert.False(t, ok)

			err = repo.Set(ctx, "tab", map[string]string{"access_token": "a", "refresh_token": "b"}, 0)
			require.NoError(t, err)

			val, ok, err := repo.Get(ctx, "tab", "access_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "a", val)

			// other namespaces are isolated
			_, ok, err = repo.Get(ctx, "other", "access_token")
			require.NoError(t, err)
			assert.False(t, ok)

			n, err := repo.Delete(ctx, "tab", "access_token", "refresh_token", "role")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			n, err = repo.Delete(ctx, "tab", "access_token", "refresh_token", "role")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestStorageRepository_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	for name, repo := range newRepos(t, clock) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Set(ctx, "tab", map[string]string{"refresh_token": "r"}, time.Hour))

			_, ok, err := repo.Get(ctx, "tab", "refresh_token")
			require.NoError(t, err)
			assert.True(t, ok)

			clock.now = clock.now.Add(2 * time.Hour)
			_, ok, err = repo.Get(ctx, "tab", "refresh_token")
			require.NoError(t, err)
			assert.False(t, ok)

			// expired values do not count as removed
			require.NoError(t, repo.Set(ctx, "tab", map[string]string{"role": "staff"}, time.Minute))
			clock.now = clock.now.Add(time.Hour)
			n, err := repo.Delete(ctx, "tab", "role")
			require.NoError(t, err)
			assert.Zero(t, n)
			clock.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		})
	}
}

func TestFileStorageRepository_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.yaml")
	ctx := context.Background()

	first := NewFileStorageRepository(path)
	require.NoError(t, first.Set(ctx, "default", map[string]string{"access_token": "a"}, 0))

	second := NewFileStorageRepository(path)
	val, ok, err := second.Get(ctx, "default", "access_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", val)
}

func TestStorageRepository_PurgeExpired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ctx := context.Background()
	for name, repo := range newRepos(t, clock) {
		t.Run(name, func(t *testing.T) {
			purger, ok := repo.(ExpiryPurger)
			require.True(t, ok)

			require.NoError(t, repo.Set(ctx, "a", map[string]string{"k": "v"}, time.Minute))
			require.NoError(t, repo.Set(ctx, "b", map[string]string{"k": "v"}, 0))

			n, err := purger.PurgeExpired(ctx)
			require.NoError(t, err)
			assert.Zero(t, n)

			clock.now = clock.now.Add(2 * time.Minute)
			n, err = purger.PurgeExpired(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			_, found, err := repo.Get(ctx, "b", "k")
			require.NoError(t, err)
			assert.True(t, found)
			clock.now = clock.now.Add(-2 * time.Minute)
		})
	}
}
