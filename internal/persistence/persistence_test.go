package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ecoai-civic/ecoai-client/internal/config"
)

func TestRetryConnect_EventuallySucceeds(t *testing.T) {
	attempts := 0
	err := retryConnect(context.Background(), config.ConnectConfig{MaxElapsedSeconds: 5}, zap.NewNop(), "test", func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryConnect_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryConnect(ctx, config.ConnectConfig{MaxElapsedSeconds: 5}, zap.NewNop(), "test", func() error {
		return errors.New("down")
	})
	require.Error(t, err)
}

func TestMigrationFiles_SortedSQLOnly(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"002_b.sql", "001_a.sql", "README.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_a.sql", "002_b.sql"}, files)

	_, err = migrationFiles(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRepositoryMigrationsPresent(t *testing.T) {
	files, err := migrationFiles(filepath.Join("..", "..", DefaultMigrationsDir))
	require.NoError(t, err)
	assert.Contains(t, files, "001_client_storage.sql")
}
