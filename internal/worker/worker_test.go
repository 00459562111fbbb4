package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoai-civic/ecoai-client/internal/events"
	"github.com/ecoai-civic/ecoai-client/internal/observability"
	"github.com/ecoai-civic/ecoai-client/internal/service"
)

type countingPurger struct{ calls atomic.Int32 }

func (p *countingPurger) PurgeExpired(context.Context) (int, error) {
	p.calls.Add(1)
	return 1, nil
}

func TestStorageJanitor_RunsUntilCancelled(t *testing.T) {
	purger := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartStorageJanitor(ctx, purger, 5*time.Millisecond, nil)

	require.Eventually(t, func() bool { return purger.calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestStorageJanitor_DisabledWithoutPurger(t *testing.T) {
	done := StartStorageJanitor(context.Background(), nil, time.Second, nil)
	_, open := <-done
	assert.False(t, open)
}

func TestSessionAuditWorker_CountsChanges(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	stop := StartSessionAuditWorker(service.NewSessionAuditService(dispatcher, nil, metrics))

	require.NoError(t, dispatcher.Publish(context.Background(), events.NewStorageChanged("ns", "access_token")))
	stop()
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewStorageChanged("ns", "access_token")))

	assert.Equal(t, int64(1), metrics.Snapshot().StorageChanges)
}
