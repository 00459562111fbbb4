package guard

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ticket identifies one navigation attempt within a namespace.
type Ticket struct {
	Namespace string
	Target    string
	Seq       uint64
}

// Tracker remembers the latest navigation per namespace so that evaluations
// which finish after the user moved on can be discarded.
type Tracker interface {
	// Begin starts a navigation and supersedes any earlier one in the namespace.
	Begin(ctx context.Context, namespace, target string) Ticket
	// Settle reports whether the ticket still belongs to the latest navigation.
	Settle(ctx context.Context, t Ticket) bool
}

type memoryTracker struct {
	mu     sync.Mutex
	seq    uint64
	latest map[string]uint64
}

// NewMemoryTracker tracks navigations in process memory.
func NewMemoryTracker() Tracker {
	return &memoryTracker{latest: make(map[string]uint64)}
}

func (m *memoryTracker) Begin(_ context.Context, namespace, target string) Ticket {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.latest[namespace] = m.seq
	return Ticket{Namespace: namespace, Target: target, Seq: m.seq}
}

func (m *memoryTracker) Settle(_ context.Context, t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.latest[t.Namespace]
	if !ok || current != t.Seq {
		return false
	}
	delete(m.latest, t.Namespace)
	return true
}

type redisTracker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisTracker shares navigation sequence numbers across server instances.
func NewRedisTracker(client *redis.Client, logger *zap.Logger) Tracker {
	return &redisTracker{client: client, ttl: 5 * time.Minute, logger: logger}
}

func (r *redisTracker) key(namespace string) string {
	return "nav:" + namespace
}

func (r *redisTracker) Begin(ctx context.Context, namespace, target string) Ticket {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, r.key(namespace))
		pipe.Expire(ctx, r.key(namespace), r.ttl)
		return nil
	})
	if err != nil {
		r.logger.Warn("navigation tracker unavailable", zap.String("namespace", namespace), zap.Error(err))
		return Ticket{Namespace: namespace, Target: target}
	}
	return Ticket{Namespace: namespace, Target: target, Seq: uint64(incr.Val())}
}

func (r *redisTracker) Settle(ctx context.Context, t Ticket) bool {
	if t.Seq == 0 {
		// Begin could not reach redis; nothing to compare against
		return true
	}
	current, err := r.client.Get(ctx, r.key(t.Namespace)).Uint64()
	if err != nil {
		r.logger.Warn("navigation tracker unavailable", zap.String("namespace", t.Namespace), zap.Error(err))
		return true
	}
	return current == t.Seq
}
