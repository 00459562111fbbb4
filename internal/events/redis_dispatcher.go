package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisDispatcher fans events out over Redis pub/sub so every server
// instance sees storage changes made by any other instance.
type redisDispatcher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisDispatcher publishes on channel. Subscribers receive events from all publishers.
func NewRedisDispatcher(client *redis.Client, channel string, logger *zap.Logger) Dispatcher {
	return &redisDispatcher{client: client, channel: channel, logger: logger}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return d.client.Publish(ctx, d.channel, payload).Err()
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) Unsubscribe {
	ctx, cancel := context.WithCancel(context.Background())
	pubsub := d.client.Subscribe(ctx, d.channel)

	go func() {
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				d.logger.Warn("dropping malformed event", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if event.Type != eventType {
				continue
			}
			if err := handler(ctx, event); err != nil {
				d.logger.Debug("event handler failed", zap.String("event_id", event.ID), zap.Error(err))
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			_ = pubsub.Close()
		})
	}
}
