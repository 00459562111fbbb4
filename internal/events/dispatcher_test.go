package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDispatcher_PublishSubscribe(t *testing.T) {
	d := NewInMemoryDispatcher()
	ctx := context.Background()

	var got []Event
	unsubscribe := d.Subscribe(EventStorageChanged, func(_ context.Context, e Event) error {
		got = append(got, e)
		return nil
	})

	event := NewStorageChanged("tab-1", "access_token")
	assert.NoError(t, d.Publish(ctx, event))
	assert.Len(t, got, 1)
	assert.Equal(t, "tab-1", got[0].Namespace)
	assert.NotEmpty(t, got[0].ID)

	unsubscribe()
	unsubscribe()
	assert.NoError(t, d.Publish(ctx, NewStorageChanged("tab-1")))
	assert.Len(t, got, 1)
}

func TestInMemoryDispatcher_HandlerErrorsDoNotStopDelivery(t *testing.T) {
	d := NewInMemoryDispatcher()
	calls := 0
	d.Subscribe(EventStorageChanged, func(context.Context, Event) error {
		calls++
		return errors.New("boom")
	})
	d.Subscribe(EventStorageChanged, func(context.Context, Event) error {
		calls++
		return nil
	})

	assert.NoError(t, d.Publish(context.Background(), NewStorageChanged("tab")))
	assert.Equal(t, 2, calls)
}

func TestInMemoryDispatcher_UnsubscribeKeepsOthers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var first, second int
	unsubFirst := d.Subscribe(EventStorageChanged, func(context.Context, Event) error { first++; return nil })
	d.Subscribe(EventStorageChanged, func(context.Context, Event) error { second++; return nil })

	unsubFirst()
	_ = d.Publish(context.Background(), NewStorageChanged("tab"))
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
}
