package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/pkg/pubsub"
)

type fakeBus struct {
	channel string
	event   *pubsub.Event
	err     error
	closed  bool
}

func (b *fakeBus) Publish(ctx context.Context, channel string, event *pubsub.Event) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	b.channel = channel
	b.event = event
	return b.err
}

func (b *fakeBus) Close() error {
	b.closed = true
	return nil
}

func TestPublishMessageCreated(t *testing.T) {
	bus := &fakeBus{}
	p := NewMessagePublisher(bus, "")

	msg := &domain.ChatMessage{ID: "01A", SenderID: "u1", SenderName: "Alice", Text: "hi", Timestamp: 1_700_000_000_000}
	require.NoError(t, p.PublishMessageCreated(context.Background(), msg))

	assert.Equal(t, pubsub.ChannelChatMessages, bus.channel)
	require.NotNil(t, bus.event)
	assert.Equal(t, pubsub.EventMessageCreated, bus.event.Type)
	assert.Equal(t, "u1", bus.event.Key)
	assert.True(t, bus.event.Timestamp.Equal(time.UnixMilli(msg.Timestamp)))

	var got domain.ChatMessage
	require.NoError(t, bus.event.UnmarshalPayload(&got))
	assert.Equal(t, *msg, got)

	require.NoError(t, p.Close())
	assert.True(t, bus.closed)
}

func TestPublishErrorIsWrapped(t *testing.T) {
	bus := &fakeBus{err: errors.New("broker down")}
	p := NewMessagePublisher(bus, "custom:channel")

	err := p.PublishMessageCreated(context.Background(), &domain.ChatMessage{ID: "x"})
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, "custom:channel", bus.channel)
}
