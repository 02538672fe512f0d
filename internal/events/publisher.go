package events

import (
	"context"
	"fmt"
	"time"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/pkg/pubsub"
)

const publishTimeout = 2 * time.Second

// MessagePublisher announces persisted chat messages on the event bus.
type MessagePublisher interface {
	PublishMessageCreated(ctx context.Context, msg *domain.ChatMessage) error
	Close() error
}

type busPublisher struct {
	bus     pubsub.Publisher
	channel string
}

// NewMessagePublisher publishes chat.message_created events on channel.
func NewMessagePublisher(bus pubsub.Publisher, channel string) MessagePublisher {
	if channel == "" {
		channel = pubsub.ChannelChatMessages
	}
	return &busPublisher{bus: bus, channel: channel}
}

func (p *busPublisher) PublishMessageCreated(ctx context.Context, msg *domain.ChatMessage) error {
	event, err := pubsub.NewEvent(pubsub.EventMessageCreated, msg.SenderID, msg)
	if err != nil {
		return fmt.Errorf("failed to encode message event: %w", err)
	}
	event.Timestamp = time.UnixMilli(msg.Timestamp)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := p.bus.Publish(ctx, p.channel, event); err != nil {
		return fmt.Errorf("failed to publish message event: %w", err)
	}
	return nil
}

func (p *busPublisher) Close() error {
	return p.bus.Close()
}
