package pubsub

import "strings"

// Channel naming for chat events.
const (
	ChannelChatMessages = "chat:messages"
)

// Event types.
const (
	EventMessageCreated = "chat.message_created"
)

// channelToTopic converts a Redis-style channel to a Kafka topic name.
//
//	"chat:messages" → "chat-messages"
func channelToTopic(channel string) string {
	return strings.ReplaceAll(channel, ":", "-")
}
