package service

import (
	"context"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/hub"
)

// ChatService relays inbound chat frames to every connected client.
type ChatService interface {
	// HandleFrame decodes, persists and broadcasts one inbound frame.
	HandleFrame(ctx context.Context, client *hub.Client, data []byte) error
	OnlineCount() int
}

// HistoryService serves persisted messages, oldest first.
type HistoryService interface {
	// GetHistory returns messages newer than since, or all of them when
	// since is negative.
	GetHistory(ctx context.Context, since int64) ([]domain.ChatMessage, error)
	GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error)
}
