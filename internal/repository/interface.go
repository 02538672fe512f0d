package repository

import (
	"context"
	"errors"
	"time"

	"github.com/weiawesome/majex-chat/internal/domain"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository is the append-only chat message store. Save is the only
// place where message ids and timestamps are assigned. Every error returned
// by an implementation other than ErrMessageNotFound is a
// *domain.PersistenceError.
type MessageRepository interface {
	Save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error)
	// ListAscending returns messages ordered by timestamp, ties broken by id.
	ListAscending(ctx context.Context) ([]domain.ChatMessage, error)
	// ListSince is ListAscending restricted to timestamps strictly after since.
	ListSince(ctx context.Context, since int64) ([]domain.ChatMessage, error)
	// FindByID returns ErrMessageNotFound when no message has the id.
	FindByID(ctx context.Context, id string) (*domain.ChatMessage, error)
}

// Clock returns the current time. Stores use it to stamp messages.
type Clock func() time.Time
