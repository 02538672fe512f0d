package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/idgen"
)

// MemoryMessageRepository keeps messages in process memory. It is used when
// database.driver is "memory" and in tests.
type MemoryMessageRepository struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
	ids      idgen.Generator
	clock    Clock
}

// NewMemoryMessageRepository creates an empty in-memory repository.
func NewMemoryMessageRepository(ids idgen.Generator) *MemoryMessageRepository {
	return &MemoryMessageRepository{ids: ids, clock: time.Now}
}

// WithClock replaces the clock used to stamp messages.
func (r *MemoryMessageRepository) WithClock(clock Clock) *MemoryMessageRepository {
	r.clock = clock
	return r
}

func (r *MemoryMessageRepository) Save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewPersistenceError("insert message", err)
	}

	id, err := r.ids.Generate()
	if err != nil {
		return nil, domain.NewPersistenceError("generate message id", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg := domain.ChatMessage{
		ID:         id,
		SenderID:   draft.SenderID,
		SenderName: draft.SenderName,
		Text:       draft.Text,
		Timestamp:  r.clock().UnixMilli(),
	}
	r.messages = append(r.messages, msg)
	return &msg, nil
}

func (r *MemoryMessageRepository) ListAscending(ctx context.Context) ([]domain.ChatMessage, error) {
	return r.ListSince(ctx, -1)
}

func (r *MemoryMessageRepository) ListSince(ctx context.Context, since int64) ([]domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewPersistenceError("list messages", err)
	}

	r.mu.RLock()
	out := make([]domain.ChatMessage, 0, len(r.messages))
	for _, m := range r.messages {
		if m.Timestamp > since {
			out = append(out, m)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryMessageRepository) FindByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewPersistenceError("find message", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			msg := r.messages[i]
			return &msg, nil
		}
	}
	return nil, ErrMessageNotFound
}
