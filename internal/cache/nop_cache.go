package cache

import (
	"context"

	"github.com/weiawesome/majex-chat/internal/domain"
)

// NopCache is used when redis is disabled. Every lookup misses.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]domain.ChatMessage, error) {
	return nil, ErrCacheMiss
}

func (NopCache) Set(context.Context, string, []domain.ChatMessage) error { return nil }

func (NopCache) Invalidate(context.Context) error { return nil }

func (NopCache) Close() error { return nil }
