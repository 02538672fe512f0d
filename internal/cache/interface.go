package cache

import (
	"context"
	"errors"
	"strconv"

	"github.com/weiawesome/majex-chat/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// HistoryCache stores rendered history queries. All entries live under one
// prefix so that a new message can invalidate them in a single call.
type HistoryCache interface {
	Get(ctx context.Context, field string) ([]domain.ChatMessage, error)
	Set(ctx context.Context, field string, messages []domain.ChatMessage) error
	Invalidate(ctx context.Context) error
	Close() error
}

// FieldAll is the cache field for the complete ascending history.
const FieldAll = "all"

// FieldSince returns the cache field for history newer than since.
func FieldSince(since int64) string {
	if since < 0 {
		return FieldAll
	}
	return "since:" + strconv.FormatInt(since, 10)
}
