package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/majex-chat/internal/cache"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/repository"
	"github.com/weiawesome/majex-chat/pkg/log"
)

const fetchTimeout = 5 * time.Second

type historyService struct {
	repo  repository.MessageRepository
	cache cache.HistoryCache
	sf    singleflight.Group
}

func NewHistoryService(repo repository.MessageRepository, historyCache cache.HistoryCache) HistoryService {
	return &historyService{
		repo:  repo,
		cache: historyCache,
	}
}

func (s *historyService) GetHistory(ctx context.Context, since int64) ([]domain.ChatMessage, error) {
	field := cache.FieldSince(since)

	// Concurrent requests for the same range share one lookup. The lookup
	// outlives any single caller; each caller stops waiting on its own ctx.
	ch := s.sf.DoChan(field, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetchWithCache(fetchCtx, since, field)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.Err != nil {
		return nil, res.Err
	}

	messages, ok := res.Val.([]domain.ChatMessage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return messages, nil
}

func (s *historyService) fetchWithCache(ctx context.Context, since int64, field string) ([]domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	cached, err := s.cache.Get(ctx, field)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l.Warn().Err(err).Msg("cache get error")
	}

	var messages []domain.ChatMessage
	if since < 0 {
		messages, err = s.repo.ListAscending(ctx)
	} else {
		messages, err = s.repo.ListSince(ctx, since)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from repository: %w", err)
	}

	if err := s.cache.Set(ctx, field, messages); err != nil {
		l.Warn().Err(err).Msg("cache set error")
	}

	return messages, nil
}

func (s *historyService) GetMessage(ctx context.Context, id string) (*domain.ChatMessage, error) {
	return s.repo.FindByID(ctx, id)
}
