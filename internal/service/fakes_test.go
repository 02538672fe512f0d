package service

import (
	"context"
	"errors"
	"sync"

	"github.com/weiawesome/majex-chat/internal/cache"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/idgen"
	"github.com/weiawesome/majex-chat/internal/repository"
)

// flakyRepo wraps the in-memory store and can be told to fail.
type flakyRepo struct {
	*repository.MemoryMessageRepository
	mu        sync.Mutex
	fail      bool
	listCalls int
}

func newFlakyRepo() *flakyRepo {
	return &flakyRepo{MemoryMessageRepository: repository.NewMemoryMessageRepository(idgen.NewULIDGenerator())}
}

func (r *flakyRepo) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

func (r *flakyRepo) Save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	r.mu.Lock()
	fail := r.fail
	r.mu.Unlock()
	if fail {
		return nil, domain.NewPersistenceError("insert message", errors.New("disk full"))
	}
	return r.MemoryMessageRepository.Save(ctx, draft)
}

func (r *flakyRepo) ListAscending(ctx context.Context) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	r.listCalls++
	r.mu.Unlock()
	return r.MemoryMessageRepository.ListAscending(ctx)
}

type mapCache struct {
	mu          sync.Mutex
	entries     map[string][]domain.ChatMessage
	invalidated int
	// onInvalidate runs before the entries are dropped.
	onInvalidate func()
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]domain.ChatMessage)}
}

func (c *mapCache) Get(_ context.Context, field string) ([]domain.ChatMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.entries[field]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return m, nil
}

func (c *mapCache) Set(_ context.Context, field string, messages []domain.ChatMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[field] = messages
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	if c.onInvalidate != nil {
		c.onInvalidate()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]domain.ChatMessage)
	c.invalidated++
	return nil
}

func (c *mapCache) Close() error { return nil }

type recordingPublisher struct {
	mu        sync.Mutex
	published []domain.ChatMessage
	err       error
}

func (p *recordingPublisher) PublishMessageCreated(_ context.Context, msg *domain.ChatMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, *msg)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }
