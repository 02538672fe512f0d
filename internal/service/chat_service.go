package service

import (
	"context"
	"fmt"
	"time"

	"github.com/weiawesome/majex-chat/internal/audit"
	"github.com/weiawesome/majex-chat/internal/cache"
	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/events"
	"github.com/weiawesome/majex-chat/internal/hub"
	"github.com/weiawesome/majex-chat/internal/repository"
	"github.com/weiawesome/majex-chat/pkg/log"
)

type chatService struct {
	hub          *hub.Hub
	repo         repository.MessageRepository
	cache        cache.HistoryCache
	publisher    events.MessagePublisher
	writeTimeout time.Duration
}

func NewChatService(
	h *hub.Hub,
	repo repository.MessageRepository,
	historyCache cache.HistoryCache,
	publisher events.MessagePublisher,
	writeTimeout time.Duration,
) ChatService {
	return &chatService{
		hub:          h,
		repo:         repo,
		cache:        historyCache,
		publisher:    publisher,
		writeTimeout: writeTimeout,
	}
}

func (s *chatService) HandleFrame(ctx context.Context, c *hub.Client, data []byte) error {
	draft, err := domain.DecodeInbound(data)
	if err != nil {
		return err
	}

	msg, err := s.save(ctx, draft)
	if err != nil {
		audit.LogWithDetail(ctx, audit.ActionMessageDropped, draft.SenderID, err.Error(), "message dropped")
		return err
	}

	// Recipients may read history as soon as the frame lands.
	l := log.Ctx(ctx)
	if err := s.cache.Invalidate(ctx); err != nil {
		l.Warn().Err(err).Msg("history cache invalidation failed")
	}

	delivered, err := s.hub.Broadcast(ctx, domain.NewMessageFrame(msg))
	if err != nil {
		return fmt.Errorf("%w: failed to encode message frame: %v", domain.ErrUnclassified, err)
	}

	l.Debug().
		Str(log.FieldMessageID, msg.ID).
		Int(log.FieldRecipients, delivered).
		Msg("message broadcast")
	audit.Log(ctx, audit.ActionSendMessage, msg.SenderID, "message sent")

	if err := s.publisher.PublishMessageCreated(ctx, msg); err != nil {
		l.Warn().Err(err).Str(log.FieldMessageID, msg.ID).Msg("message event not published")
	}
	return nil
}

func (s *chatService) save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	if s.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.writeTimeout)
		defer cancel()
	}
	return s.repo.Save(ctx, draft)
}

func (s *chatService) OnlineCount() int {
	return s.hub.Count()
}
