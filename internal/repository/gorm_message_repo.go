package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/weiawesome/majex-chat/internal/domain"
	"github.com/weiawesome/majex-chat/internal/idgen"
	"github.com/weiawesome/majex-chat/pkg/log"
)

// GormMessageRepository implements MessageRepository using GORM.
type GormMessageRepository struct {
	db    *gorm.DB
	ids   idgen.Generator
	clock Clock
}

// NewGormMessageRepository creates a new GORM-based message repository.
func NewGormMessageRepository(db *gorm.DB, ids idgen.Generator) *GormMessageRepository {
	return &GormMessageRepository{db: db, ids: ids, clock: time.Now}
}

// WithClock replaces the clock used to stamp messages.
func (r *GormMessageRepository) WithClock(clock Clock) *GormMessageRepository {
	r.clock = clock
	return r
}

// Migrate creates or updates the messages table.
func (r *GormMessageRepository) Migrate() error {
	if err := r.db.AutoMigrate(&domain.MessageModel{}); err != nil {
		return domain.NewPersistenceError("migrate messages", err)
	}
	return nil
}

// Save persists a draft and returns it with its assigned id and timestamp.
func (r *GormMessageRepository) Save(ctx context.Context, draft domain.MessageDraft) (*domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	id, err := r.ids.Generate()
	if err != nil {
		return nil, domain.NewPersistenceError("generate message id", err)
	}

	model := &domain.MessageModel{
		ID:         id,
		SenderID:   draft.SenderID,
		SenderName: draft.SenderName,
		Text:       draft.Text,
		Timestamp:  r.clock().UnixMilli(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldSenderID, draft.SenderID).Msg("failed to insert message")
		return nil, domain.NewPersistenceError("insert message", err)
	}

	l.Debug().Str(log.FieldMessageID, model.ID).Msg("message persisted")
	return model.ToDomain(), nil
}

// ListAscending returns every message, oldest first.
func (r *GormMessageRepository) ListAscending(ctx context.Context) ([]domain.ChatMessage, error) {
	return r.list(ctx, r.db.WithContext(ctx))
}

// ListSince returns messages newer than since, oldest first.
func (r *GormMessageRepository) ListSince(ctx context.Context, since int64) ([]domain.ChatMessage, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("timestamp > ?", since))
}

// FindByID looks up a single message.
func (r *GormMessageRepository) FindByID(ctx context.Context, id string) (*domain.ChatMessage, error) {
	var model domain.MessageModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, domain.NewPersistenceError("find message", err)
	}
	return model.ToDomain(), nil
}

func (r *GormMessageRepository) list(ctx context.Context, query *gorm.DB) ([]domain.ChatMessage, error) {
	l := log.Ctx(ctx)

	var models []domain.MessageModel
	if err := query.Order("timestamp ASC").Order("id ASC").Find(&models).Error; err != nil {
		l.Error().Err(err).Msg("failed to list messages")
		return nil, domain.NewPersistenceError("list messages", err)
	}

	messages := make([]domain.ChatMessage, len(models))
	for i := range models {
		messages[i] = *models[i].ToDomain()
	}
	return messages, nil
}
