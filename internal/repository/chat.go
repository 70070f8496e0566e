package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
)

type chatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) interfaces.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateSession(ctx context.Context) (*models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.CreateSession")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	session := &models.ChatSession{}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return session, nil
}

func (r *chatRepository) GetSession(ctx context.Context, id string) (*models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.GetSession")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.firstSession(ctx, span, "id = ?", id)
}

func (r *chatRepository) GetSessionByRfpID(ctx context.Context, rfpID string) (*models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.GetSessionByRfpID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, rfpID)

	return r.firstSession(ctx, span, "rfp_id = ?", rfpID)
}

func (r *chatRepository) firstSession(ctx context.Context, span opentracing.Span, query string, arg string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).Where(query, arg).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &session, nil
}

func (r *chatRepository) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.ListSessions")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var sessions []models.ChatSession
	if err := r.db.WithContext(ctx).Order("updated_at DESC").Find(&sessions).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return sessions, nil
}

func (r *chatRepository) AppendMessage(ctx context.Context, message *models.ChatMessage) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.AppendMessage")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if message == nil || message.ChatSessionID == "" {
		return ErrInvalidInput
	}
	span.LogKV("sessionId", message.ChatSessionID, "role", message.Role)

	if err := r.db.WithContext(ctx).Create(message).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	err := r.db.WithContext(ctx).Model(&models.ChatSession{}).
		Where("id = ?", message.ChatSessionID).
		Update("updated_at", message.CreatedAt).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}

func (r *chatRepository) ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.ListMessages")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, sessionID)

	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return messages, nil
}

// ListRecentMessages returns the newest limit messages in ascending order.
func (r *chatRepository) ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "chatRepository.ListRecentMessages")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, sessionID)

	var messages []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("chat_session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
