// Package timeline is the append-only conversation log of a chat session.
package timeline

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
)

// RecentWindowSize is the number of trailing messages handed to the oracle.
const RecentWindowSize = 6

type ChatTimeline struct {
	chatRepository interfaces.ChatRepository
}

func NewChatTimeline(chatRepository interfaces.ChatRepository) *ChatTimeline {
	return &ChatTimeline{chatRepository: chatRepository}
}

func (t *ChatTimeline) StartSession(ctx context.Context) (*models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.StartSession")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, err := t.chatRepository.CreateSession(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("sessionId", session.ID)
	return session, nil
}

// GetSession returns ErrNotFound for an unknown id.
func (t *ChatTimeline) GetSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.GetSession")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("sessionId", sessionID)

	session, err := t.chatRepository.GetSession(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if session == nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "chat session %s", sessionID)
	}
	return session, nil
}

func (t *ChatTimeline) Append(ctx context.Context, sessionID string, role enum.ChatRole, content string, isRfp bool) (*models.ChatMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.Append")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("sessionId", sessionID, "role", role.String())

	message := &models.ChatMessage{
		ChatSessionID: sessionID,
		Role:          role,
		Content:       content,
		IsRfp:         isRfp,
	}
	if err := t.chatRepository.AppendMessage(ctx, message); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return message, nil
}

// AppendToRfp appends to the session that owns the rfp. It returns nil, nil
// when the rfp has no session.
func (t *ChatTimeline) AppendToRfp(ctx context.Context, rfpID string, role enum.ChatRole, content string) (*models.ChatMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.AppendToRfp")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, rfpID)

	session, err := t.chatRepository.GetSessionByRfpID(ctx, rfpID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if session == nil {
		span.LogKV("result", "no session")
		return nil, nil
	}
	return t.Append(ctx, session.ID, role, content, false)
}

func (t *ChatTimeline) History(ctx context.Context, sessionID string) ([]models.ChatMessage, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.History")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	messages, err := t.chatRepository.ListMessages(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return messages, nil
}

// RecentWindow returns the last RecentWindowSize messages, oldest first.
func (t *ChatTimeline) RecentWindow(ctx context.Context, sessionID string) ([]dto.ChatLine, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.RecentWindow")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	messages, err := t.chatRepository.ListRecentMessages(ctx, sessionID, RecentWindowSize)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	lines := make([]dto.ChatLine, 0, len(messages))
	for _, message := range messages {
		lines = append(lines, dto.ChatLine{Role: message.Role, Content: message.Content})
	}
	return lines, nil
}

func (t *ChatTimeline) ListSessions(ctx context.Context) ([]models.ChatSession, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ChatTimeline.ListSessions")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	sessions, err := t.chatRepository.ListSessions(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return sessions, nil
}
