package rfp

import (
	"context"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
)

// SessionState is everything a client needs to render one conversation.
func (s *Service) SessionState(ctx context.Context, sessionID string) (*dto.SessionState, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.SessionState")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, rfp, err := s.sessionRfp(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	messages, err := s.timeline.History(ctx, session.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	state := &dto.SessionState{
		Session:  session,
		Rfp:      rfp,
		Messages: messages,
		Vendors:  []models.Vendor{},
	}
	if rfp != nil {
		vendors, err := s.repos.RfpRepository.ListInvitedVendors(ctx, rfp.ID)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		state.Vendors = vendors
	}
	return state, nil
}

// ListSessions returns every conversation with its rfp, most recent first.
func (s *Service) ListSessions(ctx context.Context) ([]dto.SessionSummary, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.ListSessions")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	sessions, err := s.timeline.ListSessions(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	summaries := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summary := dto.SessionSummary{SessionID: session.ID, CreatedAt: session.CreatedAt}
		if session.RfpID != nil {
			rfp, err := s.repos.RfpRepository.GetByID(ctx, *session.RfpID)
			if err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			summary.Rfp = rfp
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
