// Package rfp drives an RFP through its lifecycle: drafting in chat,
// finalizing and dispatching to vendors, and comparing the replies.
package rfp

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/interfaces"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services/timeline"
)

type Service struct {
	repos     *repository.Repositories
	timeline  *timeline.ChatTimeline
	drafter   interfaces.RfpDrafter
	oracle    interfaces.Oracle
	mailer    interfaces.Mailer
	poller    interfaces.MailboxPoller
	publisher interfaces.EventPublisher
	cfg       *config.IngestionConfig
	log       logger.Logger
}

type ServiceDeps struct {
	Repos     *repository.Repositories
	Timeline  *timeline.ChatTimeline
	Drafter   interfaces.RfpDrafter
	Oracle    interfaces.Oracle
	Mailer    interfaces.Mailer
	Poller    interfaces.MailboxPoller
	Publisher interfaces.EventPublisher
	Config    *config.IngestionConfig
	Log       logger.Logger
}

func NewService(deps ServiceDeps) *Service {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.IngestionConfig{}
	}
	return &Service{
		repos:     deps.Repos,
		timeline:  deps.Timeline,
		drafter:   deps.Drafter,
		oracle:    deps.Oracle,
		mailer:    deps.Mailer,
		poller:    deps.Poller,
		publisher: deps.Publisher,
		cfg:       cfg,
		log:       deps.Log,
	}
}

// sessionRfp loads a session and the rfp it owns, which may be nil.
func (s *Service) sessionRfp(ctx context.Context, sessionID string) (*models.ChatSession, *models.RFP, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.sessionRfp")
	defer span.Finish()

	if sessionID == "" {
		return nil, nil, errors.Wrap(errs.ErrValidation, "sessionId is required")
	}

	session, err := s.timeline.GetSession(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	if session.RfpID == nil {
		return session, nil, nil
	}

	rfp, err := s.repos.RfpRepository.GetByID(ctx, *session.RfpID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}
	return session, rfp, nil
}

// requireSessionRfp is sessionRfp for operations that need an rfp to exist.
func (s *Service) requireSessionRfp(ctx context.Context, sessionID string) (*models.ChatSession, *models.RFP, error) {
	session, rfp, err := s.sessionRfp(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if rfp == nil {
		return nil, nil, errors.Wrapf(errs.ErrNotFound, "session %s has no rfp", sessionID)
	}
	return session, rfp, nil
}
