package rfp

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"go.openly.dev/pointy"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

// Finalize commits DRAFT->SENT for the session's rfp and then emails every
// selected vendor. Dispatch failures are reported per vendor and never undo
// the transition.
func (s *Service) Finalize(ctx context.Context, request dto.FinalizeRequest) (*dto.FinalizeResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.Finalize")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "request", request)

	vendorIDs := utils.UniqueStrings(request.VendorIDs)
	if len(vendorIDs) == 0 {
		return nil, errors.Wrap(errs.ErrValidation, "vendorIds must not be empty")
	}

	var overrides dto.RfpOverrides
	if request.IsChange {
		title := strings.TrimSpace(request.Title)
		description := strings.TrimSpace(request.Description)
		if title == "" || description == "" {
			return nil, errors.Wrap(errs.ErrValidation, "title and description are required when isChange is set")
		}
		overrides.Title = pointy.String(title)
		overrides.Description = pointy.String(description)
	}

	session, rfp, err := s.requireSessionRfp(ctx, request.SessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	rfp, vendors, err := s.repos.RfpRepository.Finalize(ctx, rfp.ID, vendorIDs, overrides)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	s.log.Infof("RFP %s sent to %d vendors", rfp.ID, len(vendors))

	report := s.dispatch(ctx, rfp, vendors)

	if _, err := s.timeline.Append(ctx, session.ID, enum.ChatRoleSystem, dispatchSummary(report), false); err != nil {
		// the transition is committed; a missing summary line is not worth failing the request
		tracing.TraceErr(span, err)
		s.log.Errorf("Unable to append dispatch summary for rfp %s: %v", rfp.ID, err)
	}

	s.publishRfpSent(ctx, rfp, vendorIDs, report)

	return &dto.FinalizeResult{Rfp: rfp, Dispatch: report}, nil
}

// Complete closes an rfp whose replies have been collected.
func (s *Service) Complete(ctx context.Context, sessionID string) (*models.RFP, error) {
	return s.transition(ctx, "RfpService.Complete", sessionID, enum.RfpStatusInProgress, enum.RfpStatusCompleted)
}

// Cancel abandons a draft.
func (s *Service) Cancel(ctx context.Context, sessionID string) (*models.RFP, error) {
	return s.transition(ctx, "RfpService.Cancel", sessionID, enum.RfpStatusDraft, enum.RfpStatusCancelled)
}

func (s *Service) transition(ctx context.Context, operation, sessionID string, from, to enum.RfpStatus) (*models.RFP, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, operation)
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	_, rfp, err := s.requireSessionRfp(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.TagEntity(span, rfp.ID)

	if rfp.Status != from {
		err = errors.Wrapf(errs.ErrInvalidTransition, "%s -> %s", rfp.Status, to)
		if from == enum.RfpStatusDraft {
			err = errors.Wrapf(errs.ErrRfpNotDraft, "rfp is %s", rfp.Status)
		}
		tracing.TraceErr(span, err)
		return nil, err
	}

	moved, err := s.repos.RfpRepository.TransitionStatus(ctx, rfp.ID, from, to)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if !moved {
		err = errors.Wrapf(errs.ErrInvalidTransition, "rfp %s changed status concurrently", rfp.ID)
		tracing.TraceErr(span, err)
		return nil, err
	}

	return s.repos.RfpRepository.GetByID(ctx, rfp.ID)
}

func (s *Service) publishRfpSent(ctx context.Context, rfp *models.RFP, vendorIDs []string, report dto.DispatchReport) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishFanoutEvent(ctx, rfp.ID, enum.RFP, dto.RfpSent{
		RfpId:     rfp.ID,
		Title:     rfp.Title,
		VendorIds: vendorIDs,
		Delivered: report.Delivered(),
		Failed:    report.Failed(),
	})
	if err != nil {
		s.log.Warnf("Unable to publish RfpSent for %s: %v", rfp.ID, err)
	}
}
