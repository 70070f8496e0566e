package rfp

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
)

// ListProposals returns the session's proposals, newest first. With poll set
// the inbox is checked first; a failed poll is reported, not returned.
func (s *Service) ListProposals(ctx context.Context, sessionID string, poll bool) (*dto.ProposalList, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.ListProposals")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("sessionId", sessionID, "poll", poll)

	_, rfp, err := s.sessionRfp(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	list := &dto.ProposalList{Rfp: rfp, Proposals: []dto.ProposalView{}}

	if poll && s.poller != nil {
		result, pollErr := s.poller.Poll(ctx)
		if pollErr != nil {
			tracing.TraceErr(span, pollErr)
			s.log.Warnf("Mailbox poll before proposal listing failed: %v", pollErr)
			list.PollError = pollErr.Error()
		} else {
			list.Poll = result
		}
		if rfp != nil {
			// the poll may have moved the rfp to IN_PROGRESS
			if rfp, err = s.repos.RfpRepository.GetByID(ctx, rfp.ID); err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			list.Rfp = rfp
		}
	}

	if rfp == nil {
		return list, nil
	}

	proposals, err := s.repos.ProposalRepository.ListByRfp(ctx, rfp.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	views, err := s.proposalViews(ctx, proposals)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	list.Proposals = views
	return list, nil
}

func (s *Service) GetProposal(ctx context.Context, proposalID string) (*dto.ProposalView, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.GetProposal")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, proposalID)

	proposal, err := s.repos.ProposalRepository.GetByID(ctx, proposalID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if proposal == nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "proposal %s", proposalID)
	}

	views, err := s.proposalViews(ctx, []models.Proposal{*proposal})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &views[0], nil
}

// Poll runs the mailbox poller on demand.
func (s *Service) Poll(ctx context.Context) (*dto.PollResult, error) {
	if s.poller == nil {
		return nil, errors.Wrap(errs.ErrConnection, "mailbox is not configured")
	}
	return s.poller.Poll(ctx)
}

func (s *Service) proposalViews(ctx context.Context, proposals []models.Proposal) ([]dto.ProposalView, error) {
	vendors, err := s.vendorsByID(ctx, proposals)
	if err != nil {
		return nil, err
	}

	views := make([]dto.ProposalView, 0, len(proposals))
	for i := range proposals {
		view := dto.ProposalView{Proposal: &proposals[i]}
		if vendor, ok := vendors[proposals[i].VendorID]; ok {
			view.VendorName = vendor.Name
			view.VendorEmail = vendor.Email
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) vendorsByID(ctx context.Context, proposals []models.Proposal) (map[string]models.Vendor, error) {
	ids := make([]string, 0, len(proposals))
	for _, proposal := range proposals {
		ids = append(ids, proposal.VendorID)
	}
	byID := make(map[string]models.Vendor, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	vendors, err := s.repos.VendorRepository.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, vendor := range vendors {
		byID[vendor.ID] = vendor
	}
	return byID, nil
}

func (s *Service) vendorNames(ctx context.Context, proposals []models.Proposal) (map[string]string, error) {
	vendors, err := s.vendorsByID(ctx, proposals)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(vendors))
	for id, vendor := range vendors {
		names[id] = vendor.Name
	}
	return names, nil
}
