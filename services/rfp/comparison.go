package rfp

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/lifecycle"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
)

const CompareRequestText = "Analyze and compare the available vendor proposals for me."

// Compare asks the oracle to rank the received proposals and appends the
// report to the session. Oracle failures are returned; there is no fallback.
func (s *Service) Compare(ctx context.Context, sessionID string) (*dto.ComparisonReply, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.Compare")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	session, rfp, err := s.requireSessionRfp(ctx, sessionID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.TagEntity(span, rfp.ID)

	count, err := s.repos.ProposalRepository.CountByRfp(ctx, rfp.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if err = lifecycle.CanCompare(rfp.Status, count); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	proposals, err := s.repos.ProposalRepository.ListByRfp(ctx, rfp.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	bids, err := s.vendorBids(ctx, proposals)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	if _, err = s.timeline.Append(ctx, session.ID, enum.ChatRoleUser, CompareRequestText, false); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	comparison, err := s.oracle.CompareProposals(ctx, dto.ComparisonRequest{
		Rfp:  dto.RfpContext{Title: rfp.Title, Description: rfp.Description},
		Bids: bids,
	})
	if err != nil {
		tracing.TraceErr(span, err)
		if !errors.Is(err, errs.ErrOracle) && !errors.Is(err, errs.ErrOracleResponse) {
			err = errors.Wrap(errs.ErrOracle, err.Error())
		}
		return nil, err
	}

	message, err := s.timeline.Append(ctx, session.ID, enum.ChatRoleAssistant, FormatComparisonReport(comparison), false)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &dto.ComparisonReply{Message: message, Comparison: comparison}, nil
}

func (s *Service) vendorBids(ctx context.Context, proposals []models.Proposal) ([]dto.VendorBid, error) {
	names, err := s.vendorNames(ctx, proposals)
	if err != nil {
		return nil, err
	}

	bids := make([]dto.VendorBid, 0, len(proposals))
	for _, proposal := range proposals {
		bid := dto.VendorBid{
			VendorName:   names[proposal.VendorID],
			DeliveryDays: proposal.DeliveryDays,
			Warranty:     proposal.Warranty,
			PaymentTerms: proposal.PaymentTerms,
			Notes:        proposal.Notes,
			AiSummary:    proposal.AiSummary,
			AiScore:      proposal.AiScore,
		}
		if proposal.Price.Valid {
			price := proposal.Price.Decimal.InexactFloat64()
			bid.Price = &price
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

// FormatComparisonReport renders the comparison as the chat report text.
func FormatComparisonReport(comparison *dto.ComparisonResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Winner Recommendation: %s. %s", comparison.Winner.Name, comparison.Winner.Reason)
	fmt.Fprintf(&sb, "\n\nAnalysis Summary: %s", comparison.ComparisonSummary)
	sb.WriteString("\n\nDetailed Rankings:\n")

	lines := make([]string, 0, len(comparison.Rankings))
	for _, ranking := range comparison.Rankings {
		lines = append(lines, fmt.Sprintf("• Rank %d: %s - Pros: %s. Cons: %s.",
			ranking.Rank, ranking.VendorName, joinOrNone(ranking.Pros), joinOrNone(ranking.Cons)))
	}
	sb.WriteString(strings.Join(lines, "\n"))
	return sb.String()
}
