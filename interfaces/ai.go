package interfaces

import (
	"context"

	"github.com/customeros/rfpstack/dto"
)

// Oracle is the structured AI capability. Implementations return an error
// for any transport failure or any response outside the operation's schema.
type Oracle interface {
	DraftRfp(ctx context.Context, request dto.DraftRequest) (*dto.DraftResult, error)
	ExtractProposal(ctx context.Context, request dto.ExtractionRequest) (*dto.ExtractionResult, error)
	CompareProposals(ctx context.Context, request dto.ComparisonRequest) (*dto.ComparisonResult, error)
}

// ProposalExtractor always yields a record, degrading to a fixed fallback.
type ProposalExtractor interface {
	ExtractProposal(ctx context.Context, request dto.ExtractionRequest) *dto.ExtractionResult
}

// RfpDrafter always yields a record, degrading to a fixed fallback.
type RfpDrafter interface {
	DraftRfp(ctx context.Context, request dto.DraftRequest) *dto.DraftResult
}

type AttachmentExtractor interface {
	ExtractText(ctx context.Context, data []byte) string
}
