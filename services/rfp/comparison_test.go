package rfp

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
)

func TestCompare_NoProposals(t *testing.T) {
	// Arrange
	env := newTestEnv(t, nil)
	acme := env.vendor(t, "Acme", "sales@acme.com")
	session, _ := env.sent(t, acme)

	// Act
	_, err := env.service.Compare(context.Background(), session.ID)

	// Assert
	assert.ErrorIs(t, err, errs.ErrNoProposals)
	assert.Empty(t, env.messages(t, session.ID))
	env.oracle.AssertNotCalled(t, "CompareProposals", mock.Anything, mock.Anything)
}

func TestCompare_DraftRejected(t *testing.T) {
	env := newTestEnv(t, nil)
	session, _ := env.draft(t)

	_, err := env.service.Compare(context.Background(), session.ID)

	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Empty(t, env.messages(t, session.ID))
}

func TestCompare_Report(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv(t, nil)
	acme := env.vendor(t, "Acme", "sales@acme.com")
	globex := env.vendor(t, "Globex", "bids@globex.com")
	session, rfp := env.sent(t, acme, globex)

	_, _, err := env.repos.ProposalRepository.Upsert(ctx, &models.Proposal{
		RfpID:        rfp.ID,
		VendorID:     acme.ID,
		Price:        decimal.NewNullDecimal(decimal.NewFromInt(24000)),
		DeliveryDays: pointy.Int(14),
		AiScore:      0.8,
	})
	require.NoError(t, err)

	env.oracle.On("CompareProposals", mock.Anything, mock.MatchedBy(func(r dto.ComparisonRequest) bool {
		return r.Rfp.Title == "20 laptops" && len(r.Bids) == 1 && r.Bids[0].VendorName == "Acme" &&
			r.Bids[0].Price != nil && *r.Bids[0].Price == 24000
	})).Return(&dto.ComparisonResult{
		Winner:            dto.ComparisonWinner{Name: "Acme", Reason: "Best price"},
		ComparisonSummary: "Only one bid",
		Rankings: []dto.ComparisonRanking{
			{VendorName: "Acme", Rank: 1, Pros: []string{"Price", "Delivery"}},
		},
	}, nil)

	// Act
	reply, err := env.service.Compare(ctx, session.ID)

	// Assert
	require.NoError(t, err)
	expected := "Winner Recommendation: Acme. Best price\n\nAnalysis Summary: Only one bid\n\nDetailed Rankings:\n• Rank 1: Acme - Pros: Price, Delivery. Cons: None."
	assert.Equal(t, expected, reply.Message.Content)

	messages := env.messages(t, session.ID)
	require.Len(t, messages, 2)
	assert.Equal(t, enum.ChatRoleUser, messages[0].Role)
	assert.Equal(t, CompareRequestText, messages[0].Content)
	assert.Equal(t, enum.ChatRoleAssistant, messages[1].Role)
}

func TestCompare_OracleFailure(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv(t, nil)
	acme := env.vendor(t, "Acme", "sales@acme.com")
	session, rfp := env.sent(t, acme)
	_, _, err := env.repos.ProposalRepository.Upsert(ctx, &models.Proposal{RfpID: rfp.ID, VendorID: acme.ID})
	require.NoError(t, err)
	env.oracle.On("CompareProposals", mock.Anything, mock.Anything).Return(nil, errs.ErrOracleResponse)

	// Act
	_, err = env.service.Compare(ctx, session.ID)

	// Assert
	assert.ErrorIs(t, err, errs.ErrOracleResponse)
	messages := env.messages(t, session.ID)
	require.Len(t, messages, 1)
	assert.Equal(t, enum.ChatRoleUser, messages[0].Role)
}

func TestFormatComparisonReport(t *testing.T) {
	report := FormatComparisonReport(&dto.ComparisonResult{
		Winner:            dto.ComparisonWinner{Name: "B", Reason: "Faster."},
		ComparisonSummary: "Close call",
		Rankings: []dto.ComparisonRanking{
			{VendorName: "B", Rank: 1, Pros: []string{"fast"}, Cons: []string{"pricey", "short warranty"}},
			{VendorName: "A", Rank: 2},
		},
	})

	assert.Equal(t, "Winner Recommendation: B. Faster.\n\nAnalysis Summary: Close call\n\nDetailed Rankings:\n"+
		"• Rank 1: B - Pros: fast. Cons: pricey, short warranty.\n"+
		"• Rank 2: A - Pros: None. Cons: None.", report)
}
