package rfp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.openly.dev/pointy"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
)

func TestChat_CreatesThenUpdatesRfp(t *testing.T) {
	// Arrange
	ctx := context.Background()
	env := newTestEnv(t, nil)
	env.drafter.On("DraftRfp", mock.Anything, mock.MatchedBy(func(r dto.DraftRequest) bool {
		return r.ExistingRfp == nil && len(r.History) == 0
	})).Return(&dto.DraftResult{
		IsRfp:        true,
		EmailSubject: pointy.String("RFP: 20 laptops"),
		EmailBody:    pointy.String("We need 20 laptops with 16GB RAM."),
	}).Once()
	env.drafter.On("DraftRfp", mock.Anything, mock.MatchedBy(func(r dto.DraftRequest) bool {
		return r.ExistingRfp != nil && r.ExistingRfp.Title == "RFP: 20 laptops" && len(r.History) == 2 && r.Message == "Make it 25"
	})).Return(&dto.DraftResult{
		IsRfp:        true,
		EmailSubject: pointy.String("RFP: 25 laptops"),
		EmailBody:    pointy.String("We need 25 laptops with 16GB RAM."),
	}).Once()

	// Act
	created, err := env.service.Chat(ctx, nil, "I need 20 laptops with 16GB RAM")
	require.NoError(t, err)
	updated, err := env.service.Chat(ctx, pointy.String(created.SessionID), "Make it 25")
	require.NoError(t, err)

	// Assert
	require.NotNil(t, created.Rfp)
	assert.Equal(t, enum.RfpStatusDraft, created.Rfp.Status)
	assert.Equal(t, "RFP Created!\n**Title:** RFP: 20 laptops\n**Description:** We need 20 laptops with 16GB RAM.", created.Message.Content)
	assert.True(t, created.Message.IsRfp)

	assert.Equal(t, created.SessionID, updated.SessionID)
	assert.Equal(t, created.Rfp.ID, updated.Rfp.ID)
	assert.Equal(t, "RFP: 25 laptops", updated.Rfp.Title)
	assert.Equal(t, "RFP Updated!\n**Title:** RFP: 25 laptops\n**Description:** We need 25 laptops with 16GB RAM.", updated.Message.Content)

	messages := env.messages(t, created.SessionID)
	require.Len(t, messages, 4)
	assert.Equal(t, enum.ChatRoleUser, messages[0].Role)
	assert.Equal(t, enum.ChatRoleAssistant, messages[1].Role)
	env.drafter.AssertExpectations(t)
}

func TestChat_NotAnRfp(t *testing.T) {
	// Arrange
	env := newTestEnv(t, nil)
	env.drafter.On("DraftRfp", mock.Anything, mock.Anything).Return(&dto.DraftResult{
		IsRfp:  false,
		Reason: pointy.String("How many laptops do you need?"),
	})

	// Act
	reply, err := env.service.Chat(context.Background(), nil, "hello")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, reply.Rfp)
	assert.Equal(t, "How many laptops do you need?", reply.Message.Content)
	assert.False(t, reply.Message.IsRfp)
	assert.Len(t, env.messages(t, reply.SessionID), 2)
}

func TestChat_RejectedAfterSend(t *testing.T) {
	// Arrange
	env := newTestEnv(t, nil)
	vendor := env.vendor(t, "Acme", "sales@acme.com")
	session, _ := env.sent(t, vendor)

	// Act
	_, err := env.service.Chat(context.Background(), pointy.String(session.ID), "change the quantity")

	// Assert
	assert.ErrorIs(t, err, errs.ErrRfpNotDraft)
	assert.Empty(t, env.messages(t, session.ID))
	env.drafter.AssertNotCalled(t, "DraftRfp", mock.Anything, mock.Anything)
}

func TestChat_Validation(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.service.Chat(context.Background(), nil, "   ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = env.service.Chat(context.Background(), pointy.String("unknown"), "hi")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
