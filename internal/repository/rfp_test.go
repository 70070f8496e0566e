package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
)

func TestRfpRepository_CreateForSession(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	session, rfp := seedDraft(t, db)

	assert.Equal(t, enum.RfpStatusDraft, rfp.Status)
	linked, err := NewChatRepository(db).GetSessionByRfpID(ctx, rfp.ID)
	require.NoError(t, err)
	require.NotNil(t, linked)
	assert.Equal(t, session.ID, linked.ID)

	// a session owns at most one rfp
	second := &models.RFP{Title: "other", Description: "other"}
	err = NewRfpRepository(db).CreateForSession(ctx, session.ID, second)
	assert.ErrorIs(t, err, errs.ErrValidation)

	stored, err := NewRfpRepository(db).GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestRfpRepository_UpdateDraft(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRfpRepository(db)
	_, rfp := seedDraft(t, db)

	updated, err := repo.UpdateDraft(ctx, rfp.ID, "25 laptops", "32GB RAM")
	require.NoError(t, err)
	assert.Equal(t, "25 laptops", updated.Title)
	assert.Equal(t, "32GB RAM", updated.Description)

	_, err = repo.UpdateDraft(ctx, "missing", "x", "y")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestRfpRepository_Finalize(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRfpRepository(db)
	_, rfp := seedDraft(t, db)
	a := seedVendor(t, db, "Office Pro Supplies", "sales@officepro.test")
	b := seedVendor(t, db, "Elite Electronics", "bids@elite.test")

	title := "25 laptops"
	finalized, vendors, err := repo.Finalize(ctx, rfp.ID, []string{b.ID, a.ID, b.ID}, dto.RfpOverrides{Title: &title})
	require.NoError(t, err)

	assert.Equal(t, enum.RfpStatusSent, finalized.Status)
	assert.Equal(t, "25 laptops", finalized.Title)
	assert.NotNil(t, finalized.SentAt)
	require.Len(t, vendors, 2)
	assert.Equal(t, b.ID, vendors[0].ID)
	assert.Equal(t, a.ID, vendors[1].ID)

	invited, err := repo.IsVendorInvited(ctx, rfp.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, invited)

	// second finalize is rejected, nothing changes
	_, _, err = repo.Finalize(ctx, rfp.ID, []string{a.ID}, dto.RfpOverrides{})
	assert.ErrorIs(t, err, errs.ErrRfpNotDraft)

	_, err = repo.UpdateDraft(ctx, rfp.ID, "x", "y")
	assert.ErrorIs(t, err, errs.ErrRfpNotDraft)
}

func TestRfpRepository_Finalize_UnknownVendorWritesNothing(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRfpRepository(db)
	_, rfp := seedDraft(t, db)
	a := seedVendor(t, db, "Office Pro Supplies", "sales@officepro.test")

	_, _, err := repo.Finalize(ctx, rfp.ID, []string{a.ID, "ghost"}, dto.RfpOverrides{})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Contains(t, err.Error(), "ghost")

	stored, err := repo.GetByID(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.RfpStatusDraft, stored.Status)
	assert.Nil(t, stored.SentAt)

	invited, err := repo.ListInvitedVendors(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Empty(t, invited)
}

func TestRfpRepository_Finalize_NoVendors(t *testing.T) {
	db := newTestDB(t)
	_, rfp := seedDraft(t, db)

	_, _, err := NewRfpRepository(db).Finalize(context.Background(), rfp.ID, []string{" "}, dto.RfpOverrides{})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRfpRepository_TransitionStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewRfpRepository(db)
	_, rfp := seedDraft(t, db)
	a := seedVendor(t, db, "Office Pro Supplies", "sales@officepro.test")
	_, _, err := repo.Finalize(ctx, rfp.ID, []string{a.ID}, dto.RfpOverrides{})
	require.NoError(t, err)

	moved, err := repo.TransitionStatus(ctx, rfp.ID, enum.RfpStatusSent, enum.RfpStatusInProgress)
	require.NoError(t, err)
	assert.True(t, moved)

	// stale "from" is a no-op
	moved, err = repo.TransitionStatus(ctx, rfp.ID, enum.RfpStatusSent, enum.RfpStatusInProgress)
	require.NoError(t, err)
	assert.False(t, moved)

	_, err = repo.TransitionStatus(ctx, rfp.ID, enum.RfpStatusInProgress, enum.RfpStatusDraft)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	stored, err := repo.GetByID(ctx, rfp.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.RfpStatusInProgress, stored.Status)
}
