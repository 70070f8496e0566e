package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customeros/rfpstack/internal/models"
)

func TestVendorRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewVendorRepository(db)

	vendor := seedVendor(t, db, "Global Tech Solutions", "Sales@GlobalTech.test")
	assert.Equal(t, "sales@globaltech.test", vendor.Email)

	byEmail, err := repo.GetByEmail(ctx, "SALES@globaltech.test")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, vendor.ID, byEmail.ID)

	matched, err := repo.GetByIDAndEmail(ctx, vendor.ID, "sales@globaltech.test")
	require.NoError(t, err)
	assert.NotNil(t, matched)

	mismatched, err := repo.GetByIDAndEmail(ctx, vendor.ID, "other@globaltech.test")
	require.NoError(t, err)
	assert.Nil(t, mismatched)

	for _, spoofed := range []string{
		`"sales@globaltech.test" <x@evil.io>`,
		"attacker <notsales@globaltech.test>",
		"sales@globaltech.test.evil.io",
	} {
		found, err := repo.GetByIDAndEmail(ctx, vendor.ID, spoofed)
		require.NoError(t, err)
		assert.Nil(t, found, spoofed)
	}

	unknown, err := repo.GetByIDAndEmail(ctx, "vnd_missing", "sales@globaltech.test")
	require.NoError(t, err)
	assert.Nil(t, unknown)

	duplicate := models.Vendor{Name: "Dup", Email: "sales@globaltech.test"}
	assert.Error(t, repo.Create(ctx, &duplicate))
	assert.ErrorIs(t, repo.Create(ctx, &models.Vendor{Name: "No email"}), ErrInvalidInput)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
