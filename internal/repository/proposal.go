package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

type proposalRepository struct {
	db *gorm.DB
}

func NewProposalRepository(db *gorm.DB) interfaces.ProposalRepository {
	return &proposalRepository{db: db}
}

// Upsert is a single INSERT ... ON CONFLICT statement so that overlapping
// polls converge on one row per (rfp, vendor). Identity columns are only
// written by the insert branch.
func (r *proposalRepository) Upsert(ctx context.Context, proposal *models.Proposal) (*models.Proposal, bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "proposalRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if proposal == nil || proposal.RfpID == "" || proposal.VendorID == "" {
		return nil, false, ErrInvalidInput
	}
	span.LogKV("rfpId", proposal.RfpID, "vendorId", proposal.VendorID)

	proposal.ID = utils.GenerateNanoIDWithPrefix("prop", 16)
	proposal.AiScore = utils.ClampScore(proposal.AiScore)

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "rfp_id"}, {Name: "vendor_id"}},
		DoUpdates: clause.AssignmentColumns(models.ProposalMutableColumns),
	}).Create(proposal).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}

	var stored models.Proposal
	err = r.db.WithContext(ctx).
		Where("rfp_id = ? AND vendor_id = ?", proposal.RfpID, proposal.VendorID).
		First(&stored).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}

	created := stored.ID == proposal.ID
	span.LogKV("proposalId", stored.ID, "created", created)
	return &stored, created, nil
}

func (r *proposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "proposalRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	var proposal models.Proposal
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&proposal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &proposal, nil
}

func (r *proposalRepository) ListByRfp(ctx context.Context, rfpID string) ([]models.Proposal, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "proposalRepository.ListByRfp")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, rfpID)

	var proposals []models.Proposal
	err := r.db.WithContext(ctx).
		Where("rfp_id = ?", rfpID).
		Order("created_at DESC").
		Find(&proposals).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return proposals, nil
}

func (r *proposalRepository) CountByRfp(ctx context.Context, rfpID string) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "proposalRepository.CountByRfp")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Proposal{}).Where("rfp_id = ?", rfpID).Count(&count).Error; err != nil {
		tracing.TraceErr(span, err)
		return 0, err
	}
	return count, nil
}
