package repository

import (
	"context"
	"sort"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/lifecycle"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

type rfpRepository struct {
	db *gorm.DB
}

func NewRfpRepository(db *gorm.DB) interfaces.RfpRepository {
	return &rfpRepository{db: db}
}

func (r *rfpRepository) GetByID(ctx context.Context, id string) (*models.RFP, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	var rfp models.RFP
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rfp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &rfp, nil
}

func (r *rfpRepository) CreateForSession(ctx context.Context, sessionID string, rfp *models.RFP) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.CreateForSession")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if rfp == nil || sessionID == "" {
		return ErrInvalidInput
	}
	rfp.Status = enum.RfpStatusDraft

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(rfp).Error; err != nil {
			return err
		}
		result := tx.Model(&models.ChatSession{}).
			Where("id = ? AND rfp_id IS NULL", sessionID).
			Updates(map[string]interface{}{"rfp_id": rfp.ID, "updated_at": utils.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.Wrapf(errs.ErrValidation, "session %s not found or already owns an rfp", sessionID)
		}
		return nil
	})
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *rfpRepository) UpdateDraft(ctx context.Context, id, title, description string) (*models.RFP, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.UpdateDraft")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	result := r.db.WithContext(ctx).Model(&models.RFP{}).
		Where("id = ? AND status = ?", id, enum.RfpStatusDraft).
		Updates(map[string]interface{}{
			"title":       title,
			"description": description,
			"updated_at":  utils.Now(),
		})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, result.Error
	}

	rfp, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rfp == nil {
		return nil, errors.Wrapf(errs.ErrNotFound, "rfp %s", id)
	}
	if result.RowsAffected == 0 {
		return nil, errors.Wrapf(errs.ErrRfpNotDraft, "rfp is %s", rfp.Status)
	}
	return rfp, nil
}

// Finalize validates every vendor id, then in one transaction flips the rfp
// to SENT, stamps sent_at, applies overrides and writes the junction rows.
// Nothing is written when any vendor id is unknown.
func (r *rfpRepository) Finalize(ctx context.Context, id string, vendorIDs []string, overrides dto.RfpOverrides) (*models.RFP, []models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.Finalize")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)
	span.LogKV("vendorIds", vendorIDs)

	vendorIDs = utils.UniqueStrings(vendorIDs)
	if len(vendorIDs) == 0 {
		return nil, nil, errors.Wrap(errs.ErrValidation, "at least one vendor is required")
	}

	var rfp models.RFP
	var vendors []models.Vendor

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&rfp).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errors.Wrapf(errs.ErrNotFound, "rfp %s", id)
			}
			return err
		}
		if err := lifecycle.ValidateTransition(rfp.Status, enum.RfpStatusSent); err != nil {
			return err
		}

		if err := tx.Where("id IN ?", vendorIDs).Find(&vendors).Error; err != nil {
			return err
		}
		if missing := missingVendorIDs(vendorIDs, vendors); len(missing) > 0 {
			return errors.Wrapf(errs.ErrValidation, "unknown vendor ids: %s", utils.SliceToString(missing))
		}

		now := utils.Now()
		updates := map[string]interface{}{
			"status":     enum.RfpStatusSent,
			"sent_at":    now,
			"updated_at": now,
		}
		if overrides.Title != nil {
			updates["title"] = *overrides.Title
		}
		if overrides.Description != nil {
			updates["description"] = *overrides.Description
		}

		// Guarded on the status read above so a concurrent finalize loses cleanly.
		result := tx.Model(&models.RFP{}).
			Where("id = ? AND status = ?", id, enum.RfpStatusDraft).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return errors.Wrap(errs.ErrRfpNotDraft, "rfp was finalized concurrently")
		}

		junction := make([]models.RfpVendor, 0, len(vendors))
		for _, vendor := range vendors {
			junction = append(junction, models.RfpVendor{RfpID: id, VendorID: vendor.ID})
		}
		if err := tx.Create(&junction).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", id).First(&rfp).Error
	})
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, nil, err
	}

	sortVendors(vendors, vendorIDs)
	return &rfp, vendors, nil
}

func (r *rfpRepository) TransitionStatus(ctx context.Context, id string, from, to enum.RfpStatus) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.TransitionStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)
	span.LogKV("from", from, "to", to)

	if err := lifecycle.ValidateTransition(from, to); err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}

	result := r.db.WithContext(ctx).Model(&models.RFP{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": utils.Now()})
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *rfpRepository) ListInvitedVendors(ctx context.Context, rfpID string) ([]models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.ListInvitedVendors")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, rfpID)

	var vendors []models.Vendor
	err := r.db.WithContext(ctx).
		Joins("JOIN rfp_vendors ON rfp_vendors.vendor_id = vendors.id").
		Where("rfp_vendors.rfp_id = ?", rfpID).
		Order("vendors.name ASC").
		Find(&vendors).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return vendors, nil
}

func (r *rfpRepository) IsVendorInvited(ctx context.Context, rfpID, vendorID string) (bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "rfpRepository.IsVendorInvited")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var count int64
	err := r.db.WithContext(ctx).Model(&models.RfpVendor{}).
		Where("rfp_id = ? AND vendor_id = ?", rfpID, vendorID).
		Count(&count).Error
	if err != nil {
		tracing.TraceErr(span, err)
		return false, err
	}
	return count > 0, nil
}

func missingVendorIDs(requested []string, found []models.Vendor) []string {
	known := make(map[string]struct{}, len(found))
	for _, vendor := range found {
		known[vendor.ID] = struct{}{}
	}
	var missing []string
	for _, id := range requested {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// sortVendors restores the caller's requested order.
func sortVendors(vendors []models.Vendor, order []string) {
	position := make(map[string]int, len(order))
	for i, id := range order {
		position[id] = i
	}
	sort.SliceStable(vendors, func(i, j int) bool {
		return position[vendors[i].ID] < position[vendors[j].ID]
	})
}
