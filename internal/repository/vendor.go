package repository

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

type vendorRepository struct {
	db *gorm.DB
}

func NewVendorRepository(db *gorm.DB) interfaces.VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) GetByID(ctx context.Context, id string) (*models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.GetByID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	return r.first(ctx, span, r.db.Where("id = ?", id))
}

// GetByIDAndEmail resolves a vendor only when email, a bare address or a
// From header, carries exactly the registered address.
func (r *vendorRepository) GetByIDAndEmail(ctx context.Context, id, email string) (*models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.GetByIDAndEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	tracing.TagEntity(span, id)

	vendor, err := r.first(ctx, span, r.db.Where("id = ?", id))
	if err != nil || vendor == nil {
		return nil, err
	}
	if !utils.SenderMatches(email, vendor.Email) {
		span.LogKV("senderMismatch", true)
		return nil, nil
	}
	return vendor, nil
}

func (r *vendorRepository) GetByEmail(ctx context.Context, email string) (*models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.GetByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	return r.first(ctx, span, r.db.Where("email = ?", utils.NormalizeEmail(email)))
}

func (r *vendorRepository) first(ctx context.Context, span opentracing.Span, query *gorm.DB) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := query.WithContext(ctx).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.GetByIDs")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var vendors []models.Vendor
	if len(ids) == 0 {
		return vendors, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&vendors).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepository) List(ctx context.Context) ([]models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.List")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var vendors []models.Vendor
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&vendors).Error; err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return vendors, nil
}

func (r *vendorRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "vendorRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if vendor == nil || vendor.Name == "" || vendor.Email == "" {
		return ErrInvalidInput
	}
	if err := r.db.WithContext(ctx).Create(vendor).Error; err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
