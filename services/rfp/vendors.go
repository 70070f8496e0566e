package rfp

import (
	"context"
	"fmt"
	"strings"

	"github.com/customeros/mailsherpa/mailvalidate"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

// DefaultVendorNames are created by Seed.
var DefaultVendorNames = []string{
	"Global Tech Solutions",
	"Office Pro Supplies",
	"Elite Electronics",
}

func (s *Service) ListVendors(ctx context.Context) ([]models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.ListVendors")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	vendors, err := s.repos.VendorRepository.List(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return vendors, nil
}

func (s *Service) CreateVendor(ctx context.Context, name, email string) (*models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.CreateVendor")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	name = strings.TrimSpace(name)
	email = utils.NormalizeEmail(email)
	if name == "" {
		return nil, errors.Wrap(errs.ErrValidation, "vendor name is required")
	}
	if !mailvalidate.ValidateEmailSyntax(email).IsValid {
		return nil, errors.Wrapf(errs.ErrValidation, "invalid vendor email %q", email)
	}

	existing, err := s.repos.VendorRepository.GetByEmail(ctx, email)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if existing != nil {
		return nil, errors.Wrapf(errs.ErrValidation, "vendor with email %s already exists", email)
	}

	vendor := &models.Vendor{Name: name, Email: email}
	if err = s.repos.VendorRepository.Create(ctx, vendor); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return vendor, nil
}

// Seed creates the default vendors that do not exist yet. Emails come from
// SEED_VENDOR_EMAILS by position, otherwise placeholders are used.
func (s *Service) Seed(ctx context.Context) ([]models.Vendor, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.Seed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	seeded := make([]models.Vendor, 0, len(DefaultVendorNames))
	for i, name := range DefaultVendorNames {
		email := seedEmail(s.cfg.SeedVendorEmails, i)

		vendor, err := s.repos.VendorRepository.GetByEmail(ctx, email)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		if vendor == nil {
			vendor = &models.Vendor{Name: name, Email: email}
			if err = s.repos.VendorRepository.Create(ctx, vendor); err != nil {
				tracing.TraceErr(span, err)
				return nil, err
			}
			s.log.Infof("Created vendor %s <%s> with id %s", vendor.Name, vendor.Email, vendor.ID)
		}
		seeded = append(seeded, *vendor)
	}
	return seeded, nil
}

func seedEmail(configured []string, index int) string {
	if index < len(configured) {
		if email := utils.NormalizeEmail(configured[index]); email != "" {
			return email
		}
	}
	return fmt.Sprintf("vendor%d@example.com", index+1)
}
