package rfp

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/metrics"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/tracking"
)

// dispatch sends one email per vendor. A failed send is recorded and the
// remaining vendors are still attempted.
func (s *Service) dispatch(ctx context.Context, rfp *models.RFP, vendors []models.Vendor) dto.DispatchReport {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.dispatch")
	defer span.Finish()
	tracing.TagEntity(span, rfp.ID)

	report := dto.DispatchReport{Results: make([]dto.DispatchResult, 0, len(vendors))}
	for _, vendor := range vendors {
		result := dto.DispatchResult{
			VendorID:   vendor.ID,
			VendorName: vendor.Name,
			Email:      vendor.Email,
		}

		err := s.sendToVendor(ctx, rfp, vendor)
		if err != nil {
			tracing.TraceErr(span, err)
			s.log.Errorf("Unable to send rfp %s to vendor %s <%s>: %v", rfp.ID, vendor.Name, vendor.Email, err)
			result.Error = err.Error()
		} else {
			result.Sent = true
		}
		metrics.CollectDispatch(result.Sent)
		report.Results = append(report.Results, result)
	}

	span.LogKV("delivered", report.Delivered(), "failed", report.Failed())
	return report
}

func (s *Service) sendToVendor(ctx context.Context, rfp *models.RFP, vendor models.Vendor) error {
	if s.mailer == nil {
		return errors.New("no mailer configured")
	}
	body, err := tracking.AppendFooter(rfp.Description, rfp.ID, vendor.ID)
	if err != nil {
		return err
	}
	messageID, err := s.mailer.Send(ctx, vendor.Email, rfp.Title, body)
	if err != nil {
		return err
	}
	s.log.Debugf("RFP %s sent to %s as %s", rfp.ID, vendor.Email, messageID)
	return nil
}

// dispatchSummary renders the SYSTEM line appended after dispatch.
func dispatchSummary(report dto.DispatchReport) string {
	var sent, failed []string
	for _, result := range report.Results {
		if result.Sent {
			sent = append(sent, result.VendorName)
		} else {
			failed = append(failed, result.VendorName)
		}
	}

	summary := fmt.Sprintf("RFP sent to %d of %d vendors: %s", len(sent), len(report.Results), joinOrNone(sent))
	if len(failed) > 0 {
		summary += fmt.Sprintf(". Failed: %s", strings.Join(failed, ", "))
	}
	return summary
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "None"
	}
	return strings.Join(values, ", ")
}
