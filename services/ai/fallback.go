package ai

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"go.openly.dev/pointy"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/metrics"
	"github.com/customeros/rfpstack/internal/tracing"
)

const (
	ExtractionFallbackNotes = "Error during AI extraction"
	DraftFallbackReason     = "I need more details about your procurement needs. What are you looking to purchase, and what are your requirements?"
)

// Fallback turns oracle failures into fixed records for the operations that
// must always produce one.
type Fallback struct {
	oracle interfaces.Oracle
	log    logger.Logger
}

func NewFallback(oracle interfaces.Oracle, log logger.Logger) *Fallback {
	return &Fallback{oracle: oracle, log: log}
}

func ExtractionFallback() *dto.ExtractionResult {
	return &dto.ExtractionResult{
		Notes:   pointy.String(ExtractionFallbackNotes),
		AiScore: 0,
	}
}

func DraftFallback() *dto.DraftResult {
	return &dto.DraftResult{
		IsRfp:  false,
		Reason: pointy.String(DraftFallbackReason),
	}
}

func (f *Fallback) ExtractProposal(ctx context.Context, request dto.ExtractionRequest) *dto.ExtractionResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Fallback.ExtractProposal")
	defer span.Finish()

	result, err := f.oracle.ExtractProposal(ctx, request)
	if err != nil || result == nil {
		tracing.TraceErr(span, err)
		span.SetTag("fallback", true)
		f.log.Warnf("Proposal extraction degraded to fallback: %v", err)
		metrics.CollectOracleFallback(operationExtraction)
		return ExtractionFallback()
	}
	return result
}

func (f *Fallback) DraftRfp(ctx context.Context, request dto.DraftRequest) *dto.DraftResult {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Fallback.DraftRfp")
	defer span.Finish()

	result, err := f.oracle.DraftRfp(ctx, request)
	if err != nil || result == nil {
		tracing.TraceErr(span, err)
		span.SetTag("fallback", true)
		f.log.Warnf("Rfp drafting degraded to fallback: %v", err)
		metrics.CollectOracleFallback(operationDraft)
		return DraftFallback()
	}
	return result
}
