package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/metrics"
	"github.com/customeros/rfpstack/internal/tracing"
)

const (
	operationDraft      = "draft_rfp"
	operationExtraction = "extract_proposal"
	operationComparison = "compare_proposals"
)

type openAIOracle struct {
	client      *openai.Client
	cfg         *config.AIConfig
	log         logger.Logger
	temperature float32
}

func NewOpenAIOracle(cfg *config.AIConfig, log logger.Logger) interfaces.Oracle {
	clientConfig := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseUrl != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.BaseUrl, "/")
	}
	clientConfig.HTTPClient = &http.Client{
		Transport: metrics.NewRequestWatcher("openai"),
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}

	return &openAIOracle{
		client:      openai.NewClientWithConfig(clientConfig),
		cfg:         cfg,
		log:         log,
		temperature: temperature,
	}
}

func (o *openAIOracle) DraftRfp(ctx context.Context, request dto.DraftRequest) (*dto.DraftResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIOracle.DraftRfp")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("existingRfp", request.ExistingRfp != nil, "history", len(request.History))

	content, err := o.complete(ctx, operationDraft, draftSystemPrompt, buildDraftPrompt(request))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := decodeDraft(content)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.LogObjectAsJson(span, "result", result)
	return result, nil
}

func (o *openAIOracle) ExtractProposal(ctx context.Context, request dto.ExtractionRequest) (*dto.ExtractionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIOracle.ExtractProposal")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bodyChars", len(request.EmailBody), "attachmentChars", len(request.AttachmentText))

	content, err := o.complete(ctx, operationExtraction, extractionSystemPrompt, buildExtractionPrompt(request))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := decodeExtraction(content)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.LogObjectAsJson(span, "result", result)
	return result, nil
}

func (o *openAIOracle) CompareProposals(ctx context.Context, request dto.ComparisonRequest) (*dto.ComparisonResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "openAIOracle.CompareProposals")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("bids", len(request.Bids))

	prompt, err := buildComparisonPrompt(request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to build comparison prompt")
	}

	content, err := o.complete(ctx, operationComparison, comparisonSystemPrompt, prompt)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := decodeComparison(content)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.LogObjectAsJson(span, "result", result)
	return result, nil
}

// complete runs one JSON-mode chat completion bounded by the configured timeout.
func (o *openAIOracle) complete(ctx context.Context, operation, system, prompt string) (content string, err error) {
	defer func(start time.Time) {
		metrics.CollectOracleMetric(operation, err, start)
	}(time.Now())

	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.cfg.Model,
		Temperature: o.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", errors.Wrapf(errs.ErrOracle, "openai.CreateChatCompletion: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Wrap(errs.ErrOracleResponse, "openai.CreateChatCompletion: no choices found")
	}

	content = resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", errors.Wrap(errs.ErrOracleResponse, "empty completion")
	}
	return content, nil
}
