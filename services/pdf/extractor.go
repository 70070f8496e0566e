package pdf

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

type extractor struct {
	log      logger.Logger
	maxChars int
}

// NewExtractor returns an AttachmentExtractor that yields the plain text of a
// PDF, truncated to maxChars runes when maxChars > 0.
func NewExtractor(log logger.Logger, maxChars int) interfaces.AttachmentExtractor {
	return &extractor{log: log, maxChars: maxChars}
}

// ExtractText never fails: unreadable, encrypted or image-only documents
// yield an empty string.
func (e *extractor) ExtractText(ctx context.Context, data []byte) string {
	span, _ := opentracing.StartSpanFromContext(ctx, "pdfExtractor.ExtractText")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.LogKV("bytes", len(data))

	text, err := plainText(data)
	if err != nil {
		tracing.TraceErr(span, err)
		e.log.Warnf("Unable to extract pdf text: %v", err)
		return ""
	}

	text = strings.TrimSpace(text)
	if e.maxChars > 0 {
		text = utils.Truncate(text, e.maxChars)
	}
	span.LogKV("chars", len(text))
	return text
}

func plainText(data []byte) (text string, err error) {
	if len(data) == 0 {
		return "", errors.New("empty document")
	}

	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = errors.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "open pdf")
	}

	content, err := reader.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "read pdf text")
	}

	var buf bytes.Buffer
	if _, err = io.Copy(&buf, content); err != nil {
		return "", errors.Wrap(err, "copy pdf text")
	}
	return buf.String(), nil
}
