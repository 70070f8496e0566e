package ingestion

import (
	"bytes"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/utils"
)

// parseMessage decodes a raw RFC822 message. enmime down-converts HTML-only
// bodies into Text.
func parseMessage(raw *dto.RawMessage) (*dto.InboundMessage, error) {
	if raw == nil || len(bytes.TrimSpace(raw.Raw)) == 0 {
		return nil, errors.Wrap(errs.ErrParse, "empty message")
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw.Raw))
	if err != nil {
		return nil, errors.Wrap(errs.ErrParse, err.Error())
	}

	from := strings.TrimSpace(envelope.GetHeader("From"))
	if from == "" {
		return nil, errors.Wrap(errs.ErrParse, "missing From header")
	}

	message := &dto.InboundMessage{
		UID:         raw.UID,
		From:        from,
		FromAddress: utils.SenderAddress(from),
		Subject:     envelope.GetHeader("Subject"),
		MessageID:   strings.Trim(envelope.GetHeader("Message-ID"), "<> "),
		Body:        strings.TrimSpace(envelope.Text),
	}

	for _, part := range envelope.Attachments {
		message.Attachments = append(message.Attachments, toAttachment(part))
	}
	// inline images are signatures and logos; only inline PDFs carry bids
	for _, part := range envelope.Inlines {
		if utils.IsPDF(part.ContentType, part.FileName, part.Content) {
			message.Attachments = append(message.Attachments, toAttachment(part))
		}
	}

	return message, nil
}

func toAttachment(part *enmime.Part) dto.InboundAttachment {
	return dto.InboundAttachment{
		Filename:    part.FileName,
		ContentType: part.ContentType,
		Content:     part.Content,
	}
}
