package storage

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/opentracing/opentracing-go"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AttachmentArchive copies inbound proposal attachments to object storage.
// A nil storage service disables archiving; metadata is still returned.
type AttachmentArchive struct {
	storage interfaces.StorageService
	log     logger.Logger
}

func NewAttachmentArchive(storage interfaces.StorageService, log logger.Logger) *AttachmentArchive {
	return &AttachmentArchive{storage: storage, log: log}
}

func (a *AttachmentArchive) Enabled() bool {
	return a != nil && a.storage != nil
}

// Archive uploads every attachment and returns its metadata. Upload failures
// are logged and leave StorageKey empty.
func (a *AttachmentArchive) Archive(ctx context.Context, rfpID, vendorID string, attachments []dto.InboundAttachment) models.AttachmentList {
	span, ctx := opentracing.StartSpanFromContext(ctx, "AttachmentArchive.Archive")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.LogKV("attachments", len(attachments), "enabled", a.Enabled())

	list := make(models.AttachmentList, 0, len(attachments))
	for _, attachment := range attachments {
		meta := models.AttachmentMeta{
			Filename:    attachment.Filename,
			ContentType: attachment.ContentType,
			Size:        len(attachment.Content),
		}
		if a.Enabled() {
			key := AttachmentKey(rfpID, vendorID, attachment.Filename, attachment.ContentType)
			if err := a.storage.Upload(ctx, key, attachment.Content, attachment.ContentType); err != nil {
				tracing.TraceErr(span, err)
				a.log.Warnf("Unable to archive attachment %s for rfp %s: %v", attachment.Filename, rfpID, err)
			} else {
				meta.StorageKey = key
			}
		}
		list = append(list, meta)
	}
	return list
}

// AttachmentKey builds a unique object key: proposals/<rfp>/<vendor>/<id>-<name>.
// Names without an extension get one derived from the content type.
func AttachmentKey(rfpID, vendorID, filename, contentType string) string {
	name := unsafeKeyChars.ReplaceAllString(path.Base(strings.TrimSpace(filename)), "_")
	if name == "" || name == "." || name == "_" {
		name = "attachment"
	}
	if path.Ext(name) == "" && contentType != "" {
		name += "." + utils.GetFileExtensionFromContentType(contentType)
	}
	return fmt.Sprintf("proposals/%s/%s/%s-%s", rfpID, vendorID, utils.GenerateNanoIDWithPrefix("att", 10), name)
}
