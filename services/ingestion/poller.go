// Package ingestion turns vendor replies in the shared inbox into proposals.
package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/customeros/rfpstack/config"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/interfaces"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/lifecycle"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/metrics"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/repository"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/tracking"
	"github.com/customeros/rfpstack/internal/utils"
	"github.com/customeros/rfpstack/services/storage"
	"github.com/customeros/rfpstack/services/timeline"
)

const (
	AttachmentSeparator = "\n\n--- Attachment: %s ---\n"
	ReplyReceivedPrefix = "Got reply from: "
)

type Poller struct {
	mailbox     interfaces.MailboxClient
	repos       *repository.Repositories
	extractor   interfaces.ProposalExtractor
	attachments interfaces.AttachmentExtractor
	archive     *storage.AttachmentArchive
	timeline    *timeline.ChatTimeline
	publisher   interfaces.EventPublisher
	cfg         *config.IngestionConfig
	log         logger.Logger
}

type PollerDeps struct {
	Mailbox     interfaces.MailboxClient
	Repos       *repository.Repositories
	Extractor   interfaces.ProposalExtractor
	Attachments interfaces.AttachmentExtractor
	Archive     *storage.AttachmentArchive
	Timeline    *timeline.ChatTimeline
	Publisher   interfaces.EventPublisher
	Config      *config.IngestionConfig
	Log         logger.Logger
}

func NewPoller(deps PollerDeps) *Poller {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.IngestionConfig{}
	}
	return &Poller{
		mailbox:     deps.Mailbox,
		repos:       deps.Repos,
		extractor:   deps.Extractor,
		attachments: deps.Attachments,
		archive:     deps.Archive,
		timeline:    deps.Timeline,
		publisher:   deps.Publisher,
		cfg:         cfg,
		log:         deps.Log,
	}
}

// Poll processes every unread message once. A mailbox connection failure
// aborts the whole poll; any other failure is confined to its message.
func (p *Poller) Poll(ctx context.Context) (result *dto.PollResult, err error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Poller.Poll")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	start := time.Now()
	defer func() { metrics.CollectPollMetric(err, start) }()

	session, err := p.mailbox.Connect(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		if !errors.Is(err, errs.ErrConnection) {
			err = errors.Wrap(errs.ErrConnection, err.Error())
		}
		return nil, err
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			p.log.Warnf("Error closing mailbox session: %v", closeErr)
		}
	}()

	uids, err := session.ListUnread(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(errs.ErrConnection, err.Error())
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })

	result = dto.NewPollResult(utils.Now())
	result.Unread = len(uids)
	if p.cfg.MaxMessagesPerPoll > 0 && len(uids) > p.cfg.MaxMessagesPerPoll {
		uids = uids[:p.cfg.MaxMessagesPerPoll]
	}

	for _, uid := range uids {
		if ctx.Err() != nil {
			break
		}
		outcome, proposalID := p.processMessage(ctx, session, uid)
		result.Record(outcome)
		metrics.CollectIngestionOutcome(outcome.String())
		if proposalID != "" {
			result.ProposalIds = append(result.ProposalIds, proposalID)
		}
	}

	result.FinishedAt = utils.Now()
	span.LogKV("unread", result.Unread, "processed", result.Count(enum.IngestionProcessed))
	p.log.Infof("Mailbox poll done: %d unread, outcomes %v", result.Unread, result.Outcomes)
	return result, nil
}

func (p *Poller) processMessage(ctx context.Context, session interfaces.MailboxSession, uid uint32) (enum.IngestionOutcome, string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Poller.processMessage")
	defer span.Finish()
	span.SetTag("uid", uid)

	raw, err := session.Fetch(ctx, uid)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Unable to fetch message %d: %v", uid, err)
		return enum.IngestionFailed, ""
	}

	message, err := parseMessage(raw)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Warnf("Message %d could not be parsed, flagging for review: %v", uid, err)
		p.markProcessed(ctx, session, uid)
		if flagErr := session.Flag(ctx, uid); flagErr != nil {
			p.log.Warnf("Unable to flag message %d: %v", uid, flagErr)
		}
		return enum.IngestionParseError, ""
	}

	token, err := tracking.Parse(message.Body, message.Subject)
	if err != nil {
		span.LogKV("outcome", enum.IngestionForeign.String())
		p.markProcessed(ctx, session, uid)
		return enum.IngestionForeign, ""
	}
	span.LogKV("rfpId", token.RfpID, "vendorId", token.VendorID)

	rfp, vendor, err := p.resolve(ctx, token, message.FromAddress)
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrUnknownReference):
			p.log.Infof("Message %d references %s: %v", uid, token.String(), err)
			p.markProcessed(ctx, session, uid)
			return enum.IngestionUnknownReference, ""
		case errors.Is(err, errs.ErrSenderMismatch):
			p.log.Warnf("Message %d for %s sent by %s: %v", uid, token.String(), message.From, err)
			if p.cfg.MarkMismatchProcessed {
				p.markProcessed(ctx, session, uid)
			}
			return enum.IngestionSenderMismatch, ""
		}
		tracing.TraceErr(span, err)
		p.log.Errorf("Unable to resolve %s for message %d: %v", token.String(), uid, err)
		return enum.IngestionFailed, ""
	}

	proposal, created, err := p.storeProposal(ctx, rfp, vendor, message)
	if err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Unable to store proposal from message %d: %v", uid, err)
		return enum.IngestionFailed, ""
	}

	if err := session.MarkProcessed(ctx, uid); err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Proposal %s stored but message %d could not be marked read: %v", proposal.ID, uid, err)
		return enum.IngestionFailed, proposal.ID
	}

	// The timeline line is written once the message can no longer be re-polled.
	if _, err := p.timeline.AppendToRfp(ctx, rfp.ID, enum.ChatRoleSystem, ReplyReceivedPrefix+vendor.Name); err != nil {
		tracing.TraceErr(span, err)
		p.log.Errorf("Unable to record reply from %s on rfp %s: %v", vendor.Name, rfp.ID, err)
	}

	p.publishProposalReceived(ctx, proposal, vendor, created)
	return enum.IngestionProcessed, proposal.ID
}

// resolve returns ErrUnknownReference when the token does not point at an
// invited vendor of an rfp that accepts replies, and ErrSenderMismatch when
// the vendor exists but is registered under another address.
func (p *Poller) resolve(ctx context.Context, token tracking.Token, fromAddress string) (*models.RFP, *models.Vendor, error) {
	rfp, err := p.repos.RfpRepository.GetByID(ctx, token.RfpID)
	if err != nil {
		return nil, nil, err
	}
	if rfp == nil {
		return nil, nil, errors.Wrapf(errs.ErrUnknownReference, "rfp %s not found", token.RfpID)
	}
	if !lifecycle.AcceptsReplies(rfp.Status) {
		return nil, nil, errors.Wrapf(errs.ErrUnknownReference, "rfp %s is %s", rfp.ID, rfp.Status)
	}

	vendor, err := p.repos.VendorRepository.GetByID(ctx, token.VendorID)
	if err != nil {
		return nil, nil, err
	}
	if vendor == nil {
		return nil, nil, errors.Wrapf(errs.ErrUnknownReference, "vendor %s not found", token.VendorID)
	}

	invited, err := p.repos.RfpRepository.IsVendorInvited(ctx, rfp.ID, vendor.ID)
	if err != nil {
		return nil, nil, err
	}
	if !invited {
		return nil, nil, errors.Wrapf(errs.ErrUnknownReference, "vendor %s was not invited to rfp %s", vendor.ID, rfp.ID)
	}

	sender, err := p.repos.VendorRepository.GetByIDAndEmail(ctx, vendor.ID, fromAddress)
	if err != nil {
		return nil, nil, err
	}
	if sender == nil {
		return nil, nil, errors.Wrapf(errs.ErrSenderMismatch, "expected %s", vendor.Email)
	}
	return rfp, sender, nil
}

func (p *Poller) storeProposal(ctx context.Context, rfp *models.RFP, vendor *models.Vendor, message *dto.InboundMessage) (*models.Proposal, bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Poller.storeProposal")
	defer span.Finish()
	tracing.TagEntity(span, rfp.ID)

	extraction := p.extractor.ExtractProposal(ctx, dto.ExtractionRequest{
		EmailBody:      message.Body,
		AttachmentText: p.attachmentText(ctx, message.Attachments),
		Rfp:            dto.RfpContext{Title: rfp.Title, Description: rfp.Description},
	})

	proposal := &models.Proposal{
		RfpID:        rfp.ID,
		VendorID:     vendor.ID,
		DeliveryDays: extraction.DeliveryDays,
		Warranty:     extraction.Warranty,
		PaymentTerms: extraction.PaymentTerms,
		Notes:        extraction.Notes,
		AiSummary:    extraction.AiSummary,
		AiScore:      extraction.AiScore,
		RawEmailBody: message.Body,
		EmailFrom:    message.From,
		EmailSubject: message.Subject,
		Attachments:  p.archive.Archive(ctx, rfp.ID, vendor.ID, message.Attachments),
		Status:       enum.ProposalStatusReceived,
	}
	if extraction.Price != nil {
		proposal.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*extraction.Price))
	}

	stored, created, err := p.repos.ProposalRepository.Upsert(ctx, proposal)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, false, err
	}
	span.LogKV("proposalId", stored.ID, "created", created)

	if rfp.Status == enum.RfpStatusSent {
		moved, err := p.repos.RfpRepository.TransitionStatus(ctx, rfp.ID, enum.RfpStatusSent, enum.RfpStatusInProgress)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, false, err
		}
		if moved {
			p.log.Infof("RFP %s moved to %s on first proposal", rfp.ID, enum.RfpStatusInProgress)
		}
	}

	return stored, created, nil
}

// attachmentText concatenates the text of every PDF attachment.
func (p *Poller) attachmentText(ctx context.Context, attachments []dto.InboundAttachment) string {
	if p.attachments == nil {
		return ""
	}
	var sb strings.Builder
	for _, attachment := range attachments {
		if !utils.IsPDF(attachment.ContentType, attachment.Filename, attachment.Content) {
			continue
		}
		text := p.attachments.ExtractText(ctx, attachment.Content)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, AttachmentSeparator, attachment.Filename)
		sb.WriteString(text)
	}
	return sb.String()
}

func (p *Poller) publishProposalReceived(ctx context.Context, proposal *models.Proposal, vendor *models.Vendor, created bool) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.PublishFanoutEvent(ctx, proposal.ID, enum.PROPOSAL, dto.ProposalReceived{
		ProposalId: proposal.ID,
		RfpId:      proposal.RfpID,
		VendorId:   vendor.ID,
		VendorName: vendor.Name,
		Created:    created,
		AiScore:    proposal.AiScore,
	})
	if err != nil {
		p.log.Warnf("Unable to publish ProposalReceived for %s: %v", proposal.ID, err)
	}
}

func (p *Poller) markProcessed(ctx context.Context, session interfaces.MailboxSession, uid uint32) {
	if err := session.MarkProcessed(ctx, uid); err != nil {
		p.log.Warnf("Unable to mark message %d processed: %v", uid, err)
	}
}
