package rfp

import (
	"context"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
	"github.com/customeros/rfpstack/internal/lifecycle"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
	"github.com/customeros/rfpstack/services/ai"
)

const (
	rfpCreatedFormat = "RFP Created!\n**Title:** %s\n**Description:** %s"
	rfpUpdatedFormat = "RFP Updated!\n**Title:** %s\n**Description:** %s"
)

// Chat handles one user message in a drafting conversation. A nil or empty
// sessionID starts a new session.
func (s *Service) Chat(ctx context.Context, sessionID *string, text string) (*dto.ChatReply, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RfpService.Chat")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.Wrap(errs.ErrValidation, "message text is required")
	}

	var session *models.ChatSession
	var rfp *models.RFP
	var err error
	if sessionID == nil || *sessionID == "" {
		session, err = s.timeline.StartSession(ctx)
	} else {
		session, rfp, err = s.sessionRfp(ctx, *sessionID)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.LogKV("sessionId", session.ID)

	if rfp != nil && !lifecycle.AcceptsConversation(rfp.Status) {
		return nil, errors.Wrapf(errs.ErrRfpNotDraft, "rfp is %s", rfp.Status)
	}

	// the window excludes the message being answered
	history, err := s.timeline.RecentWindow(ctx, session.ID)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if _, err = s.timeline.Append(ctx, session.ID, enum.ChatRoleUser, text, false); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	request := dto.DraftRequest{Message: text, History: history}
	if rfp != nil {
		request.ExistingRfp = &dto.RfpContext{Title: rfp.Title, Description: rfp.Description}
	}
	draft := s.drafter.DraftRfp(ctx, request)

	if !draft.IsRfp {
		reason := utils.GetOrDefault(draft.Reason, ai.DraftFallbackReason)
		message, err := s.timeline.Append(ctx, session.ID, enum.ChatRoleAssistant, reason, false)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		return &dto.ChatReply{SessionID: session.ID, Message: message, Rfp: rfp}, nil
	}

	title := strings.TrimSpace(utils.GetOrDefault(draft.EmailSubject, ""))
	description := strings.TrimSpace(utils.GetOrDefault(draft.EmailBody, ""))

	var content string
	if rfp == nil {
		rfp = &models.RFP{Title: title, Description: description}
		if err = s.repos.RfpRepository.CreateForSession(ctx, session.ID, rfp); err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		content = fmt.Sprintf(rfpCreatedFormat, title, description)
		s.log.Infof("RFP %s drafted in session %s", rfp.ID, session.ID)
	} else {
		rfp, err = s.repos.RfpRepository.UpdateDraft(ctx, rfp.ID, title, description)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, err
		}
		content = fmt.Sprintf(rfpUpdatedFormat, title, description)
	}

	message, err := s.timeline.Append(ctx, session.ID, enum.ChatRoleAssistant, content, true)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &dto.ChatReply{SessionID: session.ID, Message: message, Rfp: rfp}, nil
}
