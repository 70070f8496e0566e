package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	custom_err "github.com/customeros/rfpstack/api/errors"
	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/models"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/internal/utils"
	"github.com/customeros/rfpstack/services/rfp"
)

type ChatRequest struct {
	SessionID *string `json:"sessionId"`
	Data      string  `json:"data"`
}

type FinalizeRequest struct {
	SessionID   string   `json:"sessionId"`
	IsChange    bool     `json:"isChange"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	VendorIDs   []string `json:"vendorIds"`
}

type SessionRequest struct {
	SessionID string `json:"sessionId"`
}

type ChatHandler struct {
	rfpService *rfp.Service
	log        logger.Logger
}

func NewChatHandler(rfpService *rfp.Service, log logger.Logger) *ChatHandler {
	return &ChatHandler{rfpService: rfpService, log: log}
}

// Send posts a user message to a drafting conversation.
func (h *ChatHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ChatHandler.Send", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request ChatRequest
		if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Data) == "" {
			multi := custom_err.NewMultiErrors()
			multi.Add("data", "message text is required", err)
			respondWithError(c, span, multi)
			return
		}
		if request.SessionID != nil {
			ctx = utils.SetSessionIdInContext(ctx, *request.SessionID)
		}

		reply, err := h.rfpService.Chat(ctx, request.SessionID, request.Data)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sessionId": reply.SessionID,
			"isRfp":     reply.Message.IsRfp,
			"message":   reply.Message,
			"rfp":       reply.Rfp,
		})
	}
}

// History lists every conversation.
func (h *ChatHandler) History() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ChatHandler.History", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		sessions, err := h.rfpService.ListSessions(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "chatHistory": sessions})
	}
}

// Get returns one conversation with its rfp and invited vendors.
func (h *ChatHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ChatHandler.Get", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		state, err := h.rfpService.SessionState(ctx, c.Param("id"))
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session": state})
	}
}

func (h *ChatHandler) Finalize() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ChatHandler.Finalize", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		request, err := h.validateFinalizeRequest(c)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		result, err := h.rfpService.Finalize(ctx, dto.FinalizeRequest{
			SessionID:   request.SessionID,
			VendorIDs:   request.VendorIDs,
			IsChange:    request.IsChange,
			Title:       request.Title,
			Description: request.Description,
		})
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		h.log.Infof("RFP %s finalized: %d of %d vendors reached", result.Rfp.ID, result.Dispatch.Delivered(), len(result.Dispatch.Results))
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sessionId": request.SessionID,
			"rfp":       result.Rfp,
			"dispatch":  result.Dispatch,
		})
	}
}

func (h *ChatHandler) validateFinalizeRequest(c *gin.Context) (*FinalizeRequest, error) {
	multi := custom_err.NewMultiErrors()

	var request FinalizeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		multi.Add("request", "please provide a valid request payload", err)
		return nil, multi
	}

	if request.SessionID == "" {
		multi.Add("sessionId", "sessionId is required", nil)
	}
	if len(request.VendorIDs) == 0 {
		multi.Add("vendorIds", "at least one vendor is required", nil)
	}
	if request.IsChange {
		if strings.TrimSpace(request.Title) == "" {
			multi.Add("title", "title is required when isChange is set", nil)
		}
		if strings.TrimSpace(request.Description) == "" {
			multi.Add("description", "description is required when isChange is set", nil)
		}
	}

	if multi.HasErrors() {
		return nil, multi
	}
	return &request, nil
}

func (h *ChatHandler) Cancel() gin.HandlerFunc {
	return h.transition("ChatHandler.Cancel", h.rfpService.Cancel)
}

func (h *ChatHandler) Complete() gin.HandlerFunc {
	return h.transition("ChatHandler.Complete", h.rfpService.Complete)
}

func (h *ChatHandler) transition(operation string, apply func(ctx context.Context, sessionID string) (*models.RFP, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), operation, c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request SessionRequest
		if err := c.ShouldBindJSON(&request); err != nil || request.SessionID == "" {
			multi := custom_err.NewMultiErrors()
			multi.Add("sessionId", "sessionId is required", err)
			respondWithError(c, span, multi)
			return
		}

		updated, err := apply(ctx, request.SessionID)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "sessionId": request.SessionID, "rfp": updated})
	}
}
