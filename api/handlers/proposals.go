package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	custom_err "github.com/customeros/rfpstack/api/errors"
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services/rfp"
)

type ProposalsHandler struct {
	rfpService *rfp.Service
	log        logger.Logger
}

func NewProposalsHandler(rfpService *rfp.Service, log logger.Logger) *ProposalsHandler {
	return &ProposalsHandler{rfpService: rfpService, log: log}
}

// ListBySession returns the proposals for a conversation's rfp.
// With ?poll=true the mailbox is polled first.
func (h *ProposalsHandler) ListBySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ProposalsHandler.ListBySession", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		poll, _ := strconv.ParseBool(c.DefaultQuery("poll", "false"))

		list, err := h.rfpService.ListProposals(ctx, c.Param("sessionId"), poll)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		if list.PollError != "" {
			h.log.Warnf("Mailbox poll failed while listing proposals: %s", list.PollError)
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"rfp":       list.Rfp,
			"proposals": list.Proposals,
			"poll":      list.Poll,
			"pollError": list.PollError,
		})
	}
}

func (h *ProposalsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ProposalsHandler.Get", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		proposal, err := h.rfpService.GetProposal(ctx, c.Param("id"))
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "proposal": proposal})
	}
}

func (h *ProposalsHandler) Compare() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ProposalsHandler.Compare", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request SessionRequest
		if err := c.ShouldBindJSON(&request); err != nil || request.SessionID == "" {
			multi := custom_err.NewMultiErrors()
			multi.Add("sessionId", "sessionId is required", err)
			respondWithError(c, span, multi)
			return
		}

		reply, err := h.rfpService.Compare(ctx, request.SessionID)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":    true,
			"message":    reply.Message,
			"comparison": reply.Comparison,
		})
	}
}

// Poll runs one mailbox ingestion pass on demand.
func (h *ProposalsHandler) Poll() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "ProposalsHandler.Poll", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		result, err := h.rfpService.Poll(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "poll": result})
	}
}
