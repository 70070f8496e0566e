package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	custom_err "github.com/customeros/rfpstack/api/errors"
	"github.com/customeros/rfpstack/internal/tracing"
	"github.com/customeros/rfpstack/services/rfp"
)

type VendorRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type VendorsHandler struct {
	rfpService *rfp.Service
}

func NewVendorsHandler(rfpService *rfp.Service) *VendorsHandler {
	return &VendorsHandler{rfpService: rfpService}
}

func (h *VendorsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "VendorsHandler.List", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		vendors, err := h.rfpService.ListVendors(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "vendors": vendors})
	}
}

func (h *VendorsHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "VendorsHandler.Create", c.Request.Header)
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		var request VendorRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			multi := custom_err.NewMultiErrors()
			multi.Add("request", "please provide a valid request payload", err)
			respondWithError(c, span, multi)
			return
		}

		vendor, err := h.rfpService.CreateVendor(ctx, request.Name, request.Email)
		if err != nil {
			respondWithError(c, span, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"success": true, "vendor": vendor})
	}
}
