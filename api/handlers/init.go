package handlers

import (
	"github.com/customeros/rfpstack/internal/logger"
	"github.com/customeros/rfpstack/services/rfp"
)

type APIHandlers struct {
	Chat      *ChatHandler
	Vendors   *VendorsHandler
	Proposals *ProposalsHandler
}

func InitHandlers(rfpService *rfp.Service, log logger.Logger) *APIHandlers {
	return &APIHandlers{
		Chat:      NewChatHandler(rfpService, log),
		Vendors:   NewVendorsHandler(rfpService),
		Proposals: NewProposalsHandler(rfpService, log),
	}
}
