package interfaces

import (
	"context"

	"github.com/customeros/rfpstack/dto"
	"github.com/customeros/rfpstack/internal/enum"
	"github.com/customeros/rfpstack/internal/models"
)

type RfpRepository interface {
	GetByID(ctx context.Context, id string) (*models.RFP, error)
	// CreateForSession stores a DRAFT rfp and links it to the chat session.
	CreateForSession(ctx context.Context, sessionID string, rfp *models.RFP) error
	UpdateDraft(ctx context.Context, id, title, description string) (*models.RFP, error)
	// Finalize performs the DRAFT->SENT transition atomically.
	Finalize(ctx context.Context, id string, vendorIDs []string, overrides dto.RfpOverrides) (*models.RFP, []models.Vendor, error)
	// TransitionStatus moves from -> to only if the stored status is still from.
	TransitionStatus(ctx context.Context, id string, from, to enum.RfpStatus) (bool, error)
	ListInvitedVendors(ctx context.Context, rfpID string) ([]models.Vendor, error)
	IsVendorInvited(ctx context.Context, rfpID, vendorID string) (bool, error)
}

type VendorRepository interface {
	GetByID(ctx context.Context, id string) (*models.Vendor, error)
	GetByIDAndEmail(ctx context.Context, id, email string) (*models.Vendor, error)
	GetByEmail(ctx context.Context, email string) (*models.Vendor, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Vendor, error)
	List(ctx context.Context) ([]models.Vendor, error)
	Create(ctx context.Context, vendor *models.Vendor) error
}

type ProposalRepository interface {
	// Upsert creates or updates the single proposal for (RfpID, VendorID).
	// created is true when no row existed before.
	Upsert(ctx context.Context, proposal *models.Proposal) (stored *models.Proposal, created bool, err error)
	GetByID(ctx context.Context, id string) (*models.Proposal, error)
	ListByRfp(ctx context.Context, rfpID string) ([]models.Proposal, error)
	CountByRfp(ctx context.Context, rfpID string) (int64, error)
}

type ChatRepository interface {
	CreateSession(ctx context.Context) (*models.ChatSession, error)
	GetSession(ctx context.Context, id string) (*models.ChatSession, error)
	GetSessionByRfpID(ctx context.Context, rfpID string) (*models.ChatSession, error)
	ListSessions(ctx context.Context) ([]models.ChatSession, error)
	AppendMessage(ctx context.Context, message *models.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]models.ChatMessage, error)
	ListRecentMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
}
