package dto

import (
	"time"

	"github.com/customeros/rfpstack/internal/models"
)

type FinalizeRequest struct {
	SessionID   string
	VendorIDs   []string
	IsChange    bool
	Title       string
	Description string
}

// RfpOverrides replaces title/description in the same step as DRAFT->SENT.
type RfpOverrides struct {
	Title       *string
	Description *string
}

type DispatchResult struct {
	VendorID   string `json:"vendorId"`
	VendorName string `json:"vendorName"`
	Email      string `json:"email"`
	Sent       bool   `json:"sent"`
	Error      string `json:"error,omitempty"`
}

type DispatchReport struct {
	Results []DispatchResult `json:"results"`
}

func (r DispatchReport) Delivered() int {
	count := 0
	for _, result := range r.Results {
		if result.Sent {
			count++
		}
	}
	return count
}

func (r DispatchReport) Failed() int {
	return len(r.Results) - r.Delivered()
}

type FinalizeResult struct {
	Rfp      *models.RFP    `json:"rfp"`
	Dispatch DispatchReport `json:"dispatch"`
}

type ChatReply struct {
	SessionID string              `json:"sessionId"`
	Message   *models.ChatMessage `json:"message"`
	Rfp       *models.RFP         `json:"rfp,omitempty"`
}

type ComparisonReply struct {
	Message    *models.ChatMessage `json:"message"`
	Comparison *ComparisonResult   `json:"comparison"`
}

type ProposalView struct {
	*models.Proposal
	VendorName  string `json:"vendorName"`
	VendorEmail string `json:"vendorEmail"`
}

type ProposalList struct {
	Rfp       *models.RFP    `json:"rfp"`
	Proposals []ProposalView `json:"proposals"`
	Poll      *PollResult    `json:"poll,omitempty"`
	PollError string         `json:"pollError,omitempty"`
}

type SessionState struct {
	Session  *models.ChatSession  `json:"session"`
	Rfp      *models.RFP          `json:"rfp,omitempty"`
	Messages []models.ChatMessage `json:"messages"`
	Vendors  []models.Vendor      `json:"vendors"`
}

type SessionSummary struct {
	SessionID string      `json:"sessionId"`
	Rfp       *models.RFP `json:"rfp,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}
