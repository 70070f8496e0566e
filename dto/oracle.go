package dto

import "github.com/customeros/rfpstack/internal/enum"

type RfpContext struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type ChatLine struct {
	Role    enum.ChatRole
	Content string
}

type DraftRequest struct {
	Message     string
	History     []ChatLine
	ExistingRfp *RfpContext
}

type DraftResult struct {
	IsRfp        bool    `json:"isRfp"`
	EmailSubject *string `json:"emailSubject"`
	EmailBody    *string `json:"emailBody"`
	Reason       *string `json:"reason"`
}

type ExtractionRequest struct {
	EmailBody      string
	AttachmentText string
	Rfp            RfpContext
}

type ExtractionResult struct {
	Price        *float64 `json:"price"`
	DeliveryDays *int     `json:"deliveryDays"`
	Warranty     *string  `json:"warranty"`
	PaymentTerms *string  `json:"paymentTerms"`
	Notes        *string  `json:"notes"`
	AiSummary    *string  `json:"aiSummary"`
	AiScore      float64  `json:"aiScore"`
}

type VendorBid struct {
	VendorName   string   `json:"vendorName"`
	Price        *float64 `json:"price"`
	DeliveryDays *int     `json:"deliveryDays"`
	Warranty     *string  `json:"warranty"`
	PaymentTerms *string  `json:"paymentTerms"`
	Notes        *string  `json:"notes"`
	AiSummary    *string  `json:"aiSummary"`
	AiScore      float64  `json:"aiScore"`
}

type ComparisonRequest struct {
	Rfp  RfpContext
	Bids []VendorBid
}

type ComparisonWinner struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type ComparisonRanking struct {
	VendorName string   `json:"vendorName"`
	Rank       int      `json:"rank"`
	Pros       []string `json:"pros"`
	Cons       []string `json:"cons"`
}

type ComparisonResult struct {
	Winner            ComparisonWinner    `json:"winner"`
	ComparisonSummary string              `json:"comparisonSummary"`
	Rankings          []ComparisonRanking `json:"rankings"`
}
