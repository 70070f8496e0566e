package dto

import "github.com/customeros/rfpstack/internal/enum"

type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id         string          `json:"id"`
	EntityId   string          `json:"entityId"`
	EntityType enum.EntityType `json:"entityType"`
	EventType  string          `json:"eventType"`
	Data       interface{}     `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uber-trace-id"`
	AppSource   string `json:"appSource"`
	RequestId   string `json:"requestId"`
	Timestamp   string `json:"timestamp"`
}

// ProposalReceived is published after a vendor reply has been stored.
type ProposalReceived struct {
	ProposalId string  `json:"proposalId"`
	RfpId      string  `json:"rfpId"`
	VendorId   string  `json:"vendorId"`
	VendorName string  `json:"vendorName"`
	Created    bool    `json:"created"`
	AiScore    float64 `json:"aiScore"`
}

// RfpSent is published once the DRAFT->SENT transition has committed and
// dispatch has been attempted.
type RfpSent struct {
	RfpId     string   `json:"rfpId"`
	Title     string   `json:"title"`
	VendorIds []string `json:"vendorIds"`
	Delivered int      `json:"delivered"`
	Failed    int      `json:"failed"`
}
