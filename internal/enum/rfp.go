package enum

type RfpStatus string

const (
	RfpStatusDraft      RfpStatus = "DRAFT"
	RfpStatusSent       RfpStatus = "SENT"
	RfpStatusInProgress RfpStatus = "IN_PROGRESS"
	RfpStatusCompleted  RfpStatus = "COMPLETED"
	RfpStatusCancelled  RfpStatus = "CANCELLED"
)

func (s RfpStatus) String() string {
	return string(s)
}

type ProposalStatus string

const (
	ProposalStatusReceived ProposalStatus = "RECEIVED"
)

func (s ProposalStatus) String() string {
	return string(s)
}
