package dto

import (
	"time"

	"github.com/customeros/rfpstack/internal/enum"
)

type PollResult struct {
	StartedAt   time.Time                     `json:"startedAt"`
	FinishedAt  time.Time                     `json:"finishedAt"`
	Unread      int                           `json:"unread"`
	Outcomes    map[enum.IngestionOutcome]int `json:"outcomes"`
	ProposalIds []string                      `json:"proposalIds"`
}

func NewPollResult(startedAt time.Time) *PollResult {
	return &PollResult{
		StartedAt:   startedAt,
		Outcomes:    make(map[enum.IngestionOutcome]int),
		ProposalIds: []string{},
	}
}

func (r *PollResult) Record(outcome enum.IngestionOutcome) {
	r.Outcomes[outcome]++
}

func (r *PollResult) Count(outcome enum.IngestionOutcome) int {
	return r.Outcomes[outcome]
}
