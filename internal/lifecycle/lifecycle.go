// Package lifecycle holds the RFP status rules: which transitions are legal
// and which actions each status allows.
package lifecycle

import (
	"github.com/pkg/errors"

	"github.com/customeros/rfpstack/internal/enum"
	errs "github.com/customeros/rfpstack/internal/errors"
)

var transitions = map[enum.RfpStatus][]enum.RfpStatus{
	enum.RfpStatusDraft:      {enum.RfpStatusSent, enum.RfpStatusCancelled},
	enum.RfpStatusSent:       {enum.RfpStatusInProgress},
	enum.RfpStatusInProgress: {enum.RfpStatusCompleted},
}

func CanTransition(from, to enum.RfpStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrRfpNotDraft when a draft-only transition is
// attempted on a non-draft rfp, ErrInvalidTransition for anything else illegal.
func ValidateTransition(from, to enum.RfpStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	if from != enum.RfpStatusDraft && (to == enum.RfpStatusSent || to == enum.RfpStatusCancelled) {
		return errors.Wrapf(errs.ErrRfpNotDraft, "rfp is %s", from)
	}
	return errors.Wrapf(errs.ErrInvalidTransition, "%s -> %s", from, to)
}

func IsTerminal(status enum.RfpStatus) bool {
	return len(transitions[status]) == 0
}

// AcceptsConversation reports whether free-text drafting input is allowed.
func AcceptsConversation(status enum.RfpStatus) bool {
	return status == enum.RfpStatusDraft
}

// AcceptsReplies reports whether vendor replies are ingested for the rfp.
func AcceptsReplies(status enum.RfpStatus) bool {
	return status == enum.RfpStatusSent || status == enum.RfpStatusInProgress
}

func CanCompare(status enum.RfpStatus, proposals int64) error {
	switch status {
	case enum.RfpStatusSent, enum.RfpStatusInProgress, enum.RfpStatusCompleted:
	default:
		return errors.Wrapf(errs.ErrInvalidTransition, "cannot compare proposals of a %s rfp", status)
	}
	if proposals == 0 {
		return errs.ErrNoProposals
	}
	return nil
}
