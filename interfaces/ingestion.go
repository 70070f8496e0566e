package interfaces

import (
	"context"

	"github.com/customeros/rfpstack/dto"
)

type MailboxPoller interface {
	Poll(ctx context.Context) (*dto.PollResult, error)
}
