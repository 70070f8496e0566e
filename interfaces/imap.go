package interfaces

import (
	"context"

	"github.com/customeros/rfpstack/dto"
)

// MailboxClient opens sessions against the shared reply inbox.
type MailboxClient interface {
	Connect(ctx context.Context) (MailboxSession, error)
}

type MailboxSession interface {
	ListUnread(ctx context.Context) ([]uint32, error)
	Fetch(ctx context.Context, uid uint32) (*dto.RawMessage, error)
	MarkProcessed(ctx context.Context, uid uint32) error
	// Flag marks a message for human review without changing its read state.
	Flag(ctx context.Context, uid uint32) error
	Close() error
}
