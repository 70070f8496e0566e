package interfaces

import "context"

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}
