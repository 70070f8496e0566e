package enum

type EmailSecurity string

const (
	EmailSecurityNone     EmailSecurity = "none"
	EmailSecuritySSL      EmailSecurity = "ssl"
	EmailSecurityTLS      EmailSecurity = "tls"
	EmailSecurityStartTLS EmailSecurity = "startTLS"
)

func (t EmailSecurity) String() string {
	return string(t)
}

// IngestionOutcome is the result of processing one inbound message.
type IngestionOutcome string

const (
	IngestionProcessed        IngestionOutcome = "processed"
	IngestionForeign          IngestionOutcome = "foreign"
	IngestionUnknownReference IngestionOutcome = "unknown_reference"
	IngestionSenderMismatch   IngestionOutcome = "sender_mismatch"
	IngestionParseError       IngestionOutcome = "parse_error"
	IngestionFailed           IngestionOutcome = "failed"
)

func (t IngestionOutcome) String() string {
	return string(t)
}
