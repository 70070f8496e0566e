package dto

// RawMessage is one fetched message, undecoded.
type RawMessage struct {
	UID  uint32
	Raw  []byte
	Seen bool
}

type InboundAttachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// InboundMessage is a decoded vendor reply.
type InboundMessage struct {
	UID         uint32
	From        string
	FromAddress string
	Subject     string
	MessageID   string
	Body        string
	Attachments []InboundAttachment
}
