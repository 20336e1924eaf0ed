package messenger

// AttachmentType is the Messenger attachment kind.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "image"
	AttachmentVideo    AttachmentType = "video"
	AttachmentAudio    AttachmentType = "audio"
	AttachmentFile     AttachmentType = "file"
	AttachmentFallback AttachmentType = "fallback"
)

// Relayable reports whether the attachment can be re-sent as a typed attachment.
func (t AttachmentType) Relayable() bool {
	switch t {
	case AttachmentImage, AttachmentVideo, AttachmentAudio, AttachmentFile:
		return true
	}
	return false
}

// QuickReply is one button under a bot message. Payload comes back to the
// webhook as message.quick_reply.payload.
type QuickReply struct {
	Title   string
	Payload string
}

//
// Inbound webhook payload
//

// Callback is the body Messenger POSTs to the webhook.
type Callback struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string  `json:"id"`
	Time      int64   `json:"time"`
	Messaging []Event `json:"messaging"`
}

// Event is one messaging event for a single sender.
type Event struct {
	Sender    Party     `json:"sender"`
	Recipient Party     `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
	Read      *Read     `json:"read,omitempty"`
	Delivery  *Delivery `json:"delivery,omitempty"`
}

type Party struct {
	ID string `json:"id"`
}

type Message struct {
	MID         string       `json:"mid,omitempty"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *Payload     `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	Type    AttachmentType    `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url,omitempty"`
}

// Payload carries a postback or quick-reply payload string.
type Payload struct {
	Payload string `json:"payload"`
}

type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

type Read struct {
	Watermark int64 `json:"watermark"`
}

type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
}
