package chatible

import (
	"context"

	"github.com/oggyb/chatible/internal/messenger"
)

// ForwardMessage relays msg from sender to receiver.
//
// The first attachment decides how the message goes out: a fallback becomes
// text (the message text, or a link line when there is none), a relayable
// type is re-sent as a typed attachment, and anything else aborts the whole
// forward with an error to the sender. Later attachments are sent only when
// relayable; the rest are dropped. Without attachments the text is relayed
// verbatim.
func (s *Service) ForwardMessage(ctx context.Context, sender, receiver string, msg *messenger.Message) {
	if msg == nil {
		return
	}
	if len(msg.Attachments) == 0 {
		s.relay(ctx, receiver, msg.Text)
		return
	}

	first := msg.Attachments[0]
	switch {
	case first.Type == messenger.AttachmentFallback:
		text := msg.Text
		if text == "" {
			text = s.msg.AttachmentLink + first.Payload.URL
		}
		s.relay(ctx, receiver, text)
	case first.Type.Relayable():
		s.attachment(ctx, receiver, first.Type, first.Payload.URL)
	default:
		s.log.Debug("attachment rejected", "user", sender, "type", first.Type)
		s.text(ctx, sender, s.msg.ErrAttachment)
		return
	}

	for _, att := range msg.Attachments[1:] {
		if att.Type.Relayable() {
			s.attachment(ctx, receiver, att.Type, att.Payload.URL)
		}
	}
}
