package chatible

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/gifts"
	"github.com/oggyb/chatible/internal/lang"
	"github.com/oggyb/chatible/internal/messenger"
)

// inbound is an event reduced to what the handlers need.
type inbound struct {
	sender  string
	read    bool
	text    string
	command string
	message *messenger.Message
}

// ProcessEvent handles one messaging event for its sender.
//
// Echoes and delivery receipts are ignored. Read receipts become an empty
// command and postbacks become typed commands.
func (s *Service) ProcessEvent(ctx context.Context, ev messenger.Event) {
	in, ok := s.classify(ev)
	if !ok {
		return
	}

	if s.policy.Maintenance {
		s.text(ctx, in.sender, s.msg.Maintenance)
		return
	}

	if in.command == s.msg.Keywords.GetStarted {
		s.buttons(ctx, in.sender, s.msg.FirstCome, s.idleMenu())
		return
	}

	waiting, err := s.store.IsWaiting(ctx, in.sender)
	if err != nil {
		s.storeErr("is_waiting", err, "user", in.sender)
	}
	partner, paired, err := s.store.FindPartner(ctx, in.sender)
	if err != nil {
		s.storeErr("find_partner", err, "user", in.sender)
	}

	switch {
	case !waiting && !paired:
		s.handleIdle(ctx, in)
	case waiting && !paired:
		s.handleWaiting(ctx, in)
	case !waiting && paired:
		s.handlePaired(ctx, in, partner)
	default:
		s.handleInconsistent(ctx, in)
	}
}

func (s *Service) classify(ev messenger.Event) (inbound, bool) {
	if ev.Delivery != nil {
		return inbound{}, false
	}

	msg := ev.Message
	if ev.Read != nil {
		msg = &messenger.Message{}
	}
	if ev.Postback != nil && ev.Postback.Payload != "" {
		msg = &messenger.Message{Text: ev.Postback.Payload}
	}
	if msg == nil || msg.IsEcho || ev.Sender.ID == "" {
		return inbound{}, false
	}

	in := inbound{
		sender:  ev.Sender.ID,
		read:    ev.Read != nil,
		text:    msg.Text,
		message: msg,
	}
	if msg.QuickReply != nil && msg.QuickReply.Payload != "" {
		in.text = msg.QuickReply.Payload
	}
	if utf8.RuneCountInString(in.text) < s.policy.CommandMaxLen {
		in.command = lang.NormalizeCommand(in.text)
	}
	return in, true
}

func (s *Service) handleIdle(ctx context.Context, in inbound) {
	k := s.msg.Keywords
	switch {
	case in.command == "":
		if !in.read {
			s.buttons(ctx, in.sender, s.msg.Instruction, s.idleMenu())
		}
	case in.command == k.Start:
		gender := s.ResolveGender(ctx, in.sender)
		s.RequestPairing(ctx, in.sender, gender)
	case strings.HasPrefix(in.command, k.GenderPrefix):
		s.setGenderAndPair(ctx, in)
	case s.common(ctx, in, "", s.idleMenu()):
	default:
		s.buttons(ctx, in.sender, s.msg.Instruction, s.idleMenu())
	}
}

func (s *Service) handleWaiting(ctx context.Context, in inbound) {
	switch {
	case in.command == s.msg.Keywords.End:
		if _, err := s.store.RemoveWaiting(ctx, in.sender); err != nil {
			s.storeErr("remove_waiting", err, "user", in.sender)
		}
		s.buttons(ctx, in.sender, s.msg.WaitCancelled, s.idleMenu())
	case in.command != "" && s.common(ctx, in, "", s.endMenu()):
	default:
		if !in.read {
			s.buttons(ctx, in.sender, s.msg.Waiting, s.endMenu())
		}
	}
}

func (s *Service) handlePaired(ctx context.Context, in inbound, partner string) {
	k := s.msg.Keywords
	switch {
	case in.read:
		s.seen(ctx, partner)
	case in.command == k.End:
		s.buttons(ctx, in.sender, s.msg.ConfirmEnd, s.confirmMenu())
	case in.command == k.ConfirmEnd:
		s.EndPairing(ctx, in.sender, partner)
	case in.command == k.CancelEnd:
		// the user kept the chat going
	case in.command == k.Start:
		s.text(ctx, in.sender, s.msg.StartErrAlready)
	case in.command != "" && s.common(ctx, in, partner, s.endMenu()):
	case strings.HasPrefix(strings.ToLower(strings.TrimSpace(in.text)), s.msg.FakeMarker):
		s.text(ctx, in.sender, s.msg.ErrFakeMsg)
	default:
		s.ForwardMessage(ctx, in.sender, partner, in.message)
	}
}

// handleInconsistent clears a user found both waiting and paired.
func (s *Service) handleInconsistent(ctx context.Context, in inbound) {
	s.log.Warn("inconsistent state", "user", in.sender)
	if _, err := s.store.RemoveWaiting(ctx, in.sender); err != nil {
		s.storeErr("remove_waiting", err, "user", in.sender)
	}
	if _, err := s.store.RemovePairing(ctx, in.sender); err != nil {
		s.storeErr("remove_pairing", err, "user", in.sender)
	}
	s.text(ctx, in.sender, s.msg.ErrUnknown)
}

// common handles the commands every state shares and reports whether the
// command was one of them. partner is empty unless the sender is paired;
// gift commands are then forwarded and the picture goes to both users.
func (s *Service) common(ctx context.Context, in inbound, partner string, menu []messenger.QuickReply) bool {
	k := s.msg.Keywords
	switch in.command {
	case k.Help:
		s.buttons(ctx, in.sender, s.msg.Help, menu)
	case k.Donate:
		s.buttons(ctx, in.sender, s.msg.Donate, menu)
	case k.Profile:
		s.SendProfileInfo(ctx, in.sender)
	case k.DailyReward:
		s.ClaimDailyReward(ctx, in.sender)
	case k.Cat:
		s.sendGift(ctx, in, partner, gifts.KindCat)
	case k.Dog:
		s.sendGift(ctx, in, partner, gifts.KindDog)
	case k.HotBoy:
		s.sendGift(ctx, in, partner, gifts.KindHotBoy)
	default:
		return false
	}
	return true
}

func (s *Service) setGenderAndPair(ctx context.Context, in inbound) {
	k := s.msg.Keywords
	var gender db.Gender
	var sought string
	switch strings.TrimPrefix(in.command, k.GenderPrefix) {
	case k.GenderMale:
		gender, sought = db.GenderFemale, s.msg.GenderNameMale
	case k.GenderFemale:
		gender, sought = db.GenderMale, s.msg.GenderNameFemale
	case k.GenderBoth:
		gender, sought = db.GenderUnknown, s.msg.GenderNameBoth
	default:
		s.buttons(ctx, in.sender, s.msg.GenderErr, s.genderMenu())
		return
	}

	s.text(ctx, in.sender, s.msg.GenderWriteOK+sought)
	if err := s.store.UpsertGender(ctx, in.sender, gender); err != nil {
		s.storeErr("upsert_gender", err, "user", in.sender)
	}
	s.RequestPairing(ctx, in.sender, gender)
}

func (s *Service) sendGift(ctx context.Context, in inbound, partner string, kind gifts.Kind) {
	if partner != "" {
		s.ForwardMessage(ctx, in.sender, partner, in.message)
	}

	url, err := s.pictures.Picture(ctx, kind)
	if err != nil {
		s.log.Warn("gift failed", "kind", kind, "user", in.sender, "err", err)
		s.text(ctx, in.sender, s.msg.ErrGift)
		return
	}
	s.attachment(ctx, in.sender, messenger.AttachmentImage, url)
	if partner != "" {
		s.attachment(ctx, partner, messenger.AttachmentImage, url)
	}
}

//
// Quick replies
//

func (s *Service) idleMenu() []messenger.QuickReply {
	k := s.msg.Keywords
	return []messenger.QuickReply{
		{Title: s.msg.ButtonStart, Payload: k.Start},
		{Title: s.msg.ButtonMale, Payload: k.GenderPrefix + k.GenderMale},
		{Title: s.msg.ButtonFemale, Payload: k.GenderPrefix + k.GenderFemale},
		{Title: s.msg.ButtonHelp, Payload: k.Help},
		{Title: s.msg.ButtonDonate, Payload: k.Donate},
	}
}

// endMenu is shown while waiting or chatting.
func (s *Service) endMenu() []messenger.QuickReply {
	return []messenger.QuickReply{
		{Title: s.msg.ButtonEnd, Payload: s.msg.Keywords.End},
		{Title: s.msg.ButtonHelp, Payload: s.msg.Keywords.Help},
	}
}

func (s *Service) confirmMenu() []messenger.QuickReply {
	return []messenger.QuickReply{
		{Title: s.msg.ButtonYes, Payload: s.msg.Keywords.ConfirmEnd},
		{Title: s.msg.ButtonNo, Payload: s.msg.Keywords.CancelEnd},
	}
}

func (s *Service) genderMenu() []messenger.QuickReply {
	k := s.msg.Keywords
	return []messenger.QuickReply{
		{Title: s.msg.ButtonMale, Payload: k.GenderPrefix + k.GenderMale},
		{Title: s.msg.ButtonFemale, Payload: k.GenderPrefix + k.GenderFemale},
		{Title: s.msg.ButtonHelp, Payload: k.Help},
	}
}

func (s *Service) profileMenu() []messenger.QuickReply {
	return []messenger.QuickReply{
		{Title: s.msg.ButtonDaily, Payload: s.msg.Keywords.DailyReward},
	}
}
