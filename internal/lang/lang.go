// Package lang holds every user-facing string and command keyword of the bot.
//
// Defaults are English. A YAML file can override any subset of fields; keys
// match the yaml tags below.
package lang

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Keywords are compared against the normalized command: lower-cased with
// spaces removed. Keep them lower-case and space-free.
type Keywords struct {
	GetStarted   string `yaml:"get_started"`
	Start        string `yaml:"start"`
	End          string `yaml:"end"`
	ConfirmEnd   string `yaml:"confirm_end"`
	CancelEnd    string `yaml:"cancel_end"`
	GenderPrefix string `yaml:"gender_prefix"`
	GenderMale   string `yaml:"gender_male"`
	GenderFemale string `yaml:"gender_female"`
	GenderBoth   string `yaml:"gender_both"`
	Help         string `yaml:"help"`
	Donate       string `yaml:"donate"`
	Cat          string `yaml:"cat"`
	Dog          string `yaml:"dog"`
	HotBoy       string `yaml:"hotboy"`
	Profile      string `yaml:"profile"`
	DailyReward  string `yaml:"daily_reward"`
}

// Messages is the full catalog.
type Messages struct {
	Keywords Keywords `yaml:"keywords"`

	// BotPrefix marks messages written by the bot itself, as opposed to relayed ones.
	BotPrefix string `yaml:"bot_prefix"`
	// FakeMarker is the lower-cased prefix a user may not send to a partner.
	FakeMarker string `yaml:"fake_marker"`

	FirstCome        string `yaml:"first_come"`
	Maintenance      string `yaml:"maintenance"`
	Instruction      string `yaml:"instruction"`
	Help             string `yaml:"help"`
	Donate           string `yaml:"donate"`
	Waiting          string `yaml:"waiting"`
	StartOkay        string `yaml:"start_okay"`
	StartWarnGender  string `yaml:"start_warn_gender"`
	StartErrAlready  string `yaml:"start_err_already"`
	Connected        string `yaml:"connected"`
	PairIDs          string `yaml:"pair_ids"`
	ConfirmEnd       string `yaml:"confirm_end"`
	EndChat          string `yaml:"end_chat"`
	EndChatPartner   string `yaml:"end_chat_partner"`
	EndChatForce     string `yaml:"end_chat_force"`
	WaitCancelled    string `yaml:"wait_cancelled"`
	GenderErr        string `yaml:"gender_err"`
	GenderWriteOK    string `yaml:"gender_write_ok"`
	GenderNameMale   string `yaml:"gender_name_male"`
	GenderNameFemale string `yaml:"gender_name_female"`
	GenderNameBoth   string `yaml:"gender_name_both"`
	AttachmentLink   string `yaml:"attachment_link"`
	ErrAttachment    string `yaml:"err_attachment"`
	ErrFakeMsg       string `yaml:"err_fake_msg"`
	ErrUnknown       string `yaml:"err_unknown"`
	ErrGift          string `yaml:"err_gift"`
	ProfileInfo      string `yaml:"profile_info"`
	RewardClaimed    string `yaml:"reward_claimed"`
	RewardTooSoon    string `yaml:"reward_too_soon"`

	// Quick reply titles
	ButtonStart  string `yaml:"button_start"`
	ButtonEnd    string `yaml:"button_end"`
	ButtonHelp   string `yaml:"button_help"`
	ButtonMale   string `yaml:"button_male"`
	ButtonFemale string `yaml:"button_female"`
	ButtonDonate string `yaml:"button_donate"`
	ButtonYes    string `yaml:"button_yes"`
	ButtonNo     string `yaml:"button_no"`
	ButtonDaily  string `yaml:"button_daily"`
}

// Default returns the built-in English catalog.
func Default() *Messages {
	return &Messages{
		Keywords: Keywords{
			GetStarted:   "getstarted",
			Start:        "start",
			End:          "end",
			ConfirmEnd:   "endyes",
			CancelEnd:    "endno",
			GenderPrefix: "find",
			GenderMale:   "male",
			GenderFemale: "female",
			GenderBoth:   "both",
			Help:         "help",
			Donate:       "donate",
			Cat:          "cat",
			Dog:          "dog",
			HotBoy:       "hotboy",
			Profile:      "profile",
			DailyReward:  "daily",
		},

		BotPrefix:  "[BOT] ",
		FakeMarker: "[bot]",

		FirstCome:        "Welcome! This bot pairs you with a random stranger for an anonymous chat. Press Start to find someone.",
		Maintenance:      "The bot is under maintenance. Please come back later.",
		Instruction:      "Type \"start\" to find a partner, or \"find male\" / \"find female\" to choose. Type \"help\" for every command.",
		Help:             "Commands:\n- start: find a partner\n- find male / find female / find both: find a partner of that gender\n- end: end the current chat or stop waiting\n- profile: your coins\n- daily: claim your daily coin\n- cat / dog / hotboy: send a picture",
		Donate:           "Thank you for wanting to support the bot!",
		Waiting:          "You are still waiting for a partner. Type \"end\" to stop waiting.",
		StartOkay:        "Looking for a partner. You will be notified as soon as someone is found.",
		StartWarnGender:  "We could not determine your gender, so we might pair you with anyone. Use \"find male\" or \"find female\" to choose.",
		StartErrAlready:  "You are already chatting with someone. Type \"end\" to end the chat first.",
		Connected:        "You are now connected with a stranger. Say hi!",
		PairIDs:          "Your ID: %s\nPartner ID: %s",
		ConfirmEnd:       "Do you really want to end this chat?",
		EndChat:          "You ended the chat.",
		EndChatPartner:   "Your partner ended the chat.",
		EndChatForce:     "Nobody was found in time, so you left the waiting list. Try again later!",
		WaitCancelled:    "You stopped waiting.",
		GenderErr:        "Unknown gender. Use \"find male\", \"find female\" or \"find both\".",
		GenderWriteOK:    "Searching for: ",
		GenderNameMale:   "male",
		GenderNameFemale: "female",
		GenderNameBoth:   "anyone",
		AttachmentLink:   "[Attachment] ",
		ErrAttachment:    "This kind of attachment cannot be sent.",
		ErrFakeMsg:       "You cannot send messages that look like the bot's.",
		ErrUnknown:       "An unknown error happened. Your chat state was reset, please start again.",
		ErrGift:          "Could not fetch a picture right now, try again later.",
		ProfileInfo:      "ID: %s\nCoins: %d\nLast claimed: %s\nNext claim: %s",
		RewardClaimed:    "You received 1 coin!\nNext claim: %s",
		RewardTooSoon:    "You already claimed today, come back tomorrow!\nNext claim: %s",

		ButtonStart:  "Start",
		ButtonEnd:    "End",
		ButtonHelp:   "Help",
		ButtonMale:   "Find male",
		ButtonFemale: "Find female",
		ButtonDonate: "Donate",
		ButtonYes:    "Yes",
		ButtonNo:     "No",
		ButtonDaily:  "Daily coin",
	}
}

// Load returns Default overlaid with the YAML file at path.
// An empty path yields the defaults.
func Load(path string) (*Messages, error) {
	m := Default()
	if strings.TrimSpace(path) == "" {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lang file: %w", err)
	}
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse lang file: %w", err)
	}
	m.normalize()
	return m, nil
}

// normalize keeps overridden keywords comparable with normalized commands.
func (m *Messages) normalize() {
	k := &m.Keywords
	for _, p := range []*string{
		&k.GetStarted, &k.Start, &k.End, &k.ConfirmEnd, &k.CancelEnd,
		&k.GenderPrefix, &k.GenderMale, &k.GenderFemale, &k.GenderBoth,
		&k.Help, &k.Donate, &k.Cat, &k.Dog, &k.HotBoy, &k.Profile, &k.DailyReward,
	} {
		*p = NormalizeCommand(*p)
	}
	m.FakeMarker = strings.ToLower(strings.TrimSpace(m.FakeMarker))
}

// NormalizeCommand lower-cases s and strips spaces.
func NormalizeCommand(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "")
}
