package chatible

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/oggyb/chatible/internal/app"
	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/gifts"
	"github.com/oggyb/chatible/internal/lang"
	"github.com/oggyb/chatible/internal/messenger"
)

// Store is the persistence gateway the service runs on.
// repository.ChatRepository implements it.
type Store interface {
	UpsertGender(ctx context.Context, id string, gender db.Gender) error
	GetGender(ctx context.Context, id string) (db.Gender, bool, error)
	GetProfile(ctx context.Context, id string) (*db.UserProfile, error)
	CreditDaily(ctx context.Context, id string, currentBalance int64, at time.Time) error

	UpsertWaiting(ctx context.Context, id string, gender db.Gender, at time.Time) error
	RemoveWaiting(ctx context.Context, id string) (bool, error)
	EvictWaiting(ctx context.Context, id string, cutoff time.Time) (bool, error)
	IsWaiting(ctx context.Context, id string) (bool, error)
	ListWaiting(ctx context.Context) ([]db.WaitingEntry, error)

	Pair(ctx context.Context, a, b string, genderA, genderB db.Gender, at time.Time) (*db.PairingEntry, error)
	RemovePairing(ctx context.Context, id string) (bool, error)
	FindPartner(ctx context.Context, id string) (string, bool, error)
	CheckLastPartner(ctx context.Context, a, b string) (bool, error)
}

// Notifier delivers messages to users. messenger.Client implements it.
type Notifier interface {
	SendText(ctx context.Context, to, text string, relayed bool) error
	SendAttachment(ctx context.Context, to string, kind messenger.AttachmentType, url string) error
	SendQuickReplies(ctx context.Context, to, text string, replies []messenger.QuickReply) error
	SendSeen(ctx context.Context, to string) error
}

// ProfileSource looks up the platform-side gender of a user.
type ProfileSource interface {
	UserGender(ctx context.Context, id string) (string, error)
}

// Pictures resolves gift commands to image URLs.
type Pictures interface {
	Picture(ctx context.Context, kind gifts.Kind) (string, error)
}

// Policy holds the matchmaking and dispatch knobs.
type Policy struct {
	MaxWait                 time.Duration
	OverflowThreshold       int
	UnknownMatchProbability float64
	CommandMaxLen           int
	Maintenance             bool
}

// Service is the pairing bot: it classifies inbound events, runs the
// Idle/Waiting/Paired state machine and evicts stale waiting users.
type Service struct {
	store    Store
	notifier Notifier
	profiles ProfileSource
	pictures Pictures
	msg      *lang.Messages
	policy   Policy
	log      *slog.Logger

	now  func() time.Time
	rand func() float64
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRand replaces the source of the Unknown-gender draw. It must return
// values in [0, 1).
func WithRand(r func() float64) Option {
	return func(s *Service) { s.rand = r }
}

// WithPolicy overrides the policy taken from config.
func WithPolicy(p Policy) Option {
	return func(s *Service) { s.policy = p }
}

// WithStore replaces the repository taken from the app context.
func WithStore(st Store) Option {
	return func(s *Service) { s.store = st }
}

// NewService wires the bot on top of the shared app context.
func NewService(appCtx *app.AppContext, notifier Notifier, profiles ProfileSource, pictures Pictures, opts ...Option) *Service {
	cfg := appCtx.Config
	msgs := appCtx.Lang
	if msgs == nil {
		msgs = lang.Default()
	}

	s := &Service{
		store:    appCtx.Chats,
		notifier: notifier,
		profiles: profiles,
		pictures: pictures,
		msg:      msgs,
		policy: Policy{
			MaxWait:                 cfg.Chat.MaxWait,
			OverflowThreshold:       cfg.Chat.OverflowThreshold,
			UnknownMatchProbability: cfg.Chat.UnknownMatchProbability,
			CommandMaxLen:           cfg.Chat.CommandMaxLen,
			Maintenance:             cfg.Chat.Maintenance,
		},
		log:  appCtx.Logger.With("component", "chatible"),
		now:  func() time.Time { return time.Now().UTC() },
		rand: rand.Float64,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// storeErr logs a failed persistence call. Callers carry on with a zero value.
func (s *Service) storeErr(op string, err error, args ...any) {
	s.log.Error("store failure", append([]any{"op", "store." + op, "err", err}, args...)...)
}

// send helpers log and swallow delivery errors.

func (s *Service) text(ctx context.Context, to, text string) {
	if err := s.notifier.SendText(ctx, to, text, false); err != nil {
		s.log.Warn("send failed", "op", "notify.text", "to", to, "err", err)
	}
}

func (s *Service) relay(ctx context.Context, to, text string) {
	if err := s.notifier.SendText(ctx, to, text, true); err != nil {
		s.log.Warn("send failed", "op", "notify.relay", "to", to, "err", err)
	}
}

func (s *Service) attachment(ctx context.Context, to string, kind messenger.AttachmentType, url string) {
	if err := s.notifier.SendAttachment(ctx, to, kind, url); err != nil {
		s.log.Warn("send failed", "op", "notify.attachment", "to", to, "kind", kind, "err", err)
	}
}

func (s *Service) buttons(ctx context.Context, to, text string, replies []messenger.QuickReply) {
	if err := s.notifier.SendQuickReplies(ctx, to, text, replies); err != nil {
		s.log.Warn("send failed", "op", "notify.buttons", "to", to, "err", err)
	}
}

func (s *Service) seen(ctx context.Context, to string) {
	if err := s.notifier.SendSeen(ctx, to); err != nil {
		s.log.Warn("send failed", "op", "notify.seen", "to", to, "err", err)
	}
}
