package chatible

import (
	"context"
	"fmt"
	"time"

	"github.com/oggyb/chatible/internal/db"
)

const (
	rewardWindow  = 24 * time.Hour
	displayLayout = "02/01/2006 15:04:05"
)

// displayZone is the fixed UTC+7 offset reward times are shown in.
var displayZone = time.FixedZone("UTC+7", 7*60*60)

func formatTime(t time.Time) string {
	return t.In(displayZone).Format(displayLayout)
}

// profile returns the sender's profile, creating it through ResolveGender
// when the user has none yet. A read failure yields an empty profile.
func (s *Service) profile(ctx context.Context, id string) db.UserProfile {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		s.storeErr("get_profile", err, "user", id)
		return db.UserProfile{ID: id}
	}
	if p != nil {
		return *p
	}

	s.ResolveGender(ctx, id)
	p, err = s.store.GetProfile(ctx, id)
	if err != nil || p == nil {
		if err != nil {
			s.storeErr("get_profile", err, "user", id)
		}
		return db.UserProfile{ID: id}
	}
	return *p
}

func (s *Service) profileText(p db.UserProfile) string {
	return fmt.Sprintf(s.msg.ProfileInfo,
		p.ID,
		p.Balance,
		formatTime(p.LastRewardAt),
		formatTime(p.LastRewardAt.Add(rewardWindow)),
	)
}

// SendProfileInfo replies with the sender's id, balance and reward times.
func (s *Service) SendProfileInfo(ctx context.Context, id string) {
	s.buttons(ctx, id, s.profileText(s.profile(ctx, id)), s.profileMenu())
}

// ClaimDailyReward credits one coin when at least 24h passed since the last
// claim, otherwise it only reports when the next claim opens.
func (s *Service) ClaimDailyReward(ctx context.Context, id string) {
	p := s.profile(ctx, id)
	now := s.now()
	next := p.LastRewardAt.Add(rewardWindow)

	if now.Before(next) {
		s.text(ctx, id, fmt.Sprintf(s.msg.RewardTooSoon, formatTime(next)))
		return
	}

	if err := s.store.CreditDaily(ctx, id, p.Balance, now); err != nil {
		s.storeErr("credit_daily", err, "user", id)
		return
	}
	p.Balance++
	p.LastRewardAt = now

	s.log.Info("reward.claimed", "user", id, "balance", p.Balance)
	s.text(ctx, id, fmt.Sprintf(s.msg.RewardClaimed, formatTime(now.Add(rewardWindow))))
	s.buttons(ctx, id, s.profileText(p), s.profileMenu())
}
