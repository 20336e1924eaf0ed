package chatible

import (
	"context"
	"errors"
	"fmt"

	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/repository"
)

// ResolveGender returns the stored gender of id. On a miss it asks the
// profile source, stores the mapped value and returns it. Lookup failures
// resolve to GenderUnknown. When the stored gender cannot be read the looked
// up value is returned but not stored, so a chosen gender is never overwritten.
func (s *Service) ResolveGender(ctx context.Context, id string) db.Gender {
	gender, ok, readErr := s.store.GetGender(ctx, id)
	if readErr != nil {
		s.storeErr("get_gender", readErr, "user", id)
	}
	if ok {
		return gender
	}

	raw, err := s.profiles.UserGender(ctx, id)
	if err != nil {
		s.log.Warn("profile lookup failed", "user", id, "err", err)
		raw = ""
	}
	gender = db.ParseGender(raw)
	if readErr != nil {
		return gender
	}

	if err := s.store.UpsertGender(ctx, id, gender); err != nil {
		s.storeErr("upsert_gender", err, "user", id)
	}
	return gender
}

// RequestPairing pairs id with the first acceptable waiting user, or puts id
// in the waiting pool when nobody qualifies.
//
// The pool is scanned earliest-waiting first. A candidate is skipped when
// either side was the other's last partner. Otherwise it is accepted when
// the genders are a preferred match, when the pool is larger than the
// overflow threshold, or when exactly one side is Unknown and the random
// draw succeeds.
func (s *Service) RequestPairing(ctx context.Context, id string, gender db.Gender) {
	pool, err := s.store.ListWaiting(ctx)
	if err != nil {
		s.storeErr("list_waiting", err)
		pool = nil
	}

	for _, c := range pool {
		if c.UserID == id || s.recentPartners(ctx, id, c.UserID) {
			continue
		}
		if !s.accept(gender, c.Gender, len(pool)) {
			continue
		}

		err := s.PairPeople(ctx, id, c.UserID, gender, c.Gender)
		switch {
		case err == nil:
			return
		case errors.Is(err, repository.ErrNotWaiting), errors.Is(err, repository.ErrAlreadyPaired):
			s.log.Debug("candidate unavailable", "user", id, "candidate", c.UserID, "err", err)
			continue
		default:
			s.storeErr("pair", err, "user", id, "candidate", c.UserID)
			continue
		}
	}

	if err := s.store.UpsertWaiting(ctx, id, gender, s.now()); err != nil {
		s.storeErr("upsert_waiting", err, "user", id)
	}
	if gender == db.GenderUnknown {
		s.text(ctx, id, s.msg.StartWarnGender)
	}
	s.text(ctx, id, s.msg.StartOkay)
}

// PairPeople moves a and b into one pairing and tells both who they are
// talking to. It returns repository.ErrNotWaiting or
// repository.ErrAlreadyPaired when b can no longer be paired with a.
func (s *Service) PairPeople(ctx context.Context, a, b string, genderA, genderB db.Gender) error {
	entry, err := s.store.Pair(ctx, a, b, genderA, genderB, s.now())
	if err != nil {
		return err
	}

	s.text(ctx, a, s.connected(a, b))
	s.text(ctx, b, s.connected(b, a))
	s.log.Info("pair.created",
		"pairing", entry.ID,
		"user_a", a,
		"user_b", b,
		"gender_a", genderA,
		"gender_b", genderB,
	)
	return nil
}

// EndPairing removes the pairing of self and partner. self gets the
// self-ended message, partner the partner-ended one. Nothing is sent when
// there was no pairing to remove.
func (s *Service) EndPairing(ctx context.Context, self, partner string) {
	removed, err := s.store.RemovePairing(ctx, self)
	if err != nil {
		s.storeErr("remove_pairing", err, "user", self)
		return
	}
	if !removed {
		return
	}

	s.buttons(ctx, self, s.msg.EndChat, s.idleMenu())
	s.buttons(ctx, partner, s.msg.EndChatPartner, s.idleMenu())
	s.log.Info("pair.ended", "by", self, "partner", partner)
}

func (s *Service) recentPartners(ctx context.Context, a, b string) bool {
	for _, dir := range [][2]string{{a, b}, {b, a}} {
		last, err := s.store.CheckLastPartner(ctx, dir[0], dir[1])
		if err != nil {
			s.storeErr("check_last_partner", err, "user", dir[0], "partner", dir[1])
			continue
		}
		if last {
			return true
		}
	}
	return false
}

func (s *Service) accept(mine, theirs db.Gender, poolSize int) bool {
	preferred := (mine == db.GenderUnknown && theirs == db.GenderUnknown) || mine.Complements(theirs)
	if preferred {
		return true
	}
	if poolSize > s.policy.OverflowThreshold {
		return true
	}
	oneUnknown := (mine == db.GenderUnknown) != (theirs == db.GenderUnknown)
	return oneUnknown && s.rand() < s.policy.UnknownMatchProbability
}

func (s *Service) connected(self, partner string) string {
	return s.msg.Connected + "\n" + fmt.Sprintf(s.msg.PairIDs, self, partner)
}
