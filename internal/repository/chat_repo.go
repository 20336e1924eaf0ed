package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/chatible/internal/cache"
	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/utils/pagination"
)

var (
	// ErrNotWaiting is returned by Pair when the candidate left the waiting pool
	// between the caller's scan and the pairing attempt.
	ErrNotWaiting = errors.New("candidate is no longer waiting")
	// ErrAlreadyPaired is returned by Pair when either side already has a partner.
	ErrAlreadyPaired = errors.New("user is already paired")
)

// Stats is a point-in-time count of each collection.
type Stats struct {
	Profiles int64
	Waiting  int64
	Pairings int64
}

// ChatRepository is the persistence gateway for profiles, the waiting pool,
// active pairings and last-partner history.
//
// Every write takes the same mutex. Upserts are not atomic against concurrent
// callers on every backend, so two events racing on the same user could
// otherwise double-pair or orphan entries. Reads never take the write lock.
// Profile reads go through the optional redis cache first.
type ChatRepository struct {
	db       *gorm.DB
	profiles *cache.RedisCache

	mu sync.Mutex
}

// NewChatRepository creates a repository bound to the given DB connection.
// profiles may be nil to disable the read-through cache.
func NewChatRepository(database *gorm.DB, profiles *cache.RedisCache) *ChatRepository {
	return &ChatRepository{db: database, profiles: profiles}
}

//
// Profiles
//

// UpsertGender creates the profile if missing, otherwise overwrites its gender.
// A new profile starts its daily-reward window now.
func (r *ChatRepository) UpsertGender(ctx context.Context, id string, gender db.Gender) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile := db.UserProfile{
		ID:           id,
		Gender:       gender,
		LastRewardAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gender", "updated_at"}),
		}).
		Create(&profile).Error
	if err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// GetGender returns the stored gender; ok is false when no profile exists.
func (r *ChatRepository) GetGender(ctx context.Context, id string) (gender db.Gender, ok bool, err error) {
	p, err := r.GetProfile(ctx, id)
	if err != nil || p == nil {
		return "", false, err
	}
	return p.Gender, true, nil
}

// GetProfile returns the profile or nil when the user has none.
//
// Cache-first strategy:
//  1. Attempts to read from Redis (profile:<id>).
//  2. On miss or cache error, falls back to the DB.
//  3. On DB hit, refreshes Redis.
func (r *ChatRepository) GetProfile(ctx context.Context, id string) (*db.UserProfile, error) {
	if r.profiles != nil {
		if p, err := r.profiles.GetProfile(ctx, id); err == nil && p != nil {
			return p, nil
		}
	}

	var p db.UserProfile
	res := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	if r.profiles != nil {
		_ = r.profiles.SetProfile(ctx, &p)
	}
	return &p, nil
}

// CreditDaily sets balance to currentBalance+1 and stamps the reward time.
func (r *ChatRepository) CreditDaily(ctx context.Context, id string, currentBalance int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.WithContext(ctx).
		Model(&db.UserProfile{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":        currentBalance + 1,
			"last_reward_at": at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	r.invalidate(ctx, id)
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

//
// Waiting pool
//

// UpsertWaiting adds id to the waiting pool or refreshes its gender and time.
// An existing entry keeps its place in the queue.
func (r *ChatRepository) UpsertWaiting(ctx context.Context, id string, gender db.Gender, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := db.WaitingEntry{UserID: id, Gender: gender, EnqueuedAt: at.UTC()}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"gender", "enqueued_at"}),
		}).
		Create(&entry).Error
}

// RemoveWaiting deletes id from the pool. Removing an absent user is a no-op.
func (r *ChatRepository) RemoveWaiting(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.WithContext(ctx).Where("user_id = ?", id).Delete(&db.WaitingEntry{})
	return res.RowsAffected > 0, res.Error
}

// EvictWaiting deletes id only if it was enqueued before cutoff, so a user who
// re-entered the pool after a sweep snapshot is left alone.
func (r *ChatRepository) EvictWaiting(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.WithContext(ctx).
		Where("user_id = ? AND enqueued_at < ?", id, cutoff.UTC()).
		Delete(&db.WaitingEntry{})
	return res.RowsAffected > 0, res.Error
}

// IsWaiting reports whether id has a waiting entry.
func (r *ChatRepository) IsWaiting(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.WaitingEntry{}).
		Where("user_id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// ListWaiting returns the whole pool, earliest-waiting first.
func (r *ChatRepository) ListWaiting(ctx context.Context) ([]db.WaitingEntry, error) {
	var entries []db.WaitingEntry
	err := r.db.WithContext(ctx).Order("seq ASC").Find(&entries).Error
	return entries, err
}

// ListWaitingPage returns one page of the pool in queue order.
// Supports cursor-based pagination via paginationToken.
func (r *ChatRepository) ListWaitingPage(
	ctx context.Context,
	paginationToken *string,
	limit int,
) ([]db.WaitingEntry, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).Order("seq ASC").Limit(limit + 1)
	if cursor.Seq > 0 {
		query = query.Where("seq > ?", cursor.Seq)
	}

	var entries []db.WaitingEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	// pagination: build next cursor if needed
	var nextToken *string
	if len(entries) > limit {
		last := entries[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{Seq: last.Seq})
		nextToken = &token
		entries = entries[:limit]
	}
	return entries, nextToken, nil
}

//
// Pairings
//

// Pair moves a and b from the waiting pool into one pairing and records them
// as each other's last partner, all under the write lock in one transaction.
//
// b must still be waiting (ErrNotWaiting otherwise); a may or may not be.
// Neither may already be paired (ErrAlreadyPaired).
func (r *ChatRepository) Pair(
	ctx context.Context,
	a, b string,
	genderA, genderB db.Gender,
	at time.Time,
) (*db.PairingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var entry *db.PairingEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var paired int64
		if err := tx.Model(&db.PairingEntry{}).
			Where("user_a IN ? OR user_b IN ?", []string{a, b}, []string{a, b}).
			Count(&paired).Error; err != nil {
			return err
		}
		if paired > 0 {
			return ErrAlreadyPaired
		}

		res := tx.Where("user_id = ?", b).Delete(&db.WaitingEntry{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotWaiting
		}
		if err := tx.Where("user_id = ?", a).Delete(&db.WaitingEntry{}).Error; err != nil {
			return err
		}

		var err error
		entry, err = upsertPairing(tx, a, b, genderA, genderB, at)
		if err != nil {
			return err
		}
		if err := upsertLastPartner(tx, a, b); err != nil {
			return err
		}
		return upsertLastPartner(tx, b, a)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// UpsertPairing writes a pairing keyed by userA without touching the pool.
func (r *ChatRepository) UpsertPairing(
	ctx context.Context,
	a, b string,
	genderA, genderB db.Gender,
	at time.Time,
) (*db.PairingEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertPairing(r.db.WithContext(ctx), a, b, genderA, genderB, at)
}

// RemovePairing deletes the pairing that contains id on either side.
// Removing an absent pairing is a no-op.
func (r *ChatRepository) RemovePairing(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", id, id).
		Delete(&db.PairingEntry{})
	return res.RowsAffected > 0, res.Error
}

// FindPartner returns the other side of id's pairing; ok is false when id is not paired.
func (r *ChatRepository) FindPartner(ctx context.Context, id string) (partner string, ok bool, err error) {
	var entry db.PairingEntry
	res := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", id, id).
		Limit(1).
		Find(&entry)
	if res.Error != nil || res.RowsAffected == 0 {
		return "", false, res.Error
	}
	return entry.Partner(id), true, nil
}

//
// Last partner
//

// UpsertLastPartner records b as a's most recent partner.
func (r *ChatRepository) UpsertLastPartner(ctx context.Context, a, b string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return upsertLastPartner(r.db.WithContext(ctx), a, b)
}

// CheckLastPartner reports whether b is a's most recent partner (one direction only).
func (r *ChatRepository) CheckLastPartner(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.LastPartner{}).
		Where("user_id = ? AND partner_id = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

//
// Administration
//

// ResetAll clears every collection and the profile cache.
func (r *ChatRepository) ResetAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errs := []error{db.Reset(r.db.WithContext(ctx))}
	if r.profiles != nil {
		errs = append(errs, r.profiles.FlushProfiles(ctx))
	}
	return errors.Join(errs...)
}

// Stats counts each collection.
func (r *ChatRepository) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	q := r.db.WithContext(ctx)
	if err := q.Model(&db.UserProfile{}).Count(&s.Profiles).Error; err != nil {
		return s, err
	}
	if err := q.Model(&db.WaitingEntry{}).Count(&s.Waiting).Error; err != nil {
		return s, err
	}
	if err := q.Model(&db.PairingEntry{}).Count(&s.Pairings).Error; err != nil {
		return s, err
	}
	return s, nil
}

//
// helpers (caller holds the write lock)
//

func upsertPairing(tx *gorm.DB, a, b string, genderA, genderB db.Gender, at time.Time) (*db.PairingEntry, error) {
	entry := db.PairingEntry{
		ID:       uuid.NewString(),
		UserA:    a,
		UserB:    b,
		GenderA:  genderA,
		GenderB:  genderB,
		PairedAt: at.UTC(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_a"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_b", "gender_a", "gender_b", "paired_at"}),
	}).Create(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func upsertLastPartner(tx *gorm.DB, a, b string) error {
	last := db.LastPartner{UserID: a, PartnerID: b}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"partner_id", "updated_at"}),
	}).Create(&last).Error
}

func (r *ChatRepository) invalidate(ctx context.Context, id string) {
	if r.profiles != nil {
		_ = r.profiles.InvalidateProfile(ctx, id)
	}
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
