package repository_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/chatible/internal/cache"
	"github.com/oggyb/chatible/internal/config"
	"github.com/oggyb/chatible/internal/db"
	"github.com/oggyb/chatible/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	database, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func setupRepo(t *testing.T) (*repository.ChatRepository, *gorm.DB) {
	t.Helper()
	dbase := setupTestDB(t)
	return repository.NewChatRepository(dbase, nil), dbase
}

func TestUpsertGenderCreatesThenOverwrites(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	_, ok, err := repo.GetGender(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.UpsertGender(ctx, "u1", db.GenderMale))
	g, ok, err := repo.GetGender(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, db.GenderMale, g)

	p, err := repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, p)
	created := p.LastRewardAt

	// overwrite keeps balance and reward window
	require.NoError(t, repo.UpsertGender(ctx, "u1", db.GenderFemale))
	p, err = repo.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, db.GenderFemale, p.Gender)
	assert.Equal(t, int64(0), p.Balance)
	assert.WithinDuration(t, created, p.LastRewardAt, time.Second)
}

func TestWaitingUpsertKeepsQueueOrder(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	t0 := time.Now().UTC()

	require.NoError(t, repo.UpsertWaiting(ctx, "a", db.GenderMale, t0))
	require.NoError(t, repo.UpsertWaiting(ctx, "b", db.GenderFemale, t0.Add(time.Second)))
	require.NoError(t, repo.UpsertWaiting(ctx, "c", db.GenderUnknown, t0.Add(2*time.Second)))
	// re-enqueue a: still first, only one row
	require.NoError(t, repo.UpsertWaiting(ctx, "a", db.GenderUnknown, t0.Add(3*time.Second)))

	entries, err := repo.ListWaiting(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].UserID, entries[1].UserID, entries[2].UserID})
	assert.Equal(t, db.GenderUnknown, entries[0].Gender)

	waiting, err := repo.IsWaiting(ctx, "b")
	require.NoError(t, err)
	assert.True(t, waiting)

	removed, err := repo.RemoveWaiting(ctx, "b")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemoveWaiting(ctx, "b")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEvictWaitingRespectsCutoff(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertWaiting(ctx, "old", db.GenderMale, now.Add(-20*time.Minute)))
	require.NoError(t, repo.UpsertWaiting(ctx, "fresh", db.GenderMale, now.Add(-time.Minute)))

	cutoff := now.Add(-15 * time.Minute)
	evicted, err := repo.EvictWaiting(ctx, "old", cutoff)
	require.NoError(t, err)
	assert.True(t, evicted)

	evicted, err = repo.EvictWaiting(ctx, "fresh", cutoff)
	require.NoError(t, err)
	assert.False(t, evicted)

	entries, err := repo.ListWaiting(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "fresh", entries[0].UserID)
}

func TestPairIsSymmetricAndClearsPool(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	now := time.Now().UTC()

	require.NoError(t, repo.UpsertWaiting(ctx, "y", db.GenderFemale, now))

	entry, err := repo.Pair(ctx, "x", "y", db.GenderMale, db.GenderFemale, now)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.NotEmpty(t, entry.ID)

	p, ok, err := repo.FindPartner(ctx, "x")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "y", p)

	p, ok, err = repo.FindPartner(ctx, "y")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "x", p)

	entries, err := repo.ListWaiting(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	for _, dir := range [][2]string{{"x", "y"}, {"y", "x"}} {
		last, err := repo.CheckLastPartner(ctx, dir[0], dir[1])
		require.NoError(t, err)
		assert.True(t, last, "%s -> %s", dir[0], dir[1])
	}
}

func TestPairRejectsVanishedCandidateAndDoublePairing(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	now := time.Now().UTC()

	// y never waited
	_, err := repo.Pair(ctx, "x", "y", db.GenderMale, db.GenderFemale, now)
	assert.ErrorIs(t, err, repository.ErrNotWaiting)

	require.NoError(t, repo.UpsertWaiting(ctx, "y", db.GenderFemale, now))
	_, err = repo.Pair(ctx, "x", "y", db.GenderMale, db.GenderFemale, now)
	require.NoError(t, err)

	// x is taken now, z must stay in the pool
	require.NoError(t, repo.UpsertWaiting(ctx, "z", db.GenderFemale, now))
	_, err = repo.Pair(ctx, "x", "z", db.GenderMale, db.GenderFemale, now)
	assert.ErrorIs(t, err, repository.ErrAlreadyPaired)

	waiting, err := repo.IsWaiting(ctx, "z")
	require.NoError(t, err)
	assert.True(t, waiting)
}

func TestConcurrentPairsClaimCandidateOnce(t *testing.T) {
	ctx := context.Background()
	repo, dbase := setupRepo(t)
	now := time.Now().UTC()
	require.NoError(t, repo.UpsertWaiting(ctx, "y", db.GenderFemale, now))

	const callers = 20
	var (
		wg   sync.WaitGroup
		won  atomic.Int32
		errs = make(chan error, callers)
	)
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Pair(ctx, fmt.Sprintf("x%d", i), "y", db.GenderMale, db.GenderFemale, now)
			if err == nil {
				won.Add(1)
				return
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	assert.Equal(t, int32(1), won.Load())
	for err := range errs {
		if !errors.Is(err, repository.ErrAlreadyPaired) && !errors.Is(err, repository.ErrNotWaiting) {
			t.Errorf("unexpected pair error: %v", err)
		}
	}

	waiting, err := repo.IsWaiting(ctx, "y")
	require.NoError(t, err)
	assert.False(t, waiting)

	var pairings int64
	require.NoError(t, dbase.Model(&db.PairingEntry{}).Count(&pairings).Error)
	assert.Equal(t, int64(1), pairings)
}

func TestRemovePairingByEitherSideIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	now := time.Now().UTC()

	_, err := repo.UpsertPairing(ctx, "a", "b", db.GenderMale, db.GenderFemale, now)
	require.NoError(t, err)

	removed, err := repo.RemovePairing(ctx, "b")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.RemovePairing(ctx, "a")
	require.NoError(t, err)
	assert.False(t, removed)

	_, ok, err := repo.FindPartner(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLastPartnerOverwrite(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	require.NoError(t, repo.UpsertLastPartner(ctx, "a", "b"))
	require.NoError(t, repo.UpsertLastPartner(ctx, "a", "c"))

	was, err := repo.CheckLastPartner(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, was)

	is, err := repo.CheckLastPartner(ctx, "a", "c")
	require.NoError(t, err)
	assert.True(t, is)

	// one-directional
	rev, err := repo.CheckLastPartner(ctx, "c", "a")
	require.NoError(t, err)
	assert.False(t, rev)
}

func TestCreditDaily(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	at := time.Now().UTC().Truncate(time.Second)

	assert.ErrorIs(t, repo.CreditDaily(ctx, "ghost", 0, at), gorm.ErrRecordNotFound)

	require.NoError(t, repo.UpsertGender(ctx, "u", db.GenderUnknown))
	require.NoError(t, repo.CreditDaily(ctx, "u", 4, at))

	p, err := repo.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(5), p.Balance)
	assert.True(t, at.Equal(p.LastRewardAt.UTC()), "got %v", p.LastRewardAt)
}

func TestProfileCacheReadThrough(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	repo := repository.NewChatRepository(dbase, cache.NewRedisCache(cfg))

	require.NoError(t, repo.UpsertGender(ctx, "u", db.GenderMale))
	assert.False(t, mr.Exists("profile:u"), "write must invalidate")

	_, err = repo.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.True(t, mr.Exists("profile:u"), "read must populate")

	// served from cache even after the row changes behind the repository
	require.NoError(t, dbase.Model(&db.UserProfile{}).Where("id = ?", "u").Update("balance", 9).Error)
	p, err := repo.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Balance)

	// a gateway write drops the stale copy
	require.NoError(t, repo.CreditDaily(ctx, "u", 9, time.Now()))
	p, err = repo.GetProfile(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Balance)
}

func TestListWaitingPage(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)
	now := time.Now().UTC()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.UpsertWaiting(ctx, fmt.Sprintf("w%d", i), db.GenderMale, now))
	}

	page1, next, err := repo.ListWaitingPage(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next)
	assert.Equal(t, "w1", page1[0].UserID)

	page2, next, err := repo.ListWaitingPage(ctx, next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "w3", page2[0].UserID)

	page3, next, err := repo.ListWaitingPage(ctx, next, 2)
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.Nil(t, next)

	bad := "%%%"
	_, _, err = repo.ListWaitingPage(ctx, &bad, 2)
	assert.Error(t, err)
}

func TestResetAllAndStats(t *testing.T) {
	ctx := context.Background()
	repo, dbase := setupRepo(t)

	require.NoError(t, db.SeedTestData(dbase))

	s, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), s.Profiles)
	assert.Equal(t, int64(2), s.Pairings)
	assert.Positive(t, s.Waiting)

	require.NoError(t, repo.ResetAll(ctx))

	s, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, repository.Stats{}, s)
}
