package db

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo chat state.
//
// Behavior:
//  1. Clears every chat table.
//  2. Creates 20 profiles (demo-1..10 male, demo-11..20 female) with random balances.
//  3. Pairs demo-1/demo-11 and demo-2/demo-12, recording them as last partners.
//  4. Puts every third remaining user into the waiting pool, oldest first.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now().UTC()

	// --- Fresh start ---
	if err := Reset(db); err != nil {
		return err
	}
	log.Println("Cleared existing data")

	// --- Profiles ---
	for i := 1; i <= 20; i++ {
		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}
		p := UserProfile{
			ID:           demoID(i),
			Gender:       gender,
			Balance:      int64(r.Intn(10)),
			LastRewardAt: now.Add(-time.Duration(r.Intn(48)) * time.Hour),
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}
	}
	log.Println("Seeded 20 profiles.")

	// --- Pairings ---
	paired := map[int]bool{}
	for _, pair := range [][2]int{{1, 11}, {2, 12}} {
		a, b := pair[0], pair[1]
		entry := PairingEntry{
			ID:       uuid.NewString(),
			UserA:    demoID(a),
			UserB:    demoID(b),
			GenderA:  GenderMale,
			GenderB:  GenderFemale,
			PairedAt: now.Add(-5 * time.Minute),
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to seed pairing: %w", err)
		}
		last := []LastPartner{
			{UserID: entry.UserA, PartnerID: entry.UserB},
			{UserID: entry.UserB, PartnerID: entry.UserA},
		}
		if err := db.Create(&last).Error; err != nil {
			return fmt.Errorf("failed to seed last partners: %w", err)
		}
		paired[a], paired[b] = true, true
	}

	// --- Waiting pool ---
	waiting := 0
	for i := 3; i <= 20; i += 3 {
		if paired[i] {
			continue
		}
		gender := GenderMale
		if i > 10 {
			gender = GenderFemale
		}
		entry := WaitingEntry{
			UserID:     demoID(i),
			Gender:     gender,
			EnqueuedAt: now.Add(-time.Duration(20-i) * time.Minute),
		}
		if err := db.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to seed waiting entry: %w", err)
		}
		waiting++
	}
	log.Printf("Seeded %d waiting users.", waiting)

	return nil
}

// Reset deletes every row from the chat tables. A failing table does not
// stop the others from being cleared.
func Reset(db *gorm.DB) error {
	var errs []error
	for _, m := range Models() {
		if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			errs = append(errs, fmt.Errorf("failed to clear %T: %w", m, err))
		}
	}
	return errors.Join(errs...)
}

func demoID(i int) string {
	return fmt.Sprintf("demo-%d", i)
}
