package db

import (
	"time"
)

// Gender is the declared or looked-up gender used for matching.
type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// ParseGender maps an external profile value onto a Gender.
// Anything unrecognized becomes GenderUnknown.
func ParseGender(s string) Gender {
	switch Gender(s) {
	case GenderMale:
		return GenderMale
	case GenderFemale:
		return GenderFemale
	default:
		return GenderUnknown
	}
}

// Complements reports whether g and other are Male and Female in either order.
func (g Gender) Complements(other Gender) bool {
	return (g == GenderMale && other == GenderFemale) || (g == GenderFemale && other == GenderMale)
}

// UserProfile is created the first time a user's gender is resolved.
//
// LastRewardAt starts at creation time, so the first daily reward is
// available 24h after the profile appears.
type UserProfile struct {
	ID           string    `gorm:"primaryKey;size:64"`
	Gender       Gender    `gorm:"size:16;not null"`
	Balance      int64     `gorm:"not null;default:0"`
	LastRewardAt time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// WaitingEntry is a user waiting for a partner.
//
// Seq is the insertion sequence: listing by Seq ASC yields the
// earliest-waiting user first. Re-enqueueing an existing user keeps its Seq.
type WaitingEntry struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID     string    `gorm:"uniqueIndex;size:64;not null"`
	Gender     Gender    `gorm:"size:16;not null"`
	EnqueuedAt time.Time `gorm:"index;not null"`
}

// PairingEntry is an active chat between UserA and UserB.
// A lookup by either side must resolve the row.
type PairingEntry struct {
	ID       string    `gorm:"primaryKey;size:36"`
	UserA    string    `gorm:"uniqueIndex;size:64;not null"`
	UserB    string    `gorm:"uniqueIndex;size:64;not null"`
	GenderA  Gender    `gorm:"size:16;not null"`
	GenderB  Gender    `gorm:"size:16;not null"`
	PairedAt time.Time `gorm:"not null"`
}

// Partner returns the other side of the pairing for id.
func (p PairingEntry) Partner(id string) string {
	if p.UserA == id {
		return p.UserB
	}
	return p.UserA
}

// LastPartner remembers the most recent partner of UserID.
// One row per user, overwritten by the next pairing.
type LastPartner struct {
	UserID    string    `gorm:"primaryKey;size:64"`
	PartnerID string    `gorm:"size:64;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Models lists every table managed by AutoMigrate and ResetAll.
func Models() []any {
	return []any{&UserProfile{}, &WaitingEntry{}, &PairingEntry{}, &LastPartner{}}
}
