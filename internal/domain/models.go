package domain

import (
	"time"
)

// BanStatus is tri-state: ban administration may not have reviewed a
// profile yet, in which case the flag is unknown rather than false.
type BanStatus int

const (
	BanUnknown BanStatus = iota
	BanActive
	BanCleared
)

func (b BanStatus) String() string {
	switch b {
	case BanActive:
		return "banned"
	case BanCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Account maps one physical installation to its owning profile. A profile
// may have several accounts (multi-device); an account belongs to exactly
// one profile at any time.
type Account struct {
	Fingerprint string
	ProfileID   string
	ProfileName string
	AvatarURL   string
}

// Player is the mutable per-profile aggregate. It is a projection of the
// outcome ledger: Rating always equals the post-match rating of the most
// recent committed outcome for this profile.
type Player struct {
	ProfileID   string
	ProfileName string
	AvatarURL   string
	Banned      BanStatus
	Wins        int
	Losses      int
	PrvRating   int
	Rating      int
}

// Outcome is one immutable, deduplicated record of a completed match.
// For decisive matches side 0 is the winner; for draws sides are ordered
// by profile id.
type Outcome struct {
	Hash             string
	StartTime        time.Time
	EndTime          time.Time
	Filename         string
	ProfileID0       string
	ProfileID1       string
	Rating0Prv       int
	Rating1Prv       int
	Rating0          int
	Rating1          int
	Faction0         string
	Faction1         string
	SelectedFaction0 string
	SelectedFaction1 string
	MapUID           string
	MapTitle         string
}
