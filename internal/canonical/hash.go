// Package canonical computes the content hash that keys the outcome
// ledger. Two reports of the same physical match must collide on the same
// hash no matter which side was listed first or how often the report is
// retried, so the serialization covers only match-defining fields and
// orders the participants lexicographically by fingerprint.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"ladder-tracker/internal/domain"
)

const fieldSep = "\x1f"

// Hash returns the hex SHA-256 of the canonical serialization of a match
// report. Fields covered: both participants (fingerprint and factions),
// start/end time in UTC, and the map uid. Display names, avatar urls, the
// replay filename, and the map title are excluded: they vary between
// retries of the same match.
func Hash(report domain.MatchReport) string {
	p0 := participantKey(report.Participant0)
	p1 := participantKey(report.Participant1)
	if p1 < p0 {
		p0, p1 = p1, p0
	}

	fields := []string{
		"outcome.v1",
		p0,
		p1,
		report.StartTime.UTC().Format(time.RFC3339Nano),
		report.EndTime.UTC().Format(time.RFC3339Nano),
		report.MapUID,
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, fieldSep)))
	return hex.EncodeToString(sum[:])
}

func participantKey(p domain.Participant) string {
	return p.Fingerprint + fieldSep + p.Faction + fieldSep + p.SelectedFaction
}
