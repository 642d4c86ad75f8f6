package canonical

import (
	"testing"
	"time"

	"ladder-tracker/internal/domain"
)

func testReport() domain.MatchReport {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	return domain.MatchReport{
		Participant0: domain.Participant{
			Fingerprint:     "fp-alpha",
			ProfileName:     "Alpha",
			Faction:         "soviet",
			SelectedFaction: "any",
		},
		Participant1: domain.Participant{
			Fingerprint:     "fp-bravo",
			ProfileName:     "Bravo",
			Faction:         "allies",
			SelectedFaction: "allies",
		},
		Result:    domain.Side0Won,
		StartTime: start,
		EndTime:   start.Add(12 * time.Minute),
		Filename:  "replays/2026-03-14/abc.orarep",
		MapUID:    "map-ore-lord",
		MapTitle:  "Ore Lord",
	}
}

func TestHashStable(t *testing.T) {
	r := testReport()
	if Hash(r) != Hash(r) {
		t.Fatal("hash of identical report differs between calls")
	}
}

func TestHashSideOrderIndependent(t *testing.T) {
	r := testReport()
	swapped := r
	swapped.Participant0, swapped.Participant1 = r.Participant1, r.Participant0
	swapped.Result = domain.Side1Won

	if Hash(r) != Hash(swapped) {
		t.Error("hash depends on reported side order")
	}
}

func TestHashIgnoresDisplayFields(t *testing.T) {
	r := testReport()
	h := Hash(r)

	r.Participant0.ProfileName = "Renamed"
	r.Participant1.AvatarURL = "https://example.com/new.png"
	r.Filename = "replays/resubmitted.orarep"
	r.MapTitle = "Ore Lord (fixed)"

	if Hash(r) != h {
		t.Error("hash changed when only display fields changed")
	}
}

func TestHashSensitiveToMatchFields(t *testing.T) {
	base := testReport()
	h := Hash(base)

	mutations := map[string]func(*domain.MatchReport){
		"fingerprint": func(r *domain.MatchReport) { r.Participant0.Fingerprint = "fp-other" },
		"faction":     func(r *domain.MatchReport) { r.Participant0.Faction = "allies" },
		"selected":    func(r *domain.MatchReport) { r.Participant1.SelectedFaction = "random" },
		"start":       func(r *domain.MatchReport) { r.StartTime = r.StartTime.Add(time.Second) },
		"end":         func(r *domain.MatchReport) { r.EndTime = r.EndTime.Add(time.Second) },
		"map":         func(r *domain.MatchReport) { r.MapUID = "map-other" },
	}

	for name, mutate := range mutations {
		r := testReport()
		mutate(&r)
		if Hash(r) == h {
			t.Errorf("hash insensitive to %s change", name)
		}
	}
}

func TestHashTimezoneNormalized(t *testing.T) {
	r := testReport()
	h := Hash(r)

	est := time.FixedZone("EST", -5*3600)
	r.StartTime = r.StartTime.In(est)
	r.EndTime = r.EndTime.In(est)

	if Hash(r) != h {
		t.Error("hash depends on timestamp timezone representation")
	}
}
