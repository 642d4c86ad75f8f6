package service

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"ladder-tracker/internal/database"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *sql.DB) (*repository.PlayerRepository, *repository.OutcomeRepository) {
	t.Helper()
	ctx := context.Background()
	accounts := repository.NewAccountRepository(db, zerolog.Nop())
	players := repository.NewPlayerRepository(db, zerolog.Nop())
	outcomes := repository.NewOutcomeRepository(db, zerolog.Nop())

	for _, p := range []struct {
		fp, id  string
		prv, cu int
		w, l    int
	}{
		{"fp-1", "prof-1", 1200, 1216, 1, 0},
		{"fp-2", "prof-2", 1200, 1184, 0, 1},
	} {
		err := accounts.CreateWithPlayer(ctx,
			&domain.Account{Fingerprint: p.fp, ProfileID: p.id, ProfileName: p.id},
			&domain.Player{ProfileID: p.id, ProfileName: p.id, PrvRating: p.prv, Rating: p.cu, Wins: p.w, Losses: p.l})
		if err != nil {
			t.Fatalf("seed player %s failed: %v", p.id, err)
		}
	}

	start := time.Date(2026, 5, 1, 19, 0, 0, 0, time.UTC)
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	err = outcomes.AppendTx(ctx, tx, &domain.Outcome{
		Hash:             "hash-1",
		StartTime:        start,
		EndTime:          start.Add(9*time.Minute + 30*time.Second),
		ProfileID0:       "prof-1",
		ProfileID1:       "prof-2",
		Rating0Prv:       1200,
		Rating1Prv:       1200,
		Rating0:          1216,
		Rating1:          1184,
		Faction0:         "soviet",
		Faction1:         "allies",
		SelectedFaction0: "soviet",
		SelectedFaction1: "any",
		MapUID:           "map-1",
		MapTitle:         "Ore Lord",
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	return players, outcomes
}

func TestLeaderboardRows(t *testing.T) {
	db := testDB(t)
	players, outcomes := seed(t, db)
	svc := NewLadderService(players, outcomes, zerolog.Nop())

	rows, err := svc.Leaderboard(context.Background())
	if err != nil {
		t.Fatalf("leaderboard failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	top := rows[0]
	if top.ProfileID != "prof-1" || top.Position != 1 {
		t.Errorf("top row = %+v", top)
	}
	if top.Diff != 16 || top.Played != 1 || top.WinRate != 100 {
		t.Errorf("top row derived fields = diff %d played %d winrate %f", top.Diff, top.Played, top.WinRate)
	}
}

func TestLatestGames(t *testing.T) {
	db := testDB(t)
	players, outcomes := seed(t, db)
	svc := NewLadderService(players, outcomes, zerolog.Nop())

	games, err := svc.LatestGames(context.Background())
	if err != nil {
		t.Fatalf("latest games failed: %v", err)
	}
	if len(games) != 1 {
		t.Fatalf("games = %d, want 1", len(games))
	}

	g := games[0]
	if g.Hash != "hash-1" || g.Name0 != "prof-1" || g.Name1 != "prof-2" {
		t.Errorf("game row = %+v", g)
	}
	if g.Diff0 != 16 || g.Diff1 != -16 {
		t.Errorf("rating diffs = %d/%d, want 16/-16", g.Diff0, g.Diff1)
	}
	if g.Duration != "09:30" {
		t.Errorf("duration = %s, want 09:30", g.Duration)
	}
}

func TestProfilePage(t *testing.T) {
	db := testDB(t)
	players, outcomes := seed(t, db)
	svc := NewProfileService(players, outcomes, zerolog.Nop())

	page, err := svc.Get(context.Background(), "prof-1")
	if err != nil {
		t.Fatalf("profile page failed: %v", err)
	}

	if page.Rating != 1216 || page.Rank != 1 || page.Wins != 1 {
		t.Errorf("page header = %+v", page)
	}
	if len(page.RatingChart) == 0 {
		t.Error("rating chart empty")
	}
	if len(page.Maps) != 1 || page.Maps[0].Wins != 1 || page.Maps[0].Losses != 0 {
		t.Errorf("map stats = %+v", page.Maps)
	}
	if len(page.Factions) != 1 || page.Factions[0].Faction != "soviet" {
		t.Errorf("faction stats = %+v", page.Factions)
	}
	if len(page.LatestGames) != 1 {
		t.Errorf("latest games = %d, want 1", len(page.LatestGames))
	}
	if page.AvgDuration != "09:30" {
		t.Errorf("avg duration = %s, want 09:30", page.AvgDuration)
	}
}

func TestGlobalStats(t *testing.T) {
	db := testDB(t)
	players, outcomes := seed(t, db)
	svc := NewStatsService(players, outcomes, zerolog.Nop())

	stats, err := svc.Global(context.Background())
	if err != nil {
		t.Fatalf("global stats failed: %v", err)
	}
	if stats.Games != 1 || stats.Players != 2 {
		t.Errorf("totals = %d games %d players, want 1/2", stats.Games, stats.Players)
	}
	if len(stats.Factions) != 2 {
		t.Errorf("faction stats = %+v, want soviet and any", stats.Factions)
	}
	if len(stats.Maps) != 1 || stats.Maps[0].Count != 1 {
		t.Errorf("map stats = %+v", stats.Maps)
	}
}

func TestResample(t *testing.T) {
	cases := []struct {
		name   string
		series []int
		points int
		first  int
		last   int
	}{
		{"empty", nil, 10, 0, 0},
		{"single", []int{1200}, 4, 1200, 1200},
		{"upsample", []int{1000, 2000}, 3, 1000, 2000},
		{"downsample", []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 4, 1, 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := resample(tc.series, tc.points)
			if len(tc.series) == 0 {
				if len(out) != 0 {
					t.Fatalf("empty series produced %d points", len(out))
				}
				return
			}
			if len(out) != tc.points {
				t.Fatalf("points = %d, want %d", len(out), tc.points)
			}
			if out[0] != tc.first || out[len(out)-1] != tc.last {
				t.Errorf("endpoints = %d..%d, want %d..%d", out[0], out[len(out)-1], tc.first, tc.last)
			}
		})
	}

	mid := resample([]int{1000, 2000}, 3)[1]
	if mid != 1500 {
		t.Errorf("midpoint = %d, want 1500", mid)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{9*time.Minute + 30*time.Second, "09:30"},
		{59*time.Minute + 59*time.Second, "59:59"},
		{-time.Minute, "00:00"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.d); got != tc.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tc.d, got, tc.want)
		}
	}
}
