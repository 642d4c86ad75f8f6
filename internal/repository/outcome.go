package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type OutcomeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewOutcomeRepository(sqlDB *sql.DB, logger zerolog.Logger) *OutcomeRepository {
	return &OutcomeRepository{db: sqlDB, logger: logger}
}

const outcomeColumns = `hash, start_time, end_time, filename,
	profile_id0, profile_id1, rating_0_prv, rating_1_prv, rating_0, rating_1,
	faction_0, faction_1, selected_faction_0, selected_faction_1, map_uid, map_title`

// enriched with player names for game listings
type GameSummary struct {
	Outcome domain.Outcome
	Name0   string
	Name1   string
}

// AppendTx inserts an outcome row inside the coordinator's transaction.
// The hash is the primary key; an existing row means this physical match
// was already recorded and the insert becomes a no-op surfaced as
// domain.ErrDuplicateOutcome. Payloads are never compared: first writer
// wins.
func (r *OutcomeRepository) AppendTx(ctx context.Context, tx *sql.Tx, o *domain.Outcome) error {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO outcomes (`+outcomeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING`,
		o.Hash, o.StartTime.UTC(), o.EndTime.UTC(), o.Filename,
		o.ProfileID0, o.ProfileID1, o.Rating0Prv, o.Rating1Prv, o.Rating0, o.Rating1,
		o.Faction0, o.Faction1, o.SelectedFaction0, o.SelectedFaction1, o.MapUID, o.MapTitle)
	if err != nil {
		return fmt.Errorf("failed to append outcome %s: %w", o.Hash, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check append result for %s: %w", o.Hash, err)
	}
	if n == 0 {
		return domain.ErrDuplicateOutcome
	}
	return nil
}

func (r *OutcomeRepository) GetByHash(ctx context.Context, hash string) (*domain.Outcome, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+outcomeColumns+` FROM outcomes WHERE hash = ?`, hash)
	o, err := scanOutcome(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOutcomeNotFound
	}
	return o, err
}

// Filename resolves a replay hash to its stored source file.
func (r *OutcomeRepository) Filename(ctx context.Context, hash string) (string, error) {
	var filename string
	err := r.db.QueryRowContext(ctx,
		`SELECT filename FROM outcomes WHERE hash = ?`, hash).Scan(&filename)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrOutcomeNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up replay %s: %w", hash, err)
	}
	return filename, nil
}

// Latest returns the most recently finished games with both player names.
func (r *OutcomeRepository) Latest(ctx context.Context, limit int) ([]GameSummary, error) {
	return r.queryGames(ctx, `
		SELECT `+gameSummaryColumns+`
		FROM outcomes o
		LEFT JOIN players p0 ON p0.profile_id = o.profile_id0
		LEFT JOIN players p1 ON p1.profile_id = o.profile_id1
		ORDER BY o.end_time DESC
		LIMIT ?`, limit)
}

// LatestForProfile returns a profile's most recent games, newest first.
func (r *OutcomeRepository) LatestForProfile(ctx context.Context, profileID string, limit int) ([]GameSummary, error) {
	return r.queryGames(ctx, `
		SELECT `+gameSummaryColumns+`
		FROM outcomes o
		LEFT JOIN players p0 ON p0.profile_id = o.profile_id0
		LEFT JOIN players p1 ON p1.profile_id = o.profile_id1
		WHERE ? IN (o.profile_id0, o.profile_id1)
		ORDER BY o.end_time DESC
		LIMIT ?`, profileID, limit)
}

const gameSummaryColumns = `o.hash, o.start_time, o.end_time, o.filename,
	o.profile_id0, o.profile_id1, o.rating_0_prv, o.rating_1_prv, o.rating_0, o.rating_1,
	o.faction_0, o.faction_1, o.selected_faction_0, o.selected_faction_1, o.map_uid, o.map_title,
	COALESCE(p0.profile_name, ''), COALESCE(p1.profile_name, '')`

func (r *OutcomeRepository) queryGames(ctx context.Context, query string, args ...any) ([]GameSummary, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []GameSummary
	for rows.Next() {
		var g GameSummary
		o := &g.Outcome
		err := rows.Scan(&o.Hash, &o.StartTime, &o.EndTime, &o.Filename,
			&o.ProfileID0, &o.ProfileID1, &o.Rating0Prv, &o.Rating1Prv, &o.Rating0, &o.Rating1,
			&o.Faction0, &o.Faction1, &o.SelectedFaction0, &o.SelectedFaction1, &o.MapUID, &o.MapTitle,
			&g.Name0, &g.Name1)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game summary: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}

// LatestStartTimeTx returns the newest committed start time involving
// either profile, read inside the coordinator's transaction. The second
// return is false when neither profile has an outcome yet.
func (r *OutcomeRepository) LatestStartTimeTx(ctx context.Context, tx *sql.Tx, profileID0, profileID1 string) (time.Time, bool, error) {
	var latest time.Time
	err := tx.QueryRowContext(ctx, `
		SELECT start_time FROM outcomes
		WHERE profile_id0 IN (?1, ?2) OR profile_id1 IN (?1, ?2)
		ORDER BY start_time DESC
		LIMIT 1`, profileID0, profileID1).Scan(&latest)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest start time: %w", err)
	}
	return latest, true, nil
}

// ListByStartTime streams the whole ledger in commit replay order, used
// to rebuild the player projection for audits.
func (r *OutcomeRepository) ListByStartTime(ctx context.Context) ([]domain.Outcome, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+outcomeColumns+` FROM outcomes ORDER BY start_time, hash`)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.Outcome
	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, *o)
	}
	return outcomes, rows.Err()
}

// RatingsForProfile returns the post-match rating series for a profile in
// match order, feeding the profile page chart.
func (r *OutcomeRepository) RatingsForProfile(ctx context.Context, profileID string) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT profile_id0, rating_0, rating_1
		FROM outcomes
		WHERE ? IN (profile_id0, profile_id1)
		ORDER BY end_time`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings for %s: %w", profileID, err)
	}
	defer rows.Close()

	var ratings []int
	for rows.Next() {
		var id0 string
		var r0, r1 int
		if err := rows.Scan(&id0, &r0, &r1); err != nil {
			return nil, fmt.Errorf("failed to scan rating row: %w", err)
		}
		if id0 == profileID {
			ratings = append(ratings, r0)
		} else {
			ratings = append(ratings, r1)
		}
	}
	return ratings, rows.Err()
}

type FactionCount struct {
	Faction string
	Count   int
}

// FactionStatsForProfile counts games per selected faction for a profile.
func (r *OutcomeRepository) FactionStatsForProfile(ctx context.Context, profileID string) ([]FactionCount, error) {
	return r.queryFactionCounts(ctx, `
		SELECT CASE
			WHEN profile_id0 = ?1 THEN selected_faction_0
			ELSE selected_faction_1
		END AS faction, COUNT(*) AS count
		FROM outcomes
		WHERE ?1 IN (profile_id0, profile_id1)
		GROUP BY faction
		ORDER BY faction`, profileID)
}

// GlobalFactionStats counts selected factions across both sides of every
// recorded game.
func (r *OutcomeRepository) GlobalFactionStats(ctx context.Context) ([]FactionCount, error) {
	return r.queryFactionCounts(ctx, `
		SELECT faction, SUM(count) AS count FROM (
			SELECT selected_faction_0 AS faction, COUNT(*) AS count FROM outcomes GROUP BY selected_faction_0
			UNION ALL
			SELECT selected_faction_1 AS faction, COUNT(*) AS count FROM outcomes GROUP BY selected_faction_1
		)
		GROUP BY faction
		ORDER BY faction`)
}

func (r *OutcomeRepository) queryFactionCounts(ctx context.Context, query string, args ...any) ([]FactionCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query faction stats: %w", err)
	}
	defer rows.Close()

	var counts []FactionCount
	for rows.Next() {
		var fc FactionCount
		if err := rows.Scan(&fc.Faction, &fc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan faction count: %w", err)
		}
		counts = append(counts, fc)
	}
	return counts, rows.Err()
}

type MapStat struct {
	MapTitle string
	Wins     int
	Losses   int
}

// MapStatsForProfile aggregates per-map wins and losses. Side 0 of a
// stored outcome is the winner, so wins key on profile_id0.
func (r *OutcomeRepository) MapStatsForProfile(ctx context.Context, profileID string) ([]MapStat, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT map_title,
			SUM(CASE WHEN profile_id0 = ?1 THEN 1 ELSE 0 END) AS wins,
			SUM(CASE WHEN profile_id1 = ?1 THEN 1 ELSE 0 END) AS losses
		FROM outcomes
		WHERE ?1 IN (profile_id0, profile_id1)
		GROUP BY map_title
		ORDER BY map_title`, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query map stats for %s: %w", profileID, err)
	}
	defer rows.Close()

	var stats []MapStat
	for rows.Next() {
		var ms MapStat
		if err := rows.Scan(&ms.MapTitle, &ms.Wins, &ms.Losses); err != nil {
			return nil, fmt.Errorf("failed to scan map stat: %w", err)
		}
		stats = append(stats, ms)
	}
	return stats, rows.Err()
}

type MapCount struct {
	MapTitle string
	Count    int
}

func (r *OutcomeRepository) GlobalMapStats(ctx context.Context) ([]MapCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT map_title, COUNT(*) FROM outcomes GROUP BY map_title ORDER BY map_title`)
	if err != nil {
		return nil, fmt.Errorf("failed to query global map stats: %w", err)
	}
	defer rows.Close()

	var counts []MapCount
	for rows.Next() {
		var mc MapCount
		if err := rows.Scan(&mc.MapTitle, &mc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan map count: %w", err)
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}

// GameTotals returns the game count and summed duration across the whole
// ledger for the global stats page.
func (r *OutcomeRepository) GameTotals(ctx context.Context) (int, time.Duration, error) {
	var count int
	var totalSeconds sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			SUM((julianday(end_time) - julianday(start_time)) * 86400.0)
		FROM outcomes`).Scan(&count, &totalSeconds)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query game totals: %w", err)
	}
	return count, time.Duration(totalSeconds.Float64 * float64(time.Second)), nil
}

// AvgDurationForProfile returns the mean game length for one profile.
func (r *OutcomeRepository) AvgDurationForProfile(ctx context.Context, profileID string) (time.Duration, error) {
	var avgSeconds sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG((julianday(end_time) - julianday(start_time)) * 86400.0)
		FROM outcomes
		WHERE ? IN (profile_id0, profile_id1)`, profileID).Scan(&avgSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to query avg duration for %s: %w", profileID, err)
	}
	return time.Duration(avgSeconds.Float64 * float64(time.Second)), nil
}

func scanOutcome(row rowScanner) (*domain.Outcome, error) {
	var o domain.Outcome
	err := row.Scan(&o.Hash, &o.StartTime, &o.EndTime, &o.Filename,
		&o.ProfileID0, &o.ProfileID1, &o.Rating0Prv, &o.Rating1Prv, &o.Rating0, &o.Rating1,
		&o.Faction0, &o.Faction1, &o.SelectedFaction0, &o.SelectedFaction1, &o.MapUID, &o.MapTitle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan outcome: %w", err)
	}
	return &o, nil
}
