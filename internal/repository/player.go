package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ladder-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

const playerColumns = `profile_id, profile_name, avatar_url, banned, wins, losses, prv_rating, rating`

func (r *PlayerRepository) Get(ctx context.Context, profileID string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE profile_id = ?`, profileID)
	return scanPlayer(row)
}

// GetTx reads a player inside the coordinator's transaction so the rating
// used for computation is the one the commit will overwrite.
func (r *PlayerRepository) GetTx(ctx context.Context, tx *sql.Tx, profileID string) (*domain.Player, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE profile_id = ?`, profileID)
	return scanPlayer(row)
}

// ApplyOutcomeTx rolls the aggregate forward: prv_rating takes the current
// rating, rating takes the new one, and exactly one counter moves for a
// decisive result. Draws move neither counter.
func (r *PlayerRepository) ApplyOutcomeTx(ctx context.Context, tx *sql.Tx, profileID string, newRating, winDelta, lossDelta int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE players
		SET prv_rating = rating, rating = ?, wins = wins + ?, losses = losses + ?
		WHERE profile_id = ?`,
		newRating, winDelta, lossDelta, profileID)
	if err != nil {
		return fmt.Errorf("failed to apply outcome to player %s: %w", profileID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check apply result for %s: %w", profileID, err)
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

// SetBanned is the write path used by ban administration. The ingestion
// core itself only reads the flag.
func (r *PlayerRepository) SetBanned(ctx context.Context, profileID string, status domain.BanStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE players SET banned = ? WHERE profile_id = ?`,
		banStatusToSQL(status), profileID)
	if err != nil {
		return fmt.Errorf("failed to set ban status for %s: %w", profileID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrProfileNotFound
	}

	r.logger.Info().Str("profile_id", profileID).Str("status", status.String()).Msg("ban status updated")
	return nil
}

// Leaderboard lists ranked players by rating. Profiles at or below zero
// rating are hidden, matching the public ladder.
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE rating > 0 ORDER BY rating DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

// Rank returns the 1-based ladder position of a profile: the number of
// players rated at or above it.
func (r *PlayerRepository) Rank(ctx context.Context, profileID string) (int, error) {
	var rank int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM players
		WHERE rating >= (SELECT rating FROM players WHERE profile_id = ?)`,
		profileID).Scan(&rank)
	if err != nil {
		return 0, fmt.Errorf("failed to compute rank for %s: %w", profileID, err)
	}
	return rank, nil
}

func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*domain.Player, error) {
	var p domain.Player
	var banned sql.NullBool
	err := row.Scan(&p.ProfileID, &p.ProfileName, &p.AvatarURL, &banned,
		&p.Wins, &p.Losses, &p.PrvRating, &p.Rating)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	p.Banned = banStatusFromSQL(banned)
	return &p, nil
}

func banStatusToSQL(status domain.BanStatus) sql.NullBool {
	switch status {
	case domain.BanActive:
		return sql.NullBool{Bool: true, Valid: true}
	case domain.BanCleared:
		return sql.NullBool{Bool: false, Valid: true}
	default:
		return sql.NullBool{}
	}
}

func banStatusFromSQL(banned sql.NullBool) domain.BanStatus {
	switch {
	case banned.Valid && banned.Bool:
		return domain.BanActive
	case banned.Valid:
		return domain.BanCleared
	default:
		return domain.BanUnknown
	}
}
