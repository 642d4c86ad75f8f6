package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ladder-tracker/internal/domain"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

type AccountRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAccountRepository(sqlDB *sql.DB, logger zerolog.Logger) *AccountRepository {
	return &AccountRepository{db: sqlDB, logger: logger}
}

// Get returns the account mapping for a fingerprint, or
// domain.ErrProfileNotFound if the fingerprint has never been seen.
func (r *AccountRepository) Get(ctx context.Context, fingerprint string) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT fingerprint, profile_id, profile_name, avatar_url
		FROM accounts WHERE fingerprint = ?`, fingerprint)

	var acc domain.Account
	err := row.Scan(&acc.Fingerprint, &acc.ProfileID, &acc.ProfileName, &acc.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", fingerprint, err)
	}
	return &acc, nil
}

// CreateWithPlayer inserts a fresh player row and its account mapping in
// one transaction, so a fingerprint is never left pointing at nothing.
// A unique-constraint violation on the fingerprint means another resolver
// won the race; that surfaces as domain.ErrIdentityConflict.
func (r *AccountRepository) CreateWithPlayer(ctx context.Context, acc *domain.Account, player *domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO players (profile_id, profile_name, avatar_url, banned, wins, losses, prv_rating, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		player.ProfileID, player.ProfileName, player.AvatarURL, banStatusToSQL(player.Banned),
		player.Wins, player.Losses, player.PrvRating, player.Rating)
	if err != nil {
		return fmt.Errorf("failed to insert player %s: %w", player.ProfileID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (fingerprint, profile_id, profile_name, avatar_url)
		VALUES (?, ?, ?, ?)`,
		acc.Fingerprint, acc.ProfileID, acc.ProfileName, acc.AvatarURL)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug().Str("fingerprint", acc.Fingerprint).Msg("lost fingerprint creation race")
			return domain.ErrIdentityConflict
		}
		return fmt.Errorf("failed to insert account %s: %w", acc.Fingerprint, err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrIdentityConflict
		}
		return fmt.Errorf("failed to commit account creation: %w", err)
	}
	return nil
}

// RefreshDisplay updates the cached display fields on both the account
// and its player row. Callers treat failures as non-fatal.
func (r *AccountRepository) RefreshDisplay(ctx context.Context, fingerprint, profileName, avatarURL string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET profile_name = ?, avatar_url = ?
		WHERE fingerprint = ? AND (profile_name != ? OR avatar_url != ?)`,
		profileName, avatarURL, fingerprint, profileName, avatarURL)
	if err != nil {
		return fmt.Errorf("failed to refresh account display: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil || n == 0 {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE players SET profile_name = ?, avatar_url = ?
		WHERE profile_id = (SELECT profile_id FROM accounts WHERE fingerprint = ?)`,
		profileName, avatarURL, fingerprint)
	if err != nil {
		return fmt.Errorf("failed to refresh player display: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
