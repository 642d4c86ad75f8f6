// Package resolver maps installation fingerprints to profile identities.
package resolver

import (
	"context"
	"errors"
	"fmt"

	"ladder-tracker/internal/config"
	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type Resolver struct {
	accounts *repository.AccountRepository
	cfg      *config.Config
	logger   zerolog.Logger
}

func New(accounts *repository.AccountRepository, cfg *config.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{accounts: accounts, cfg: cfg, logger: logger}
}

// Resolve returns the profile id owning a fingerprint, creating a fresh
// profile and mapping atomically on first sight. Two concurrent first
// sightings of the same fingerprint race on the accounts primary key; the
// loser re-reads and adopts the winner's mapping. Display fields on an
// existing mapping are refreshed best-effort, outside any ingestion
// transaction.
func (r *Resolver) Resolve(ctx context.Context, p domain.Participant) (string, error) {
	var profileID string

	backoff := retry.WithMaxRetries(constants.ResolverMaxRetries,
		retry.NewConstant(constants.ResolverRetryBackoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		acc, err := r.accounts.Get(ctx, p.Fingerprint)
		if err == nil {
			profileID = acc.ProfileID
			r.refreshDisplay(p, acc)
			return nil
		}
		if !errors.Is(err, domain.ErrProfileNotFound) {
			return fmt.Errorf("failed to look up fingerprint: %w", err)
		}

		profileID = uuid.New().String()
		createErr := r.accounts.CreateWithPlayer(ctx,
			&domain.Account{
				Fingerprint: p.Fingerprint,
				ProfileID:   profileID,
				ProfileName: p.ProfileName,
				AvatarURL:   p.AvatarURL,
			},
			&domain.Player{
				ProfileID:   profileID,
				ProfileName: p.ProfileName,
				AvatarURL:   p.AvatarURL,
				Banned:      domain.BanUnknown,
				PrvRating:   r.cfg.InitialRating,
				Rating:      r.cfg.InitialRating,
			})
		if errors.Is(createErr, domain.ErrIdentityConflict) {
			r.logger.Debug().Str("fingerprint", p.Fingerprint).Msg("retrying after identity conflict")
			return retry.RetryableError(createErr)
		}
		if createErr != nil {
			return fmt.Errorf("failed to create profile: %w", createErr)
		}

		r.logger.Info().
			Str("fingerprint", p.Fingerprint).
			Str("profile_id", profileID).
			Msg("new profile created")
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("fingerprint", p.Fingerprint).Msg("failed to resolve fingerprint")
		return "", fmt.Errorf("%w: %s: %v", domain.ErrUnresolvableIdentity, p.Fingerprint, err)
	}

	return profileID, nil
}

func (r *Resolver) refreshDisplay(p domain.Participant, acc *domain.Account) {
	if p.ProfileName == "" || (p.ProfileName == acc.ProfileName && p.AvatarURL == acc.AvatarURL) {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
		defer cancel()

		if err := r.accounts.RefreshDisplay(ctx, p.Fingerprint, p.ProfileName, p.AvatarURL); err != nil {
			r.logger.Warn().Err(err).Str("fingerprint", p.Fingerprint).Msg("failed to refresh display cache")
		}
	}()
}
