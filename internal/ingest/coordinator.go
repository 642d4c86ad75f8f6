// Package ingest turns raw match reports into committed ledger rows and
// updated player aggregates under one transaction per report.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ladder-tracker/internal/canonical"
	"ladder-tracker/internal/config"
	"ladder-tracker/internal/domain"
	"ladder-tracker/internal/rating"
	"ladder-tracker/internal/repository"
	"ladder-tracker/internal/resolver"

	"github.com/go-playground/validator/v10"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type Coordinator struct {
	db       *sql.DB
	resolver *resolver.Resolver
	players  *repository.PlayerRepository
	outcomes *repository.OutcomeRepository
	calc     *rating.Calculator
	cfg      *config.Config
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewCoordinator(
	sqlDB *sql.DB,
	res *resolver.Resolver,
	players *repository.PlayerRepository,
	outcomes *repository.OutcomeRepository,
	calc *rating.Calculator,
	cfg *config.Config,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		db:       sqlDB,
		resolver: res,
		players:  players,
		outcomes: outcomes,
		calc:     calc,
		cfg:      cfg,
		validate: validator.New(),
		logger:   logger,
	}
}

// Ingest processes one reported match to a terminal state: Committed,
// DuplicateIgnored, or Rejected. A non-nil error means an infrastructure
// fault where none of the three applies; nothing was committed in that
// case except possibly profile creation, which is idempotent.
func (c *Coordinator) Ingest(ctx context.Context, report domain.MatchReport) (*domain.IngestionResult, error) {
	if err := c.validate.Struct(report); err != nil {
		return nil, fmt.Errorf("invalid match report: %w", err)
	}

	reportID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report id: %w", err)
	}
	logger := c.logger.With().Str("report_id", reportID).Logger()

	hash := canonical.Hash(report)
	result := &domain.IngestionResult{Hash: hash}

	if !report.EndTime.After(report.StartTime) {
		logger.Info().Str("hash", hash).Msg("report rejected: end time not after start time")
		result.Status = domain.StatusRejected
		result.Reason = domain.ReasonInvalidTimestamps
		return result, nil
	}

	// Cheap duplicate probe before resolving identities. The transaction
	// below still guards against racing writers.
	if _, err := c.outcomes.GetByHash(ctx, hash); err == nil {
		logger.Info().Str("hash", hash).Msg("report already recorded")
		result.Status = domain.StatusDuplicateIgnored
		return result, nil
	} else if !errors.Is(err, domain.ErrOutcomeNotFound) {
		return nil, fmt.Errorf("failed to probe ledger: %w", err)
	}

	profileID0, err := c.resolver.Resolve(ctx, report.Participant0)
	if err != nil {
		return c.rejectOnResolveError(logger, result, err)
	}
	profileID1, err := c.resolver.Resolve(ctx, report.Participant1)
	if err != nil {
		return c.rejectOnResolveError(logger, result, err)
	}
	result.ProfileID0 = profileID0
	result.ProfileID1 = profileID1

	if profileID0 == profileID1 {
		logger.Info().Str("profile_id", profileID0).Msg("report rejected: both sides map to one profile")
		result.Status = domain.StatusRejected
		result.Reason = domain.ReasonSelfMatch
		return result, nil
	}

	commitCtx, cancel := context.WithTimeout(ctx, c.cfg.CommitTimeout)
	defer cancel()

	err = c.commit(commitCtx, logger, report, profileID0, profileID1, hash, result)
	switch {
	case errors.Is(err, domain.ErrDuplicateOutcome):
		logger.Info().Str("hash", hash).Msg("concurrent writer recorded this match first")
		result.Status = domain.StatusDuplicateIgnored
		return result, nil
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		// The commit may or may not have landed; dedup makes a caller
		// retry harmless either way.
		logger.Warn().Str("hash", hash).Msg("storage did not acknowledge commit in time")
		result.Status = domain.StatusRejected
		result.Reason = domain.ReasonStorageTimeout
		return result, nil
	case err != nil:
		return nil, err
	}

	if result.Status == domain.StatusCommitted {
		logger.Info().
			Str("hash", hash).
			Str("winner", result.ProfileID0).
			Int("rating_0", result.NewRating0).
			Int("rating_1", result.NewRating1).
			Msg("outcome committed")
	}
	return result, nil
}

// commit runs the atomic portion: read both aggregates, enforce the ban
// flag, compute new ratings from the in-transaction values, append the
// ledger row, and roll both aggregates forward.
func (c *Coordinator) commit(ctx context.Context, logger zerolog.Logger, report domain.MatchReport, profileID0, profileID1, hash string, result *domain.IngestionResult) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback()

	player0, err := c.players.GetTx(ctx, tx, profileID0)
	if err != nil {
		return fmt.Errorf("failed to read aggregate %s: %w", profileID0, err)
	}
	player1, err := c.players.GetTx(ctx, tx, profileID1)
	if err != nil {
		return fmt.Errorf("failed to read aggregate %s: %w", profileID1, err)
	}

	if player0.Banned == domain.BanActive || player1.Banned == domain.BanActive {
		logger.Info().
			Str("profile_id0", profileID0).
			Str("profile_id1", profileID1).
			Msg("report rejected: banned participant")
		result.Status = domain.StatusRejected
		result.Reason = domain.ReasonBannedParticipant
		return nil
	}

	side0, side1 := orderSides(report, profileID0, player0, profileID1, player1)
	matchResult := report.Result
	if matchResult != domain.Draw {
		matchResult = domain.Side0Won
	}

	newRating0, newRating1 := c.calc.Compute(side0.player.Rating, side1.player.Rating, matchResult)

	// The player table must stay reconstructible by replaying the ledger
	// in start_time order, so a report that lands after a newer match
	// already committed for either participant is shifted forward. The
	// stored interval keeps its duration and the hash keeps the reported
	// times, so dedup is unaffected.
	startTime, endTime := report.StartTime, report.EndTime
	latest, found, err := c.outcomes.LatestStartTimeTx(ctx, tx, profileID0, profileID1)
	if err != nil {
		return err
	}
	if found && !startTime.After(latest) {
		shift := latest.Add(time.Millisecond).Sub(startTime)
		startTime = startTime.Add(shift)
		endTime = endTime.Add(shift)
		logger.Debug().
			Str("hash", hash).
			Dur("shift", shift).
			Msg("re-sequenced report behind newer committed outcome")
	}

	outcome := &domain.Outcome{
		Hash:             hash,
		StartTime:        startTime,
		EndTime:          endTime,
		Filename:         report.Filename,
		ProfileID0:       side0.profileID,
		ProfileID1:       side1.profileID,
		Rating0Prv:       side0.player.Rating,
		Rating1Prv:       side1.player.Rating,
		Rating0:          newRating0,
		Rating1:          newRating1,
		Faction0:         side0.participant.Faction,
		Faction1:         side1.participant.Faction,
		SelectedFaction0: side0.participant.SelectedFaction,
		SelectedFaction1: side1.participant.SelectedFaction,
		MapUID:           report.MapUID,
		MapTitle:         report.MapTitle,
	}

	if err := c.outcomes.AppendTx(ctx, tx, outcome); err != nil {
		return err
	}

	winDelta0, lossDelta0, winDelta1, lossDelta1 := 1, 0, 0, 1
	if matchResult == domain.Draw {
		winDelta0, lossDelta1 = 0, 0
	}
	if err := c.players.ApplyOutcomeTx(ctx, tx, side0.profileID, newRating0, winDelta0, lossDelta0); err != nil {
		return err
	}
	if err := c.players.ApplyOutcomeTx(ctx, tx, side1.profileID, newRating1, winDelta1, lossDelta1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit outcome %s: %w", hash, err)
	}

	result.Status = domain.StatusCommitted
	result.ProfileID0 = side0.profileID
	result.ProfileID1 = side1.profileID
	result.NewRating0 = newRating0
	result.NewRating1 = newRating1
	return nil
}

type side struct {
	profileID   string
	player      *domain.Player
	participant domain.Participant
}

// orderSides normalizes the stored side order: the winner is always side
// 0; draws order by profile id so the stored row is deterministic.
func orderSides(report domain.MatchReport, profileID0 string, player0 *domain.Player, profileID1 string, player1 *domain.Player) (side, side) {
	s0 := side{profileID: profileID0, player: player0, participant: report.Participant0}
	s1 := side{profileID: profileID1, player: player1, participant: report.Participant1}

	swap := report.Result == domain.Side1Won ||
		(report.Result == domain.Draw && s1.profileID < s0.profileID)
	if swap {
		return s1, s0
	}
	return s0, s1
}

func (c *Coordinator) rejectOnResolveError(logger zerolog.Logger, result *domain.IngestionResult, err error) (*domain.IngestionResult, error) {
	if errors.Is(err, domain.ErrUnresolvableIdentity) {
		logger.Warn().Err(err).Msg("report rejected: unresolvable identity")
		result.Status = domain.StatusRejected
		result.Reason = domain.ReasonUnresolvableIdentity
		return result, nil
	}
	return nil, err
}
