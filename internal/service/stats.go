package service

import (
	"context"
	"time"

	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatsService serves ladder-wide aggregates.
type StatsService struct {
	players  *repository.PlayerRepository
	outcomes *repository.OutcomeRepository
	logger   zerolog.Logger
}

func NewStatsService(players *repository.PlayerRepository, outcomes *repository.OutcomeRepository, logger zerolog.Logger) *StatsService {
	return &StatsService{players: players, outcomes: outcomes, logger: logger}
}

type MapCount struct {
	MapTitle string `json:"map_title"`
	Count    int    `json:"count"`
}

type GlobalStats struct {
	Games       int           `json:"games"`
	Players     int           `json:"players"`
	AvgDuration string        `json:"avg_duration"`
	Factions    []FactionStat `json:"factions"`
	Maps        []MapCount    `json:"maps"`
}

func (s *StatsService) Global(ctx context.Context) (*GlobalStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	stats := &GlobalStats{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		games, total, err := s.outcomes.GameTotals(gctx)
		if err != nil {
			return err
		}
		stats.Games = games
		if games > 0 {
			stats.AvgDuration = formatDuration(total / time.Duration(games))
		}
		return nil
	})
	g.Go(func() error {
		count, err := s.players.Count(gctx)
		stats.Players = count
		return err
	})
	g.Go(func() error {
		factions, err := s.outcomes.GlobalFactionStats(gctx)
		if err != nil {
			return err
		}
		stats.Factions = toFactionStats(factions)
		return nil
	})
	g.Go(func() error {
		maps, err := s.outcomes.GlobalMapStats(gctx)
		if err != nil {
			return err
		}
		counts := make([]MapCount, len(maps))
		for i, mc := range maps {
			counts[i] = MapCount{MapTitle: mc.MapTitle, Count: mc.Count}
		}
		stats.Maps = counts
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Msg("failed to assemble global stats")
		return nil, err
	}
	return stats, nil
}
