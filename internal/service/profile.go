package service

import (
	"context"
	"math"

	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ProfileService assembles the per-player profile page.
type ProfileService struct {
	players  *repository.PlayerRepository
	outcomes *repository.OutcomeRepository
	logger   zerolog.Logger
}

func NewProfileService(players *repository.PlayerRepository, outcomes *repository.OutcomeRepository, logger zerolog.Logger) *ProfileService {
	return &ProfileService{players: players, outcomes: outcomes, logger: logger}
}

type FactionStat struct {
	Faction string `json:"faction"`
	Count   int    `json:"count"`
}

type MapStat struct {
	MapTitle string `json:"map_title"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
}

type ProfilePage struct {
	ProfileID   string        `json:"profile_id"`
	ProfileName string        `json:"profile_name"`
	AvatarURL   string        `json:"avatar_url"`
	Banned      string        `json:"banned"`
	Rating      int           `json:"rating"`
	PrvRating   int           `json:"prv_rating"`
	Wins        int           `json:"wins"`
	Losses      int           `json:"losses"`
	Rank        int           `json:"rank"`
	AvgDuration string        `json:"avg_duration"`
	RatingChart []int         `json:"rating_chart"`
	Factions    []FactionStat `json:"factions"`
	Maps        []MapStat     `json:"maps"`
	LatestGames []GameRow     `json:"latest_games"`
}

// Get gathers a profile's aggregate, rank, rating series, and per-map and
// per-faction histograms. The independent reads fan out concurrently.
func (s *ProfileService) Get(ctx context.Context, profileID string) (*ProfilePage, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	player, err := s.players.Get(ctx, profileID)
	if err != nil {
		return nil, err
	}

	page := &ProfilePage{
		ProfileID:   player.ProfileID,
		ProfileName: player.ProfileName,
		AvatarURL:   player.AvatarURL,
		Banned:      player.Banned.String(),
		Rating:      player.Rating,
		PrvRating:   player.PrvRating,
		Wins:        player.Wins,
		Losses:      player.Losses,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rank, err := s.players.Rank(gctx, profileID)
		page.Rank = rank
		return err
	})
	g.Go(func() error {
		avg, err := s.outcomes.AvgDurationForProfile(gctx, profileID)
		page.AvgDuration = formatDuration(avg)
		return err
	})
	g.Go(func() error {
		ratings, err := s.outcomes.RatingsForProfile(gctx, profileID)
		page.RatingChart = resample(ratings, constants.RatingDatapoints)
		return err
	})
	g.Go(func() error {
		factions, err := s.outcomes.FactionStatsForProfile(gctx, profileID)
		if err != nil {
			return err
		}
		page.Factions = toFactionStats(factions)
		return nil
	})
	g.Go(func() error {
		maps, err := s.outcomes.MapStatsForProfile(gctx, profileID)
		if err != nil {
			return err
		}
		page.Maps = toMapStats(maps)
		return nil
	})
	g.Go(func() error {
		games, err := s.outcomes.LatestForProfile(gctx, profileID, constants.PlayerLatestGamesLimit)
		if err != nil {
			return err
		}
		page.LatestGames = toGameRows(games)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("profile_id", profileID).Msg("failed to assemble profile page")
		return nil, err
	}
	return page, nil
}

func toFactionStats(counts []repository.FactionCount) []FactionStat {
	stats := make([]FactionStat, len(counts))
	for i, fc := range counts {
		stats[i] = FactionStat{Faction: fc.Faction, Count: fc.Count}
	}
	return stats
}

func toMapStats(rows []repository.MapStat) []MapStat {
	stats := make([]MapStat, len(rows))
	for i, ms := range rows {
		stats[i] = MapStat{MapTitle: ms.MapTitle, Wins: ms.Wins, Losses: ms.Losses}
	}
	return stats
}

// resample linearly interpolates a rating series onto a fixed number of
// chart datapoints.
func resample(series []int, points int) []int {
	if len(series) == 0 {
		return []int{}
	}
	if len(series) == 1 {
		out := make([]int, points)
		for i := range out {
			out[i] = series[0]
		}
		return out
	}

	out := make([]int, points)
	scale := float64(len(series)-1) / float64(points-1)
	for i := range out {
		pos := float64(i) * scale
		lo := int(math.Floor(pos))
		hi := int(math.Ceil(pos))
		if hi >= len(series) {
			hi = len(series) - 1
		}
		frac := pos - float64(lo)
		out[i] = int(math.Round(float64(series[lo])*(1-frac) + float64(series[hi])*frac))
	}
	return out
}
