package service

import (
	"context"
	"time"

	"ladder-tracker/internal/constants"
	"ladder-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// LadderService serves the public leaderboard and game listings.
type LadderService struct {
	players  *repository.PlayerRepository
	outcomes *repository.OutcomeRepository
	logger   zerolog.Logger
}

func NewLadderService(players *repository.PlayerRepository, outcomes *repository.OutcomeRepository, logger zerolog.Logger) *LadderService {
	return &LadderService{players: players, outcomes: outcomes, logger: logger}
}

type LeaderboardRow struct {
	Position    int     `json:"position"`
	ProfileID   string  `json:"profile_id"`
	ProfileName string  `json:"profile_name"`
	AvatarURL   string  `json:"avatar_url"`
	Rating      int     `json:"rating"`
	Diff        int     `json:"diff"`
	Played      int     `json:"played"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"win_rate"`
}

func (s *LadderService) Leaderboard(ctx context.Context) ([]LeaderboardRow, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	players, err := s.players.Leaderboard(ctx, constants.LeaderboardLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load leaderboard")
		return nil, err
	}

	rows := make([]LeaderboardRow, len(players))
	for i, p := range players {
		played := p.Wins + p.Losses
		row := LeaderboardRow{
			Position:    i + 1,
			ProfileID:   p.ProfileID,
			ProfileName: p.ProfileName,
			AvatarURL:   p.AvatarURL,
			Rating:      p.Rating,
			Diff:        p.Rating - p.PrvRating,
			Played:      played,
			Wins:        p.Wins,
			Losses:      p.Losses,
		}
		if played > 0 {
			row.WinRate = float64(p.Wins) / float64(played) * 100
		}
		rows[i] = row
	}

	s.logger.Debug().Int("count", len(rows)).Msg("leaderboard loaded")
	return rows, nil
}

type GameRow struct {
	Hash       string    `json:"hash"`
	Date       time.Time `json:"date"`
	Duration   string    `json:"duration"`
	MapTitle   string    `json:"map_title"`
	ProfileID0 string    `json:"profile_id0"`
	ProfileID1 string    `json:"profile_id1"`
	Name0      string    `json:"name0"`
	Name1      string    `json:"name1"`
	Diff0      int       `json:"diff0"`
	Diff1      int       `json:"diff1"`
}

func (s *LadderService) LatestGames(ctx context.Context) ([]GameRow, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	games, err := s.outcomes.Latest(ctx, constants.LatestGamesLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load latest games")
		return nil, err
	}

	return toGameRows(games), nil
}

func toGameRows(games []repository.GameSummary) []GameRow {
	rows := make([]GameRow, len(games))
	for i, g := range games {
		o := g.Outcome
		rows[i] = GameRow{
			Hash:       o.Hash,
			Date:       o.EndTime,
			Duration:   formatDuration(o.EndTime.Sub(o.StartTime)),
			MapTitle:   o.MapTitle,
			ProfileID0: o.ProfileID0,
			ProfileID1: o.ProfileID1,
			Name0:      g.Name0,
			Name1:      g.Name1,
			Diff0:      o.Rating0 - o.Rating0Prv,
			Diff1:      o.Rating1 - o.Rating1Prv,
		}
	}
	return rows
}

// ReplayFilename resolves a replay hash to its source file path.
func (s *LadderService) ReplayFilename(ctx context.Context, hash string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.outcomes.Filename(ctx, hash)
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	d = d.Round(time.Second)
	return time.Unix(0, 0).UTC().Add(d).Format("04:05")
}
