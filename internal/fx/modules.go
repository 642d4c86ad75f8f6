package fx

import (
	"ladder-tracker/internal/config"
	"ladder-tracker/internal/database"
	"ladder-tracker/internal/ingest"
	"ladder-tracker/internal/logger"
	"ladder-tracker/internal/rating"
	"ladder-tracker/internal/repository"
	"ladder-tracker/internal/resolver"
	"ladder-tracker/internal/server"
	"ladder-tracker/internal/service"

	"go.uber.org/fx"
)

func ProvideCalculator(cfg *config.Config) *rating.Calculator {
	return rating.NewCalculator(cfg.EloKFactor)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewAccountRepository),
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewOutcomeRepository),
	// ingestion core
	fx.Provide(ProvideCalculator),
	fx.Provide(resolver.New),
	fx.Provide(ingest.NewCoordinator),
	// read side
	fx.Provide(service.NewLadderService),
	fx.Provide(service.NewProfileService),
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.New),
)
