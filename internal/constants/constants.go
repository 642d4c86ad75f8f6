package constants

import "time"

const (
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	LeaderboardLimit       = 100
	LatestGamesLimit       = 50
	PlayerLatestGamesLimit = 15
	RatingDatapoints       = 50
)

const (
	ResolverMaxRetries   = 3
	ResolverRetryBackoff = 10 * time.Millisecond
)
