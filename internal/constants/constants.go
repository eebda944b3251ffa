package constants

import "time"

const (
	DefaultChallengeWindow = 72 * time.Hour
	MinChallengeWindow     = 1 * time.Hour
	DefaultSweepInterval   = 5 * time.Minute
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	NotifyTimeout      = 3 * time.Second
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
	MinTournamentPlayers = 2
	MaxSetScores         = 11
)
