package constants

import "time"

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
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
	// Riot queue id for ranked solo/duo.
	SoloQueueID = 420

	MatchPageSize = 20
)

const (
	UpstreamMaxRetries   = 3
	UpstreamRetryBackoff = 500 * time.Millisecond
)
