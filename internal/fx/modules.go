package fx

import (
	"lol-stream-tracker/internal/capture"
	"lol-stream-tracker/internal/config"
	"lol-stream-tracker/internal/database"
	"lol-stream-tracker/internal/logger"
	"lol-stream-tracker/internal/repository"
	"lol-stream-tracker/internal/riot"
	"lol-stream-tracker/internal/server"
	"lol-stream-tracker/internal/session"
	"lol-stream-tracker/internal/tracker"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideSessionManager(sessions *repository.SessionRepository, captures *repository.CaptureRepository, log zerolog.Logger) *session.Manager {
	return session.NewManager(sessions, captures, log)
}

func ProvideTracker(client *riot.Client, manager *session.Manager, log zerolog.Logger) *tracker.Tracker {
	return tracker.NewTracker(client, manager, log)
}

func ProvideCaptureService(client *riot.Client, captures *repository.CaptureRepository, log zerolog.Logger) *capture.Service {
	return capture.NewService(client, captures, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewCaptureRepository),
	// api client
	fx.Provide(riot.NewClient),
	// svc
	fx.Provide(ProvideSessionManager),
	fx.Provide(ProvideTracker),
	fx.Provide(ProvideCaptureService),
	// server
	fx.Provide(server.NewServer),
)
