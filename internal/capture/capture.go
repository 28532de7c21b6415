// Package capture implements the out-of-band baseline capture job. An
// external scheduler calls it at stream start, before any reconciliation
// poll, so the session's true pre-game baseline is on record even when the
// first poll arrives late.
package capture

import (
	"context"
	"time"

	"lol-stream-tracker/internal/constants"
	"lol-stream-tracker/internal/domain"
	"lol-stream-tracker/internal/riot"

	"github.com/rs/zerolog"
)

type rankAPI interface {
	AccountByRiotID(ctx context.Context, name, tag, region string) (*riot.Account, error)
	CurrentSoloQueueRank(ctx context.Context, puuid, region string) (*domain.RankSnapshot, error)
}

type captureWriter interface {
	Put(ctx context.Context, summoner, tag string, streamStart time.Time, rankPoints int) error
}

type Service struct {
	api      rankAPI
	captures captureWriter
	logger   zerolog.Logger
}

func NewService(api rankAPI, captures captureWriter, logger zerolog.Logger) *Service {
	return &Service{api: api, captures: captures, logger: logger}
}

type Params struct {
	Summoner    string
	Tag         string
	Region      string
	StreamStart time.Time
}

// Capture records the player's current rank points for (summoner, tag,
// streamStart). Captured is false when the player is unranked, which leaves
// nothing to record. The store keeps the first capture per key, so calling
// this twice cannot move an established baseline.
func (s *Service) Capture(ctx context.Context, p Params) (captured bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	account, err := s.api.AccountByRiotID(ctx, p.Summoner, p.Tag, p.Region)
	if err != nil {
		return false, err
	}

	snapshot, err := s.api.CurrentSoloQueueRank(ctx, account.PUUID, p.Region)
	if err != nil {
		return false, err
	}
	if snapshot.RankPoints == nil {
		s.logger.Info().
			Str("summoner", p.Summoner).
			Time("stream_start", p.StreamStart).
			Msg("player unranked at capture time, nothing to record")
		return false, nil
	}

	if err := s.captures.Put(ctx, p.Summoner, p.Tag, p.StreamStart, *snapshot.RankPoints); err != nil {
		return false, err
	}

	s.logger.Info().
		Str("summoner", p.Summoner).
		Time("stream_start", p.StreamStart).
		Int("rank_points", *snapshot.RankPoints).
		Msg("starting lp captured")
	return true, nil
}
