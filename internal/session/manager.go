// Package session owns session lifecycle: deciding new-vs-continuing,
// building and merging session records, and persisting them.
package session

import (
	"context"
	"time"

	"lol-stream-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// Store is the durable mapping from (game, player identity) to the latest
// session record. Get returns (nil, nil) when no record exists.
type Store interface {
	Get(ctx context.Context, gameType domain.GameType, summoner, tag string) (*domain.Session, error)
	Put(ctx context.Context, gameType domain.GameType, summoner, tag string, session *domain.Session) error
}

// CaptureStore reads the starting-LP side-channel written by the out-of-band
// capture job. Get returns (nil, nil) when nothing was captured.
type CaptureStore interface {
	Get(ctx context.Context, summoner, tag string, streamStart time.Time) (*int, error)
}

type Manager struct {
	store    Store
	captures CaptureStore
	logger   zerolog.Logger
}

func NewManager(store Store, captures CaptureStore, logger zerolog.Logger) *Manager {
	return &Manager{store: store, captures: captures, logger: logger}
}

// Resolution is the outcome of deciding whether a reconciliation call belongs
// to a new or a continuing session.
type Resolution struct {
	IsNew          bool
	EffectiveStart time.Time
	Existing       *domain.Session
}

// Resolve decides new-vs-continuing for (gameType, summoner, tag) against
// requestedStart. A missing record, or a stored record from a different
// stream start, means a new session. Pure read, no persistence.
func (m *Manager) Resolve(ctx context.Context, gameType domain.GameType, summoner, tag string, requestedStart time.Time) (Resolution, error) {
	existing, err := m.store.Get(ctx, gameType, summoner, tag)
	if err != nil {
		return Resolution{}, err
	}

	if existing == nil || !existing.StreamStart.Equal(requestedStart) {
		m.logger.Debug().
			Str("game_type", string(gameType)).
			Str("summoner", summoner).
			Time("stream_start", requestedStart).
			Bool("had_previous", existing != nil).
			Msg("starting new session")
		return Resolution{IsNew: true, EffectiveStart: requestedStart}, nil
	}

	return Resolution{
		IsNew:          false,
		EffectiveStart: existing.StreamStart,
		Existing:       existing,
	}, nil
}

// NewSession builds a fresh record with zero games and an unknown delta.
func (m *Manager) NewSession(gameType domain.GameType, effectiveStart time.Time, startingRankPoints *int, approximate bool) *domain.Session {
	return &domain.Session{
		GameType:            gameType,
		StreamStart:         effectiveStart,
		StartingRankPoints:  startingRankPoints,
		Wins:                0,
		Losses:              0,
		RankPointDelta:      nil,
		BaselineApproximate: approximate,
	}
}

// Update returns existing with wins/losses replaced by the fresh tally. The
// delta is replaced only when the new value is known; an unknown delta never
// erases a previously known one. The baseline is untouched.
func (m *Manager) Update(existing *domain.Session, wins, losses int, delta *int) *domain.Session {
	updated := *existing
	updated.Wins = wins
	updated.Losses = losses
	if delta != nil {
		updated.RankPointDelta = delta
	}
	return &updated
}

// Save persists the record, unconditionally overwriting the stored one.
func (m *Manager) Save(ctx context.Context, gameType domain.GameType, summoner, tag string, session *domain.Session) error {
	return m.store.Put(ctx, gameType, summoner, tag, session)
}

// Get reads the last persisted session without any decision logic; used by
// the offline path.
func (m *Manager) Get(ctx context.Context, gameType domain.GameType, summoner, tag string) (*domain.Session, error) {
	return m.store.Get(ctx, gameType, summoner, tag)
}

// CapturedStartingLP reads the baseline the capture job may have recorded for
// this exact (summoner, tag, streamStart). nil means none was captured.
func (m *Manager) CapturedStartingLP(ctx context.Context, summoner, tag string, streamStart time.Time) (*int, error) {
	return m.captures.Get(ctx, summoner, tag, streamStart)
}
