package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lol-stream-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// ErrStoreUnavailable wraps session store failures so callers can treat the
// reconciliation as not-yet-committed.
var ErrStoreUnavailable = errors.New("session store unavailable")

type SessionRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSessionRepository(db *sql.DB, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{db: db, logger: logger}
}

// Get returns the stored session for (gameType, summoner, tag), or nil when
// none exists. Absence is the new-session signal, not an error.
func (r *SessionRepository) Get(ctx context.Context, gameType domain.GameType, summoner, tag string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT stream_start, starting_rank_points, wins, losses,
		       rank_point_delta, baseline_approximate, created_at, updated_at
		FROM sessions
		WHERE game_type = ? AND summoner = ? AND tag = ?`,
		string(gameType), summoner, tag)

	var (
		session domain.Session
		startRP sql.NullInt64
		delta   sql.NullInt64
		approx  int
	)
	err := row.Scan(&session.StreamStart, &startRP, &session.Wins, &session.Losses,
		&delta, &approx, &session.CreatedAt, &session.UpdatedAt)
	if err == sql.ErrNoRows {
		r.logger.Debug().
			Str("game_type", string(gameType)).
			Str("summoner", summoner).
			Str("tag", tag).
			Msg("no stored session")
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("summoner", summoner).Msg("failed to get session")
		return nil, fmt.Errorf("%w: get session: %v", ErrStoreUnavailable, err)
	}

	session.GameType = gameType
	session.StreamStart = session.StreamStart.UTC()
	session.BaselineApproximate = approx != 0
	if startRP.Valid {
		session.StartingRankPoints = domain.IntPtr(int(startRP.Int64))
	}
	if delta.Valid {
		session.RankPointDelta = domain.IntPtr(int(delta.Int64))
	}
	return &session, nil
}

// Put stores the session, overwriting any existing record for the key
// (last-writer-wins).
func (r *SessionRepository) Put(ctx context.Context, gameType domain.GameType, summoner, tag string, session *domain.Session) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	approx := 0
	if session.BaselineApproximate {
		approx = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			game_type, summoner, tag, stream_start, starting_rank_points,
			wins, losses, rank_point_delta, baseline_approximate, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (game_type, summoner, tag) DO UPDATE SET
			stream_start = excluded.stream_start,
			starting_rank_points = excluded.starting_rank_points,
			wins = excluded.wins,
			losses = excluded.losses,
			rank_point_delta = excluded.rank_point_delta,
			baseline_approximate = excluded.baseline_approximate,
			updated_at = excluded.updated_at`,
		string(gameType), summoner, tag, session.StreamStart.UTC(),
		nullableInt(session.StartingRankPoints),
		session.Wins, session.Losses,
		nullableInt(session.RankPointDelta),
		approx, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("summoner", summoner).Msg("failed to put session")
		return fmt.Errorf("%w: put session: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
