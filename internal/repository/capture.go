package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"lol-stream-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// CaptureRepository is the side-channel written by the out-of-band baseline
// capture job and read during reconciliation.
type CaptureRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewCaptureRepository(db *sql.DB, logger zerolog.Logger) *CaptureRepository {
	return &CaptureRepository{db: db, logger: logger}
}

// Get returns the captured starting LP for (summoner, tag, streamStart), or
// nil when nothing was captured. Absence is a normal outcome.
func (r *CaptureRepository) Get(ctx context.Context, summoner, tag string, streamStart time.Time) (*int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT rank_points FROM lp_captures
		WHERE summoner = ? AND tag = ? AND stream_start = ?`,
		summoner, tag, streamStart.UTC())

	var rankPoints int
	err := row.Scan(&rankPoints)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("summoner", summoner).Msg("failed to get captured lp")
		return nil, fmt.Errorf("%w: get captured lp: %v", ErrStoreUnavailable, err)
	}
	return domain.IntPtr(rankPoints), nil
}

// Put records a captured baseline. The first capture for a key wins; later
// writes are ignored so a re-run of the capture job cannot move an already
// established baseline.
func (r *CaptureRepository) Put(ctx context.Context, summoner, tag string, streamStart time.Time, rankPoints int) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("%w: generate capture id: %v", ErrStoreUnavailable, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO lp_captures (id, summoner, tag, stream_start, rank_points, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (summoner, tag, stream_start) DO NOTHING`,
		id, summoner, tag, streamStart.UTC(), rankPoints, time.Now().UTC())
	if err != nil {
		r.logger.Error().Err(err).Str("summoner", summoner).Msg("failed to put captured lp")
		return fmt.Errorf("%w: put captured lp: %v", ErrStoreUnavailable, err)
	}

	r.logger.Debug().
		Str("summoner", summoner).
		Str("tag", tag).
		Time("stream_start", streamStart).
		Int("rank_points", rankPoints).
		Msg("captured starting lp stored")
	return nil
}
