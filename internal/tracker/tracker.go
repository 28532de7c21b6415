// Package tracker coordinates one reconciliation poll: resolve the session,
// fetch live rank data, tally stream matches, arbitrate the baseline and
// persist the refreshed record.
package tracker

import (
	"context"
	"fmt"
	"time"

	"lol-stream-tracker/internal/constants"
	"lol-stream-tracker/internal/domain"
	"lol-stream-tracker/internal/format"
	"lol-stream-tracker/internal/record"
	"lol-stream-tracker/internal/riot"
	"lol-stream-tracker/internal/session"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RankAPI is the upstream ranking service boundary.
type RankAPI interface {
	AccountByRiotID(ctx context.Context, name, tag, region string) (*riot.Account, error)
	CurrentSoloQueueRank(ctx context.Context, puuid, region string) (*domain.RankSnapshot, error)
	MatchesSince(ctx context.Context, puuid, region string, since time.Time) ([]domain.Match, error)
}

type Tracker struct {
	api     RankAPI
	manager *session.Manager
	locks   keyedMutex
	logger  zerolog.Logger
}

func NewTracker(api RankAPI, manager *session.Manager, logger zerolog.Logger) *Tracker {
	return &Tracker{api: api, manager: manager, logger: logger}
}

type RecordParams struct {
	GameType    domain.GameType
	Summoner    string
	Tag         string
	Region      string
	StreamStart time.Time

	// OverrideStartLP bypasses all baseline arbitration when set
	// (operator-supplied test or correction value).
	OverrideStartLP *int
}

// Record runs one online reconciliation. The session is written exactly once,
// at the end; any failure before that leaves the stored record untouched.
func (t *Tracker) Record(ctx context.Context, p RecordParams) (*domain.StreamSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	// Serialize the read-reconcile-write sequence per player so overlapping
	// calls cannot race the last-writer-wins store.
	unlock := t.locks.lock(lockKey(p.GameType, p.Summoner, p.Tag))
	defer unlock()

	res, err := t.manager.Resolve(ctx, p.GameType, p.Summoner, p.Tag, p.StreamStart)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}

	account, err := t.api.AccountByRiotID(ctx, p.Summoner, p.Tag, p.Region)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}
	t.logger.Debug().Str("puuid", account.PUUID).Str("summoner", p.Summoner).Msg("account resolved")

	// Rank and match fetches are independent of each other.
	var (
		snapshot *domain.RankSnapshot
		matches  []domain.Match
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snapshot, err = t.api.CurrentSoloQueueRank(gctx, account.PUUID, p.Region)
		return err
	})
	g.Go(func() error {
		var err error
		matches, err = t.api.MatchesSince(gctx, account.PUUID, p.Region, res.EffectiveStart)
		return err
	})
	if err := g.Wait(); err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}

	streamMatches := record.StreamMatches(matches, res.EffectiveStart)
	wins, losses, err := record.Tally(streamMatches)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}
	gamesPlayed := wins + losses

	baseline, approximate, err := t.resolveBaseline(ctx, p, res, snapshot, gamesPlayed)
	if err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}

	var delta *int
	if baseline != nil && snapshot.RankPoints != nil {
		delta = domain.IntPtr(*snapshot.RankPoints - *baseline)
	}

	var updated *domain.Session
	if res.IsNew {
		updated = t.manager.NewSession(p.GameType, res.EffectiveStart, baseline, approximate)
	} else {
		updated = res.Existing
	}
	updated = t.manager.Update(updated, wins, losses, delta)

	if err := t.manager.Save(ctx, p.GameType, p.Summoner, p.Tag, updated); err != nil {
		reconciliations.WithLabelValues("error").Inc()
		return nil, err
	}

	summary := &domain.StreamSummary{
		Wins:                wins,
		Losses:              losses,
		RankPointDelta:      updated.RankPointDelta,
		Rank:                *snapshot,
		BaselineApproximate: updated.BaselineApproximate,
		NoGamesYet:          gamesPlayed == 0,
		Session:             updated,
	}
	if summary.NoGamesYet {
		summary.Response = format.NoGamesYet(snapshot.Tier, snapshot.Division, snapshot.DivisionLP)
	} else {
		summary.Response = format.StreamRecord(wins, losses, updated.RankPointDelta,
			snapshot.Tier, snapshot.Division, snapshot.DivisionLP)
	}

	t.logger.Info().
		Str("summoner", p.Summoner).
		Int("wins", wins).
		Int("losses", losses).
		Bool("new_session", res.IsNew).
		Bool("approximate", updated.BaselineApproximate).
		Msg("reconciliation complete")
	reconciliations.WithLabelValues("ok").Inc()

	return summary, nil
}

// resolveBaseline applies the baseline priority policy: operator override,
// then the out-of-band capture, then the current value (exact when no games
// were played yet, approximate otherwise). Continuing sessions keep their
// stored baseline for the record; an override still steers this call's delta.
func (t *Tracker) resolveBaseline(ctx context.Context, p RecordParams, res session.Resolution, snapshot *domain.RankSnapshot, gamesPlayed int) (baseline *int, approximate bool, err error) {
	if p.OverrideStartLP != nil {
		t.logger.Info().Int("override_lp", *p.OverrideStartLP).Msg("using override starting lp")
		return p.OverrideStartLP, false, nil
	}

	if !res.IsNew {
		return res.Existing.StartingRankPoints, res.Existing.BaselineApproximate, nil
	}

	captured, err := t.manager.CapturedStartingLP(ctx, p.Summoner, p.Tag, p.StreamStart)
	if err != nil {
		return nil, false, err
	}
	if captured != nil {
		return captured, false, nil
	}

	if gamesPlayed == 0 {
		// Nothing has moved the rank yet, so the current value is the exact
		// baseline.
		return snapshot.RankPoints, false, nil
	}

	// Games were played before tracking started; the true pre-game baseline
	// is unrecoverable.
	t.logger.Warn().
		Str("summoner", p.Summoner).
		Int("games_played", gamesPlayed).
		Msg("games played before first reconciliation, baseline is approximate")
	baselineFallbacks.Inc()
	return snapshot.RankPoints, snapshot.RankPoints != nil, nil
}

// Offline reports the last persisted session without contacting upstream.
func (t *Tracker) Offline(ctx context.Context, gameType domain.GameType, summoner, tag string) (*domain.OfflineSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	offlineQueries.Inc()

	last, err := t.manager.Get(ctx, gameType, summoner, tag)
	if err != nil {
		return nil, err
	}

	if last == nil || (last.Wins == 0 && last.Losses == 0) {
		return &domain.OfflineSummary{
			Found:    false,
			Response: format.OfflineNoData(),
		}, nil
	}

	return &domain.OfflineSummary{
		Found:          true,
		Wins:           last.Wins,
		Losses:         last.Losses,
		RankPointDelta: last.RankPointDelta,
		Response:       format.OfflineRecord(last.Wins, last.Losses, last.RankPointDelta),
	}, nil
}

func lockKey(gameType domain.GameType, summoner, tag string) string {
	return fmt.Sprintf("%s/%s#%s", gameType, summoner, tag)
}
