package domain

import (
	"time"
)

type GameType string

const (
	GameTypeLoL GameType = "lol"
)

// Session is the tracked window of competitive play for one broadcast.
// It is addressed by (GameType, summoner, tag); StreamStart identifies the
// session itself, so a different start time means a logically new session.
type Session struct {
	GameType    GameType
	StreamStart time.Time

	// StartingRankPoints is the baseline for delta math. Set at most once
	// per session, nil while unknown (e.g. player unranked at session start).
	StartingRankPoints *int

	Wins   int
	Losses int

	// RankPointDelta is current minus starting rank points. nil means
	// unknown, which is distinct from a real delta of zero.
	RankPointDelta *int

	// BaselineApproximate marks sessions whose baseline had to fall back to
	// the current rank value after games were already played; the true
	// pre-game baseline is unrecoverable in that case.
	BaselineApproximate bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type MatchOutcome string

const (
	OutcomeWin     MatchOutcome = "win"
	OutcomeLoss    MatchOutcome = "loss"
	OutcomeUnknown MatchOutcome = "unknown"
)

type Match struct {
	ID      string
	EndedAt time.Time
	Outcome MatchOutcome
}

// RankSnapshot is the player's rank at one point in time. A nil Tier means
// unranked; RankPoints are absolute ladder points (comparable across
// promotions), DivisionLP is the 0-100 value shown next to the division.
type RankSnapshot struct {
	Tier       *string
	Division   *string
	RankPoints *int
	DivisionLP *int
}

func (r RankSnapshot) Ranked() bool {
	return r.Tier != nil
}

// StreamSummary is the online reconciliation result.
type StreamSummary struct {
	Wins                int
	Losses              int
	RankPointDelta      *int
	Rank                RankSnapshot
	BaselineApproximate bool
	NoGamesYet          bool
	Session             *Session
	Response            string
}

// OfflineSummary is the stored-session-only result. Found is false when no
// usable record exists, which is an answer, not an error.
type OfflineSummary struct {
	Found          bool
	Wins           int
	Losses         int
	RankPointDelta *int
	Response       string
}

// IntPtr is a convenience for the nullable integer fields above.
func IntPtr(v int) *int {
	return &v
}
