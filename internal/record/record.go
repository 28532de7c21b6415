package record

import (
	"errors"
	"fmt"
	"time"

	"lol-stream-tracker/internal/domain"
)

// ErrMalformedMatch is returned when a match outcome cannot be classified.
// A tally containing such a match would silently miscount, so the whole
// operation fails instead.
var ErrMalformedMatch = errors.New("malformed match data")

// StreamMatches selects the matches that ended at or after cutoff,
// preserving input order.
func StreamMatches(matches []domain.Match, cutoff time.Time) []domain.Match {
	var selected []domain.Match
	for _, m := range matches {
		if !m.EndedAt.Before(cutoff) {
			selected = append(selected, m)
		}
	}
	return selected
}

// Tally counts wins and losses across matches.
func Tally(matches []domain.Match) (wins, losses int, err error) {
	for _, m := range matches {
		switch m.Outcome {
		case domain.OutcomeWin:
			wins++
		case domain.OutcomeLoss:
			losses++
		default:
			return 0, 0, fmt.Errorf("%w: match %s has outcome %q", ErrMalformedMatch, m.ID, m.Outcome)
		}
	}
	return wins, losses, nil
}
