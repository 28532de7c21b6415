// Package format renders the chat-facing response lines. Wording is stable:
// downstream chat commands relay these strings verbatim.
package format

import (
	"fmt"
	"strings"
)

const (
	noGamesLine       = "No ranked games this stream yet!"
	offlineNoDataLine = "Stream is offline. No previous record found."
)

// Tiers without divisions.
var highTiers = map[string]bool{
	"MASTER":      true,
	"GRANDMASTER": true,
	"CHALLENGER":  true,
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// RankDisplay renders a snapshot like "Gold II 67LP", "Master 245LP" or
// "Unranked". Division is omitted for Master and above.
func RankDisplay(tier, division *string, divisionLP *int) string {
	if tier == nil {
		return "Unranked"
	}

	lp := 0
	if divisionLP != nil {
		lp = *divisionLP
	}

	if highTiers[strings.ToUpper(*tier)] || division == nil {
		return fmt.Sprintf("%s %dLP", capitalize(*tier), lp)
	}
	return fmt.Sprintf("%s %s %dLP", capitalize(*tier), *division, lp)
}

// LPChange renders a signed LP delta, or "LP: N/A" when unknown.
func LPChange(delta *int) string {
	if delta == nil {
		return "LP: N/A"
	}
	if *delta >= 0 {
		return fmt.Sprintf("LP: +%d", *delta)
	}
	return fmt.Sprintf("LP: %d", *delta)
}

// StreamRecord renders the full online summary line.
func StreamRecord(wins, losses int, delta *int, tier, division *string, divisionLP *int) string {
	return fmt.Sprintf("[%s] Stream Record: %dW-%dL | %s",
		RankDisplay(tier, division, divisionLP), wins, losses, LPChange(delta))
}

// NoGamesYet renders the zero-games line with the current rank.
func NoGamesYet(tier, division *string, divisionLP *int) string {
	return fmt.Sprintf("[%s] %s", RankDisplay(tier, division, divisionLP), noGamesLine)
}

// OfflineRecord renders the last stored session's record.
func OfflineRecord(wins, losses int, delta *int) string {
	return fmt.Sprintf("Stream is offline. Last stream's record: %dW-%dL | %s",
		wins, losses, LPChange(delta))
}

// OfflineNoData is the response when no prior session exists.
func OfflineNoData() string {
	return offlineNoDataLine
}
