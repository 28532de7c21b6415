package riot

import (
	"fmt"
	"strings"

	"lol-stream-tracker/internal/domain"
)

// Tier order below Master; each tier spans four divisions of 100 LP.
var tierIndex = map[string]int{
	"IRON":     0,
	"BRONZE":   1,
	"SILVER":   2,
	"GOLD":     3,
	"PLATINUM": 4,
	"EMERALD":  5,
	"DIAMOND":  6,
}

var divisionIndex = map[string]int{
	"IV":  0,
	"III": 1,
	"II":  2,
	"I":   3,
}

// Apex tiers sit above the division ladder and report raw LP.
var apexTiers = map[string]bool{
	"MASTER":      true,
	"GRANDMASTER": true,
	"CHALLENGER":  true,
}

const apexBase = 2800

// AbsoluteRankPoints converts a (tier, division, LP) triple into a single
// ladder-wide point value, so deltas stay meaningful across promotions and
// demotions within a session.
func AbsoluteRankPoints(tier, division string, lp int) (int, error) {
	t := strings.ToUpper(tier)
	if apexTiers[t] {
		return apexBase + lp, nil
	}

	ti, ok := tierIndex[t]
	if !ok {
		return 0, fmt.Errorf("unknown tier %q", tier)
	}
	di, ok := divisionIndex[strings.ToUpper(division)]
	if !ok {
		return 0, fmt.Errorf("unknown division %q", division)
	}
	return ti*400 + di*100 + lp, nil
}

func snapshotFromEntry(e leagueEntry) *domain.RankSnapshot {
	snapshot := &domain.RankSnapshot{
		Tier:       &e.Tier,
		DivisionLP: domain.IntPtr(e.LeaguePoints),
	}
	if !apexTiers[strings.ToUpper(e.Tier)] {
		snapshot.Division = &e.Rank
	}

	abs, err := AbsoluteRankPoints(e.Tier, e.Rank, e.LeaguePoints)
	if err == nil {
		snapshot.RankPoints = domain.IntPtr(abs)
	}
	return snapshot
}
