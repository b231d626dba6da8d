package testutil

import (
	"fmt"
	"time"

	"github.com/Sternrassler/wzstats-client/pkg/provider"
)

// Mode strings as reported by the API.
const (
	ModeBattleRoyaleQuads = "br_brquads"
	ModeBattleRoyaleTrios = "br_brtrios"
	ModeResurgenceQuads   = "br_rebirth_rbrthquad"
	ModePlunder           = "br_dmz_plunquad"
)

// HistoryStart is the start time of the newest match produced by MatchHistory.
var HistoryStart = time.Date(2021, 6, 1, 20, 0, 0, 0, time.UTC)

// MatchHistory returns n match summaries for username, newest first, each
// starting 30 minutes before the previous one. Modes cycle through modes.
func MatchHistory(username string, n int, modes ...string) []provider.MatchSummary {
	if len(modes) == 0 {
		modes = []string{ModeBattleRoyaleQuads}
	}
	matches := make([]provider.MatchSummary, n)
	for i := range matches {
		start := HistoryStart.Add(-time.Duration(i) * 30 * time.Minute)
		matches[i] = provider.MatchSummary{
			MatchID:         fmt.Sprintf("%d", 9000000000000000000+uint64(n-i)),
			Mode:            modes[i%len(modes)],
			Map:             "mp_don4",
			UTCStartSeconds: start.Unix(),
			UTCEndSeconds:   start.Add(25 * time.Minute).Unix(),
			Player:          provider.MatchPlayer{Username: username, Team: "team_1"},
			PlayerStats: map[string]float64{
				"kills":            float64(i % 7),
				"deaths":           float64(i%3 + 1),
				"teamPlacement":    float64(i%20 + 1),
				"damageDone":       float64(800 + 10*i),
				"timePlayed":       1500,
				"gulagKills":       float64(i % 2),
				"distanceTraveled": 250000,
			},
		}
	}
	return matches
}

// MatchDetailFor returns a full match with the given number of players.
func MatchDetailFor(matchID string, players int) *provider.MatchDetail {
	d := &provider.MatchDetail{MatchID: matchID, AllPlayers: make([]provider.MatchSummary, players)}
	for i := range d.AllPlayers {
		d.AllPlayers[i] = provider.MatchSummary{
			MatchID: matchID,
			Mode:    ModeBattleRoyaleQuads,
			Player: provider.MatchPlayer{
				Username: fmt.Sprintf("player%03d", i),
				Team:     fmt.Sprintf("team_%d", i/4+1),
			},
			PlayerStats: map[string]float64{"kills": float64(i % 5)},
		}
	}
	return d
}

// ProfileFor returns a minimal profile.
func ProfileFor(platform, username string) *provider.Profile {
	return &provider.Profile{
		Username: username,
		Platform: platform,
		Level:    155,
	}
}
