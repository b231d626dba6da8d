// Package provider defines the contract between the fetch-orchestration core and
// the remote game-statistics API, together with the records it returns and the
// classified errors it raises.
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Platform identifies the gaming network a username belongs to.
type Platform string

const (
	PlatformBattleNet  Platform = "battle"
	PlatformPSN        Platform = "psn"
	PlatformXbox       Platform = "xbl"
	PlatformActivision Platform = "acti"
)

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformBattleNet, PlatformPSN, PlatformXbox, PlatformActivision:
		return p, nil
	default:
		return "", fmt.Errorf("unknown platform %q", s)
	}
}

// Provider performs one logical remote call per method. Implementations must
// return *Error (possibly wrapped) for every remote failure so callers can
// classify it.
type Provider interface {
	// FetchProfile returns the lifetime profile of a player.
	FetchProfile(ctx context.Context, platform Platform, username string) (*Profile, error)

	// FetchMatchPage returns up to one page of match summaries, newest first,
	// that started strictly before the given time. A zero before requests the
	// head of the history.
	FetchMatchPage(ctx context.Context, platform Platform, username string, before time.Time) (*MatchPage, error)

	// FetchMatchDetail returns every player's stats for one match.
	FetchMatchDetail(ctx context.Context, platform Platform, matchID string) (*MatchDetail, error)
}

// Profile is a player's lifetime snapshot.
type Profile struct {
	Username string                     `json:"username"`
	Platform string                     `json:"platform"`
	Level    float64                    `json:"level"`
	Lifetime map[string]json.RawMessage `json:"lifetime,omitempty"`
}

// MatchPlayer identifies the player a match summary belongs to.
type MatchPlayer struct {
	Username string `json:"username"`
	Team     string `json:"team,omitempty"`
	Clantag  string `json:"clantag,omitempty"`
}

// MatchSummary is one match as seen by one player.
type MatchSummary struct {
	MatchID         string             `json:"matchID"`
	Mode            string             `json:"mode"`
	Map             string             `json:"map,omitempty"`
	UTCStartSeconds int64              `json:"utcStartSeconds"`
	UTCEndSeconds   int64              `json:"utcEndSeconds"`
	Player          MatchPlayer        `json:"player"`
	PlayerStats     map[string]float64 `json:"playerStats,omitempty"`
}

// StartTime returns the match start as a time.Time.
func (m MatchSummary) StartTime() time.Time {
	return time.Unix(m.UTCStartSeconds, 0).UTC()
}

// MatchPage is one page of a player's match history, newest first.
type MatchPage struct {
	Matches []MatchSummary `json:"matches"`
}

// Cursor returns the start time of the oldest match on the page, which is
// where the next page must begin. It is zero for an empty page.
func (p *MatchPage) Cursor() time.Time {
	if p == nil || len(p.Matches) == 0 {
		return time.Time{}
	}
	return p.Matches[len(p.Matches)-1].StartTime()
}

// MatchDetail holds the stats of every player in one match.
type MatchDetail struct {
	MatchID    string         `json:"matchID"`
	AllPlayers []MatchSummary `json:"allPlayers"`
}
