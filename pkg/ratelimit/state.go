// Package ratelimit protects the remote stats service from overload. Limiter
// caps concurrent calls inside one process; Tracker shares HTTP 429 cool-down
// state between processes through Redis.
package ratelimit

import (
	"time"
)

// Redis keys for throttle state storage.
const (
	RedisKeyCooldownUntil = "wzstats:throttle:cooldown_until"
	RedisKeyRecent        = "wzstats:throttle:recent"
	RedisKeyLastUpdate    = "wzstats:throttle:last_update"
)

// Thresholds for throttle decisions.
const (
	// ThrottleWindow is how long a 429 counts towards RecentThrottles.
	ThrottleWindow = 60 * time.Second

	// ThrottleThresholdWarning slows requests down once this many 429s were
	// seen inside ThrottleWindow.
	ThrottleThresholdWarning = 3

	// DefaultCooldown applies when a 429 carries no usable Retry-After header.
	DefaultCooldown = 5 * time.Second

	// WarningPause is slept before each request while in the warning state.
	WarningPause = 1 * time.Second
)

// ThrottleState is the current remote throttling state, shared across all
// client instances via Redis.
type ThrottleState struct {
	// RecentThrottles is the number of 429 responses inside ThrottleWindow.
	RecentThrottles int `json:"recent_throttles"`

	// CooldownUntil blocks requests until this instant (zero when none).
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when no cool-down is active and no slowdown applies.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *ThrottleState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true while a cool-down is active.
func (s *ThrottleState) NeedsCriticalBlock() bool {
	return time.Now().Before(s.CooldownUntil)
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *ThrottleState) NeedsThrottling() bool {
	return s.RecentThrottles >= ThrottleThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the remaining cool-down, 0 if none.
func (s *ThrottleState) TimeUntilReset() time.Duration {
	d := time.Until(s.CooldownUntil)
	if d < 0 {
		return 0
	}
	return d
}

// UpdateHealth recomputes IsHealthy.
func (s *ThrottleState) UpdateHealth() {
	s.IsHealthy = !s.NeedsCriticalBlock() && s.RecentThrottles < ThrottleThresholdWarning
}
