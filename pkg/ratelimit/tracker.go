package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	throttleRecentGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wzstats_throttle_recent",
		Help: "Number of HTTP 429 responses seen inside the throttle window",
	})

	throttleRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wzstats_throttle_recorded_total",
		Help: "Total number of HTTP 429 responses recorded",
	})

	throttleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wzstats_throttle_blocks_total",
		Help: "Total number of requests blocked by an active cool-down",
	})

	throttleSlowdownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wzstats_throttle_slowdowns_total",
		Help: "Total number of requests slowed down in the warning state",
	})
)

// Tracker records remote throttling and gates requests while the remote
// service asks clients to back off.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
	pause  time.Duration
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithWarningPause overrides the pause applied in the warning state.
func WithWarningPause(d time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.pause = d
	}
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		redis:  redisClient,
		logger: logger,
		pause:  WarningPause,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetState retrieves the current throttle state from Redis.
// Returns a healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	cooldownMs, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	recent, err := t.redis.Get(ctx, RedisKeyRecent).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get recent throttles: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &ThrottleState{RecentThrottles: recent}
	if cooldownMs > 0 {
		state.CooldownUntil = time.UnixMilli(cooldownMs)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &state.LastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}
	// a counter untouched for a whole window no longer reflects the server
	if !state.LastUpdate.IsZero() && state.IsStale(ThrottleWindow) && !state.NeedsCriticalBlock() {
		state.RecentThrottles = 0
	}
	state.UpdateHealth()

	return state, nil
}

// RecordThrottle stores a cool-down of retryAfter (DefaultCooldown if <= 0)
// and counts the 429 towards the warning threshold. The counter expires
// ThrottleWindow after the most recent 429.
func (t *Tracker) RecordThrottle(ctx context.Context, retryAfter time.Duration) error {
	if retryAfter <= 0 {
		retryAfter = DefaultCooldown
	}

	now := time.Now()
	until := now.Add(retryAfter)

	lastUpdateJSON, err := json.Marshal(now)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, until.UnixMilli(), retryAfter)
	incr := pipe.Incr(ctx, RedisKeyRecent)
	pipe.Expire(ctx, RedisKeyRecent, ThrottleWindow)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	recent := incr.Val()
	throttleRecordedTotal.Inc()
	throttleRecentGauge.Set(float64(recent))

	t.logger.Warn().
		Int64("recent_throttles", recent).
		Time("cooldown_until", until).
		Msg("Remote service throttled us, cooling down")

	return nil
}

// ShouldAllowRequest checks whether a request may be sent now.
// Returns false and the remaining cool-down while one is active.
// Returns true after a short pause while in the warning state.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("get throttle state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		wait := state.TimeUntilReset()
		t.logger.Warn().
			Int("recent_throttles", state.RecentThrottles).
			Dur("wait_duration", wait).
			Msg("Cool-down active, blocking request")

		throttleBlocksTotal.Inc()
		return false, wait, nil
	}

	if state.NeedsThrottling() && t.pause > 0 {
		t.logger.Debug().
			Int("recent_throttles", state.RecentThrottles).
			Msg("Throttle warning, slowing request")

		throttleSlowdownsTotal.Inc()
		timer := time.NewTimer(t.pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false, 0, ctx.Err()
		case <-timer.C:
		}
	}

	return true, 0, nil
}

// Reset clears all throttle state.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyCooldownUntil, RedisKeyRecent, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("reset throttle state: %w", err)
	}
	throttleRecentGauge.Set(0)
	return nil
}

// ParseRetryAfter parses a Retry-After header given in seconds or as an HTTP
// date. It returns 0 when the header is absent or unusable.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
