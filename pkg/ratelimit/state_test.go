package ratelimit

import (
	"testing"
	"time"
)

func TestThrottleState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *ThrottleState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &ThrottleState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &ThrottleState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestThrottleState_Decisions(t *testing.T) {
	tests := []struct {
		name         string
		state        ThrottleState
		wantBlock    bool
		wantThrottle bool
		wantHealthy  bool
	}{
		{
			name:        "no throttling seen",
			state:       ThrottleState{},
			wantHealthy: true,
		},
		{
			name:        "a few throttles below warning",
			state:       ThrottleState{RecentThrottles: ThrottleThresholdWarning - 1},
			wantHealthy: true,
		},
		{
			name:         "warning threshold reached",
			state:        ThrottleState{RecentThrottles: ThrottleThresholdWarning},
			wantThrottle: true,
		},
		{
			name:      "active cool-down",
			state:     ThrottleState{RecentThrottles: 1, CooldownUntil: time.Now().Add(time.Minute)},
			wantBlock: true,
		},
		{
			name:      "cool-down wins over warning",
			state:     ThrottleState{RecentThrottles: 10, CooldownUntil: time.Now().Add(time.Minute)},
			wantBlock: true,
		},
		{
			name:        "expired cool-down",
			state:       ThrottleState{CooldownUntil: time.Now().Add(-time.Second)},
			wantHealthy: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.state
			s.UpdateHealth()
			if got := s.NeedsCriticalBlock(); got != tt.wantBlock {
				t.Errorf("NeedsCriticalBlock() = %v, want %v", got, tt.wantBlock)
			}
			if got := s.NeedsThrottling(); got != tt.wantThrottle {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.wantThrottle)
			}
			if s.IsHealthy != tt.wantHealthy {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.wantHealthy)
			}
		})
	}
}

func TestThrottleState_TimeUntilReset(t *testing.T) {
	s := &ThrottleState{CooldownUntil: time.Now().Add(-time.Minute)}
	if d := s.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", d)
	}

	s.CooldownUntil = time.Now().Add(30 * time.Second)
	if d := s.TimeUntilReset(); d < 29*time.Second || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want ~30s", d)
	}
}
