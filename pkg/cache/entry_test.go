package cache

import (
	"testing"
	"time"
)

func TestEntry_Age(t *testing.T) {
	tests := []struct {
		name      string
		createdAt time.Time
		min       time.Duration
	}{
		{
			name:      "fresh entry",
			createdAt: time.Now(),
			min:       0,
		},
		{
			name:      "hour old entry",
			createdAt: time.Now().Add(-1 * time.Hour),
			min:       time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := Entry[string]{CreatedAt: tt.createdAt}
			got := entry.Age()
			if got < tt.min || got > tt.min+time.Second {
				t.Errorf("Age() = %v, want ~%v", got, tt.min)
			}
		})
	}
}
