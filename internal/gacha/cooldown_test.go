package gacha

import (
	"testing"
	"time"
)

func TestCanRoll(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastRoll time.Time
		want     bool
	}{
		{
			name:     "never rolled",
			lastRoll: time.Time{},
			want:     true,
		},
		{
			name:     "rolled an hour ago",
			lastRoll: now.Add(-time.Hour),
			want:     false,
		},
		{
			name:     "rolled exactly 24h ago",
			lastRoll: now.Add(-24 * time.Hour),
			want:     true,
		},
		{
			name:     "rolled 25h ago",
			lastRoll: now.Add(-25 * time.Hour),
			want:     true,
		},
		{
			name:     "rolled one second short of 24h",
			lastRoll: now.Add(-24*time.Hour + time.Second),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanRoll(tt.lastRoll, now); got != tt.want {
				t.Errorf("CanRoll(%v, %v) = %v, want %v", tt.lastRoll, now, got, tt.want)
			}
		})
	}
}

func TestCountdown(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		lastRoll time.Time
		want     time.Duration
	}{
		{
			name:     "never rolled",
			lastRoll: time.Time{},
			want:     0,
		},
		{
			name:     "eligible again",
			lastRoll: now.Add(-30 * time.Hour),
			want:     0,
		},
		{
			name:     "rolled an hour ago",
			lastRoll: now.Add(-time.Hour),
			want:     23 * time.Hour,
		},
		{
			name:     "rolled just now",
			lastRoll: now,
			want:     24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Countdown(tt.lastRoll, now); got != tt.want {
				t.Errorf("Countdown(%v, %v) = %v, want %v", tt.lastRoll, now, got, tt.want)
			}
		})
	}
}
