package followups

import (
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 8, 24, hour, minute, 0, 0, time.UTC)
}

func TestInQuietHoursWrapsMidnight(t *testing.T) {
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{22, 30, true},
		{20, 0, true},
		{23, 59, true},
		{0, 0, true},
		{7, 59, true},
		{8, 0, false},
		{10, 0, false},
		{19, 59, false},
	}
	for _, tc := range cases {
		if got := InQuietHours(at(tc.hour, tc.minute), 20, 8); got != tc.want {
			t.Fatalf("InQuietHours(%02d:%02d) = %v, want %v", tc.hour, tc.minute, got, tc.want)
		}
	}
}

func TestInQuietHoursNonWrapping(t *testing.T) {
	if !InQuietHours(at(13, 0), 12, 14) {
		t.Fatal("13:00 should be inside 12-14 window")
	}
	if InQuietHours(at(14, 0), 12, 14) {
		t.Fatal("window end is exclusive")
	}
	// Equal bounds mean no quiet window at all.
	if InQuietHours(at(3, 0), 8, 8) {
		t.Fatal("degenerate window must never match")
	}
}

func TestNextWindowOpen(t *testing.T) {
	// Late night reschedules to 08:00 the next morning.
	open := NextWindowOpen(at(22, 30), 20, 8)
	if open.Day() != 25 || open.Hour() != 8 || open.Minute() != 0 {
		t.Fatalf("unexpected open time: %v", open)
	}

	// Early morning reschedules to 08:00 the same day.
	open = NextWindowOpen(at(6, 15), 20, 8)
	if open.Day() != 24 || open.Hour() != 8 {
		t.Fatalf("unexpected open time: %v", open)
	}

	// Exactly at the boundary moves to the next day, never the past.
	open = NextWindowOpen(at(8, 0), 20, 8)
	if open.Day() != 25 || open.Hour() != 8 {
		t.Fatalf("unexpected open time: %v", open)
	}
}
