package markethours

import (
	"testing"
	"time"
)

func TestIsMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"midweek", time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), true}, // Wednesday
		{"friday before close", time.Date(2026, 8, 28, 20, 59, 0, 0, time.UTC), true},
		{"friday after close", time.Date(2026, 8, 28, 21, 0, 0, 0, time.UTC), false},
		{"saturday", time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), false},
		{"sunday before open", time.Date(2026, 8, 30, 21, 59, 0, 0, time.UTC), false},
		{"sunday after open", time.Date(2026, 8, 30, 22, 0, 0, 0, time.UTC), true},
	}
	for _, tc := range tests {
		if got := IsMarketOpen(tc.t); got != tc.want {
			t.Errorf("%s: IsMarketOpen(%v) = %v, want %v", tc.name, tc.t, got, tc.want)
		}
	}
}

func TestNextOpen(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	want := time.Date(2026, 8, 30, 22, 0, 0, 0, time.UTC)
	if got := NextOpen(saturday); !got.Equal(want) {
		t.Errorf("NextOpen(saturday) = %v, want %v", got, want)
	}

	midweek := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	if got := NextOpen(midweek); !got.Equal(midweek) {
		t.Errorf("NextOpen(midweek) = %v, want itself", got)
	}
}
