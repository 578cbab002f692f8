package jobs

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempts int
		want     time.Duration
	}{
		{0, 1 * time.Minute},
		{1, 2 * time.Minute},
		{2, 4 * time.Minute},
		{3, 8 * time.Minute},
		{4, 16 * time.Minute},
		{5, 32 * time.Minute},
		{6, 60 * time.Minute},
		{7, 60 * time.Minute},
		{64, 60 * time.Minute},
	}
	for _, tc := range cases {
		if got := Backoff(tc.attempts); got != tc.want {
			t.Fatalf("attempts=%d: want %v got %v", tc.attempts, tc.want, got)
		}
	}
}

func TestBackoff_MonotonicAndCapped(t *testing.T) {
	prev := time.Duration(0)
	for a := 0; a <= 100; a++ {
		got := Backoff(a)
		if got < prev {
			t.Fatalf("backoff decreased at attempts=%d: %v < %v", a, got, prev)
		}
		if got > time.Hour {
			t.Fatalf("backoff above cap at attempts=%d: %v", a, got)
		}
		if a >= 6 && got != time.Hour {
			t.Fatalf("attempts=%d: want cap, got %v", a, got)
		}
		prev = got
	}
}
