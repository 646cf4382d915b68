package gormrepository

import "testing"

func TestNormalizeLimit(t *testing.T) {
	cases := []struct {
		limit, fallback, want int
	}{
		{0, 50, 50},
		{-5, 50, 50},
		{20, 50, 20},
		{9999, 50, 500},
	}
	for _, tc := range cases {
		if got := normalizeLimit(tc.limit, tc.fallback); got != tc.want {
			t.Fatalf("normalizeLimit(%d, %d)=%d want %d", tc.limit, tc.fallback, got, tc.want)
		}
	}
}

func TestNormalizeOffset(t *testing.T) {
	if got := normalizeOffset(-1); got != 0 {
		t.Fatalf("normalizeOffset(-1)=%d want 0", got)
	}
	if got := normalizeOffset(120); got != 120 {
		t.Fatalf("normalizeOffset(120)=%d want 120", got)
	}
}
