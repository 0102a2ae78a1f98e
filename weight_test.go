package gainmap

import (
	"math"
	"testing"
)

func TestBlendWeight(t *testing.T) {
	nan := float32(math.NaN())

	for _, tc := range []struct {
		ratio, min, full float32
		want             float32
	}{
		{ratio: 1, min: 1, full: 4, want: 0},
		{ratio: 2, min: 1, full: 4, want: 0.5},
		{ratio: 4, min: 1, full: 4, want: 1},
		{ratio: 16, min: 1, full: 4, want: 1},
		{ratio: 0.5, min: 1, full: 4, want: 0},
		{ratio: 4, min: 2, full: 8, want: 0.5},
		{ratio: 0, min: 1, full: 4, want: 0},
		{ratio: -3, min: 1, full: 4, want: 0},
		{ratio: nan, min: 1, full: 4, want: 0},

		// Equal thresholds switch at the threshold.
		{ratio: 1.99, min: 2, full: 2, want: 0},
		{ratio: 2, min: 2, full: 2, want: 1},
		{ratio: 3, min: 2, full: 2, want: 1},
		{ratio: 1, min: 1, full: 1, want: 1},

		// Thresholds below the SDR ratio count as 1.
		{ratio: 8, min: 0, full: 4, want: 1},
		{ratio: 4, min: 0, full: 4, want: 1},
		{ratio: 2, min: 0, full: 4, want: 0.5},
		{ratio: 2, min: -1, full: 0.5, want: 1},
	} {
		got := BlendWeight(tc.ratio, tc.min, tc.full)
		if !near(got, tc.want, 1e-6) {
			t.Errorf("BlendWeight(%g, %g, %g) = %g, want %g", tc.ratio, tc.min, tc.full, got, tc.want)
		}
	}
}

func TestBlendWeight_monotonic(t *testing.T) {
	prev := float32(-1)
	for r := float32(0.5); r < 10; r += 0.05 {
		w := BlendWeight(r, 1.2, 6)
		if w < prev || w < 0 || w > 1 {
			t.Fatalf("weight %g at ratio %g after %g", w, r, prev)
		}
		prev = w
	}
}
