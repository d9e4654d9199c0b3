package detection

import (
	"math"
	"testing"
)

func TestGeneratePriorsCount(t *testing.T) {
	tests := []struct {
		name   string
		height int
		width  int
		want   int
	}{
		{
			// 40*40*2 + 20*20*2 + 10*10*2
			name:   "320x320",
			height: 320,
			width:  320,
			want:   4200,
		},
		{
			// 80*80*2 + 40*40*2 + 20*20*2
			name:   "640x640",
			height: 640,
			width:  640,
			want:   16800,
		},
		{
			// non-divisible dims round the grid up
			name:   "100x60",
			height: 100,
			width:  60,
			want:   (13*8 + 7*4 + 4*2) * 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			priors := GeneratePriors(tt.height, tt.width)
			if len(priors) != tt.want {
				t.Errorf("GeneratePriors(%d, %d) = %d priors, want %d",
					tt.height, tt.width, len(priors), tt.want)
			}
		})
	}
}

func TestGeneratePriorsFirstCell(t *testing.T) {
	priors := GeneratePriors(320, 320)

	// First two priors belong to the stride-8 map's top-left cell, sizes
	// 16 then 32.
	want := []Prior{
		{Cx: 0.5 * 8 / 320, Cy: 0.5 * 8 / 320, W: 16.0 / 320, H: 16.0 / 320},
		{Cx: 0.5 * 8 / 320, Cy: 0.5 * 8 / 320, W: 32.0 / 320, H: 32.0 / 320},
	}
	for i, w := range want {
		got := priors[i]
		if !priorNear(got, w) {
			t.Errorf("prior[%d] = %+v, want %+v", i, got, w)
		}
	}

	// Third prior moves one cell right on the same map.
	third := priors[2]
	if !priorNear(third, Prior{Cx: 1.5 * 8 / 320, Cy: 0.5 * 8 / 320, W: 16.0 / 320, H: 16.0 / 320}) {
		t.Errorf("prior[2] = %+v, expected next cell to the right", third)
	}
}

func TestGeneratePriorsStrideBoundaries(t *testing.T) {
	priors := GeneratePriors(320, 320)

	// The stride-16 map starts after all 40*40*2 stride-8 priors; its first
	// prior uses minSize 64 at the top-left cell.
	idx := 40 * 40 * 2
	got := priors[idx]
	want := Prior{Cx: 0.5 * 16 / 320, Cy: 0.5 * 16 / 320, W: 64.0 / 320, H: 64.0 / 320}
	if !priorNear(got, want) {
		t.Errorf("first stride-16 prior = %+v, want %+v", got, want)
	}

	// Likewise the stride-32 map with minSize 256.
	idx += 20 * 20 * 2
	got = priors[idx]
	want = Prior{Cx: 0.5 * 32 / 320, Cy: 0.5 * 32 / 320, W: 256.0 / 320, H: 256.0 / 320}
	if !priorNear(got, want) {
		t.Errorf("first stride-32 prior = %+v, want %+v", got, want)
	}
}

func TestPriorCache(t *testing.T) {
	cache := NewPriorCache()

	a := cache.Get(320, 320)
	b := cache.Get(320, 320)
	if len(a) != 4200 || len(b) != 4200 {
		t.Fatalf("cache returned %d and %d priors, want 4200", len(a), len(b))
	}
	if &a[0] != &b[0] {
		t.Error("repeated Get for the same dimensions should return the cached slice")
	}

	c := cache.Get(640, 640)
	if len(c) != 16800 {
		t.Errorf("Get(640, 640) = %d priors, want 16800", len(c))
	}
}

func priorNear(a, b Prior) bool {
	const eps = 1e-6
	return math.Abs(float64(a.Cx-b.Cx)) < eps &&
		math.Abs(float64(a.Cy-b.Cy)) < eps &&
		math.Abs(float64(a.W-b.W)) < eps &&
		math.Abs(float64(a.H-b.H)) < eps
}
