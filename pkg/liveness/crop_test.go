package liveness

import (
	"image"
	"testing"

	"github.com/faceguard/faceguard/pkg/detection"
)

func TestExpandBox(t *testing.T) {
	tests := []struct {
		name  string
		box   detection.PixelBox
		scale float32
		imgW  int
		imgH  int
		want  image.Rectangle
	}{
		{
			name:  "centered expansion",
			box:   detection.PixelBox{X: 100, Y: 100, Width: 40, Height: 40},
			scale: 2.0,
			imgW:  400,
			imgH:  400,
			want:  image.Rect(80, 80, 160, 160),
		},
		{
			name:  "identity scale",
			box:   detection.PixelBox{X: 30, Y: 40, Width: 50, Height: 60},
			scale: 1.0,
			imgW:  200,
			imgH:  200,
			want:  image.Rect(30, 40, 80, 100),
		},
		{
			// Overflow on the left edge shifts the box right, keeping its
			// size, instead of clipping it.
			name:  "shift inward at left edge",
			box:   detection.PixelBox{X: 5, Y: 100, Width: 40, Height: 40},
			scale: 2.0,
			imgW:  400,
			imgH:  400,
			want:  image.Rect(0, 80, 80, 160),
		},
		{
			name:  "shift inward at bottom-right corner",
			box:   detection.PixelBox{X: 350, Y: 350, Width: 40, Height: 40},
			scale: 2.0,
			imgW:  400,
			imgH:  400,
			want:  image.Rect(320, 320, 400, 400),
		},
		{
			// A box larger than the image clamps to the full extent.
			name:  "clamp oversized box",
			box:   detection.PixelBox{X: 10, Y: 10, Width: 180, Height: 180},
			scale: 4.0,
			imgW:  200,
			imgH:  300,
			want:  image.Rect(0, 0, 200, 300),
		},
		{
			name:  "fractional scale rounds size",
			box:   detection.PixelBox{X: 100, Y: 100, Width: 10, Height: 10},
			scale: 2.7,
			imgW:  400,
			imgH:  400,
			want:  image.Rect(92, 92, 119, 119),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandBox(tt.box, tt.scale, tt.imgW, tt.imgH)
			if got != tt.want {
				t.Errorf("ExpandBox = %v, want %v", got, tt.want)
			}
		})
	}
}
