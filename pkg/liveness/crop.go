package liveness

import (
	"image"
	"math"

	"github.com/faceguard/faceguard/pkg/detection"
)

// ExpandBox grows a facial bounding box by scale in both dimensions about
// its center, then keeps it inside the image. An edge overflow shifts the
// box inward rather than clipping it, so the output keeps its intended
// width and height whenever the image is large enough to contain it; only
// a box larger than the image itself gets clamped to the full extent.
func ExpandBox(box detection.PixelBox, scale float32, imageWidth, imageHeight int) image.Rectangle {
	cx := float64(box.X) + float64(box.Width)/2
	cy := float64(box.Y) + float64(box.Height)/2
	newW := int(math.Round(float64(box.Width) * float64(scale)))
	newH := int(math.Round(float64(box.Height) * float64(scale)))

	x := int(math.Round(cx - float64(newW)/2))
	y := int(math.Round(cy - float64(newH)/2))

	x, newW = fitSpan(x, newW, imageWidth)
	y, newH = fitSpan(y, newH, imageHeight)

	return image.Rect(x, y, x+newW, y+newH)
}

// fitSpan shifts a [pos, pos+length) span inward to fit [0, limit),
// shrinking it only when it is longer than the limit.
func fitSpan(pos, length, limit int) (int, int) {
	if length > limit {
		return 0, limit
	}
	if pos < 0 {
		pos = 0
	}
	if pos+length > limit {
		pos = limit - length
	}
	return pos, length
}
