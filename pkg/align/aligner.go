// Package align rotates a detected face so the eye line is horizontal and
// crops the adjusted bounding box from the rotated canvas.
package align

import (
	"image"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/faceguard/faceguard/pkg/detection"
	"github.com/faceguard/faceguard/pkg/imaging"
)

// Result holds the outcome of aligning one detection.
type Result struct {
	// Face is the cropped, eye-level face region.
	Face *image.RGBA
	// Canvas is the full rotated image the crop was taken from.
	Canvas *image.RGBA
	// Detection is the input detection remapped onto the rotated canvas.
	Detection detection.Detection
	// Angle is the detected eye-line angle in degrees.
	Angle float64
}

// Aligner performs eye-line alignment. Rotation is skipped when the
// detected angle is below epsilon degrees; the epsilon is a tunable, not a
// fixed behavior.
type Aligner struct {
	epsilon float64
	log     *logrus.Entry
}

// New creates an aligner with the given small-angle skip epsilon in degrees.
func New(epsilonDeg float64, log *logrus.Entry) *Aligner {
	return &Aligner{epsilon: epsilonDeg, log: log}
}

// Align applies the two-step transform to the original image: rotate the
// whole canvas about its center by the eye-line angle, then crop the
// remapped bounding box, clamped to the canvas so a box pushed outside by
// the rotation never reads out of bounds.
//
// The canvas content is rotated by +angle; the detection's points are
// remapped with -angle, since image rotation and point rotation are inverse
// transforms of each other. Eye landmarks come out horizontal, which the
// tests assert.
func (a *Aligner) Align(img *image.RGBA, det *detection.Detection) *Result {
	leftEye := det.Landmarks[0]
	rightEye := det.Landmarks[1]
	angle := math.Atan2(
		float64(rightEye.Y-leftEye.Y),
		float64(rightEye.X-leftEye.X),
	) * 180 / math.Pi

	canvas := img
	remapped := *det

	if math.Abs(angle) >= a.epsilon {
		canvas = imaging.Rotate(img, angle)
		remapped = remapDetection(det, img, angle)
		if a.log != nil {
			a.log.WithField("angle", angle).Debug("Rotated image for alignment")
		}
	}

	w := canvas.Rect.Dx()
	h := canvas.Rect.Dy()
	rect := clampRect(remapped.Box, w, h)
	remapped.Box = detection.PixelBox{
		X:      rect.Min.X,
		Y:      rect.Min.Y,
		Width:  rect.Dx(),
		Height: rect.Dy(),
	}

	return &Result{
		Face:      imaging.Crop(canvas, rect),
		Canvas:    canvas,
		Detection: remapped,
		Angle:     angle,
	}
}

// remapDetection rotates the detection's box corners and landmarks by the
// negative angle about the image center. The re-bound box is intentionally
// the loose axis-aligned hull of the rotated corners, not a tight rotated
// rectangle.
func remapDetection(det *detection.Detection, img *image.RGBA, angleDeg float64) detection.Detection {
	center := imaging.Point{
		X: float64(img.Rect.Dx()) / 2,
		Y: float64(img.Rect.Dy()) / 2,
	}

	corners := [4]imaging.Point{
		{X: float64(det.Box.X), Y: float64(det.Box.Y)},
		{X: float64(det.Box.X + det.Box.Width), Y: float64(det.Box.Y)},
		{X: float64(det.Box.X + det.Box.Width), Y: float64(det.Box.Y + det.Box.Height)},
		{X: float64(det.Box.X), Y: float64(det.Box.Y + det.Box.Height)},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		r := imaging.RotatePoint(c, center, -angleDeg)
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X)
		maxY = math.Max(maxY, r.Y)
	}

	out := *det
	out.Box = detection.PixelBox{
		X:      int(math.Round(minX)),
		Y:      int(math.Round(minY)),
		Width:  int(math.Round(maxX - minX)),
		Height: int(math.Round(maxY - minY)),
	}
	for i, lm := range det.Landmarks {
		r := imaging.RotatePoint(imaging.Point{X: float64(lm.X), Y: float64(lm.Y)}, center, -angleDeg)
		out.Landmarks[i] = detection.Point{
			X: int(math.Round(r.X)),
			Y: int(math.Round(r.Y)),
		}
	}
	return out
}

// clampRect clamps a pixel box to [0,w] x [0,h].
func clampRect(box detection.PixelBox, w, h int) image.Rectangle {
	x0 := clampInt(box.X, 0, w)
	y0 := clampInt(box.Y, 0, h)
	x1 := clampInt(box.X+box.Width, 0, w)
	y1 := clampInt(box.Y+box.Height, 0, h)
	return image.Rect(x0, y0, x1, y1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
