package detection

import "math"

// SelectPrimary picks the primary face among the suppression survivors: the
// one with the largest box area, ties keeping the first occurrence (lowest
// index, a defined tie-break). The winner is scaled from normalized to
// pixel coordinates against the original image dimensions, rounding to the
// nearest pixel. MultipleFaces reports whether more than one detection
// survived, independent of which one was selected. Nil means no detection.
func SelectPrimary(dets []Decoded, imageWidth, imageHeight int) *Detection {
	if len(dets) == 0 {
		return nil
	}

	best := 0
	bestArea := dets[0].Box.Area()
	for i := 1; i < len(dets); i++ {
		if area := dets[i].Box.Area(); area > bestArea {
			best = i
			bestArea = area
		}
	}

	d := dets[best]
	fw := float64(imageWidth)
	fh := float64(imageHeight)

	x := roundToInt(float64(d.Box.XMin) * fw)
	y := roundToInt(float64(d.Box.YMin) * fh)
	x2 := roundToInt(float64(d.Box.XMax) * fw)
	y2 := roundToInt(float64(d.Box.YMax) * fh)

	result := &Detection{
		Box: PixelBox{
			X:      x,
			Y:      y,
			Width:  x2 - x,
			Height: y2 - y,
		},
		Confidence:    d.Score,
		MultipleFaces: len(dets) > 1,
	}
	for j := 0; j < 5; j++ {
		result.Landmarks[j] = Point{
			X: roundToInt(float64(d.Landmarks[j*2+0]) * fw),
			Y: roundToInt(float64(d.Landmarks[j*2+1]) * fh),
		}
	}
	return result
}

func roundToInt(v float64) int {
	return int(math.Round(v))
}
