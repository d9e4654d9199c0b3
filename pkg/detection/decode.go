package detection

import (
	"fmt"
	"math"
)

// DefaultVariances are the regression variances the detection model was
// trained with: v0 scales center offsets, v1 scales the size exponent.
var DefaultVariances = [2]float32{0.1, 0.2}

// DecodeBoxes decodes raw location regressions against their priors into
// normalized corner-form boxes. loc holds 4 values per prior; a length
// mismatch is a caller bug and reported as an error.
func DecodeBoxes(loc []float32, priors []Prior, variances [2]float32) ([]Box, error) {
	if len(loc) != 4*len(priors) {
		return nil, fmt.Errorf("loc length %d does not match %d priors", len(loc), len(priors))
	}

	boxes := make([]Box, len(priors))
	for i, p := range priors {
		cx := p.Cx + loc[i*4+0]*variances[0]*p.W
		cy := p.Cy + loc[i*4+1]*variances[0]*p.H
		w := p.W * float32(math.Exp(float64(loc[i*4+2]*variances[1])))
		h := p.H * float32(math.Exp(float64(loc[i*4+3]*variances[1])))

		boxes[i] = Box{
			XMin: cx - w/2,
			YMin: cy - h/2,
			XMax: cx + w/2,
			YMax: cy + h/2,
		}
	}
	return boxes, nil
}

// DecodeLandmarks decodes the 5-point landmark regressions against the same
// prior index as the boxes. Landmark regression is center-offset only and
// uses v0 alone, never the size exponent.
func DecodeLandmarks(lms []float32, priors []Prior, variances [2]float32) ([][10]float32, error) {
	if len(lms) != 10*len(priors) {
		return nil, fmt.Errorf("landmark length %d does not match %d priors", len(lms), len(priors))
	}

	out := make([][10]float32, len(priors))
	for i, p := range priors {
		for j := 0; j < 5; j++ {
			out[i][j*2+0] = p.Cx + lms[i*10+j*2+0]*variances[0]*p.W
			out[i][j*2+1] = p.Cy + lms[i*10+j*2+1]*variances[0]*p.H
		}
	}
	return out, nil
}
