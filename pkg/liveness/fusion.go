// Package liveness provides presentation-attack detection. Two
// independently trained anti-spoofing networks score the same face region
// at different crop scales; their class probabilities are fused into a
// single real/fake decision with calibrated realness and fakeness.
package liveness

import (
	"fmt"
	"math"
)

// The anti-spoofing networks emit 3 class logits: two presentation-attack
// classes around a single real class at a fixed index.
const (
	numClasses     = 3
	realClassIndex = 1
)

// Result is the fused liveness decision for one face.
type Result struct {
	// Real reports whether the fused argmax landed on the real class.
	Real bool `json:"real"`
	// Score is the confidence behind whichever label won: realness when
	// real, fakeness otherwise.
	Score float32 `json:"score"`
	// Realness is the averaged real-class probability.
	Realness float32 `json:"realness"`
	// Fakeness is the sum of the averaged attack-class probabilities.
	// Realness + Fakeness is 1 up to floating-point error.
	Fakeness float32 `json:"fakeness"`
}

// Softmax computes a numerically stable softmax: the per-vector max is
// subtracted before exponentiating.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}

	maxVal := logits[0]
	for _, v := range logits[1:] {
		if v > maxVal {
			maxVal = v
		}
	}

	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxVal))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

// Fuse combines the two networks' logit vectors: softmax each, average
// element-wise, then decide via argmax over the averaged 3-way vector
// rather than a realness > 0.5 shortcut, so a future class-count change
// cannot silently flip the decision rule.
func Fuse(primary, secondary []float32) (Result, error) {
	if len(primary) != numClasses || len(secondary) != numClasses {
		return Result{}, fmt.Errorf("expected %d class logits, got %d and %d", numClasses, len(primary), len(secondary))
	}

	p1 := Softmax(primary)
	p2 := Softmax(secondary)

	var avg [numClasses]float32
	for i := 0; i < numClasses; i++ {
		avg[i] = (p1[i] + p2[i]) / 2
	}

	winner := 0
	for i := 1; i < numClasses; i++ {
		if avg[i] > avg[winner] {
			winner = i
		}
	}

	realness := avg[realClassIndex]
	var fakeness float32
	for i := 0; i < numClasses; i++ {
		if i != realClassIndex {
			fakeness += avg[i]
		}
	}

	result := Result{
		Real:     winner == realClassIndex,
		Realness: realness,
		Fakeness: fakeness,
	}
	if result.Real {
		result.Score = realness
	} else {
		result.Score = fakeness
	}
	return result, nil
}
