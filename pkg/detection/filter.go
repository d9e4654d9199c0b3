package detection

import (
	"fmt"
	"sort"
)

// FilterByConfidence selects the priors whose face-class score exceeds the
// threshold (strictly). conf holds 2 values per prior, [background, face],
// already softmax-normalized by the network. When more than topK priors
// survive, they are stably sorted by descending score and truncated, so
// equal scores keep their deterministic prior order. Zero survivors is a
// valid result, not an error.
func FilterByConfidence(conf []float32, numPriors int, threshold float32, topK int) ([]int, []float32, error) {
	if len(conf) != 2*numPriors {
		return nil, nil, fmt.Errorf("conf length %d does not match %d priors", len(conf), numPriors)
	}

	var indices []int
	var scores []float32
	for i := 0; i < numPriors; i++ {
		score := conf[i*2+1]
		if score > threshold {
			indices = append(indices, i)
			scores = append(scores, score)
		}
	}

	if topK > 0 && len(indices) > topK {
		order := make([]int, len(indices))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return scores[order[a]] > scores[order[b]]
		})

		keptIdx := make([]int, topK)
		keptScores := make([]float32, topK)
		for i := 0; i < topK; i++ {
			keptIdx[i] = indices[order[i]]
			keptScores[i] = scores[order[i]]
		}
		indices, scores = keptIdx, keptScores
	}

	return indices, scores, nil
}
