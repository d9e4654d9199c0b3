package detection

import "sort"

// NMS performs classic greedy non-maximum suppression: walk candidates in
// descending score order, suppressing any not-yet-suppressed box whose IoU
// with a kept box strictly exceeds the threshold. Boxes at exactly the
// threshold are kept. The survivors are truncated to topK in score order.
//
// O(N^2), with N bounded upstream by the pre-NMS top-K. The exact greedy
// order is a correctness contract; do not replace with an approximation.
func NMS(dets []Decoded, iouThreshold float32, topK int) []Decoded {
	if len(dets) == 0 {
		return nil
	}

	order := make([]int, len(dets))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dets[order[a]].Score > dets[order[b]].Score
	})

	suppressed := make([]bool, len(dets))
	kept := make([]Decoded, 0, len(dets))

	for oi, i := range order {
		if suppressed[i] {
			continue
		}
		kept = append(kept, dets[i])

		for _, j := range order[oi+1:] {
			if suppressed[j] {
				continue
			}
			if IoU(dets[i].Box, dets[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}

	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// IoU computes intersection over union of two normalized boxes. A zero-area
// box yields 0 against everything, and a zero union is guarded so the
// division never blows up.
func IoU(a, b Box) float32 {
	x1 := max32(a.XMin, b.XMin)
	y1 := max32(a.YMin, b.YMin)
	x2 := min32(a.XMax, b.XMax)
	y2 := min32(a.YMax, b.YMax)

	if x1 >= x2 || y1 >= y2 {
		return 0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.Area() + b.Area() - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
