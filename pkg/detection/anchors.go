package detection

import "sync"

// featureStride pairs a feature-map stride with the candidate box sizes
// anchored at each of its cells.
type featureStride struct {
	stride   int
	minSizes [2]int
}

// featureStrides is the fixed detector head layout. Ordering here defines
// the flattened prior ordering and must match the network's output ordering
// exactly: feature-map major, then cell row, then cell column, then size
// variant.
var featureStrides = [3]featureStride{
	{stride: 8, minSizes: [2]int{16, 32}},
	{stride: 16, minSizes: [2]int{64, 128}},
	{stride: 32, minSizes: [2]int{256, 512}},
}

// Prior is a reference anchor box in normalized center form.
type Prior struct {
	Cx, Cy float32
	W, H   float32
}

// GeneratePriors produces the full anchor set for the given input
// resolution. Pure function of (height, width); callers normally go through
// a PriorCache instead.
func GeneratePriors(height, width int) []Prior {
	total := 0
	for _, fs := range featureStrides {
		gridH := ceilDiv(height, fs.stride)
		gridW := ceilDiv(width, fs.stride)
		total += gridH * gridW * len(fs.minSizes)
	}

	priors := make([]Prior, 0, total)
	for _, fs := range featureStrides {
		gridH := ceilDiv(height, fs.stride)
		gridW := ceilDiv(width, fs.stride)
		for i := 0; i < gridH; i++ {
			for j := 0; j < gridW; j++ {
				for _, size := range fs.minSizes {
					priors = append(priors, Prior{
						Cx: (float32(j) + 0.5) * float32(fs.stride) / float32(width),
						Cy: (float32(i) + 0.5) * float32(fs.stride) / float32(height),
						W:  float32(size) / float32(width),
						H:  float32(size) / float32(height),
					})
				}
			}
		}
	}
	return priors
}

// PriorCache caches generated anchors keyed by input resolution. A
// resolution change simply misses the cache and generates a new set; cached
// slices are never mutated.
type PriorCache struct {
	mu     sync.RWMutex
	priors map[[2]int][]Prior
}

// NewPriorCache returns an empty anchor cache.
func NewPriorCache() *PriorCache {
	return &PriorCache{priors: make(map[[2]int][]Prior)}
}

// Get returns the anchor set for (height, width), generating it on first use.
func (c *PriorCache) Get(height, width int) []Prior {
	key := [2]int{height, width}

	c.mu.RLock()
	p, ok := c.priors[key]
	c.mu.RUnlock()
	if ok {
		return p
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.priors[key]; ok {
		return p
	}
	p = GeneratePriors(height, width)
	c.priors[key] = p
	return p
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
