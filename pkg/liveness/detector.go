package liveness

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/detection"
	"github.com/faceguard/faceguard/pkg/imaging"
	"github.com/faceguard/faceguard/pkg/inference"
)

// ErrClosed is returned when a closed detector is used.
var ErrClosed = errors.New("liveness detector closed")

// Detector scores a face region with two anti-spoofing networks, each fed
// its own re-crop of the same source image at a different scale factor.
type Detector struct {
	primary   inference.Engine
	secondary inference.Engine
	cfg       config.SpoofConfig
	log       *logrus.Entry
}

// NewDetector creates a liveness detector over two inference engines.
func NewDetector(primary, secondary inference.Engine, cfg config.SpoofConfig, log *logrus.Entry) *Detector {
	return &Detector{
		primary:   primary,
		secondary: secondary,
		cfg:       cfg,
		log:       log,
	}
}

// Check expands the face box at the two configured scales, runs both
// networks concurrently on their crops, and fuses the class probabilities.
// Network failures are propagated, never masked.
func (d *Detector) Check(img *image.RGBA, box detection.PixelBox) (*Result, error) {
	if d.primary == nil || d.secondary == nil {
		return nil, ErrClosed
	}

	w := img.Rect.Dx()
	h := img.Rect.Dy()

	primaryCrop := imaging.Crop(img, ExpandBox(box, d.cfg.PrimaryScale, w, h))
	secondaryCrop := imaging.Crop(img, ExpandBox(box, d.cfg.SecondaryScale, w, h))

	var (
		wg      sync.WaitGroup
		primOut []float32
		secOut  []float32
		primErr error
		secErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		primOut, primErr = d.score(d.primary, primaryCrop)
	}()
	go func() {
		defer wg.Done()
		secOut, secErr = d.score(d.secondary, secondaryCrop)
	}()
	wg.Wait()

	if primErr != nil {
		return nil, fmt.Errorf("primary anti-spoofing net: %w", primErr)
	}
	if secErr != nil {
		return nil, fmt.Errorf("secondary anti-spoofing net: %w", secErr)
	}

	result, err := Fuse(primOut, secOut)
	if err != nil {
		return nil, err
	}

	if d.log != nil {
		d.log.WithFields(logrus.Fields{
			"real":     result.Real,
			"realness": result.Realness,
		}).Debug("Liveness check complete")
	}
	return &result, nil
}

func (d *Detector) score(engine inference.Engine, crop *image.RGBA) ([]float32, error) {
	size := d.cfg.InputSize
	input := imaging.SpoofTensor(crop, size)

	outputs, err := engine.Predict(
		input,
		[]int64{1, 3, int64(size), int64(size)},
		[][]int64{{1, numClasses}},
	)
	if err != nil {
		return nil, err
	}
	return outputs[0], nil
}

// Close releases both inference sessions.
func (d *Detector) Close() error {
	var errs []error
	if d.primary != nil {
		if err := d.primary.Close(); err != nil {
			errs = append(errs, err)
		}
		d.primary = nil
	}
	if d.secondary != nil {
		if err := d.secondary.Close(); err != nil {
			errs = append(errs, err)
		}
		d.secondary = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("liveness cleanup errors: %v", errs)
	}
	return nil
}
