// Package detection implements the face detection half of the FaceGuard
// pipeline: anchor generation, regression decoding, confidence filtering,
// greedy non-maximum suppression and primary-face selection over the raw
// tensors of a RetinaFace-style detection network.
package detection

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/imaging"
	"github.com/faceguard/faceguard/pkg/inference"
)

// ErrClosed is returned when a closed detector is used.
var ErrClosed = errors.New("detector closed")

// Detector runs the detection network and post-processes its raw outputs
// into a primary-face result.
type Detector struct {
	engine inference.Engine
	cfg    config.DetectionConfig
	priors *PriorCache
	log    *logrus.Entry
}

// NewDetector creates a detector over an inference engine. The anchor cache
// is owned by the detector and persists across frames.
func NewDetector(engine inference.Engine, cfg config.DetectionConfig, log *logrus.Entry) *Detector {
	return &Detector{
		engine: engine,
		cfg:    cfg,
		priors: NewPriorCache(),
		log:    log,
	}
}

// Detect finds the primary face in an image. It returns (nil, nil) when no
// face clears the confidence threshold; zero detections are data, not an
// error. Network failures are propagated untouched.
func (d *Detector) Detect(img image.Image) (*Detection, error) {
	if d.engine == nil {
		return nil, ErrClosed
	}

	bounds := img.Bounds()
	imgW := bounds.Dx()
	imgH := bounds.Dy()

	inW := d.cfg.InputWidth
	inH := d.cfg.InputHeight
	input := imaging.DetectorTensor(img, inW, inH)
	priors := d.priors.Get(inH, inW)
	n := int64(len(priors))

	outputs, err := d.engine.Predict(
		input,
		[]int64{1, 3, int64(inH), int64(inW)},
		[][]int64{{1, n, 4}, {1, n, 2}, {1, n, 10}},
	)
	if err != nil {
		return nil, fmt.Errorf("detection inference: %w", err)
	}
	loc, conf, lms := outputs[0], outputs[1], outputs[2]

	indices, scores, err := FilterByConfidence(conf, len(priors), d.cfg.ConfidenceThreshold, d.cfg.PreNMSTopK)
	if err != nil {
		return nil, err
	}
	if len(indices) == 0 {
		if d.log != nil {
			d.log.Debug("No face above confidence threshold")
		}
		return nil, nil
	}

	boxes, err := DecodeBoxes(loc, priors, DefaultVariances)
	if err != nil {
		return nil, err
	}
	landmarks, err := DecodeLandmarks(lms, priors, DefaultVariances)
	if err != nil {
		return nil, err
	}

	decoded := make([]Decoded, len(indices))
	for i, pi := range indices {
		decoded[i] = Decoded{
			Box:       boxes[pi],
			Score:     scores[i],
			Landmarks: landmarks[pi],
		}
	}

	kept := NMS(decoded, d.cfg.IoUThreshold, d.cfg.PostNMSTopK)
	result := SelectPrimary(kept, imgW, imgH)

	if d.log != nil && result != nil {
		d.log.WithFields(logrus.Fields{
			"confidence": result.Confidence,
			"multiple":   result.MultipleFaces,
			"survivors":  len(kept),
		}).Debug("Face detected")
	}
	return result, nil
}

// Close releases the underlying inference session.
func (d *Detector) Close() error {
	if d.engine == nil {
		return nil
	}
	err := d.engine.Close()
	d.engine = nil
	return err
}
