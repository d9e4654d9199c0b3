package recognition

import (
	"errors"
	"fmt"
	"image"

	"github.com/sirupsen/logrus"

	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/imaging"
	"github.com/faceguard/faceguard/pkg/inference"
)

// ErrClosed is returned when a closed embedder is used.
var ErrClosed = errors.New("embedder closed")

// Embedder extracts identity embeddings from aligned face crops.
type Embedder struct {
	engine inference.Engine
	cfg    config.RecognitionConfig
	log    *logrus.Entry
}

// NewEmbedder creates an embedder over an inference engine.
func NewEmbedder(engine inference.Engine, cfg config.RecognitionConfig, log *logrus.Entry) *Embedder {
	return &Embedder{engine: engine, cfg: cfg, log: log}
}

// Embed runs the embedding network on an aligned face crop and returns its
// identity vector. The crop is resized to the network input size; channel
// layout is NHWC RGB per the model's training pipeline.
func (e *Embedder) Embed(face image.Image) ([]float32, error) {
	if e.engine == nil {
		return nil, ErrClosed
	}

	size := e.cfg.InputSize
	input := imaging.EmbedderTensor(face, size)

	outputs, err := e.engine.Predict(
		input,
		[]int64{1, int64(size), int64(size), 3},
		[][]int64{{1, int64(e.cfg.EmbeddingSize)}},
	)
	if err != nil {
		return nil, fmt.Errorf("embedding inference: %w", err)
	}

	embedding := outputs[0]
	if e.log != nil {
		e.log.WithField("dims", len(embedding)).Debug("Embedding extracted")
	}
	return embedding, nil
}

// Close releases the underlying inference session.
func (e *Embedder) Close() error {
	if e.engine == nil {
		return nil
	}
	err := e.engine.Close()
	e.engine = nil
	return err
}
