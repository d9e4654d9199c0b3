// Package pipeline composes detection, alignment, recognition and
// anti-spoofing into the FaceGuard verification facade.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/faceguard/faceguard/pkg/align"
	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/detection"
	"github.com/faceguard/faceguard/pkg/inference"
	"github.com/faceguard/faceguard/pkg/liveness"
	"github.com/faceguard/faceguard/pkg/logging"
	"github.com/faceguard/faceguard/pkg/recognition"
)

// ErrNotInitialized is returned when the pipeline is used after Close (or
// was never constructed through New).
var ErrNotInitialized = errors.New("pipeline not initialized")

// Model input/output tensor names as exported in the FaceGuard model files.
var (
	detectorInputs  = []string{"input"}
	detectorOutputs = []string{"loc", "conf", "landms"}
	embedderInputs  = []string{"input"}
	embedderOutputs = []string{"embedding"}
	spoofInputs     = []string{"input"}
	spoofOutputs    = []string{"output"}
)

// FaceAnalysis is the per-image result of one pipeline branch.
type FaceAnalysis struct {
	Detection detection.Detection
	Embedding []float32
	// Spoof is nil when anti-spoofing is disabled.
	Spoof *liveness.Result
}

// VerifyResult joins the two branches of a verification call. FaceA/FaceB
// are nil when the corresponding image had no detectable face; in that case
// Match is its zero value with Verified false, so callers branch on data
// rather than on errors.
type VerifyResult struct {
	Match  recognition.VerificationResult
	FaceA  *detection.Detection
	FaceB  *detection.Detection
	SpoofA *liveness.Result
	SpoofB *liveness.Result
}

// Pipeline owns the model sessions and anchor cache for one verification
// stack. Per-call state is created fresh on every invocation; concurrent
// calls into the same Pipeline are safe only if the underlying inference
// runtime supports concurrent session use - the pipeline itself does not
// serialize calls. There is no internal timeout; callers needing a
// deadline wrap the whole call.
type Pipeline struct {
	cfg        *config.Config
	detector   *detection.Detector
	aligner    *align.Aligner
	embedder   *recognition.Embedder
	comparator *recognition.Comparator
	spoof      *liveness.Detector
	log        *logrus.Entry

	mu     sync.Mutex
	closed bool
}

// New builds a pipeline from configuration: initializes the runtime, loads
// the detector, embedder and both anti-spoofing sessions, and wires the
// post-processing components around them. Any load failure tears down what
// was already created.
func New(cfg *config.Config) (*Pipeline, error) {
	if err := inference.Initialize(cfg.Inference.LibraryPath); err != nil {
		return nil, fmt.Errorf("failed to initialize inference runtime: %w", err)
	}

	backend := inference.Backend(cfg.Inference.Backend)
	log := logging.Component("pipeline")

	detSession, err := inference.NewSession(
		cfg.Detection.ModelPath, detectorInputs, detectorOutputs, backend,
		logging.Component("detector"))
	if err != nil {
		return nil, fmt.Errorf("failed to load detector: %w", err)
	}

	embSession, err := inference.NewSession(
		cfg.Recognition.ModelPath, embedderInputs, embedderOutputs, backend,
		logging.Component("embedder"))
	if err != nil {
		_ = detSession.Close()
		return nil, fmt.Errorf("failed to load embedder: %w", err)
	}

	var spoofDet *liveness.Detector
	if cfg.Spoof.Enabled {
		primary, err := inference.NewSession(
			cfg.Spoof.PrimaryModel, spoofInputs, spoofOutputs, backend,
			logging.Component("liveness"))
		if err != nil {
			_ = detSession.Close()
			_ = embSession.Close()
			return nil, fmt.Errorf("failed to load primary anti-spoofing model: %w", err)
		}
		secondary, err := inference.NewSession(
			cfg.Spoof.SecondaryModel, spoofInputs, spoofOutputs, backend,
			logging.Component("liveness"))
		if err != nil {
			_ = detSession.Close()
			_ = embSession.Close()
			_ = primary.Close()
			return nil, fmt.Errorf("failed to load secondary anti-spoofing model: %w", err)
		}
		spoofDet = liveness.NewDetector(primary, secondary, cfg.Spoof, logging.Component("liveness"))
	}

	return &Pipeline{
		cfg:        cfg,
		detector:   detection.NewDetector(detSession, cfg.Detection, logging.Component("detector")),
		aligner:    align.New(cfg.Detection.RotationEpsilon, logging.Component("align")),
		embedder:   recognition.NewEmbedder(embSession, cfg.Recognition, logging.Component("embedder")),
		comparator: recognition.NewComparator(cfg.Recognition.Threshold),
		spoof:      spoofDet,
		log:        log,
	}, nil
}

// Detect finds the primary face in an image. Returns (nil, nil) when the
// image contains no detectable face.
func (p *Pipeline) Detect(img image.Image) (*detection.Detection, error) {
	if p.isClosed() {
		return nil, ErrNotInitialized
	}
	return p.detector.Detect(img)
}

// Analyze runs one full branch on an image: detect, align, then embedding
// extraction and the spoof check concurrently off the aligned result.
// Returns (nil, nil) when no face is found.
func (p *Pipeline) Analyze(img *image.RGBA) (*FaceAnalysis, error) {
	if p.isClosed() {
		return nil, ErrNotInitialized
	}

	det, err := p.detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if det == nil {
		return nil, nil
	}

	aligned := p.aligner.Align(img, det)

	var (
		wg        sync.WaitGroup
		embedding []float32
		embedErr  error
		spoofRes  *liveness.Result
		spoofErr  error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		embedding, embedErr = p.embedder.Embed(aligned.Face)
	}()

	if p.spoof != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			spoofRes, spoofErr = p.spoof.Check(aligned.Canvas, aligned.Detection.Box)
		}()
	}
	wg.Wait()

	if embedErr != nil {
		return nil, embedErr
	}
	if spoofErr != nil {
		return nil, spoofErr
	}

	return &FaceAnalysis{
		Detection: aligned.Detection,
		Embedding: embedding,
		Spoof:     spoofRes,
	}, nil
}

// Verify decides whether two images depict the same person, using the
// configured similarity threshold.
func (p *Pipeline) Verify(imgA, imgB *image.RGBA) (*VerifyResult, error) {
	return p.VerifyWithThreshold(imgA, imgB, p.cfg.Recognition.Threshold)
}

// VerifyWithThreshold is Verify with a per-call threshold override. The two
// per-image branches run concurrently; they share no mutable state and are
// joined before the embedding comparison.
func (p *Pipeline) VerifyWithThreshold(imgA, imgB *image.RGBA, threshold float32) (*VerifyResult, error) {
	if p.isClosed() {
		return nil, ErrNotInitialized
	}

	var (
		wg         sync.WaitGroup
		resA, resB *FaceAnalysis
		errA, errB error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		resA, errA = p.Analyze(imgA)
	}()
	go func() {
		defer wg.Done()
		resB, errB = p.Analyze(imgB)
	}()
	wg.Wait()

	if errA != nil {
		return nil, fmt.Errorf("first image: %w", errA)
	}
	if errB != nil {
		return nil, fmt.Errorf("second image: %w", errB)
	}

	result := &VerifyResult{Match: recognition.VerificationResult{Threshold: threshold}}
	if resA != nil {
		result.FaceA = &resA.Detection
		result.SpoofA = resA.Spoof
	}
	if resB != nil {
		result.FaceB = &resB.Detection
		result.SpoofB = resB.Spoof
	}
	if resA == nil || resB == nil {
		return result, nil
	}

	match, err := p.comparator.CompareWithThreshold(resA.Embedding, resB.Embedding, threshold)
	if err != nil {
		return nil, err
	}
	result.Match = match

	if p.log != nil {
		p.log.WithFields(logrus.Fields{
			"similarity": match.Similarity,
			"verified":   match.Verified,
		}).Debug("Verification complete")
	}
	return result, nil
}

// SpoofCheck runs detection, alignment and the liveness fusion on a single
// image. Returns (nil, nil) when no face is found, and an error when
// anti-spoofing is disabled in the configuration.
func (p *Pipeline) SpoofCheck(img *image.RGBA) (*liveness.Result, error) {
	if p.isClosed() {
		return nil, ErrNotInitialized
	}
	if p.spoof == nil {
		return nil, errors.New("anti-spoofing disabled in configuration")
	}

	det, err := p.detector.Detect(img)
	if err != nil {
		return nil, err
	}
	if det == nil {
		return nil, nil
	}

	aligned := p.aligner.Align(img, det)
	return p.spoof.Check(aligned.Canvas, aligned.Detection.Box)
}

// Close releases every model session and the runtime environment. Any call
// after Close fails fast with ErrNotInitialized.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	if err := p.detector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.embedder.Close(); err != nil {
		errs = append(errs, err)
	}
	if p.spoof != nil {
		if err := p.spoof.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := inference.Shutdown(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

func (p *Pipeline) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
