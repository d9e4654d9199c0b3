// Package inference wraps ONNX Runtime session management for the
// FaceGuard models. Components depend on the Engine interface so tests can
// substitute a stub without loading the runtime.
package inference

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/faceguard/faceguard/pkg/logging"
)

var (
	initialized bool
	initMu      sync.Mutex
)

// ErrNotInitialized is returned when a session is created or used before
// Initialize, or after Shutdown.
var ErrNotInitialized = errors.New("onnx runtime not initialized")

// Initialize sets up the ONNX Runtime environment (call once at startup).
// libraryPath may be empty to use the default shared library location.
func Initialize(libraryPath string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if initialized {
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
	}

	initialized = true
	return nil
}

// Shutdown cleans up the ONNX Runtime environment.
func Shutdown() error {
	initMu.Lock()
	defer initMu.Unlock()

	if !initialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return err
	}

	initialized = false
	return nil
}

// Engine executes a model graph against a float32 tensor and returns the
// output tensors as flat buffers, one per declared output.
type Engine interface {
	Predict(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error)
	Close() error
}

// Session wraps an ONNX Runtime inference session.
type Session struct {
	session     *ort.DynamicAdvancedSession
	modelPath   string
	inputNames  []string
	outputNames []string
	log         *logrus.Entry
}

// NewSession creates an inference session from an ONNX model file.
func NewSession(modelPath string, inputNames, outputNames []string, backend Backend, log *logrus.Entry) (*Session, error) {
	initMu.Lock()
	ready := initialized
	initMu.Unlock()
	if !ready {
		return nil, ErrNotInitialized
	}
	if log == nil {
		log = logging.Component("inference")
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	applyBackend(options, backend, log)

	session, err := ort.NewDynamicAdvancedSession(modelPath, inputNames, outputNames, options)
	if err != nil {
		return nil, fmt.Errorf("failed to create session for %s: %w", modelPath, err)
	}

	log.Debugf("Loaded model: %s", modelPath)

	return &Session{
		session:     session,
		modelPath:   modelPath,
		inputNames:  inputNames,
		outputNames: outputNames,
		log:         log,
	}, nil
}

// Predict runs the model on a single input tensor and copies out every output
// buffer. Output shapes must match the model's declared outputs in order.
func (s *Session) Predict(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
	if s.session == nil {
		return nil, ErrNotInitialized
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(inputShape...), input)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, len(outputShapes))
	outputTensors := make([]*ort.Tensor[float32], len(outputShapes))
	for i, shape := range outputShapes {
		t, err := createEmptyTensor(shape)
		if err != nil {
			for _, prev := range outputTensors[:i] {
				prev.Destroy()
			}
			return nil, fmt.Errorf("failed to create output tensor %d: %w", i, err)
		}
		outputs[i] = t
		outputTensors[i] = t
	}
	defer func() {
		for _, t := range outputTensors {
			t.Destroy()
		}
	}()

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("inference failed for %s: %w", s.modelPath, err)
	}

	results := make([][]float32, len(outputTensors))
	for i, t := range outputTensors {
		data := t.GetData()
		results[i] = make([]float32, len(data))
		copy(results[i], data)
	}
	return results, nil
}

// Close releases session resources.
func (s *Session) Close() error {
	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		return err
	}
	return nil
}

func createEmptyTensor(shape []int64) (*ort.Tensor[float32], error) {
	size := int64(1)
	for _, dim := range shape {
		size *= dim
	}
	data := make([]float32, size)
	return ort.NewTensor(ort.NewShape(shape...), data)
}
