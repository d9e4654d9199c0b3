// Package inference - execution backend selection.
package inference

import (
	"os"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

// Backend represents an acceleration backend type.
type Backend string

const (
	// BackendCPU is the default CPU-only backend (always available).
	BackendCPU Backend = "cpu"

	// BackendCUDA is the NVIDIA CUDA backend.
	BackendCUDA Backend = "cuda"

	// BackendAuto tries GPU acceleration and falls back to CPU.
	BackendAuto Backend = "auto"
)

// applyBackend configures the session options for the requested backend.
// Failure to attach an accelerator is not fatal; the session silently runs
// on CPU, matching how the runtime itself degrades.
func applyBackend(options *ort.SessionOptions, backend Backend, log *logrus.Entry) {
	switch backend {
	case BackendCUDA:
		appendCUDA(options, log)
	case BackendAuto:
		if cudaLikelyAvailable() {
			appendCUDA(options, log)
		}
	}
}

func appendCUDA(options *ort.SessionOptions, log *logrus.Entry) {
	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		log.WithError(err).Warn("CUDA provider unavailable, using CPU")
		return
	}
	defer cudaOpts.Destroy()

	if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		log.WithError(err).Warn("Failed to enable CUDA, using CPU")
		return
	}
	log.Debug("CUDA execution provider enabled")
}

// cudaLikelyAvailable checks for the NVIDIA driver interface without linking
// against CUDA. Cheap heuristic for the auto backend.
func cudaLikelyAvailable() bool {
	_, err := os.Stat("/proc/driver/nvidia/version")
	return err == nil
}
