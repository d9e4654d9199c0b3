package liveness

import (
	"errors"
	"image"
	"testing"

	"github.com/faceguard/faceguard/pkg/config"
	"github.com/faceguard/faceguard/pkg/detection"
)

func testSpoofConfig() config.SpoofConfig {
	return config.SpoofConfig{
		Enabled:        true,
		Threshold:      0.5,
		InputSize:      80,
		PrimaryScale:   2.7,
		SecondaryScale: 4.0,
	}
}

func TestDetectorCheck(t *testing.T) {
	primary := &MockEngine{
		PredictFunc: func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
			if len(input) != 3*80*80 {
				t.Errorf("primary input length = %d, want %d", len(input), 3*80*80)
			}
			if len(inputShape) != 4 || inputShape[1] != 3 || inputShape[2] != 80 {
				t.Errorf("primary input shape = %v, want [1 3 80 80]", inputShape)
			}
			return [][]float32{{-3, 5, -3}}, nil
		},
	}
	secondary := &MockEngine{
		PredictFunc: func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
			return [][]float32{{-2, 4, -2}}, nil
		},
	}
	d := NewDetector(primary, secondary, testSpoofConfig(), nil)

	img := image.NewRGBA(image.Rect(0, 0, 400, 400))
	box := detection.PixelBox{X: 150, Y: 150, Width: 60, Height: 60}

	res, err := d.Check(img, box)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Real {
		t.Errorf("Real = false (realness %v), want true", res.Realness)
	}
	if res.Realness < 0.9 {
		t.Errorf("Realness = %v, want > 0.9 for confident real logits", res.Realness)
	}
}

func TestDetectorCheckFake(t *testing.T) {
	attackLogits := func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
		return [][]float32{{6, 0, 0}}, nil
	}
	d := NewDetector(&MockEngine{PredictFunc: attackLogits}, &MockEngine{PredictFunc: attackLogits}, testSpoofConfig(), nil)

	res, err := d.Check(image.NewRGBA(image.Rect(0, 0, 200, 200)), detection.PixelBox{X: 50, Y: 50, Width: 40, Height: 40})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Real {
		t.Errorf("Real = true (fakeness %v), want false", res.Fakeness)
	}
	if res.Score != res.Fakeness {
		t.Errorf("Score = %v, want fakeness %v", res.Score, res.Fakeness)
	}
}

func TestDetectorCheckErrorPropagation(t *testing.T) {
	wantErr := errors.New("tensor shape rejected")
	good := &MockEngine{
		PredictFunc: func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
			return [][]float32{{0, 1, 0}}, nil
		},
	}
	bad := &MockEngine{
		PredictFunc: func(input []float32, inputShape []int64, outputShapes [][]int64) ([][]float32, error) {
			return nil, wantErr
		},
	}

	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	box := detection.PixelBox{X: 50, Y: 50, Width: 40, Height: 40}

	d := NewDetector(bad, good, testSpoofConfig(), nil)
	if _, err := d.Check(img, box); !errors.Is(err, wantErr) {
		t.Errorf("primary failure: error = %v, want wrapped %v", err, wantErr)
	}

	d = NewDetector(good, bad, testSpoofConfig(), nil)
	if _, err := d.Check(img, box); !errors.Is(err, wantErr) {
		t.Errorf("secondary failure: error = %v, want wrapped %v", err, wantErr)
	}
}

func TestDetectorClose(t *testing.T) {
	primaryClosed, secondaryClosed := false, false
	d := NewDetector(
		&MockEngine{CloseFunc: func() error { primaryClosed = true; return nil }},
		&MockEngine{CloseFunc: func() error { secondaryClosed = true; return nil }},
		testSpoofConfig(), nil)

	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !primaryClosed || !secondaryClosed {
		t.Error("Close should close both engines")
	}

	_, err := d.Check(image.NewRGBA(image.Rect(0, 0, 100, 100)), detection.PixelBox{X: 10, Y: 10, Width: 20, Height: 20})
	if !errors.Is(err, ErrClosed) {
		t.Errorf("Check after Close = %v, want ErrClosed", err)
	}
}
