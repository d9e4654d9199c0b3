package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Detection.InputWidth != 320 || cfg.Detection.InputHeight != 320 {
		t.Errorf("detection input = %dx%d, want 320x320", cfg.Detection.InputWidth, cfg.Detection.InputHeight)
	}
	if cfg.Detection.ConfidenceThreshold != 0.8 {
		t.Errorf("confidence threshold = %v, want 0.8", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Detection.IoUThreshold != 0.4 {
		t.Errorf("IoU threshold = %v, want 0.4", cfg.Detection.IoUThreshold)
	}
	if cfg.Detection.RotationEpsilon != 2.0 {
		t.Errorf("rotation epsilon = %v, want 2.0", cfg.Detection.RotationEpsilon)
	}
	if cfg.Recognition.Threshold != 0.7 {
		t.Errorf("recognition threshold = %v, want 0.7", cfg.Recognition.Threshold)
	}
	if cfg.Recognition.EmbeddingSize != 512 {
		t.Errorf("embedding size = %d, want 512", cfg.Recognition.EmbeddingSize)
	}
	if cfg.Spoof.PrimaryScale != 2.7 || cfg.Spoof.SecondaryScale != 4.0 {
		t.Errorf("spoof scales = %v/%v, want 2.7/4.0", cfg.Spoof.PrimaryScale, cfg.Spoof.SecondaryScale)
	}
	if !cfg.Spoof.Enabled {
		t.Error("anti-spoofing should default to enabled")
	}
	if cfg.Inference.Backend != "auto" {
		t.Errorf("inference backend = %q, want auto", cfg.Inference.Backend)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "faceguard.yaml")

	content := `
detection:
  confidence_threshold: 0.6
  rotation_epsilon_degrees: 1.5
recognition:
  threshold: 0.85
spoof:
  enabled: false
  threshold: 0.6
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Detection.ConfidenceThreshold != 0.6 {
		t.Errorf("confidence threshold = %v, want 0.6", cfg.Detection.ConfidenceThreshold)
	}
	if cfg.Recognition.Threshold != 0.85 {
		t.Errorf("recognition threshold = %v, want 0.85", cfg.Recognition.Threshold)
	}
	if cfg.Spoof.Enabled {
		t.Error("spoof.enabled should be overridden to false")
	}
	if cfg.Spoof.Threshold != 0.6 {
		t.Errorf("spoof threshold = %v, want 0.6", cfg.Spoof.Threshold)
	}
	if cfg.Detection.RotationEpsilon != 1.5 {
		t.Errorf("rotation epsilon = %v, want 1.5", cfg.Detection.RotationEpsilon)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}

	// Untouched fields keep their defaults.
	if cfg.Detection.IoUThreshold != 0.4 {
		t.Errorf("IoU threshold = %v, want default 0.4", cfg.Detection.IoUThreshold)
	}
	if cfg.Recognition.EmbeddingSize != 512 {
		t.Errorf("embedding size = %d, want default 512", cfg.Recognition.EmbeddingSize)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("/nonexistent/faceguard.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
	if cfg == nil {
		t.Fatal("Load should still return usable defaults")
	}
	if cfg.Detection.InputWidth != 320 {
		t.Errorf("fallback config input width = %d, want 320", cfg.Detection.InputWidth)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "negative input size",
			mutate:  func(c *Config) { c.Detection.InputWidth = -1 },
			wantErr: true,
		},
		{
			name:    "confidence above one",
			mutate:  func(c *Config) { c.Detection.ConfidenceThreshold = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero top-k",
			mutate:  func(c *Config) { c.Detection.PreNMSTopK = 0 },
			wantErr: true,
		},
		{
			name:    "recognition threshold below cosine range",
			mutate:  func(c *Config) { c.Recognition.Threshold = -1.5 },
			wantErr: true,
		},
		{
			name:    "negative rotation epsilon",
			mutate:  func(c *Config) { c.Detection.RotationEpsilon = -0.1 },
			wantErr: true,
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Inference.Backend = "tpu" },
			wantErr: true,
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
		{
			name:    "zero spoof scale",
			mutate:  func(c *Config) { c.Spoof.PrimaryScale = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}

	got := ExpandPath("~/models/detector.onnx")
	want := filepath.Join(homeDir, "models/detector.onnx")
	if got != want {
		t.Errorf("ExpandPath = %q, want %q", got, want)
	}

	// Absolute paths pass through.
	if got := ExpandPath("/opt/faceguard/model.onnx"); got != "/opt/faceguard/model.onnx" {
		t.Errorf("ExpandPath altered absolute path: %q", got)
	}
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDir = filepath.Join(tmpDir, "data")
	cfg.Detection.ModelPath = filepath.Join(tmpDir, "models", "face_detector.onnx")
	cfg.Logging.File = filepath.Join(tmpDir, "logs", "faceguard.log")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{
		filepath.Join(tmpDir, "data", "subjects"),
		filepath.Join(tmpDir, "models"),
		filepath.Join(tmpDir, "logs"),
	} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Errorf("directory %s was not created", dir)
		}
	}
}

func TestModelDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Detection.ModelPath = "/opt/faceguard/models/face_detector.onnx"
	if got := cfg.ModelDir(); got != "/opt/faceguard/models" {
		t.Errorf("ModelDir = %q, want /opt/faceguard/models", got)
	}
}
