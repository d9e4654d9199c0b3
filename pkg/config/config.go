// Package config provides configuration management for FaceGuard.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all FaceGuard configuration.
type Config struct {
	Detection   DetectionConfig   `yaml:"detection"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Spoof       SpoofConfig       `yaml:"spoof"`
	Inference   InferenceConfig   `yaml:"inference"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// InferenceConfig holds ONNX Runtime settings.
type InferenceConfig struct {
	Backend     string `yaml:"backend"`
	LibraryPath string `yaml:"library_path"`
}

// DetectionConfig holds face detection settings.
type DetectionConfig struct {
	InputWidth          int     `yaml:"input_width"`
	InputHeight         int     `yaml:"input_height"`
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	IoUThreshold        float32 `yaml:"iou_threshold"`
	PreNMSTopK          int     `yaml:"pre_nms_top_k"`
	PostNMSTopK         int     `yaml:"post_nms_top_k"`
	RotationEpsilon     float64 `yaml:"rotation_epsilon_degrees"`
	ModelPath           string  `yaml:"model_path"`
}

// RecognitionConfig holds face recognition settings.
type RecognitionConfig struct {
	Threshold     float32 `yaml:"threshold"`
	EmbeddingSize int     `yaml:"embedding_size"`
	InputSize     int     `yaml:"input_size"`
	ModelPath     string  `yaml:"model_path"`
}

// SpoofConfig holds anti-spoofing settings.
type SpoofConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Threshold      float32 `yaml:"threshold"`
	InputSize      int     `yaml:"input_size"`
	PrimaryScale   float32 `yaml:"primary_scale"`
	SecondaryScale float32 `yaml:"secondary_scale"`
	PrimaryModel   string  `yaml:"primary_model"`
	SecondaryModel string  `yaml:"secondary_model"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	modelDir := filepath.Join(homeDir, ".local/share/faceguard/models")
	return &Config{
		Detection: DetectionConfig{
			InputWidth:          320,
			InputHeight:         320,
			ConfidenceThreshold: 0.8,
			IoUThreshold:        0.4,
			PreNMSTopK:          5000,
			PostNMSTopK:         750,
			RotationEpsilon:     2.0,
			ModelPath:           filepath.Join(modelDir, "face_detector.onnx"),
		},
		Recognition: RecognitionConfig{
			Threshold:     0.7,
			EmbeddingSize: 512,
			InputSize:     112,
			ModelPath:     filepath.Join(modelDir, "face_embedder.onnx"),
		},
		Spoof: SpoofConfig{
			Enabled:        true,
			Threshold:      0.5,
			InputSize:      80,
			PrimaryScale:   2.7,
			SecondaryScale: 4.0,
			PrimaryModel:   filepath.Join(modelDir, "antispoof_scale27.onnx"),
			SecondaryModel: filepath.Join(modelDir, "antispoof_scale40.onnx"),
		},
		Inference: InferenceConfig{
			Backend:     "auto",
			LibraryPath: "",
		},
		Storage: StorageConfig{
			DataDir:           filepath.Join(homeDir, ".local/share/faceguard"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/faceguard/faceguard.log"),
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	// Try system config first
	if _, err := os.Stat("/etc/faceguard/faceguard.yaml"); err == nil {
		return Load("/etc/faceguard/faceguard.yaml")
	}

	// Try user config
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/faceguard/faceguard.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	// Return defaults
	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Detection.InputWidth <= 0 || c.Detection.InputHeight <= 0 {
		return fmt.Errorf("invalid detection input size: %dx%d", c.Detection.InputWidth, c.Detection.InputHeight)
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", c.Detection.ConfidenceThreshold)
	}
	if c.Detection.IoUThreshold < 0 || c.Detection.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", c.Detection.IoUThreshold)
	}
	if c.Detection.PreNMSTopK <= 0 || c.Detection.PostNMSTopK <= 0 {
		return fmt.Errorf("top-k limits must be positive, got %d/%d", c.Detection.PreNMSTopK, c.Detection.PostNMSTopK)
	}
	if c.Detection.RotationEpsilon < 0 {
		return fmt.Errorf("rotation_epsilon_degrees must be non-negative, got %f", c.Detection.RotationEpsilon)
	}

	if c.Recognition.Threshold < -1 || c.Recognition.Threshold > 1 {
		return fmt.Errorf("recognition threshold must be between -1 and 1, got %f", c.Recognition.Threshold)
	}
	if c.Recognition.EmbeddingSize <= 0 {
		return fmt.Errorf("embedding_size must be positive, got %d", c.Recognition.EmbeddingSize)
	}

	if c.Spoof.Threshold < 0 || c.Spoof.Threshold > 1 {
		return fmt.Errorf("spoof threshold must be between 0 and 1, got %f", c.Spoof.Threshold)
	}
	if c.Spoof.PrimaryScale <= 0 || c.Spoof.SecondaryScale <= 0 {
		return fmt.Errorf("spoof crop scales must be positive, got %f/%f", c.Spoof.PrimaryScale, c.Spoof.SecondaryScale)
	}

	validBackends := map[string]bool{"cpu": true, "cuda": true, "auto": true}
	if !validBackends[c.Inference.Backend] {
		return fmt.Errorf("invalid inference backend: %s (must be cpu, cuda, or auto)", c.Inference.Backend)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Detection.ModelPath = ExpandPath(c.Detection.ModelPath)
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Spoof.PrimaryModel = ExpandPath(c.Spoof.PrimaryModel)
	c.Spoof.SecondaryModel = ExpandPath(c.Spoof.SecondaryModel)
	c.Inference.LibraryPath = ExpandPath(c.Inference.LibraryPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates necessary directories for storage and logging.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	subjectsDir := filepath.Join(c.Storage.DataDir, "subjects")
	if err := os.MkdirAll(subjectsDir, 0700); err != nil {
		return fmt.Errorf("failed to create subjects directory: %w", err)
	}

	modelDir := filepath.Dir(c.Detection.ModelPath)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	return nil
}

// ModelDir returns the directory holding the ONNX model files.
func (c *Config) ModelDir() string {
	return filepath.Dir(c.Detection.ModelPath)
}
