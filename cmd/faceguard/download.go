package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/faceguard/faceguard/pkg/logging"
)

// modelBaseURL can be overridden with the FACEGUARD_MODEL_BASE_URL
// environment variable for mirrors and air-gapped setups.
const modelBaseURL = "https://github.com/faceguard/models/releases/latest/download"

func cmdDownloadModels(args []string) error {
	modelDir := cfg.ModelDir()
	if len(args) > 0 {
		modelDir = args[0]
	}

	logging.Infof("Downloading models to: %s", modelDir)

	if err := os.MkdirAll(modelDir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	baseURL := modelBaseURL
	if override := os.Getenv("FACEGUARD_MODEL_BASE_URL"); override != "" {
		baseURL = override
	}

	models := []string{
		filepath.Base(cfg.Detection.ModelPath),
		filepath.Base(cfg.Recognition.ModelPath),
		filepath.Base(cfg.Spoof.PrimaryModel),
		filepath.Base(cfg.Spoof.SecondaryModel),
	}

	for _, name := range models {
		targetPath := filepath.Join(modelDir, name)
		if _, err := os.Stat(targetPath); err == nil {
			logging.Infof("Model %s already exists, skipping", name)
			continue
		}

		if err := downloadModel(baseURL+"/"+name, targetPath); err != nil {
			return fmt.Errorf("failed to download %s: %w", name, err)
		}
		logging.Infof("Downloaded %s", name)
	}

	fmt.Println("All models downloaded.")
	return nil
}

func downloadModel(url, targetPath string) error {
	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	// Download to a temp file first so an interrupted transfer never leaves
	// a truncated model in place.
	tmpPath := targetPath + ".partial"
	out, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	bar := progressbar.NewOptions64(resp.ContentLength,
		progressbar.OptionSetDescription(filepath.Base(targetPath)),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
	)

	_, err = io.Copy(io.MultiWriter(out, bar), resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, targetPath)
}
