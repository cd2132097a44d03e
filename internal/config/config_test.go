package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/bento-measure-mcp/internal/detection"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BENTO_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 0.5 || cfg.DefaultRatio != 0.1862 || cfg.MissedDetectionError != 999 {
		t.Errorf("engine defaults: got threshold %v ratio %v missed %v", cfg.Threshold, cfg.DefaultRatio, cfg.MissedDetectionError)
	}
	if cfg.LearnedBackend != LearnedNone || cfg.ClassicalBackend != ClassicalNative {
		t.Errorf("backends: got %s/%s", cfg.ClassicalBackend, cfg.LearnedBackend)
	}
	if cfg.InputSize != 640 || cfg.NMSIoU != 0.4 || cfg.Tuning.ROIMargin != 30 {
		t.Errorf("model defaults: got input %d iou %v margin %d", cfg.InputSize, cfg.NMSIoU, cfg.Tuning.ROIMargin)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bento.yaml")
	content := `
confidence_threshold: 0.6
card_type: business_card
learned_backend: remote
inference_url: http://localhost:9000/detect
tuning:
  roi_margin: 12
  learned_weight: 0.7
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BENTO_CONFIG", path)
	t.Setenv("BENTO_CONFIDENCE_THRESHOLD", "0.45")
	t.Setenv("BENTO_AUTO_CALIBRATE", "true")
	t.Setenv("BENTO_WORKERS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 0.45 {
		t.Errorf("threshold: got %v, want env override 0.45", cfg.Threshold)
	}
	if cfg.CardType != "business_card" || cfg.LearnedBackend != LearnedRemote {
		t.Errorf("file values: got card %s backend %s", cfg.CardType, cfg.LearnedBackend)
	}
	if cfg.Tuning.ROIMargin != 12 || cfg.Tuning.LearnedWeight != 0.7 {
		t.Errorf("tuning: got %+v", cfg.Tuning)
	}
	// Keys missing from the file keep their defaults.
	if cfg.Tuning.RetryThreshold != 0.2 {
		t.Errorf("retry threshold: got %v, want default 0.2", cfg.Tuning.RetryThreshold)
	}
	if !cfg.AutoCalibrate {
		t.Error("auto calibrate: want true from env")
	}
	if cfg.Workers != 4 {
		t.Errorf("workers: got %d, want default 4 for unparsable env", cfg.Workers)
	}

	opts := cfg.EngineOptions()
	if opts.Threshold != 0.45 || !opts.AutoCalibrate || opts.Tuning.ROIMargin != 12 {
		t.Errorf("engine options: got %+v", opts)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("confidence_threshold: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BENTO_CONFIG", path)
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}

	t.Setenv("BENTO_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"threshold above one", func(c *Config) { c.Threshold = 1.5 }},
		{"zero ratio", func(c *Config) { c.DefaultRatio = 0 }},
		{"unknown card", func(c *Config) { c.CardType = "passport" }},
		{"unknown classical backend", func(c *Config) { c.ClassicalBackend = "sobel" }},
		{"unknown channel", func(c *Config) { c.ContrastChannel = "hsv" }},
		{"onnx without model", func(c *Config) { c.LearnedBackend = LearnedONNX }},
		{"remote without url", func(c *Config) { c.LearnedBackend = LearnedRemote }},
		{"unknown learned backend", func(c *Config) { c.LearnedBackend = "tflite" }},
		{"bad output shape", func(c *Config) { c.OutputFeatures = 4 }},
		{"bad nms iou", func(c *Config) { c.NMSIoU = 0 }},
		{"learned weight above one", func(c *Config) { c.Tuning.LearnedWeight = 2 }},
		{"negative margin", func(c *Config) { c.Tuning.ROIMargin = -1 }},
		{"no workers", func(c *Config) { c.Workers = 0 }},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }},
	}

	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestDetectorOptions(t *testing.T) {
	cfg := Default()
	cfg.ContrastChannel = "lab"
	cfg.Tuning.ClassicalConfidence = 0.65
	cfg.ModelPath = "models/bento.onnx"
	cfg.ClassID = 0

	native := cfg.NativeOptions()
	if native.Channel != detection.ChannelLab || native.Confidence != 0.65 {
		t.Errorf("native options: got %+v", native)
	}

	onnx := cfg.ONNXOptions()
	if onnx.ModelPath != "models/bento.onnx" || onnx.ClassID != 0 || onnx.Anchors != 8400 {
		t.Errorf("onnx options: got %+v", onnx)
	}
}
