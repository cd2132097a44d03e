// Package config loads the bento server and CLI settings.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file named by BENTO_CONFIG, then BENTO_* environment variables. A .env file
// in the working directory is loaded into the environment first.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/bento-measure-mcp/internal/calibration"
	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/logging"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Learned backend names.
const (
	LearnedONNX   = "onnx"
	LearnedRemote = "remote"
	LearnedNone   = "none"
)

// Classical backend names.
const (
	ClassicalNative = "native"
	ClassicalOpenCV = "opencv"
)

// Config holds every tunable of the server and the evaluation CLI.
type Config struct {
	LogLevel   string `yaml:"log_level"`
	LogFile    string `yaml:"log_file"`
	OutputDir  string `yaml:"output_dir"`
	LogDir     string `yaml:"log_dir"`
	SQLitePath string `yaml:"sqlite_path"`

	Threshold            float64 `yaml:"confidence_threshold"`
	DefaultRatio         float64 `yaml:"default_ratio"`
	AutoCalibrate        bool    `yaml:"auto_calibrate"`
	CardType             string  `yaml:"card_type"`
	MissedDetectionError float64 `yaml:"missed_detection_error"`

	ClassicalBackend string `yaml:"classical_backend"`
	ContrastChannel  string `yaml:"contrast_channel"`

	LearnedBackend string  `yaml:"learned_backend"`
	ModelPath      string  `yaml:"model_path"`
	ORTLibrary     string  `yaml:"onnxruntime_library"`
	InferenceURL   string  `yaml:"inference_url"`
	InputSize      int     `yaml:"input_size"`
	OutputFeatures int     `yaml:"output_features"`
	OutputAnchors  int     `yaml:"output_anchors"`
	ClassID        int     `yaml:"class_id"`
	NMSIoU         float64 `yaml:"nms_iou"`

	Tuning engine.Tuning `yaml:"tuning"`

	Workers int `yaml:"workers"`
}

// Default returns the built-in settings.
func Default() *Config {
	eng := engine.DefaultOptions()
	onnx := detection.DefaultONNXOptions()
	return &Config{
		LogLevel:             "info",
		OutputDir:            "results",
		LogDir:               "logs",
		Threshold:            eng.Threshold,
		DefaultRatio:         eng.DefaultRatio,
		CardType:             calibration.DefaultCard,
		MissedDetectionError: eng.MissedDetectionError,
		ClassicalBackend:     ClassicalNative,
		ContrastChannel:      string(detection.ChannelLuma),
		LearnedBackend:       LearnedNone,
		InputSize:            onnx.InputSize,
		OutputFeatures:       onnx.Features,
		OutputAnchors:        onnx.Anchors,
		ClassID:              onnx.ClassID,
		NMSIoU:               onnx.IoUThreshold,
		Tuning:               eng.Tuning,
		Workers:              4,
	}
}

// Load resolves the configuration and validates it.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("BENTO_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("BENTO_LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("BENTO_LOG_FILE", c.LogFile)
	c.OutputDir = getEnv("BENTO_OUTPUT_DIR", c.OutputDir)
	c.LogDir = getEnv("BENTO_LOG_DIR", c.LogDir)
	c.SQLitePath = getEnv("BENTO_SQLITE_PATH", c.SQLitePath)

	c.Threshold = getEnvAsFloat("BENTO_CONFIDENCE_THRESHOLD", c.Threshold)
	c.DefaultRatio = getEnvAsFloat("BENTO_DEFAULT_RATIO", c.DefaultRatio)
	c.AutoCalibrate = getEnvAsBool("BENTO_AUTO_CALIBRATE", c.AutoCalibrate)
	c.CardType = getEnv("BENTO_CARD_TYPE", c.CardType)
	c.MissedDetectionError = getEnvAsFloat("BENTO_MISSED_DETECTION_ERROR", c.MissedDetectionError)

	c.ClassicalBackend = getEnv("BENTO_CLASSICAL_BACKEND", c.ClassicalBackend)
	c.ContrastChannel = getEnv("BENTO_CONTRAST_CHANNEL", c.ContrastChannel)

	c.LearnedBackend = getEnv("BENTO_LEARNED_BACKEND", c.LearnedBackend)
	c.ModelPath = getEnv("BENTO_MODEL_PATH", c.ModelPath)
	c.ORTLibrary = getEnv("BENTO_ONNXRUNTIME_LIB", c.ORTLibrary)
	c.InferenceURL = getEnv("BENTO_INFERENCE_URL", c.InferenceURL)
	c.InputSize = getEnvAsInt("BENTO_INPUT_SIZE", c.InputSize)
	c.OutputFeatures = getEnvAsInt("BENTO_OUTPUT_FEATURES", c.OutputFeatures)
	c.OutputAnchors = getEnvAsInt("BENTO_OUTPUT_ANCHORS", c.OutputAnchors)
	c.ClassID = getEnvAsInt("BENTO_CLASS_ID", c.ClassID)
	c.NMSIoU = getEnvAsFloat("BENTO_NMS_IOU", c.NMSIoU)

	c.Tuning.RetryThreshold = getEnvAsFloat("BENTO_RETRY_THRESHOLD", c.Tuning.RetryThreshold)
	c.Tuning.FusionMinConfidence = getEnvAsFloat("BENTO_FUSION_MIN_CONFIDENCE", c.Tuning.FusionMinConfidence)
	c.Tuning.ROIMargin = getEnvAsInt("BENTO_ROI_MARGIN", c.Tuning.ROIMargin)
	c.Tuning.ClassicalConfidence = getEnvAsFloat("BENTO_CLASSICAL_CONFIDENCE", c.Tuning.ClassicalConfidence)
	c.Tuning.LearnedWeight = getEnvAsFloat("BENTO_LEARNED_WEIGHT", c.Tuning.LearnedWeight)
	c.Tuning.QualityFloor = getEnvAsFloat("BENTO_QUALITY_FLOOR", c.Tuning.QualityFloor)
	c.Tuning.RefineMinFraction = getEnvAsFloat("BENTO_REFINE_MIN_FRACTION", c.Tuning.RefineMinFraction)

	c.Workers = getEnvAsInt("BENTO_WORKERS", c.Workers)
}

// Validate rejects values the engine cannot work with.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return errors.Errorf("confidence threshold %v outside [0, 1]", c.Threshold)
	}
	if c.DefaultRatio <= 0 {
		return errors.Errorf("default ratio must be positive, got %v", c.DefaultRatio)
	}
	if c.MissedDetectionError <= 0 {
		return errors.Errorf("missed detection error must be positive, got %v", c.MissedDetectionError)
	}
	if _, ok := calibration.Cards[c.CardType]; !ok {
		return errors.Errorf("unknown card type %q (have %s)", c.CardType, strings.Join(calibration.CardNames(), ", "))
	}

	switch c.ClassicalBackend {
	case ClassicalNative, ClassicalOpenCV:
	default:
		return errors.Errorf("unknown classical backend %q", c.ClassicalBackend)
	}
	if _, err := detection.ParseChannel(c.ContrastChannel); err != nil {
		return err
	}

	switch c.LearnedBackend {
	case LearnedNone:
	case LearnedONNX:
		if c.ModelPath == "" {
			return errors.New("learned backend onnx needs a model path")
		}
	case LearnedRemote:
		if c.InferenceURL == "" {
			return errors.New("learned backend remote needs an inference url")
		}
	default:
		return errors.Errorf("unknown learned backend %q", c.LearnedBackend)
	}
	if c.InputSize <= 0 || c.OutputFeatures <= 4 || c.OutputAnchors <= 0 {
		return errors.Errorf("invalid model shape: input %d, output [%d, %d]", c.InputSize, c.OutputFeatures, c.OutputAnchors)
	}
	if c.NMSIoU <= 0 || c.NMSIoU > 1 {
		return errors.Errorf("nms iou %v outside (0, 1]", c.NMSIoU)
	}

	if err := c.Tuning.Validate(); err != nil {
		return err
	}
	if c.Workers <= 0 {
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	}
	return nil
}

// EngineOptions converts the settings to engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Threshold:            c.Threshold,
		DefaultRatio:         c.DefaultRatio,
		AutoCalibrate:        c.AutoCalibrate,
		MissedDetectionError: c.MissedDetectionError,
		Tuning:               c.Tuning,
	}
}

// NativeOptions returns the classical detector settings.
func (c *Config) NativeOptions() detection.NativeOptions {
	opts := detection.DefaultNativeOptions()
	opts.Confidence = c.Tuning.ClassicalConfidence
	opts.Channel = detection.Channel(c.ContrastChannel)
	return opts
}

// ONNXOptions returns the ONNX Runtime detector settings.
func (c *Config) ONNXOptions() detection.ONNXOptions {
	opts := detection.DefaultONNXOptions()
	opts.ModelPath = c.ModelPath
	opts.LibraryPath = c.ORTLibrary
	opts.InputSize = c.InputSize
	opts.Features = c.OutputFeatures
	opts.Anchors = c.OutputAnchors
	opts.ClassID = c.ClassID
	opts.IoUThreshold = c.NMSIoU
	return opts
}

// LoggingOptions returns the logger settings.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{Level: c.LogLevel, File: c.LogFile}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
