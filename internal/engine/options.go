package engine

import "github.com/pkg/errors"

// Tuning holds the numeric policy of the learned and fused strategies.
type Tuning struct {
	// RetryThreshold is the confidence used for the single learned retry.
	RetryThreshold float64 `json:"retry_threshold" yaml:"retry_threshold"`
	// FusionMinConfidence is the learned confidence below which the fused
	// strategy falls back to classical on the whole image.
	FusionMinConfidence float64 `json:"fusion_min_confidence" yaml:"fusion_min_confidence"`
	// ROIMargin pads the learned box before the classical pass, in pixels.
	ROIMargin int `json:"roi_margin" yaml:"roi_margin"`
	// ClassicalConfidence is the classical detector's share in the fused
	// confidence.
	ClassicalConfidence float64 `json:"classical_confidence" yaml:"classical_confidence"`
	// LearnedWeight is the weight of the learned confidence in the fused
	// average; the classical confidence gets 1-LearnedWeight.
	LearnedWeight float64 `json:"learned_weight" yaml:"learned_weight"`
	// QualityFloor is the lower bound of the area agreement factor.
	QualityFloor float64 `json:"quality_floor" yaml:"quality_floor"`
	// RefineMinFraction rejects a refinement that shrinks either side below
	// this fraction of the input box.
	RefineMinFraction float64 `json:"refine_min_fraction" yaml:"refine_min_fraction"`
}

// DefaultTuning returns the standard fusion policy.
func DefaultTuning() Tuning {
	return Tuning{
		RetryThreshold:      0.2,
		FusionMinConfidence: 0.2,
		ROIMargin:           30,
		ClassicalConfidence: 0.7,
		LearnedWeight:       0.5,
		QualityFloor:        0.5,
		RefineMinFraction:   0.5,
	}
}

// Validate rejects weights and fractions outside [0,1] and a negative margin.
func (t Tuning) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"retry threshold", t.RetryThreshold},
		{"fusion min confidence", t.FusionMinConfidence},
		{"classical confidence", t.ClassicalConfidence},
		{"learned weight", t.LearnedWeight},
		{"quality floor", t.QualityFloor},
		{"refine min fraction", t.RefineMinFraction},
	} {
		if f.v < 0 || f.v > 1 {
			return errors.Errorf("%s %v outside [0, 1]", f.name, f.v)
		}
	}
	if t.ROIMargin < 0 {
		return errors.Errorf("roi margin must not be negative, got %d", t.ROIMargin)
	}
	return nil
}

// Options configures an Engine.
type Options struct {
	// Threshold is the default confidence threshold for the learned detector
	// and for the success flag.
	Threshold float64
	// DefaultRatio is the mm per pixel used when no better source exists.
	DefaultRatio float64
	// AutoCalibrate looks for a reference card in every image.
	AutoCalibrate bool
	// MissedDetectionError is reported as error_mm when ground truth exists
	// but nothing was detected.
	MissedDetectionError float64
	Tuning               Tuning
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		Threshold:            0.5,
		DefaultRatio:         0.1862,
		MissedDetectionError: 999,
		Tuning:               DefaultTuning(),
	}
}
