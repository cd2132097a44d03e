package engine

import (
	"time"

	"github.com/ironsheep/bento-measure-mcp/internal/calibration"
	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/store"
)

// Size is a physical width and height in millimetres.
type Size struct {
	WidthMM  float64 `json:"width_mm" yaml:"width_mm"`
	HeightMM float64 `json:"height_mm" yaml:"height_mm"`
}

func (s *Size) valid() bool {
	return s != nil && s.WidthMM > 0 && s.HeightMM > 0
}

// RatioSource names where a call's mm per pixel ratio came from.
type RatioSource string

const (
	RatioDefault      RatioSource = "default"
	RatioPhysicalSize RatioSource = "physical_size"
	RatioCard         RatioSource = "card"
)

// BBox is a detected box with its physical size under the call's ratio.
type BBox struct {
	detection.Box `yaml:",inline"`
	WidthMM       float64 `json:"width_mm" yaml:"width_mm"`
	HeightMM      float64 `json:"height_mm" yaml:"height_mm"`
}

// Result is the outcome of one Detect call. It is never modified after
// Detect returns.
type Result struct {
	Filename    string      `json:"filename" yaml:"filename"`
	Timestamp   time.Time   `json:"timestamp" yaml:"timestamp"`
	Strategy    Strategy    `json:"mode" yaml:"mode"`
	Brightness  float64     `json:"brightness" yaml:"brightness"`
	Angle       float64     `json:"angle" yaml:"angle"`
	InferenceMS float64     `json:"inference_time_ms" yaml:"inference_time_ms"`
	ErrorMM     float64     `json:"error_mm" yaml:"error_mm"`
	Confidence  float64     `json:"confidence" yaml:"confidence"`
	BBox        BBox        `json:"bbox" yaml:"bbox"`
	Success     bool        `json:"success" yaml:"success"`
	MMPerPixel  float64     `json:"mm_per_pixel" yaml:"mm_per_pixel"`
	RatioSource RatioSource `json:"ratio_source" yaml:"ratio_source"`
	ImageWidth  int         `json:"image_width" yaml:"image_width"`
	ImageHeight int         `json:"image_height" yaml:"image_height"`
	// Card is set when the ratio came from a reference card.
	Card *calibration.Ratio `json:"card,omitempty" yaml:"card,omitempty"`
}

// Record converts r to its log store form.
func (r *Result) Record() store.Record {
	return store.Record{
		Filename:    r.Filename,
		Timestamp:   r.Timestamp,
		Strategy:    r.Strategy.String(),
		Brightness:  r.Brightness,
		Angle:       r.Angle,
		InferenceMS: r.InferenceMS,
		ErrorMM:     r.ErrorMM,
		Confidence:  r.Confidence,
		BBox: store.BoxRecord{
			X:        r.BBox.X,
			Y:        r.BBox.Y,
			Width:    r.BBox.Width,
			Height:   r.BBox.Height,
			WidthMM:  r.BBox.WidthMM,
			HeightMM: r.BBox.HeightMM,
		},
		Success:     r.Success,
		MMPerPixel:  r.MMPerPixel,
		RatioSource: string(r.RatioSource),
	}
}
