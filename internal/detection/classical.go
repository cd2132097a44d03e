package detection

import (
	"image"
	"time"

	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/pkg/errors"
)

// ClassicalResult is the single best box found by a classical detector.
type ClassicalResult struct {
	Box        Box           `json:"box"`
	Confidence float64       `json:"confidence"`
	Elapsed    time.Duration `json:"elapsed"`
}

// ClassicalDetector finds the dominant rectangular object in an image.
//
// Implementations return NoDetection with zero confidence when nothing is
// found; an error is reserved for backend failures.
type ClassicalDetector interface {
	Detect(img image.Image) (ClassicalResult, error)
}

// Channel selects the intensity image the classical pipeline runs on.
type Channel string

const (
	// ChannelLuma runs on BT.601 grayscale.
	ChannelLuma Channel = "luma"
	// ChannelLab runs on the CIE Lab distance from the border color.
	ChannelLab Channel = "lab"
)

// ParseChannel validates a channel name. The empty string maps to ChannelLuma.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case "", ChannelLuma:
		return ChannelLuma, nil
	case ChannelLab:
		return ChannelLab, nil
	}
	return "", errors.Errorf("unknown contrast channel %q", s)
}

// NativeOptions tunes the pure Go classical detector.
type NativeOptions struct {
	// BlurRadius is the Gaussian radius applied before edge detection.
	BlurRadius float64
	// CannyLow and CannyHigh are the hysteresis thresholds.
	CannyLow  float64
	CannyHigh float64
	// CloseRadius is the morphological closing radius on the edge map.
	CloseRadius float64
	// Confidence is reported for every non-empty detection.
	Confidence float64
	// MinContourPoints drops contours shorter than this many boundary pixels.
	MinContourPoints int
	// Channel picks the intensity source.
	Channel Channel
	// LabMaxDistance saturates the Lab contrast map (ChannelLab only).
	LabMaxDistance float64
}

// DefaultNativeOptions mirrors the usual OpenCV pipeline: 7x7 blur,
// Canny(30, 100), 3x3 closing and a fixed confidence of 0.7.
func DefaultNativeOptions() NativeOptions {
	return NativeOptions{
		BlurRadius:       3,
		CannyLow:         30,
		CannyHigh:        100,
		CloseRadius:      1,
		Confidence:       0.7,
		MinContourPoints: 10,
		Channel:          ChannelLuma,
		LabMaxDistance:   0.5,
	}
}

// Native is the pure Go classical detector.
type Native struct {
	opts NativeOptions
}

// NewNative creates a classical detector with the given options.
func NewNative(opts NativeOptions) *Native {
	if opts.Channel == "" {
		opts.Channel = ChannelLuma
	}
	return &Native{opts: opts}
}

// Detect returns the bounding box of the largest external contour found on the
// closed Canny edge map.
func (n *Native) Detect(img image.Image) (ClassicalResult, error) {
	start := time.Now()

	var source image.Image = img
	if n.opts.Channel == ChannelLab {
		b := img.Bounds()
		border := max(1, min(b.Dx(), b.Dy())/50)
		source = imaging.LabContrast(img, imaging.BorderColor(img, border), n.opts.LabMaxDistance)
	}

	gray := imaging.Smooth(source, n.opts.BlurRadius)
	edges := imaging.Canny(gray, n.opts.CannyLow, n.opts.CannyHigh)
	edges = imaging.CloseGaps(edges, n.opts.CloseRadius)
	if imaging.CountNonZero(edges) == 0 {
		return ClassicalResult{Box: NoDetection, Elapsed: time.Since(start)}, nil
	}

	best, bestArea := -1, -1.0
	contours := FindExternalContours(edges)
	for i, c := range contours {
		if len(c) < n.opts.MinContourPoints {
			continue
		}
		if a := c.Area(); a > bestArea {
			best, bestArea = i, a
		}
	}

	if best < 0 {
		return ClassicalResult{Box: NoDetection, Elapsed: time.Since(start)}, nil
	}

	return ClassicalResult{
		Box:        contours[best].Bounds(),
		Confidence: n.opts.Confidence,
		Elapsed:    time.Since(start),
	}, nil
}
