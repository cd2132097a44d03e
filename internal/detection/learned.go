package detection

import (
	"context"
	"image"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrDetectorUnavailable is returned when no learned model could be loaded.
	ErrDetectorUnavailable = errors.New("learned detector unavailable")

	// ErrBackendUnavailable is returned by constructors for backends that were
	// not compiled into this binary.
	ErrBackendUnavailable = errors.New("detector backend not built into this binary")
)

// Candidate is one scored box returned by a learned detector.
type Candidate struct {
	Box        Box     `json:"box"`
	Confidence float64 `json:"confidence"`
}

// LearnedDetector runs an object-detection model.
//
// Detect returns every candidate whose confidence is at least threshold, in
// image pixel coordinates. An empty slice is a valid answer.
type LearnedDetector interface {
	Detect(ctx context.Context, img image.Image, threshold float64) ([]Candidate, error)
	Close() error
}

// rawBox is a float corner-format box before it is snapped to pixels.
type rawBox struct {
	x1, y1, x2, y2 float64
	score          float64
}

func (r rawBox) area() float64 {
	return max(0, r.x2-r.x1) * max(0, r.y2-r.y1)
}

func iou(a, b rawBox) float64 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	inter := max(0, ix2-ix1) * max(0, iy2-iy1)
	return inter / (a.area() + b.area() - inter + 1e-6)
}

// nonMaxSuppression keeps the highest scoring boxes, dropping any box whose
// IoU with an already kept box exceeds iouThreshold.
func nonMaxSuppression(boxes []rawBox, iouThreshold float64) []rawBox {
	if len(boxes) == 0 {
		return boxes
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].score > boxes[j].score
	})

	keep := make([]rawBox, 0, len(boxes))
	for _, current := range boxes {
		suppressed := false
		for _, k := range keep {
			if iou(current, k) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			keep = append(keep, current)
		}
	}
	return keep
}

// toCandidate snaps a corner-format box to integer pixels, truncating like an
// int cast, and clips it to bounds. ok is false when nothing is left.
func toCandidate(r rawBox, bounds image.Rectangle) (Candidate, bool) {
	x, y := int(r.x1), int(r.y1)
	b := Box{X: x, Y: y, Width: int(r.x2) - x, Height: int(r.y2) - y}
	if b.Width <= 0 || b.Height <= 0 {
		return Candidate{}, false
	}
	b = b.Clip(bounds)
	if b.Width <= 0 || b.Height <= 0 {
		return Candidate{}, false
	}
	return Candidate{Box: b, Confidence: r.score}, true
}
