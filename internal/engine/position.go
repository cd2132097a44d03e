package engine

import (
	"math"

	"github.com/ironsheep/bento-measure-mcp/internal/detection"
)

// Framing thresholds, as fractions of the frame.
const (
	minSizeRatio   = 0.15
	maxSizeRatio   = 0.7
	sideBand       = 0.35
	centerBand     = 0.15
	sizeGood       = "good"
	sizeTooSmall   = "too_small"
	sizeTooLarge   = "too_large"
	positionCenter = "center"
)

// PositionInfo describes where a box sits in its frame, for live capture
// guidance.
type PositionInfo struct {
	RelativeX  float64 `json:"relative_x"`
	RelativeY  float64 `json:"relative_y"`
	SizeRatio  float64 `json:"size_ratio"`
	Horizontal string  `json:"position_horizontal"`
	Vertical   string  `json:"position_vertical"`
	SizeStatus string  `json:"size_status"`
	Centered   bool    `json:"is_centered"`
	Optimal    bool    `json:"is_optimal"`
	Guidance   string  `json:"guidance"`
}

// Position computes framing information for box in a width x height frame.
// ok is false for the no-detection box or an empty frame.
func Position(box detection.Box, width, height int) (PositionInfo, bool) {
	if box.IsNone() || width <= 0 || height <= 0 {
		return PositionInfo{}, false
	}

	cx, cy := box.Center()
	p := PositionInfo{
		RelativeX:  cx / float64(width),
		RelativeY:  cy / float64(height),
		SizeRatio:  float64(box.Area()) / float64(width*height),
		Horizontal: positionCenter,
		Vertical:   positionCenter,
		SizeStatus: sizeGood,
	}

	switch {
	case p.RelativeX < sideBand:
		p.Horizontal = "left"
	case p.RelativeX > 1-sideBand:
		p.Horizontal = "right"
	}
	switch {
	case p.RelativeY < sideBand:
		p.Vertical = "top"
	case p.RelativeY > 1-sideBand:
		p.Vertical = "bottom"
	}
	switch {
	case p.SizeRatio < minSizeRatio:
		p.SizeStatus = sizeTooSmall
	case p.SizeRatio > maxSizeRatio:
		p.SizeStatus = sizeTooLarge
	}

	p.Centered = math.Abs(p.RelativeX-0.5) < centerBand && math.Abs(p.RelativeY-0.5) < centerBand
	p.Optimal = p.SizeStatus == sizeGood && p.Centered
	p.Guidance = guidance(p)
	return p, true
}

func guidance(p PositionInfo) string {
	if p.Optimal {
		return "hold steady"
	}
	switch p.SizeStatus {
	case sizeTooSmall:
		return "move closer"
	case sizeTooLarge:
		return "move back"
	}
	if p.Centered {
		return "hold steady"
	}

	dir := ""
	if p.Vertical != positionCenter {
		dir = p.Vertical
	}
	if p.Horizontal != positionCenter {
		if dir != "" {
			dir += " "
		}
		dir += p.Horizontal
	}
	if dir == "" {
		// inside the side bands but outside the center band
		return "center the box in the frame"
	}
	return "box is toward the " + dir + ", center it in the frame"
}
