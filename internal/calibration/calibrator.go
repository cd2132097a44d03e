package calibration

import (
	"image"
	"math"

	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/sirupsen/logrus"
)

// Options tunes reference card detection.
type Options struct {
	// BlurRadius is the Gaussian radius applied before Otsu binarization.
	BlurRadius float64
	// Epsilon is the polygon approximation tolerance as a fraction of the
	// contour perimeter.
	Epsilon float64
	// MinAreaFraction and MaxAreaFraction bound the candidate's bounding box
	// area relative to the image.
	MinAreaFraction float64
	MaxAreaFraction float64
	// AspectTolerance is the accepted relative deviation from the card aspect.
	AspectTolerance float64
}

// DefaultOptions returns the standard card search parameters.
func DefaultOptions() Options {
	return Options{
		BlurRadius:      1.5,
		Epsilon:         0.02,
		MinAreaFraction: 0.05,
		MaxAreaFraction: 0.5,
		AspectTolerance: 0.15,
	}
}

// Ratio is a successful calibration.
type Ratio struct {
	// MMPerPixel is the derived conversion factor.
	MMPerPixel float64 `json:"mm_per_pixel"`
	Card       string  `json:"card"`
	// Box is the detected card in image pixels.
	Box     detection.Box `json:"card_box"`
	LongPX  int           `json:"long_side_px"`
	ShortPX int           `json:"short_side_px"`
}

// Calibrator finds a reference card in an image and derives the mm per pixel
// ratio from it. It holds no per-image state and is safe for concurrent use.
type Calibrator struct {
	card Card
	opts Options
	log  logrus.FieldLogger
}

// New creates a calibrator for the named card. Unknown names fall back to
// the credit card with a warning.
func New(cardType string, opts Options, log logrus.FieldLogger) *Calibrator {
	card, ok := CardByName(cardType)
	if !ok {
		log.WithField("card", cardType).Warn("Unknown card type, using credit_card")
	}
	log.WithFields(logrus.Fields{
		"card":      card.Name,
		"width_mm":  card.WidthMM,
		"height_mm": card.HeightMM,
	}).Debug("Reference card configured")
	return &Calibrator{card: card, opts: opts, log: log}
}

// Card returns the reference card in use.
func (c *Calibrator) Card() Card {
	return c.card
}

// DetectCard returns the bounding box of the 4-vertex contour whose aspect
// ratio is closest to the card's, among those passing the size and aspect
// filters. ok is false when no candidate qualifies.
func (c *Calibrator) DetectCard(img image.Image) (detection.Box, bool) {
	bounds := img.Bounds()
	imageArea := float64(bounds.Dx() * bounds.Dy())
	if imageArea == 0 {
		return detection.NoDetection, false
	}

	binary := imaging.Binarize(imaging.Smooth(img, c.opts.BlurRadius))

	var (
		best      detection.Box
		bestScore = math.Inf(1)
		found     bool
	)
	for _, contour := range detection.FindExternalContours(binary) {
		poly := contour.Approx(c.opts.Epsilon * contour.Perimeter())
		if len(poly) != 4 {
			continue
		}

		box := poly.Bounds()
		area := float64(box.Area())
		if area < imageArea*c.opts.MinAreaFraction || area > imageArea*c.opts.MaxAreaFraction {
			continue
		}

		aspect := longShortAspect(box)
		deviation := math.Abs(aspect - c.card.Aspect)
		if deviation/c.card.Aspect >= c.opts.AspectTolerance {
			continue
		}
		if deviation < bestScore {
			best, bestScore, found = box, deviation, true
		}
	}

	if !found {
		c.log.Warn("Reference card not found")
		return detection.NoDetection, false
	}

	c.log.WithFields(logrus.Fields{
		"box":    best,
		"aspect": longShortAspect(best),
	}).Info("Reference card detected")
	// Binarize works on a zero-origin copy
	return best.Translate(bounds.Min.X, bounds.Min.Y), true
}

// CalculateRatio detects the card and averages long_mm/long_px with
// short_mm/short_px. ok is false when no card was found; callers keep their
// current ratio in that case.
func (c *Calibrator) CalculateRatio(img image.Image) (Ratio, bool) {
	box, ok := c.DetectCard(img)
	if !ok {
		return Ratio{}, false
	}

	long, short := max(box.Width, box.Height), min(box.Width, box.Height)
	ratioLong := c.card.WidthMM / float64(long)
	ratioShort := c.card.HeightMM / float64(short)
	r := Ratio{
		MMPerPixel: (ratioLong + ratioShort) / 2,
		Card:       c.card.Name,
		Box:        box,
		LongPX:     long,
		ShortPX:    short,
	}

	c.log.WithFields(logrus.Fields{
		"mm_per_pixel": r.MMPerPixel,
		"long_ratio":   ratioLong,
		"short_ratio":  ratioShort,
	}).Info("Calibration ratio calculated")
	return r, true
}

// RatioFromPhysicalSize derives mm per pixel from the known physical size of
// the whole frame: the mean of width_mm/width_px and height_mm/height_px.
// ok is false for non-positive inputs.
func RatioFromPhysicalSize(widthPX, heightPX int, widthMM, heightMM float64) (float64, bool) {
	if widthPX <= 0 || heightPX <= 0 || widthMM <= 0 || heightMM <= 0 {
		return 0, false
	}
	return (widthMM/float64(widthPX) + heightMM/float64(heightPX)) / 2, true
}

func longShortAspect(b detection.Box) float64 {
	if b.Width > b.Height {
		return float64(b.Width) / float64(b.Height)
	}
	return float64(b.Height) / float64(b.Width)
}
