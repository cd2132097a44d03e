package engine

import (
	"context"
	"image"
	"math"
	"path/filepath"
	"time"

	"github.com/ironsheep/bento-measure-mcp/internal/calibration"
	"github.com/ironsheep/bento-measure-mcp/internal/detection"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/ironsheep/bento-measure-mcp/internal/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config wires an Engine to its collaborators. Only Classical is required.
type Config struct {
	Classical detection.ClassicalDetector
	// Learned may be nil; the learned strategy then reports no detection and
	// the fused strategy degrades to classical.
	Learned detection.LearnedDetector
	// Calibrator is used when Options.AutoCalibrate is set.
	Calibrator *calibration.Calibrator
	// Store receives one record per Detect call. Nil disables persistence.
	Store store.Store
	// Cache decodes Request.Path inputs. Nil creates a private cache.
	Cache   *imaging.ImageCache
	Logger  logrus.FieldLogger
	Options Options
}

// Engine runs the detection strategies. It holds no per-call state and is
// safe for concurrent use as long as its detectors are.
type Engine struct {
	classical  detection.ClassicalDetector
	learned    detection.LearnedDetector
	calibrator *calibration.Calibrator
	store      store.Store
	cache      *imaging.ImageCache
	opts       Options
	log        logrus.FieldLogger
	now        func() time.Time
}

// New validates cfg and builds an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Classical == nil {
		return nil, errors.New("classical detector is required")
	}
	opts := cfg.Options
	if opts.Threshold < 0 || opts.Threshold > 1 {
		return nil, errors.Errorf("confidence threshold %v out of range [0,1]", opts.Threshold)
	}
	if opts.DefaultRatio <= 0 {
		return nil, errors.Errorf("default ratio must be positive, got %v", opts.DefaultRatio)
	}
	if err := opts.Tuning.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tuning")
	}
	if opts.AutoCalibrate && cfg.Calibrator == nil {
		return nil, errors.New("auto calibration requires a calibrator")
	}

	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	cache := cfg.Cache
	if cache == nil {
		cache = imaging.NewImageCache()
	}

	return &Engine{
		classical:  cfg.Classical,
		learned:    cfg.Learned,
		calibrator: cfg.Calibrator,
		store:      cfg.Store,
		cache:      cache,
		opts:       opts,
		log:        log,
		now:        time.Now,
	}, nil
}

// Store returns the log store, which may be nil.
func (e *Engine) Store() store.Store {
	return e.store
}

// Request is one detection call. Exactly one of Path, Data or Image supplies
// the picture; they are tried in that order.
type Request struct {
	Path  string
	Data  []byte
	Image image.Image
	// Filename labels the result; it defaults to the base name of Path.
	Filename string
	Strategy Strategy
	// Threshold overrides Options.Threshold when positive.
	Threshold float64
	// PhysicalSize is the real size of the whole frame; it sets this call's
	// ratio unless a reference card is found.
	PhysicalSize *Size
	// GroundTruth is the true object size, used for ErrorMM.
	GroundTruth *Size
	// Preview forces the classical strategy for fast live framing.
	Preview bool
}

// LoadImage decodes the picture named by req and returns it with its label.
// Decode failures match ErrImageDecode.
func (e *Engine) LoadImage(req Request) (image.Image, string, error) {
	var (
		img  image.Image
		err  error
		name = req.Filename
	)
	switch {
	case req.Path != "":
		img, err = e.cache.Load(req.Path)
		if name == "" {
			name = filepath.Base(req.Path)
		}
	case len(req.Data) > 0:
		img, err = imaging.DecodeBytes(req.Data)
	case req.Image != nil:
		img, err = imaging.Anchor(req.Image, name)
	default:
		err = &imaging.DecodeError{Source: name, Err: errors.New("no image supplied")}
	}
	if err != nil {
		return nil, "", err
	}
	if name == "" {
		name = "image"
	}
	return img, name, nil
}

// Detect runs req.Strategy on the request image.
//
// The mm per pixel ratio is resolved for this call only: the configured
// default, replaced by the physical-size hint when given, replaced by a
// reference card measurement when auto calibration is on and a card is found.
// The returned result is persisted to the store; a store failure is logged
// and does not fail the call.
func (e *Engine) Detect(ctx context.Context, req Request) (*Result, error) {
	if req.Preview {
		req.Strategy = Classical
	}
	if !req.Strategy.Valid() {
		return nil, errors.Wrapf(ErrInvalidStrategy, "value %d", int(req.Strategy))
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = e.opts.Threshold
	}
	if threshold > 1 {
		return nil, errors.Errorf("confidence threshold %v out of range [0,1]", threshold)
	}

	img, name, err := e.LoadImage(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := e.log.WithFields(logrus.Fields{"image": name, "strategy": req.Strategy})
	bounds := img.Bounds()

	ratio, source, card := e.resolveRatio(img, req.PhysicalSize, log)

	gray := imaging.ToGray(img)
	brightness := imaging.Brightness(gray)
	angle := detection.SkewAngle(gray)

	start := time.Now()
	box, confidence, err := e.dispatch(ctx, img, req.Strategy, threshold, log)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	if box.IsNone() {
		confidence = 0
	}

	result := &Result{
		Filename:    name,
		Timestamp:   e.now(),
		Strategy:    req.Strategy,
		Brightness:  brightness,
		Angle:       angle,
		InferenceMS: float64(elapsed.Microseconds()) / 1000,
		ErrorMM:     e.sizeError(box, ratio, req.GroundTruth),
		Confidence:  confidence,
		BBox: BBox{
			Box:      box,
			WidthMM:  float64(box.Width) * ratio,
			HeightMM: float64(box.Height) * ratio,
		},
		Success:     confidence >= threshold && !box.IsNone(),
		MMPerPixel:  ratio,
		RatioSource: source,
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		Card:        card,
	}

	log.WithFields(logrus.Fields{
		"box":        box,
		"confidence": confidence,
		"success":    result.Success,
		"elapsed_ms": result.InferenceMS,
	}).Info("Detection complete")

	e.persist(ctx, result, log)
	return result, nil
}

func (e *Engine) resolveRatio(img image.Image, hint *Size, log logrus.FieldLogger) (float64, RatioSource, *calibration.Ratio) {
	ratio, source := e.opts.DefaultRatio, RatioDefault

	if hint.valid() {
		b := img.Bounds()
		if r, ok := calibration.RatioFromPhysicalSize(b.Dx(), b.Dy(), hint.WidthMM, hint.HeightMM); ok {
			ratio, source = r, RatioPhysicalSize
		}
	}

	if e.opts.AutoCalibrate && e.calibrator != nil {
		if r, ok := e.calibrator.CalculateRatio(img); ok {
			log.WithFields(logrus.Fields{"ratio": r.MMPerPixel, "previous": ratio}).Info("Auto calibration succeeded")
			return r.MMPerPixel, RatioCard, &r
		}
		log.WithField("ratio", ratio).Warn("Auto calibration failed, keeping current ratio")
	}
	return ratio, source, nil
}

func (e *Engine) dispatch(ctx context.Context, img image.Image, s Strategy, threshold float64, log logrus.FieldLogger) (detection.Box, float64, error) {
	switch s {
	case Classical:
		return e.detectClassical(img)
	case Learned:
		return e.detectLearned(ctx, img, threshold, log)
	case Fused:
		return e.detectFused(ctx, img, threshold, log)
	}
	return detection.NoDetection, 0, errors.Wrapf(ErrInvalidStrategy, "value %d", int(s))
}

func (e *Engine) detectClassical(img image.Image) (detection.Box, float64, error) {
	res, err := e.classical.Detect(img)
	if err != nil {
		return detection.NoDetection, 0, errors.Wrap(err, "classical detection failed")
	}
	if res.Box.IsNone() {
		return detection.NoDetection, 0, nil
	}
	return Refine(img, res.Box, e.opts.Tuning.RefineMinFraction), res.Confidence, nil
}

func (e *Engine) detectLearned(ctx context.Context, img image.Image, threshold float64, log logrus.FieldLogger) (detection.Box, float64, error) {
	if e.learned == nil {
		log.Warn("Learned detector unavailable")
		return detection.NoDetection, 0, nil
	}

	candidates, err := e.learned.Detect(ctx, img, threshold)
	if err != nil {
		return e.learnedFailure(ctx, err, log)
	}

	var chosen detection.Candidate
	if len(candidates) > 0 {
		chosen = highestConfidence(candidates)
	} else {
		retry := e.opts.Tuning.RetryThreshold
		log.WithField("threshold", retry).Info("No learned detections, retrying at lower threshold")

		candidates, err = e.learned.Detect(ctx, img, retry)
		if err != nil {
			return e.learnedFailure(ctx, err, log)
		}
		if len(candidates) == 0 {
			return detection.NoDetection, 0, nil
		}
		chosen = largestArea(candidates)
		log.WithFields(logrus.Fields{
			"confidence": chosen.Confidence,
			"area":       chosen.Box.Area(),
		}).Info("Low threshold detection succeeded")
	}

	return Refine(img, chosen.Box, e.opts.Tuning.RefineMinFraction), chosen.Confidence, nil
}

// learnedFailure turns a model error into no detection, except for
// cancellation which is returned to the caller.
func (e *Engine) learnedFailure(ctx context.Context, err error, log logrus.FieldLogger) (detection.Box, float64, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return detection.NoDetection, 0, ctxErr
	}
	log.WithError(err).Error("Learned inference failed")
	return detection.NoDetection, 0, nil
}

func (e *Engine) detectFused(ctx context.Context, img image.Image, threshold float64, log logrus.FieldLogger) (detection.Box, float64, error) {
	t := e.opts.Tuning

	learnedBox, learnedConf, err := e.detectLearned(ctx, img, threshold, log)
	if err != nil {
		return detection.NoDetection, 0, err
	}
	if learnedConf < t.FusionMinConfidence || learnedBox.IsNone() {
		log.WithField("learned_confidence", learnedConf).Info("Learned proposal too weak, using classical on full image")
		return e.detectClassical(img)
	}

	roi := learnedBox.Expand(t.ROIMargin, img.Bounds())
	crop := imaging.CropRect(img, roi.Rect())
	if roi.IsNone() || crop == nil {
		log.Warn("Empty region of interest, using classical on full image")
		return e.detectClassical(img)
	}

	classicalBox, _, err := e.detectClassical(crop)
	if err != nil {
		return detection.NoDetection, 0, err
	}
	if classicalBox.IsNone() {
		log.Warn("Classical refinement found nothing, keeping learned box")
		return learnedBox, learnedConf, nil
	}

	refined := classicalBox.Translate(roi.X, roi.Y)
	q := qualityFactor(refined.Area(), learnedBox.Area(), t.QualityFloor)
	combined := (learnedConf*t.LearnedWeight + t.ClassicalConfidence*(1-t.LearnedWeight)) * q
	return refined, math.Max(0, math.Min(1, combined)), nil
}

// qualityFactor is min(a,b)/max(a,b), never below floor. Either area being
// zero yields floor.
func qualityFactor(a, b int, floor float64) float64 {
	if a <= 0 || b <= 0 {
		return floor
	}
	q := float64(min(a, b)) / float64(max(a, b))
	return math.Max(q, floor)
}

func highestConfidence(c []detection.Candidate) detection.Candidate {
	best := c[0]
	for _, cand := range c[1:] {
		if cand.Confidence > best.Confidence {
			best = cand
		}
	}
	return best
}

func largestArea(c []detection.Candidate) detection.Candidate {
	best := c[0]
	for _, cand := range c[1:] {
		if cand.Box.Area() > best.Box.Area() {
			best = cand
		}
	}
	return best
}

// sizeError is the Euclidean distance in mm between the detected and true
// sizes. It is 0 without ground truth and MissedDetectionError when ground
// truth exists but nothing was detected.
func (e *Engine) sizeError(box detection.Box, ratio float64, truth *Size) float64 {
	if truth == nil {
		return 0
	}
	if box.IsNone() {
		return e.opts.MissedDetectionError
	}
	dw := float64(box.Width)*ratio - truth.WidthMM
	dh := float64(box.Height)*ratio - truth.HeightMM
	return math.Hypot(dw, dh)
}

func (e *Engine) persist(ctx context.Context, r *Result, log logrus.FieldLogger) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, r.Record()); err != nil {
		log.WithError(err).Error("Failed to save detection log")
		return
	}
	log.Debug("Detection log saved")
}

// Close releases the learned detector and the store.
func (e *Engine) Close() error {
	var first error
	if e.learned != nil {
		first = e.learned.Close()
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
