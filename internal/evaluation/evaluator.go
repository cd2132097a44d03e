package evaluation

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/imaging"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Detector is the engine operation the evaluator drives.
type Detector interface {
	Detect(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Outcome is the per-image result of a batch run: exactly one of Result and
// Err is set.
type Outcome struct {
	Path   string
	Result *engine.Result
	Err    error
}

// Options tunes a batch run.
type Options struct {
	// Workers bounds concurrent detections. Zero uses GOMAXPROCS.
	Workers int
	// Threshold is passed to every detection; zero keeps the engine default.
	Threshold float64
	// Cache, when set, is the cache the detector decodes through. Each image
	// is evicted once measured so a batch does not pin the whole folder.
	Cache *imaging.ImageCache
}

// Evaluator runs strategies over image batches.
type Evaluator struct {
	det   Detector
	truth GroundTruth
	opts  Options
	log   logrus.FieldLogger
}

// New creates an evaluator. truth may be nil.
func New(det Detector, truth GroundTruth, opts Options, log logrus.FieldLogger) *Evaluator {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if truth == nil {
		truth = GroundTruth{}
	}
	return &Evaluator{det: det, truth: truth, opts: opts, log: log}
}

type job struct {
	index int
	path  string
}

// Run detects every image with strategy s. The outcome slice has one entry
// per path, in input order. Failures are logged and recorded on the outcome;
// they never stop the batch. A canceled context marks the remaining images
// as failed.
func (e *Evaluator) Run(ctx context.Context, paths []string, s engine.Strategy) []Outcome {
	outcomes := make([]Outcome, len(paths))
	jobs := make(chan job)

	var wg sync.WaitGroup
	for i := 0; i < min(e.opts.Workers, max(1, len(paths))); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = e.detectOne(ctx, j.path, s)
			}
		}()
	}

	for i, p := range paths {
		jobs <- job{index: i, path: p}
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

func (e *Evaluator) detectOne(ctx context.Context, path string, s engine.Strategy) Outcome {
	if err := ctx.Err(); err != nil {
		return Outcome{Path: path, Err: err}
	}

	req := engine.Request{Path: path, Strategy: s, Threshold: e.opts.Threshold}
	if gt, ok := e.truth[filepath.Base(path)]; ok {
		req.GroundTruth = &gt
	}

	result, err := e.det.Detect(ctx, req)
	if e.opts.Cache != nil {
		e.opts.Cache.Evict(path)
	}
	if err != nil {
		e.log.WithFields(logrus.Fields{"image": path, "strategy": s}).WithError(err).Error("Detection failed, excluding image")
		return Outcome{Path: path, Err: err}
	}
	return Outcome{Path: path, Result: result}
}

// EvaluateStrategy runs s over paths and aggregates the outcomes.
func (e *Evaluator) EvaluateStrategy(ctx context.Context, paths []string, s engine.Strategy) (Metrics, []Outcome) {
	e.log.WithFields(logrus.Fields{"strategy": s, "images": len(paths)}).Info("Evaluation started")

	outcomes := e.Run(ctx, paths, s)
	m := ComputeMetrics(s, outcomes)

	e.log.WithFields(logrus.Fields{
		"strategy":     s,
		"success_rate": m.SuccessRate,
		"avg_ms":       m.AvgInferenceMS,
		"avg_error_mm": m.AvgErrorMM,
		"failed":       m.FailedImages,
	}).Info("Evaluation complete")
	return m, outcomes
}

// Comparison holds the metrics of every strategy and the winners.
type Comparison struct {
	Metrics []Metrics `json:"metrics" yaml:"metrics"`
	Best    Best      `json:"best" yaml:"best"`
}

// CompareAll evaluates classical, learned and fused in that order.
func (e *Evaluator) CompareAll(ctx context.Context, paths []string) (*Comparison, error) {
	c := &Comparison{Metrics: make([]Metrics, 0, len(engine.Strategies))}
	for _, s := range engine.Strategies {
		m, _ := e.EvaluateStrategy(ctx, paths, s)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.Metrics = append(c.Metrics, m)
	}
	c.Best = PickBest(c.Metrics)
	return c, nil
}

// EvaluateFolder compares all strategies over the images in dir. When outDir
// is not empty the exports are written there.
func (e *Evaluator) EvaluateFolder(ctx context.Context, dir, outDir string) (*Comparison, *Summary, error) {
	paths, err := CollectImages(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, errors.Errorf("no images found in %s", dir)
	}

	c, err := e.CompareAll(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	s := NewSummary(dir, len(paths), c, time.Now())
	if outDir != "" {
		if err := WriteExports(outDir, c, s); err != nil {
			return nil, nil, err
		}
		e.log.WithField("dir", outDir).Info("Evaluation exports written")
	}
	return c, s, nil
}
