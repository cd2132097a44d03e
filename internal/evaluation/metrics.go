package evaluation

import (
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metrics summarizes one strategy over a batch.
type Metrics struct {
	Strategy       engine.Strategy `json:"mode" yaml:"mode"`
	TotalImages    int             `json:"total_images" yaml:"total_images"`
	SuccessCount   int             `json:"success_count" yaml:"success_count"`
	SuccessRate    float64         `json:"success_rate" yaml:"success_rate"`
	AvgInferenceMS float64         `json:"avg_inference_time_ms" yaml:"avg_inference_time_ms"`
	AvgErrorMM     float64         `json:"avg_error_mm" yaml:"avg_error_mm"`
	StdErrorMM     float64         `json:"std_error_mm" yaml:"std_error_mm"`
	MinErrorMM     float64         `json:"min_error_mm" yaml:"min_error_mm"`
	MaxErrorMM     float64         `json:"max_error_mm" yaml:"max_error_mm"`
	AvgConfidence  float64         `json:"avg_confidence" yaml:"avg_confidence"`
	// ErrorSamples is how many images contributed to the error statistics.
	ErrorSamples int `json:"error_samples" yaml:"error_samples"`
	// FailedImages were excluded because detection returned an error.
	FailedImages int `json:"failed_images" yaml:"failed_images"`
}

// ComputeMetrics aggregates the outcomes of strategy s. Failed outcomes are
// counted in FailedImages and otherwise ignored.
func ComputeMetrics(s engine.Strategy, outcomes []Outcome) Metrics {
	m := Metrics{Strategy: s}

	var latencies, errs, confidences []float64
	for _, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			m.FailedImages++
			continue
		}
		r := o.Result
		m.TotalImages++
		if r.Success {
			m.SuccessCount++
		}
		latencies = append(latencies, r.InferenceMS)
		confidences = append(confidences, r.Confidence)
		if r.ErrorMM > 0 {
			errs = append(errs, r.ErrorMM)
		}
	}

	if m.TotalImages == 0 {
		return m
	}

	m.SuccessRate = float64(m.SuccessCount) / float64(m.TotalImages)
	m.AvgInferenceMS = stat.Mean(latencies, nil)
	m.AvgConfidence = stat.Mean(confidences, nil)

	if m.ErrorSamples = len(errs); m.ErrorSamples > 0 {
		m.AvgErrorMM, m.StdErrorMM = stat.PopMeanStdDev(errs, nil)
		m.MinErrorMM = floats.Min(errs)
		m.MaxErrorMM = floats.Max(errs)
	}
	return m
}

// Best names the winning strategy per criterion.
type Best struct {
	Accuracy    engine.Strategy `json:"accuracy" yaml:"accuracy"`
	Speed       engine.Strategy `json:"speed" yaml:"speed"`
	SuccessRate engine.Strategy `json:"success_rate" yaml:"success_rate"`
}

// PickBest chooses the lowest mean error, the lowest mean latency and the
// highest success rate. Strategies without error samples only compete on
// accuracy when none has samples, and strategies without images only compete
// on speed when none has images. Ties go to the earlier entry.
func PickBest(metrics []Metrics) Best {
	var b Best
	if len(metrics) == 0 {
		return b
	}

	b.Accuracy = argBest(metrics, func(m Metrics) bool { return m.ErrorSamples > 0 },
		func(a, c Metrics) bool { return a.AvgErrorMM < c.AvgErrorMM })
	b.Speed = argBest(metrics, func(m Metrics) bool { return m.TotalImages > 0 },
		func(a, c Metrics) bool { return a.AvgInferenceMS < c.AvgInferenceMS })
	b.SuccessRate = argBest(metrics, func(Metrics) bool { return true },
		func(a, c Metrics) bool { return a.SuccessRate > c.SuccessRate })
	return b
}

func argBest(metrics []Metrics, eligible func(Metrics) bool, better func(a, b Metrics) bool) engine.Strategy {
	pool := make([]Metrics, 0, len(metrics))
	for _, m := range metrics {
		if eligible(m) {
			pool = append(pool, m)
		}
	}
	if len(pool) == 0 {
		pool = metrics
	}

	best := pool[0]
	for _, m := range pool[1:] {
		if better(m, best) {
			best = m
		}
	}
	return best.Strategy
}
