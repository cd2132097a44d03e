package evaluation

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Export file names inside the output directory.
const (
	MetricsCSVFile  = "metrics.csv"
	SummaryJSONFile = "evaluation_summary.json"
	SummaryYAMLFile = "evaluation_summary.yaml"
)

var csvHeader = []string{
	"mode",
	"total_images",
	"success_count",
	"success_rate",
	"avg_inference_time_ms",
	"avg_error_mm",
	"std_error_mm",
	"min_error_mm",
	"max_error_mm",
	"avg_confidence",
}

// Summary is the persisted outcome of a folder evaluation.
type Summary struct {
	Folder      string             `json:"folder" yaml:"folder"`
	TotalImages int                `json:"total_images" yaml:"total_images"`
	GeneratedAt time.Time          `json:"generated_at" yaml:"generated_at"`
	Modes       map[string]Metrics `json:"modes" yaml:"modes"`
	Best        Best               `json:"best" yaml:"best"`
}

// NewSummary keys the comparison's metrics by strategy name.
func NewSummary(folder string, totalImages int, c *Comparison, at time.Time) *Summary {
	s := &Summary{
		Folder:      folder,
		TotalImages: totalImages,
		GeneratedAt: at.UTC(),
		Modes:       make(map[string]Metrics, len(c.Metrics)),
		Best:        c.Best,
	}
	for _, m := range c.Metrics {
		s.Modes[m.Strategy.String()] = m
	}
	return s
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteCSV writes one row per strategy under a header row.
func WriteCSV(w io.Writer, metrics []Metrics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, m := range metrics {
		row := []string{
			m.Strategy.String(),
			strconv.Itoa(m.TotalImages),
			strconv.Itoa(m.SuccessCount),
			formatFloat(m.SuccessRate),
			formatFloat(m.AvgInferenceMS),
			formatFloat(m.AvgErrorMM),
			formatFloat(m.StdErrorMM),
			formatFloat(m.MinErrorMM),
			formatFloat(m.MaxErrorMM),
			formatFloat(m.AvgConfidence),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write csv row %s", m.Strategy)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

// WriteTable renders the comparison as an aligned text table followed by the
// winners.
func WriteTable(w io.Writer, c *Comparison) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODE\tIMAGES\tSUCCESS\tAVG MS\tAVG ERR MM\tSTD ERR MM\tMIN\tMAX\tAVG CONF")
	for _, m := range c.Metrics {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\t%.1f\t%.2f\t%.2f\t%.2f\t%.2f\t%.3f\n",
			m.Strategy, m.TotalImages, m.SuccessRate*100, m.AvgInferenceMS,
			m.AvgErrorMM, m.StdErrorMM, m.MinErrorMM, m.MaxErrorMM, m.AvgConfidence)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nBest accuracy: %s\nBest speed:    %s\nBest success:  %s\n",
		c.Best.Accuracy, c.Best.Speed, c.Best.SuccessRate)
	return err
}

// WriteExports writes metrics.csv, evaluation_summary.json and
// evaluation_summary.yaml into dir, creating it if needed.
func WriteExports(dir string, c *Comparison, s *Summary) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	f, err := os.Create(filepath.Join(dir, MetricsCSVFile))
	if err != nil {
		return errors.Wrap(err, "create metrics csv")
	}
	if err := WriteCSV(f, c.Metrics); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close metrics csv")
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json summary")
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryJSONFile), data, 0644); err != nil {
		return errors.Wrap(err, "write json summary")
	}

	data, err = yaml.Marshal(s)
	if err != nil {
		return errors.Wrap(err, "encode yaml summary")
	}
	if err := os.WriteFile(filepath.Join(dir, SummaryYAMLFile), data, 0644); err != nil {
		return errors.Wrap(err, "write yaml summary")
	}
	return nil
}
