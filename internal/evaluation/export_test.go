package evaluation

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/logging"
	"gopkg.in/yaml.v3"
)

func sampleComparison() *Comparison {
	metrics := []Metrics{
		{Strategy: engine.Classical, TotalImages: 4, SuccessCount: 3, SuccessRate: 0.75, AvgInferenceMS: 40, AvgErrorMM: 2.5, ErrorSamples: 3},
		{Strategy: engine.Learned, TotalImages: 4, SuccessCount: 4, SuccessRate: 1, AvgInferenceMS: 8, AvgErrorMM: 6, ErrorSamples: 4},
		{Strategy: engine.Fused, TotalImages: 4, SuccessCount: 4, SuccessRate: 1, AvgInferenceMS: 50, AvgErrorMM: 3, ErrorSamples: 4},
	}
	return &Comparison{Metrics: metrics, Best: PickBest(metrics)}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleComparison().Metrics); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header: got %v", rows[0])
	}
	if rows[1][0] != "classical" || rows[2][0] != "learned" || rows[3][0] != "fused" {
		t.Errorf("mode column: got %s %s %s", rows[1][0], rows[2][0], rows[3][0])
	}
	if rows[1][3] != "0.7500" {
		t.Errorf("success rate: got %s, want 0.7500", rows[1][3])
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTable(&buf, sampleComparison()); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"MODE", "classical", "75.0%", "Best accuracy: classical", "Best speed:    learned"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestWriteExports(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	c := sampleComparison()
	s := NewSummary("data", 4, c, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	if err := WriteExports(dir, c, s); err != nil {
		t.Fatalf("WriteExports: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, SummaryJSONFile))
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Folder      string                     `json:"folder"`
		TotalImages int                        `json:"total_images"`
		Modes       map[string]json.RawMessage `json:"modes"`
		Best        map[string]string          `json:"best"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json summary: %v", err)
	}
	if decoded.Folder != "data" || decoded.TotalImages != 4 || len(decoded.Modes) != 3 {
		t.Errorf("json summary: got %+v", decoded)
	}
	if decoded.Best["accuracy"] != "classical" || decoded.Best["speed"] != "learned" {
		t.Errorf("json best: got %v", decoded.Best)
	}

	data, err = os.ReadFile(filepath.Join(dir, SummaryYAMLFile))
	if err != nil {
		t.Fatal(err)
	}
	var y map[string]interface{}
	if err := yaml.Unmarshal(data, &y); err != nil {
		t.Fatalf("decode yaml summary: %v", err)
	}
	if y["folder"] != "data" {
		t.Errorf("yaml folder: got %v", y["folder"])
	}

	if _, err := os.Stat(filepath.Join(dir, MetricsCSVFile)); err != nil {
		t.Errorf("metrics csv: %v", err)
	}
}

func TestEvaluateFolder(t *testing.T) {
	data := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png"} {
		writeFile(t, filepath.Join(data, name), "x")
	}
	out := filepath.Join(t.TempDir(), "results")

	det := &fakeDetector{profiles: standardProfiles()}
	ev := New(det, GroundTruth{"a.jpg": {WidthMM: 10, HeightMM: 10}}, Options{Workers: 2}, logging.Discard())

	c, s, err := ev.EvaluateFolder(context.Background(), data, out)
	if err != nil {
		t.Fatalf("EvaluateFolder: %v", err)
	}
	if s.TotalImages != 2 || len(c.Metrics) != 3 {
		t.Errorf("got %d images and %d metrics", s.TotalImages, len(c.Metrics))
	}
	if c.Metrics[0].ErrorSamples != 1 {
		t.Errorf("classical error samples: got %d, want 1", c.Metrics[0].ErrorSamples)
	}
	for _, name := range []string{MetricsCSVFile, SummaryJSONFile, SummaryYAMLFile} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}
}

func TestEvaluateFolder_NoImages(t *testing.T) {
	ev := New(&fakeDetector{}, nil, Options{}, logging.Discard())
	if _, _, err := ev.EvaluateFolder(context.Background(), t.TempDir(), ""); err == nil {
		t.Error("expected error for a folder without images")
	}
}
