package app

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/bento-measure-mcp/internal/config"
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.LogDir = filepath.Join(t.TempDir(), "logs")
	return cfg
}

func uniformImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{90, 90, 90, 255})
		}
	}
	return img
}

func TestNew_FileAndSQLiteStores(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLitePath = filepath.Join(t.TempDir(), "db", "detections.db")

	a, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	if _, err := a.Engine.Detect(context.Background(), engine.Request{Image: uniformImage(64, 48), Filename: "plain.png", Strategy: engine.Classical}); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	records, err := a.Engine.Store().Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(records) != 1 || records[0].Filename != "plain.png" {
		t.Errorf("records: got %+v", records)
	}
}

func TestClose_ReleasesImageCache(t *testing.T) {
	a, err := New(testConfig(t), logging.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "plain.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, uniformImage(32, 24)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := a.Engine.Detect(context.Background(), engine.Request{Path: path, Strategy: engine.Classical}); err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if a.Cache.Len() != 1 {
		t.Fatalf("cached images: got %d, want 1", a.Cache.Len())
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if a.Cache.Len() != 0 {
		t.Errorf("cached images after Close: got %d, want 0", a.Cache.Len())
	}
}

func TestNew_UnavailableLearnedBackendDegrades(t *testing.T) {
	cfg := testConfig(t)
	cfg.LearnedBackend = config.LearnedONNX
	cfg.ModelPath = ""

	a, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	res, err := a.Engine.Detect(context.Background(), engine.Request{Image: uniformImage(64, 48), Strategy: engine.Learned})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if !res.BBox.IsNone() || res.Confidence != 0 {
		t.Errorf("learned without a model: got box %+v confidence %v", res.BBox.Box, res.Confidence)
	}
}

func TestNew_RemoteBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.LearnedBackend = config.LearnedRemote
	cfg.InferenceURL = "http://127.0.0.1:1/detect"

	a, err := New(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer a.Close()

	res, err := a.Engine.Detect(context.Background(), engine.Request{Image: uniformImage(64, 48), Strategy: engine.Learned})
	if err != nil {
		t.Fatalf("unreachable inference service should not fail the call: %v", err)
	}
	if !res.BBox.IsNone() || res.Success {
		t.Errorf("got %+v, want no detection", res.BBox.Box)
	}
	if a.Calibrator.Card().Name != cfg.CardType {
		t.Errorf("calibrator card: got %s, want %s", a.Calibrator.Card().Name, cfg.CardType)
	}
}
