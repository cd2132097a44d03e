package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/bento-measure-mcp/internal/app"
	"github.com/ironsheep/bento-measure-mcp/internal/config"
	"github.com/ironsheep/bento-measure-mcp/internal/engine"
	"github.com/ironsheep/bento-measure-mcp/internal/evaluation"
	"github.com/ironsheep/bento-measure-mcp/internal/logging"
)

// Version information - set by ldflags during build
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	folder := flag.String("folder", "", "folder of .jpg, .jpeg, .png or .bmp images (required)")
	truthPath := flag.String("ground-truth", "", "JSON or YAML file mapping file names to width_mm and height_mm")
	outDir := flag.String("out", cfg.OutputDir, "directory for metrics.csv and the evaluation summaries; empty skips writing")
	mode := flag.String("mode", "", "evaluate a single strategy (classical, learned, fused) instead of comparing all")
	threshold := flag.Float64("threshold", cfg.Threshold, "learned detector confidence threshold")
	workers := flag.Int("workers", cfg.Workers, "concurrent detections")
	verbose := flag.Bool("v", false, "debug logging")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("bento-eval %s\n", Version)
		return
	}
	if *folder == "" {
		fmt.Fprintln(os.Stderr, "bento-eval: -folder is required")
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	log, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		os.Exit(1)
	}

	var truth evaluation.GroundTruth
	if *truthPath != "" {
		if truth, err = evaluation.LoadGroundTruth(*truthPath); err != nil {
			log.WithError(err).Fatal("Failed to load ground truth")
		}
		log.WithField("images", len(truth)).Info("Ground truth loaded")
	} else {
		log.Warn("No ground truth given, error metrics will be empty")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build engine")
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ev := evaluation.New(a.Engine, truth, evaluation.Options{Workers: *workers, Threshold: *threshold, Cache: a.Cache}, log)

	if err := run(ctx, ev, *folder, *outDir, *mode); err != nil {
		log.WithError(err).Error("Evaluation failed")
		a.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, ev *evaluation.Evaluator, folder, outDir, mode string) error {
	if mode != "" {
		strategy, err := engine.ParseStrategy(mode)
		if err != nil {
			return err
		}
		paths, err := evaluation.CollectImages(folder)
		if err != nil {
			return err
		}
		m, _ := ev.EvaluateStrategy(ctx, paths, strategy)
		if err := ctx.Err(); err != nil {
			return err
		}
		c := &evaluation.Comparison{Metrics: []evaluation.Metrics{m}, Best: evaluation.PickBest([]evaluation.Metrics{m})}
		return evaluation.WriteTable(os.Stdout, c)
	}

	c, _, err := ev.EvaluateFolder(ctx, folder, outDir)
	if err != nil {
		return err
	}
	if err := evaluation.WriteTable(os.Stdout, c); err != nil {
		return err
	}
	if outDir != "" {
		fmt.Printf("\nResults written to %s\n", outDir)
	}
	return nil
}
