package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/bento-measure-mcp/internal/app"
	"github.com/ironsheep/bento-measure-mcp/internal/config"
	"github.com/ironsheep/bento-measure-mcp/internal/logging"
	"github.com/ironsheep/bento-measure-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("bento-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("bento-mcp - MCP server for bento box detection and measurement")
			fmt.Println()
			fmt.Println("Usage: bento-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  BENTO_CONFIG=bento.yaml           YAML configuration file")
			fmt.Println("  BENTO_LOG_LEVEL=debug             debug, info, warn or error")
			fmt.Println("  BENTO_LOG_DIR=logs                Detection log directory")
			fmt.Println("  BENTO_SQLITE_PATH=bento.db        Also log detections to sqlite")
			fmt.Println("  BENTO_LEARNED_BACKEND=onnx        onnx, remote or none")
			fmt.Println("  BENTO_MODEL_PATH=model.onnx       YOLOv8 ONNX export")
			fmt.Println("  BENTO_INFERENCE_URL=http://...    Remote inference endpoint")
			fmt.Println("  BENTO_AUTO_CALIBRATE=true         Look for a reference card in every image")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client.")
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr; stdout is for the MCP protocol.
	log, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging error: %v\n", err)
		os.Exit(1)
	}
	log.WithField("version", Version).WithField("commit", GitCommit).Info("Bento MCP server starting")

	a, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to build engine")
	}
	defer a.Close()

	srv, err := server.New(server.Options{
		Engine:     a.Engine,
		Calibrator: a.Calibrator,
		Cache:      a.Cache,
		Workers:    cfg.Workers,
		Logger:     log,
		Version:    Version,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("Server error")
		a.Close()
		os.Exit(1)
	}
	log.Info("Bento MCP server stopped")
}
