package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/plate-tools-mcp/internal/config"
	"github.com/ironsheep/plate-tools-mcp/internal/logging"
	"github.com/ironsheep/plate-tools-mcp/internal/pipeline"
	"github.com/ironsheep/plate-tools-mcp/internal/server"
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
			fmt.Printf("plate-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("plate-tools-mcp - MCP server for license plate reading")
			fmt.Println()
			fmt.Println("Usage: plate-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables (also read from .env):")
			fmt.Println("  PLATE_LOG_LEVEL=debug          Log level (debug, info, warn, error)")
			fmt.Println("  PLATE_OCR_LANGUAGE=eng         Tesseract language")
			fmt.Println("  PLATE_TESSDATA_PREFIX=<dir>    Tesseract traineddata directory")
			fmt.Println("  PLATE_WORKERS=9                Crop variants read in parallel")
			fmt.Println("  PLATE_VARIANT_TIMEOUT=10s      Time budget per crop variant")
			fmt.Println("  PLATE_MODEL_PATH=<file.onnx>   Bounding box model for plate_read without a box")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// A missing .env is normal; the environment is used as is
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		// Logging goes to stderr (stdout is for MCP protocol)
		logging.New("plate-mcp", "info").WithError(err).Fatal("failed to load configuration")
	}

	log := logging.New("plate-mcp", cfg.LogLevel)
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("Plate MCP Server starting")

	p, err := pipeline.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to build plate reader")
	}
	defer p.Close()

	opts := []server.Option{
		server.WithReader(p.Reader),
		server.WithOCRInfo(p.OCR),
		server.WithLogger(log),
	}
	if p.Predictor != nil {
		opts = append(opts, server.WithPredictor(p.Predictor))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(opts...)
	if err := srv.Run(ctx); err != nil {
		log.WithError(err).Error("server error")
		p.Close()
		os.Exit(1)
	}
}
