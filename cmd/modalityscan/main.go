package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"modalityscan/pkg/config"
	"modalityscan/pkg/features"
	"modalityscan/pkg/pipeline"
	"modalityscan/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Path to the image to analyze (PNG or JPEG)")
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	outDir := flag.String("out-dir", ".", "Directory for the rendered artifacts")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	flag.Parse()

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	logger := initLogger(*debugMode || cfg.Logging.Debug)
	logger.WithField("input", *inputPath).Info("Starting modality analysis")

	src, err := loadImage(*inputPath)
	if err != nil {
		logger.Fatalf("Failed to load image %s: %v", *inputPath, err)
	}

	analyzer := pipeline.New(logger, cfg.Processing.Workers)

	startTime := time.Now()
	analysis, err := analyzer.Analyze(context.Background(), src)
	if err != nil {
		logger.Fatalf("Analysis failed: %v", err)
	}

	result := analysis.Classification
	logger.WithFields(logrus.Fields{
		"modality":   string(result.Modality),
		"confidence": fmt.Sprintf("%.4f", result.Confidence),
		"elapsed":    time.Since(startTime).Round(time.Millisecond).String(),
	}).Info("Classification complete")

	featureFields := logrus.Fields{}
	for _, key := range features.Keys() {
		featureFields[key] = result.Features.Get(key)
	}
	logger.WithFields(featureFields).Debug("Feature vector")

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		logger.Fatalf("Failed to create output directory: %v", err)
	}

	overlay, err := visualization.Overlay(analysis.Preprocessed, analysis.Heatmap)
	if err != nil {
		logger.Fatalf("Failed to compose overlay: %v", err)
	}

	artifacts := []struct {
		name string
		save func(path string) error
	}{
		{cfg.Output.PreprocessedFile, func(p string) error { return visualization.SavePNG(analysis.Preprocessed, p) }},
		{cfg.Output.HeatmapFile, func(p string) error { return visualization.SavePNG(analysis.Heatmap, p) }},
		{cfg.Output.OverlayFile, func(p string) error { return visualization.SavePNG(overlay, p) }},
	}
	for _, artifact := range artifacts {
		path := filepath.Join(*outDir, artifact.name)
		if err := artifact.save(path); err != nil {
			logger.Fatalf("Failed to save %s: %v", artifact.name, err)
		}
		logger.WithField("path", path).Info("Artifact written")
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

// loadImage decodes a PNG or JPEG file via the stdlib image registry.
func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, err
	}
	return img, nil
}
