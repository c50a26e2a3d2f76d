package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"medcapture/internal/codec"
	"medcapture/internal/config"
	"medcapture/internal/debug/timing"
	"medcapture/internal/logger"
	"medcapture/internal/opencv"
	"medcapture/internal/pipeline"
)

const usage = `usage: medcapture [-config FILE] <command> [flags]

commands:
  analyze [-json] [-out DIR] FILE...   check photo quality and compress
  camera [-facing user|environment] [-out DIR]
                                       capture one frame from a camera
  serve                                run the HTTP API
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "medcapture:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("medcapture", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", os.Getenv("MEDCAPTURE_CONFIG"), "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "analyze":
		return runAnalyze(cfg, log, rest, stdout, stderr)
	case "camera":
		return runCamera(cfg, log, rest, stdout, stderr)
	case "serve":
		return runServe(cfg, log, rest, stderr)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// newPipeline wires the configured codec backend into a pipeline.
func newPipeline(cfg config.Config, log logger.Logger, tracker *timing.Tracker) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithTracker(tracker)}

	var compressor *codec.Compressor
	switch cfg.Codec {
	case config.CodecNative:
		compressor = codec.NewNative(log)
	default:
		compressor = codec.NewCompressor(opencv.NewResampler(), opencv.Encoder{}, log)
		opts = append(opts, pipeline.WithDecoder(opencv.Decode))
	}
	return pipeline.New(cfg.Pipeline, compressor, log, opts...)
}

// newTracker logs every stage duration at debug level.
func newTracker(log logger.Logger) *timing.Tracker {
	return timing.NewTracker(timing.DefaultWindow, timing.ObserverFunc(func(stage string, d time.Duration) {
		log.Debug("Timing", "stage completed", map[string]interface{}{
			"stage":       stage,
			"duration_ms": float64(d.Microseconds()) / 1000,
		})
	}))
}
