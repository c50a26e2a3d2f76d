// Package pipeline runs a captured frame through the quality check and the
// two encodings that get uploaded.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"medcapture/internal/codec"
	"medcapture/internal/debug/timing"
	"medcapture/internal/frame"
	"medcapture/internal/logger"
	"medcapture/internal/quality"
)

// Stage names used with the timing tracker.
const (
	StageDecode   = "decode"
	StageAnalyze  = "analyze"
	StageOriginal = "encode_original"
	StageCompress = "compress"
)

// Config sets the encoding parameters.
type Config struct {
	MaxWidth      int     `yaml:"max_width"`
	Quality       float64 `yaml:"quality"`
	SourceQuality float64 `yaml:"source_quality"`
}

func DefaultConfig() Config {
	return Config{
		MaxWidth:      codec.DefaultMaxWidth,
		Quality:       codec.DefaultQuality,
		SourceQuality: codec.SourceQuality,
	}
}

func (c Config) Validate() error {
	if c.MaxWidth <= 0 {
		return fmt.Errorf("pipeline: max width must be positive, got %d", c.MaxWidth)
	}
	if c.Quality <= 0 || c.Quality > 1 {
		return fmt.Errorf("pipeline: quality must be in (0,1], got %v", c.Quality)
	}
	if c.SourceQuality <= 0 || c.SourceQuality > 1 {
		return fmt.Errorf("pipeline: source quality must be in (0,1], got %v", c.SourceQuality)
	}
	return nil
}

// Result is what a capture produces. Proceeded is true for every
// structurally valid frame; Advisory carries the report when the frame
// failed the quality check and is nil otherwise.
type Result struct {
	Original   codec.Encoded   `json:"original"`
	Compressed codec.Encoded   `json:"compressed"`
	Quality    quality.Report  `json:"quality"`
	Proceeded  bool            `json:"proceeded"`
	Advisory   *quality.Report `json:"advisory,omitempty"`
}

// Savings is the fraction of bytes saved by compression, in [0,1] for the
// usual case and negative if compression grew the image.
func (r *Result) Savings() float64 {
	if r.Original.Size == 0 {
		return 0
	}
	return 1 - float64(r.Compressed.Size)/float64(r.Original.Size)
}

// Pipeline holds no per-capture state and may be used concurrently.
type Pipeline struct {
	cfg      Config
	encoder  Encoder
	decode   Decoder
	notifier Notifier
	tracker  *timing.Tracker
	logger   logger.Logger
}

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithNotifier replaces the default notifier, which logs a warning.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithDecoder replaces the standard library decoder.
func WithDecoder(d Decoder) Option {
	return func(p *Pipeline) { p.decode = d }
}

// WithTracker shares a timing tracker, for example with the HTTP server.
func WithTracker(t *timing.Tracker) Option {
	return func(p *Pipeline) { p.tracker = t }
}

func New(cfg Config, encoder Encoder, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	p := &Pipeline{
		cfg:     cfg,
		encoder: encoder,
		decode:  decodeStd,
		logger:  log,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = logNotifier{log: log}
	}
	if p.tracker == nil {
		p.tracker = timing.NewTracker(timing.DefaultWindow, nil)
	}
	return p
}

// CaptureAndProcess checks the quality of f and produces both encodings. A
// frame that fails the quality check still proceeds; only a malformed frame
// or an encoder failure returns an error.
func (p *Pipeline) CaptureAndProcess(ctx context.Context, f frame.Frame) (*Result, error) {
	var report quality.Report
	err := p.tracker.Time(ctx, StageAnalyze, func() (err error) {
		report, err = quality.Analyze(f)
		return err
	})
	if err != nil {
		p.logger.Error("Pipeline", err, map[string]interface{}{"frame": f.String()})
		return nil, err
	}

	res := &Result{Quality: report, Proceeded: true}
	if !report.IsGood {
		advisory := report
		res.Advisory = &advisory
		p.notifier.Notify(advisory)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = p.tracker.Time(ctx, StageOriginal, func() (err error) {
		res.Original, err = p.encoder.EncodeSource(f, p.cfg.SourceQuality)
		return err
	})
	if err != nil {
		p.logger.Error("Pipeline", err, map[string]interface{}{"stage": StageOriginal})
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err = p.tracker.Time(ctx, StageCompress, func() (err error) {
		res.Compressed, err = p.encoder.Compress(f, codec.Options{MaxWidth: p.cfg.MaxWidth, Quality: p.cfg.Quality})
		return err
	})
	if err != nil {
		p.logger.Error("Pipeline", err, map[string]interface{}{"stage": StageCompress})
		return nil, err
	}

	p.logger.Info("Pipeline", "capture processed", map[string]interface{}{
		"width":         f.Width,
		"height":        f.Height,
		"overall":       report.Overall,
		"is_good":       report.IsGood,
		"original_kb":   kb(res.Original.Size),
		"compressed_kb": kb(res.Compressed.Size),
		"saving_pct":    int(res.Savings()*100 + 0.5),
	})
	return res, nil
}

// ProcessEncoded decodes an uploaded image and processes it.
func (p *Pipeline) ProcessEncoded(ctx context.Context, data []byte) (*Result, error) {
	var f frame.Frame
	err := p.tracker.Time(ctx, StageDecode, func() (err error) {
		f, err = p.decode(data)
		return err
	})
	if err != nil {
		p.logger.Warning("Pipeline", "upload could not be decoded", map[string]interface{}{
			"bytes": len(data),
			"error": err.Error(),
		})
		return nil, err
	}
	return p.CaptureAndProcess(ctx, f)
}

// CaptureFrom grabs a frame from src, typically the caller's camera
// session, and processes it.
func (p *Pipeline) CaptureFrom(ctx context.Context, src FrameSource) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := src.Capture()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	return p.CaptureAndProcess(ctx, f)
}

// Timings returns the average duration of each stage.
func (p *Pipeline) Timings() map[string]time.Duration {
	return p.tracker.Averages()
}

func (p *Pipeline) Config() Config {
	return p.cfg
}

func decodeStd(data []byte) (frame.Frame, error) {
	f, _, err := frame.Decode(data)
	return f, err
}

func kb(n int) float64 {
	return float64(n*10/1024) / 10
}

type logNotifier struct {
	log logger.Logger
}

func (n logNotifier) Notify(r quality.Report) {
	n.log.Warning("Pipeline", "capture quality is poor", map[string]interface{}{
		"brightness": r.Brightness,
		"contrast":   r.Contrast,
		"clarity":    r.Clarity,
		"suggestion": r.Suggestion.Text,
	})
}
