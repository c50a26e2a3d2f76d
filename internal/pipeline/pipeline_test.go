package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"testing"

	"medcapture/internal/camera"
	"medcapture/internal/codec"
	"medcapture/internal/frame"
	"medcapture/internal/frame/frametest"
	"medcapture/internal/quality"
)

type recordingNotifier struct {
	reports []quality.Report
}

func (n *recordingNotifier) Notify(r quality.Report) {
	n.reports = append(n.reports, r)
}

type failingEncoder struct{}

func (failingEncoder) Compress(frame.Frame, codec.Options) (codec.Encoded, error) {
	return codec.Encoded{}, &codec.EncodingError{Op: "encode", Err: errors.New("disk full")}
}

func (failingEncoder) EncodeSource(frame.Frame, float64) (codec.Encoded, error) {
	return codec.Encoded{}, &codec.EncodingError{Op: "encode", Err: errors.New("disk full")}
}

func newTestPipeline(n Notifier) *Pipeline {
	return New(DefaultConfig(), codec.NewNative(nil), nil, WithNotifier(n))
}

func TestCaptureAndProcessGoodFrame(t *testing.T) {
	n := &recordingNotifier{}
	p := newTestPipeline(n)

	res, err := p.CaptureAndProcess(context.Background(), frametest.Checkerboard(1000, 600))
	if err != nil {
		t.Fatalf("CaptureAndProcess failed: %v", err)
	}

	if !res.Proceeded {
		t.Error("good frame did not proceed")
	}
	if res.Advisory != nil {
		t.Errorf("good frame has advisory %+v", res.Advisory)
	}
	if !res.Quality.IsGood {
		t.Errorf("checkerboard judged poor: %+v", res.Quality)
	}
	if len(n.reports) != 0 {
		t.Errorf("notifier called %d times for a good frame", len(n.reports))
	}

	if res.Original.Width != 1000 || res.Original.Height != 600 {
		t.Errorf("original = %dx%d, want 1000x600", res.Original.Width, res.Original.Height)
	}
	if res.Compressed.Width != 800 || res.Compressed.Height != 480 {
		t.Errorf("compressed = %dx%d, want 800x480", res.Compressed.Width, res.Compressed.Height)
	}
	if res.Compressed.Size != len(res.Compressed.Data) || res.Original.Size != len(res.Original.Data) {
		t.Error("Size does not match encoded length")
	}
}

func TestCaptureAndProcessPoorFrameProceeds(t *testing.T) {
	n := &recordingNotifier{}
	p := newTestPipeline(n)

	res, err := p.CaptureAndProcess(context.Background(), frametest.Uniform(320, 240, 20, 20, 20))
	if err != nil {
		t.Fatalf("CaptureAndProcess failed: %v", err)
	}

	if !res.Proceeded {
		t.Fatal("poor frame did not proceed")
	}
	if res.Advisory == nil {
		t.Fatal("poor frame has no advisory")
	}
	if *res.Advisory != res.Quality {
		t.Errorf("advisory %+v differs from quality %+v", *res.Advisory, res.Quality)
	}
	if res.Advisory.Suggestion.Text != quality.TextTooDim {
		t.Errorf("suggestion = %q, want %q", res.Advisory.Suggestion.Text, quality.TextTooDim)
	}
	if len(n.reports) != 1 {
		t.Fatalf("notifier called %d times, want 1", len(n.reports))
	}
	if res.Compressed.Size == 0 || res.Original.Size == 0 {
		t.Error("poor frame was not encoded")
	}
	// 320 is under the width limit.
	if res.Compressed.Width != 320 || res.Compressed.Height != 240 {
		t.Errorf("compressed = %dx%d, want 320x240", res.Compressed.Width, res.Compressed.Height)
	}
}

func TestCaptureAndProcessErrors(t *testing.T) {
	t.Run("invalid frame", func(t *testing.T) {
		n := &recordingNotifier{}
		p := newTestPipeline(n)

		_, err := p.CaptureAndProcess(context.Background(), frame.New(2, 2, make([]byte, 3)))
		if !frame.IsInvalid(err) {
			t.Fatalf("error = %v, want InvalidFrameError", err)
		}
		if len(n.reports) != 0 {
			t.Error("notifier called for invalid frame")
		}
	})

	t.Run("encoder failure", func(t *testing.T) {
		p := New(DefaultConfig(), failingEncoder{}, nil)

		_, err := p.CaptureAndProcess(context.Background(), frametest.Checkerboard(8, 8))
		var encErr *codec.EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("error = %v, want EncodingError", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		p := newTestPipeline(&recordingNotifier{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.CaptureAndProcess(ctx, frametest.Checkerboard(8, 8))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
	})
}

func TestProcessEncoded(t *testing.T) {
	p := newTestPipeline(&recordingNotifier{})

	var buf bytes.Buffer
	if err := png.Encode(&buf, frametest.Checkerboard(64, 48).Image()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}

	res, err := p.ProcessEncoded(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("ProcessEncoded failed: %v", err)
	}
	if res.Original.Width != 64 || res.Original.Height != 48 {
		t.Errorf("original = %dx%d, want 64x48", res.Original.Width, res.Original.Height)
	}

	_, err = p.ProcessEncoded(context.Background(), []byte("not an image"))
	if !frame.IsInvalid(err) {
		t.Fatalf("garbage upload error = %v, want InvalidFrameError", err)
	}
}

type fixedDevice struct{ f frame.Frame }

func (d fixedDevice) Read() (frame.Frame, error) { return d.f, nil }
func (d fixedDevice) Close() error               { return nil }

func TestCaptureFromSession(t *testing.T) {
	p := newTestPipeline(&recordingNotifier{})
	open := func(int, camera.Config) (camera.Device, error) {
		return fixedDevice{f: frametest.Checkerboard(40, 30)}, nil
	}
	session := camera.NewSession(camera.DefaultConfig(), open, nil)

	if _, err := p.CaptureFrom(context.Background(), session); !errors.Is(err, camera.ErrNotStarted) {
		t.Fatalf("CaptureFrom stopped session = %v, want ErrNotStarted", err)
	}

	if err := session.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer session.Stop()

	res, err := p.CaptureFrom(context.Background(), session)
	if err != nil {
		t.Fatalf("CaptureFrom failed: %v", err)
	}
	if res.Original.Width != 40 || res.Original.Height != 30 {
		t.Errorf("original = %dx%d, want 40x30", res.Original.Width, res.Original.Height)
	}
}

func TestTimings(t *testing.T) {
	p := newTestPipeline(&recordingNotifier{})
	var buf bytes.Buffer
	if err := png.Encode(&buf, frametest.Checkerboard(16, 16).Image()); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	if _, err := p.ProcessEncoded(context.Background(), buf.Bytes()); err != nil {
		t.Fatalf("ProcessEncoded failed: %v", err)
	}

	timings := p.Timings()
	for _, stage := range []string{StageDecode, StageAnalyze, StageOriginal, StageCompress} {
		if _, ok := timings[stage]; !ok {
			t.Errorf("no timing for stage %q", stage)
		}
	}
}

func TestResultSavings(t *testing.T) {
	r := &Result{
		Original:   codec.Encoded{Size: 1000},
		Compressed: codec.Encoded{Size: 250},
	}
	if got := r.Savings(); got != 0.75 {
		t.Errorf("Savings = %v, want 0.75", got)
	}
	if got := (&Result{}).Savings(); got != 0 {
		t.Errorf("Savings of empty result = %v, want 0", got)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero width", func(c *Config) { c.MaxWidth = 0 }},
		{"quality above one", func(c *Config) { c.Quality = 1.5 }},
		{"zero source quality", func(c *Config) { c.SourceQuality = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected error")
			}
		})
	}
}
