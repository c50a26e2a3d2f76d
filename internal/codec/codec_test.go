package codec

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"testing"

	"medcapture/internal/frame"
	"medcapture/internal/frame/frametest"
)

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name         string
		w, h, maxW   int
		wantW, wantH int
	}{
		{"landscape halves", 1600, 1200, 800, 800, 600},
		{"no upscale", 100, 100, 2000, 100, 100},
		{"exact width", 800, 600, 800, 800, 600},
		{"fraction dropped", 801, 600, 800, 800, 599},
		{"collapses to zero", 10000, 1, 800, 800, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.w, tt.h, tt.maxW)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("TargetSize(%d, %d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.maxW, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestJPEGQuality(t *testing.T) {
	tests := map[float64]int{0.7: 70, 0.9: 90, 1: 100, 0.001: 1, 0.554: 55}
	for in, want := range tests {
		if got := JPEGQuality(in); got != want {
			t.Errorf("JPEGQuality(%v) = %d, want %d", in, got, want)
		}
	}
}

func decodeSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestCompressDownscales(t *testing.T) {
	c := NewNative(nil)
	f := frametest.Gradient(1600, 1200)

	enc, err := c.Compress(f, Options{MaxWidth: 800, Quality: 0.7})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if enc.Width != 800 || enc.Height != 600 {
		t.Errorf("reported size = %dx%d, want 800x600", enc.Width, enc.Height)
	}
	if w, h := decodeSize(t, enc.Data); w != 800 || h != 600 {
		t.Errorf("decoded size = %dx%d, want 800x600", w, h)
	}
	if enc.Size != len(enc.Data) {
		t.Errorf("size = %d, len(data) = %d", enc.Size, len(enc.Data))
	}
	if enc.MIMEType != "image/jpeg" {
		t.Errorf("mime type = %q", enc.MIMEType)
	}
}

func TestCompressNeverUpscales(t *testing.T) {
	c := NewNative(nil)

	enc, err := c.Compress(frametest.Gradient(100, 100), Options{MaxWidth: 2000, Quality: 0.7})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if w, h := decodeSize(t, enc.Data); w > 100 || h > 100 {
		t.Errorf("decoded size = %dx%d, want at most 100x100", w, h)
	}
}

func TestCompressDefaults(t *testing.T) {
	c := NewNative(nil)

	enc, err := c.Compress(frametest.Gradient(1000, 500), Options{})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if enc.Width != DefaultMaxWidth || enc.Height != 400 {
		t.Errorf("size = %dx%d, want 800x400", enc.Width, enc.Height)
	}
}

func TestCompressSmallerThanSourceEncode(t *testing.T) {
	c := NewNative(nil)
	f := frametest.Gradient(1600, 1200)

	full, err := c.EncodeSource(f, 0.7)
	if err != nil {
		t.Fatalf("EncodeSource failed: %v", err)
	}
	small, err := c.Compress(f, Options{MaxWidth: 800, Quality: 0.7})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if small.Size > full.Size {
		t.Errorf("compressed %d bytes > full-size %d bytes", small.Size, full.Size)
	}
}

func TestCompressDoesNotMutate(t *testing.T) {
	c := NewNative(nil)
	f := frametest.Checkerboard(64, 32)
	snapshot := bytes.Clone(f.Pix)

	if _, err := c.Compress(f, Options{MaxWidth: 16}); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !bytes.Equal(f.Pix, snapshot) {
		t.Error("Compress mutated the frame")
	}
}

func TestCompressErrors(t *testing.T) {
	c := NewNative(nil)

	t.Run("invalid frame checked first", func(t *testing.T) {
		_, err := c.Compress(frame.New(0, 10, nil), Options{})
		if !frame.IsInvalid(err) {
			t.Fatalf("expected InvalidFrameError, got %v", err)
		}
	})

	t.Run("overflowing dimensions", func(t *testing.T) {
		_, err := c.Compress(frame.New(1<<31, 1<<31, nil), Options{})
		if !frame.IsInvalid(err) {
			t.Fatalf("expected InvalidFrameError, got %v", err)
		}
	})

	t.Run("zero target height", func(t *testing.T) {
		_, err := c.Compress(frametest.Uniform(10000, 1, 1, 2, 3), Options{MaxWidth: 800})
		var encErr *EncodingError
		if !errors.As(err, &encErr) {
			t.Fatalf("expected EncodingError, got %v", err)
		}
	})

	t.Run("bad options", func(t *testing.T) {
		for _, opts := range []Options{{Quality: 1.5}, {Quality: -0.1}, {MaxWidth: -1}} {
			_, err := c.Compress(frametest.Gradient(4, 4), opts)
			if !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("Compress(%+v) error = %v, want ErrInvalidOptions", opts, err)
			}
		}
	})
}

type failingResampler struct{ err error }

func (r failingResampler) Resample(frame.Frame, int, int) (image.Image, error) {
	return nil, r.err
}

type failingEncoder struct{ err error }

func (e failingEncoder) Encode(image.Image, int) ([]byte, error) { return nil, e.err }
func (failingEncoder) MIMEType() string { return "image/jpeg" }

func TestCompressBackendFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("resample", func(t *testing.T) {
		c := NewCompressor(failingResampler{boom}, JPEGEncoder{}, nil)
		_, err := c.Compress(frametest.Gradient(1600, 1200), Options{})
		var encErr *EncodingError
		if !errors.As(err, &encErr) || encErr.Op != "resample" {
			t.Fatalf("expected resample EncodingError, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Error("EncodingError does not unwrap to the cause")
		}
	})

	t.Run("encode", func(t *testing.T) {
		c := NewCompressor(NewBilinearResampler(), failingEncoder{boom}, nil)
		_, err := c.EncodeSource(frametest.Gradient(8, 8), SourceQuality)
		var encErr *EncodingError
		if !errors.As(err, &encErr) || encErr.Op != "encode" {
			t.Fatalf("expected encode EncodingError, got %v", err)
		}
	})
}

func TestEncodeSourceKeepsSize(t *testing.T) {
	c := NewNative(nil)

	enc, err := c.EncodeSource(frametest.Gradient(1280, 720), SourceQuality)
	if err != nil {
		t.Fatalf("EncodeSource failed: %v", err)
	}
	if w, h := decodeSize(t, enc.Data); w != 1280 || h != 720 {
		t.Errorf("decoded size = %dx%d, want 1280x720", w, h)
	}
}
