package frame

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   Frame
		wantErr bool
	}{
		{"valid 2x1", New(2, 1, make([]byte, 8)), false},
		{"zero width", New(0, 4, nil), true},
		{"negative height", New(4, -1, nil), true},
		{"short buffer", New(2, 2, make([]byte, 15)), true},
		{"long buffer", New(2, 2, make([]byte, 17)), true},
		{"overflowing dimensions", New(1<<31, 1<<31, nil), true},
		{"overflowing width", New(math.MaxInt, 1, nil), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !IsInvalid(err) {
				t.Errorf("expected InvalidFrameError, got %T", err)
			}
		})
	}
}

func TestDecodePNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(0, 0, color.RGBA{R: 200, G: 10, B: 20, A: 255})
	src.Set(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}

	f, format, err := Decode(buf.Bytes())
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("size = %dx%d, want 3x2", f.Width, f.Height)
	}
	if got := f.Pix[0:4]; !bytes.Equal(got, []byte{200, 10, 20, 255}) {
		t.Errorf("pixel (0,0) = %v", got)
	}
	last := len(f.Pix) - 4
	if got := f.Pix[last:]; !bytes.Equal(got, []byte{1, 2, 3, 255}) {
		t.Errorf("pixel (2,1) = %v", got)
	}
}

func TestDecodeGarbage(t *testing.T) {
	_, _, err := Decode([]byte("not an image"))
	var invalid *InvalidFrameError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidFrameError, got %v", err)
	}
	if invalid.Err == nil {
		t.Error("expected decoder error to be wrapped")
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, _, err := Decode(nil); !IsInvalid(err) {
		t.Fatalf("expected InvalidFrameError, got %v", err)
	}
}

func TestFromImageCopies(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.Pix[0] = 42

	f := FromImage(src)
	src.Pix[0] = 7

	if f.Pix[0] != 42 {
		t.Errorf("frame shares memory with source image")
	}
}

func TestImageSharesPix(t *testing.T) {
	f := New(2, 2, make([]byte, 16))
	img := f.Image()

	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if &img.Pix[0] != &f.Pix[0] {
		t.Error("Image() copied the buffer")
	}
}
