// Package frame holds the RGBA pixel buffer that every capture flows through.
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"math"
	_ "image/gif" // registered for Decode
	_ "image/jpeg"
	_ "image/png"
)

// BytesPerPixel is the channel count of every Frame buffer (R, G, B, A).
const BytesPerPixel = 4

// Frame is a captured or decoded image laid out in raster order with a row
// stride of 4*Width. Nothing in this module writes to Pix after construction.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New wraps an existing RGBA buffer without copying it.
func New(width, height int, pix []byte) Frame {
	return Frame{Width: width, Height: height, Pix: pix}
}

// FromImage converts any image into a Frame of non-premultiplied RGBA.
// The pixel data is always copied.
func FromImage(img image.Image) Frame {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return Frame{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}
}

// Decode turns encoded image bytes (JPEG, PNG or GIF) into a Frame and
// reports the detected format. Any decoder failure is an InvalidFrameError.
func Decode(data []byte) (Frame, string, error) {
	if len(data) == 0 {
		return Frame{}, "", &InvalidFrameError{Reason: "empty image data"}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Frame{}, "", &InvalidFrameError{Reason: "decode failed", Err: err}
	}

	f := FromImage(img)
	if err := f.Validate(); err != nil {
		return Frame{}, format, err
	}
	return f, format, nil
}

// Validate checks the structural contract: non-zero dimensions and a buffer
// that holds exactly Width*Height pixels.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return f.invalid("zero-sized frame")
	}
	// Width*Height must not wrap before it is compared with the buffer.
	if f.Width > math.MaxInt/BytesPerPixel/f.Height {
		return f.invalid("dimensions overflow")
	}
	if len(f.Pix) != BytesPerPixel*f.Width*f.Height {
		return f.invalid("buffer length mismatch")
	}
	return nil
}

// PixelCount is Width*Height.
func (f Frame) PixelCount() int {
	return f.Width * f.Height
}

// Bounds mirrors image.Image for callers that only need the size.
func (f Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Image exposes the frame as an image.NRGBA sharing Pix. Callers must treat
// the result as read-only.
func (f Frame) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: BytesPerPixel * f.Width,
		Rect:   f.Bounds(),
	}
}

func (f Frame) String() string {
	return fmt.Sprintf("frame %dx%d (%d bytes)", f.Width, f.Height, len(f.Pix))
}

func (f Frame) invalid(reason string) *InvalidFrameError {
	return &InvalidFrameError{
		Width:  f.Width,
		Height: f.Height,
		Len:    len(f.Pix),
		Reason: reason,
	}
}
