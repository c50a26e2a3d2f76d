package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/nfnt/resize"

	"medcapture/internal/frame"
)

// BilinearResampler scales frames in pure Go.
type BilinearResampler struct {
	interp resize.InterpolationFunction
}

func NewBilinearResampler() *BilinearResampler {
	return &BilinearResampler{interp: resize.Bilinear}
}

func (r *BilinearResampler) Resample(f frame.Frame, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return resize.Resize(uint(width), uint(height), f.Image(), r.interp), nil
}

// JPEGEncoder encodes with image/jpeg.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (JPEGEncoder) MIMEType() string {
	return "image/jpeg"
}
