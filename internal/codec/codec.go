// Package codec downsizes and re-encodes frames for upload.
package codec

import (
	"errors"
	"fmt"
	"image"
	"math"

	"medcapture/internal/frame"
	"medcapture/internal/logger"
)

const (
	DefaultMaxWidth = 800
	DefaultQuality  = 0.7

	// SourceQuality is used for the full-size copy kept next to the
	// compressed one.
	SourceQuality = 0.9
)

// ErrInvalidOptions is returned for a quality outside (0,1] or a negative width.
var ErrInvalidOptions = errors.New("codec: invalid compression options")

// Resampler scales a frame to exactly width x height.
type Resampler interface {
	Resample(f frame.Frame, width, height int) (image.Image, error)
}

// Encoder produces lossy bytes for an image. quality is 1..100.
type Encoder interface {
	Encode(img image.Image, quality int) ([]byte, error)
	MIMEType() string
}

// Options controls Compress. Zero values select the defaults.
type Options struct {
	MaxWidth int
	Quality  float64
}

func (o Options) withDefaults() (Options, error) {
	if o.MaxWidth < 0 {
		return o, fmt.Errorf("%w: max width %d", ErrInvalidOptions, o.MaxWidth)
	}
	if o.MaxWidth == 0 {
		o.MaxWidth = DefaultMaxWidth
	}
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Quality < 0 || o.Quality > 1 || math.IsNaN(o.Quality) {
		return o, fmt.Errorf("%w: quality %v", ErrInvalidOptions, o.Quality)
	}
	return o, nil
}

// Encoded is an encoded image together with its pixel size.
type Encoded struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Size     int    `json:"size"`
}

// Compressor pairs a resampler with an encoder.
type Compressor struct {
	resampler Resampler
	encoder   Encoder
	logger    logger.Logger
}

func NewCompressor(resampler Resampler, encoder Encoder, log logger.Logger) *Compressor {
	if log == nil {
		log = logger.Nop()
	}
	return &Compressor{resampler: resampler, encoder: encoder, logger: log}
}

// NewNative returns a Compressor that needs nothing beyond Go code.
func NewNative(log logger.Logger) *Compressor {
	return NewCompressor(NewBilinearResampler(), JPEGEncoder{}, log)
}

// Compress scales f down to at most opts.MaxWidth pixels wide, keeping the
// aspect ratio, and encodes the result. Frames are never scaled up.
func (c *Compressor) Compress(f frame.Frame, opts Options) (Encoded, error) {
	if err := f.Validate(); err != nil {
		return Encoded{}, err
	}
	opts, err := opts.withDefaults()
	if err != nil {
		return Encoded{}, err
	}

	width, height := TargetSize(f.Width, f.Height, opts.MaxWidth)
	if width == 0 || height == 0 {
		return Encoded{}, &EncodingError{
			Op:  "resample",
			Err: fmt.Errorf("target size %dx%d from %dx%d", width, height, f.Width, f.Height),
		}
	}

	var img image.Image = f.Image()
	if width != f.Width || height != f.Height {
		img, err = c.resampler.Resample(f, width, height)
		if err != nil {
			return Encoded{}, &EncodingError{Op: "resample", Err: err}
		}
	}

	enc, err := c.encode(img, opts.Quality)
	if err != nil {
		return Encoded{}, err
	}

	c.logger.Debug("Compressor", "frame compressed", map[string]interface{}{
		"source":  fmt.Sprintf("%dx%d", f.Width, f.Height),
		"target":  fmt.Sprintf("%dx%d", enc.Width, enc.Height),
		"quality": opts.Quality,
		"bytes":   enc.Size,
	})
	return enc, nil
}

// EncodeSource encodes f at full size.
func (c *Compressor) EncodeSource(f frame.Frame, quality float64) (Encoded, error) {
	if err := f.Validate(); err != nil {
		return Encoded{}, err
	}
	if quality <= 0 || quality > 1 {
		return Encoded{}, fmt.Errorf("%w: quality %v", ErrInvalidOptions, quality)
	}
	return c.encode(f.Image(), quality)
}

func (c *Compressor) encode(img image.Image, quality float64) (Encoded, error) {
	data, err := c.encoder.Encode(img, JPEGQuality(quality))
	if err != nil {
		return Encoded{}, &EncodingError{Op: "encode", Err: err}
	}
	b := img.Bounds()
	return Encoded{
		Data:     data,
		MIMEType: c.encoder.MIMEType(),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Size:     len(data),
	}, nil
}

// TargetSize returns the downscaled size for a frame of width x height so
// that the result is at most maxWidth wide. Fractional pixels are dropped.
func TargetSize(width, height, maxWidth int) (int, int) {
	if maxWidth >= width {
		return width, height
	}
	return maxWidth, height * maxWidth / width
}

// JPEGQuality maps a (0,1] quality factor onto the 1..100 JPEG scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}
