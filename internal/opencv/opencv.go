// Package opencv plugs gocv into the capture pipeline: resampling, JPEG
// encoding, decoding and camera access.
package opencv

import (
	"bytes"
	"fmt"
	"image"

	"medcapture/internal/frame"
	"medcapture/internal/opencv/conversion"
	"medcapture/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Resampler scales frames with cv::resize.
type Resampler struct {
	Interpolation gocv.InterpolationFlags
}

// NewResampler returns a bilinear resampler.
func NewResampler() *Resampler {
	return &Resampler{Interpolation: gocv.InterpolationLinear}
}

func (r *Resampler) Resample(f frame.Frame, width, height int) (image.Image, error) {
	src, err := conversion.FrameToMat(f)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst, err := conversion.ResizeMat(src, width, height, r.Interpolation)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	out, err := conversion.MatToFrame(dst)
	if err != nil {
		return nil, err
	}
	return out.Image(), nil
}

// Encoder writes JPEG through cv::imencode.
type Encoder struct{}

func (Encoder) Encode(img image.Image, quality int) ([]byte, error) {
	mat, err := conversion.FrameToMat(frame.FromImage(img))
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat.Get(), []int{int(gocv.IMWriteJpegQuality), quality})
	if err != nil {
		return nil, fmt.Errorf("imencode failed: %w", err)
	}
	defer buf.Close()

	// GetBytes points into OpenCV memory that Close releases.
	return bytes.Clone(buf.GetBytes()), nil
}

func (Encoder) MIMEType() string {
	return "image/jpeg"
}

// Decode reads encoded bytes with cv::imdecode. It accepts formats the
// standard library cannot, such as BMP, TIFF and WebP.
func Decode(data []byte) (frame.Frame, error) {
	if len(data) == 0 {
		return frame.Frame{}, &frame.InvalidFrameError{Reason: "empty image data"}
	}

	m, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return frame.Frame{}, &frame.InvalidFrameError{Reason: "decode failed", Err: err}
	}
	mat, err := safe.Own(m, "decoded_image")
	if err != nil {
		return frame.Frame{}, &frame.InvalidFrameError{Reason: "decode failed", Err: err}
	}
	defer mat.Close()

	return conversion.MatToFrame(mat)
}
