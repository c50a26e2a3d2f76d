package conversion

import (
	"fmt"

	"medcapture/internal/frame"
	"medcapture/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// FrameToMat converts an RGBA frame into a 3-channel BGR Mat, the layout
// OpenCV's resize and encode paths expect.
func FrameToMat(f frame.Frame) (*safe.Mat, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(f.Width, f.Height, "frame to Mat conversion"); err != nil {
		return nil, err
	}

	// NewMatFromBytes wraps the Go buffer; CvtColor only reads from it.
	rgba, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Pix)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap frame buffer: %w", err)
	}
	defer rgba.Close()

	dst := safe.New("frame_bgr")
	gocv.CvtColor(rgba, dst.Ptr(), gocv.ColorRGBAToBGR)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("RGBA to BGR conversion produced an empty Mat")
	}
	return dst, nil
}

// MatToFrame converts a gray, BGR or BGRA Mat into an RGBA frame. The pixel
// data is copied out of OpenCV memory.
func MatToFrame(src *safe.Mat) (frame.Frame, error) {
	if err := safe.ValidateMatForOperation(src, "Mat to frame conversion"); err != nil {
		return frame.Frame{}, err
	}

	var code gocv.ColorConversionCode
	switch src.Channels() {
	case 1:
		code = gocv.ColorGrayToRGBA
	case 3:
		code = gocv.ColorBGRToRGBA
	case 4:
		code = gocv.ColorBGRAToRGBA
	default:
		return frame.Frame{}, safe.ValidateChannels(src.Channels(), "Mat to frame conversion")
	}

	rgba := safe.New("frame_rgba")
	defer rgba.Close()

	gocv.CvtColor(src.Get(), rgba.Ptr(), code)
	if rgba.Empty() {
		return frame.Frame{}, fmt.Errorf("conversion to RGBA produced an empty Mat")
	}

	rgbaMat := rgba.Get()
	out := frame.New(rgba.Cols(), rgba.Rows(), rgbaMat.ToBytes())
	if err := out.Validate(); err != nil {
		return frame.Frame{}, fmt.Errorf("unexpected Mat layout: %w", err)
	}
	return out, nil
}
