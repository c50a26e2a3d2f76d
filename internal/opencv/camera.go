package opencv

import (
	"fmt"
	"sync"

	"medcapture/internal/camera"
	"medcapture/internal/frame"
	"medcapture/internal/opencv/conversion"
	"medcapture/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// Camera is a camera.Device backed by cv::VideoCapture.
type Camera struct {
	mu      sync.Mutex
	capture *gocv.VideoCapture
	buf     *safe.Mat
	id      int
}

// OpenCamera implements camera.Opener. The configured resolution is a hint;
// drivers pick the closest mode they support.
func OpenCamera(deviceID int, cfg camera.Config) (camera.Device, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open video capture %d: %w", deviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %d is not available", deviceID)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))

	return &Camera{
		capture: vc,
		buf:     safe.New(fmt.Sprintf("camera_%d", deviceID)),
		id:      deviceID,
	}, nil
}

// Read grabs the next frame. The Mat buffer is reused between reads; the
// returned frame owns a copy of the pixels.
func (c *Camera) Read() (frame.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return frame.Frame{}, fmt.Errorf("camera %d is closed", c.id)
	}
	if ok := c.capture.Read(c.buf.Ptr()); !ok {
		return frame.Frame{}, fmt.Errorf("camera %d: read failed", c.id)
	}
	if c.buf.Empty() {
		return frame.Frame{}, camera.ErrEmptyFrame
	}
	return conversion.MatToFrame(c.buf)
}

func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.capture == nil {
		return nil
	}
	c.buf.Close()
	err := c.capture.Close()
	c.capture = nil
	return err
}
