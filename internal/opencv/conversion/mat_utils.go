package conversion

import (
	"fmt"
	"image"

	"medcapture/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ResizeMat resizes a Mat to newWidth x newHeight with the given interpolation.
func ResizeMat(src *safe.Mat, newWidth, newHeight int, interpolation gocv.InterpolationFlags) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "Mat resizing"); err != nil {
		return nil, err
	}
	if err := safe.ValidateDimensions(newWidth, newHeight, "Mat resizing"); err != nil {
		return nil, err
	}

	dst := safe.New(src.Tag() + "_resized")
	gocv.Resize(src.Get(), dst.Ptr(), image.Point{X: newWidth, Y: newHeight}, 0, 0, interpolation)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("resize to %dx%d produced an empty Mat", newWidth, newHeight)
	}
	return dst, nil
}
