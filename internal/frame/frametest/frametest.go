// Package frametest builds synthetic frames for tests.
package frametest

import "medcapture/internal/frame"

// Uniform returns a frame where every pixel is (r, g, b, 255).
func Uniform(width, height int, r, g, b uint8) frame.Frame {
	pix := make([]byte, frame.BytesPerPixel*width*height)
	for i := 0; i < len(pix); i += frame.BytesPerPixel {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	return frame.New(width, height, pix)
}

// Checkerboard alternates black and white pixels, starting black at (0,0).
func Checkerboard(width, height int) frame.Frame {
	pix := make([]byte, frame.BytesPerPixel*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var v uint8
			if (x+y)%2 == 1 {
				v = 255
			}
			i := (y*width + x) * frame.BytesPerPixel
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
		}
	}
	return frame.New(width, height, pix)
}

// Gradient produces a smooth diagonal ramp, which compresses well and has
// mid-range brightness.
func Gradient(width, height int) frame.Frame {
	pix := make([]byte, frame.BytesPerPixel*width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * frame.BytesPerPixel
			pix[i] = uint8((x * 255) / max(width-1, 1))
			pix[i+1] = uint8((y * 255) / max(height-1, 1))
			pix[i+2] = 128
			pix[i+3] = 255
		}
	}
	return frame.New(width, height, pix)
}
