// Package quality scores a captured frame for brightness, contrast and
// clarity and turns the scores into advice for the person holding the camera.
package quality

import (
	"math"

	"medcapture/internal/frame"
)

// Thresholds on the 0..1 scale unless noted. They were tuned against the
// flat-buffer neighbour traversal in Analyze and only hold for it.
const (
	MinBrightness = 0.25
	MaxBrightness = 0.85
	MinContrast   = 0.1
	MinClarity    = 0.15

	// EdgeThreshold is on the 0..255 channel scale.
	EdgeThreshold = 20.0

	brightnessWeight = 0.3
	contrastWeight   = 0.3
	clarityWeight    = 0.4
)

// Report is the verdict for one frame.
type Report struct {
	Brightness float64    `json:"brightness"`
	Contrast   float64    `json:"contrast"`
	Clarity    float64    `json:"clarity"`
	Overall    float64    `json:"overall"`
	IsGood     bool       `json:"isGood"`
	Suggestion Suggestion `json:"suggestion"`
}

// Analyze scores f. It only fails for structurally invalid frames; a dark,
// flat or blurry photo still gets a report.
func Analyze(f frame.Frame) (Report, error) {
	if err := f.Validate(); err != nil {
		return Report{}, err
	}
	n := f.PixelCount()
	if n < 2 {
		return Report{}, &frame.InvalidFrameError{
			Width:  f.Width,
			Height: f.Height,
			Len:    len(f.Pix),
			Reason: "too few pixels",
		}
	}

	pix := f.Pix
	count := float64(n)

	var luma float64
	for i := 0; i < len(pix); i += frame.BytesPerPixel {
		luma += average(pix, i)
	}
	brightness := luma / count / 255

	// Neighbours are taken from the flat buffer, so the first pixel of a row
	// is compared with the last pixel of the row above. The final pixel is
	// never visited as "current".
	var diffSum float64
	var edges int
	for i := frame.BytesPerPixel; i < len(pix)-frame.BytesPerPixel; i += frame.BytesPerPixel {
		diff := math.Abs(average(pix, i) - average(pix, i-frame.BytesPerPixel))
		diffSum += diff
		if diff > EdgeThreshold {
			edges++
		}
	}
	contrast := diffSum / count / 255
	clarity := float64(edges) / count

	report := Report{
		Brightness: clamp(brightness),
		Contrast:   clamp(contrast),
		Clarity:    clamp(clarity),
		IsGood:     brightness > MinBrightness && brightness < MaxBrightness && contrast > MinContrast,
		Suggestion: suggest(brightness, contrast, clarity),
	}
	report.Overall = clamp(brightnessWeight*report.Brightness +
		contrastWeight*report.Contrast +
		clarityWeight*report.Clarity)

	return report, nil
}

func average(pix []byte, i int) float64 {
	return (float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])) / 3
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
