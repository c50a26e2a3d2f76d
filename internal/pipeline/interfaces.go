package pipeline

import (
	"medcapture/internal/codec"
	"medcapture/internal/frame"
	"medcapture/internal/quality"
)

// Encoder produces the two encodings of a capture. *codec.Compressor
// implements it.
type Encoder interface {
	Compress(f frame.Frame, opts codec.Options) (codec.Encoded, error)
	EncodeSource(f frame.Frame, quality float64) (codec.Encoded, error)
}

// Decoder turns uploaded bytes into a frame. Failures must be reported as
// *frame.InvalidFrameError.
type Decoder func(data []byte) (frame.Frame, error)

// Notifier receives the quality report of a capture that did not pass the
// check. It must not block; the capture proceeds either way.
type Notifier interface {
	Notify(report quality.Report)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(report quality.Report)

func (f NotifierFunc) Notify(report quality.Report) { f(report) }

// FrameSource yields a single frame. *camera.Session implements it.
type FrameSource interface {
	Capture() (frame.Frame, error)
}
