package frame

import (
	"errors"
	"fmt"
)

// InvalidFrameError reports a frame that cannot be analyzed or encoded:
// no pixels, a buffer that does not match its dimensions, or bytes that
// do not decode. Callers should ask the user to retake the photo.
type InvalidFrameError struct {
	Width  int
	Height int
	Len    int
	Reason string
	Err    error
}

func (e *InvalidFrameError) Error() string {
	msg := fmt.Sprintf("frame: invalid frame: %s", e.Reason)
	if e.Width != 0 || e.Height != 0 || e.Len != 0 {
		msg += fmt.Sprintf(" (%dx%d, %d bytes)", e.Width, e.Height, e.Len)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidFrameError) Unwrap() error {
	return e.Err
}

// IsInvalid reports whether err is, or wraps, an InvalidFrameError.
func IsInvalid(err error) bool {
	var target *InvalidFrameError
	return errors.As(err, &target)
}
