package codec

import "fmt"

// EncodingError is a failure of the resample or encode step on a frame
// that was structurally valid.
type EncodingError struct {
	Op  string
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("codec: %s failed: %v", e.Op, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
