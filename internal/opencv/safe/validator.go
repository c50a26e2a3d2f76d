package safe

import "fmt"

// MaxDimension caps either side of a Mat handed to OpenCV.
const MaxDimension = 32768

func ValidateMatForOperation(mat *Mat, operation string) error {
	if mat == nil {
		return fmt.Errorf("Mat is nil for operation: %s", operation)
	}
	if !mat.IsValid() {
		return fmt.Errorf("Mat is invalid for operation: %s", operation)
	}
	if mat.Empty() {
		return fmt.Errorf("Mat is empty for operation: %s", operation)
	}
	return nil
}

func ValidateDimensions(width, height int, operation string) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid dimensions %dx%d for operation: %s", width, height, operation)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("dimensions %dx%d exceed maximum size for operation: %s", width, height, operation)
	}
	return nil
}

// ValidateChannels accepts the layouts a camera or decoder produces.
func ValidateChannels(channels int, operation string) error {
	switch channels {
	case 1, 3, 4:
		return nil
	default:
		return fmt.Errorf("unsupported channel count %d for operation: %s", channels, operation)
	}
}
