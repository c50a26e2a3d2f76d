// Package camera manages an open camera handle as an explicit value owned by
// the caller.
package camera

import "fmt"

// Facing selects the physical camera.
type Facing string

const (
	FacingEnvironment Facing = "environment" // rear camera
	FacingUser        Facing = "user"        // front camera
)

// ParseFacing accepts "environment", "user", or empty for the default.
func ParseFacing(s string) (Facing, error) {
	switch Facing(s) {
	case "", FacingEnvironment:
		return FacingEnvironment, nil
	case FacingUser:
		return FacingUser, nil
	default:
		return "", fmt.Errorf("camera: unknown facing mode %q", s)
	}
}

// Opposite returns the other camera.
func (f Facing) Opposite() Facing {
	if f == FacingUser {
		return FacingEnvironment
	}
	return FacingUser
}

// Config holds camera settings.
type Config struct {
	Width             int    `yaml:"width"`  // ideal frame width in pixels
	Height            int    `yaml:"height"` // ideal frame height in pixels
	EnvironmentDevice int    `yaml:"environment_device"`
	UserDevice        int    `yaml:"user_device"`
	Facing            Facing `yaml:"facing"`
}

// DefaultConfig asks for 720p from the rear camera.
func DefaultConfig() Config {
	return Config{
		Width:             1280,
		Height:            720,
		EnvironmentDevice: 0,
		UserDevice:        1,
		Facing:            FacingEnvironment,
	}
}

// DeviceFor maps a facing mode onto a device index.
func (c Config) DeviceFor(f Facing) int {
	if f == FacingUser {
		return c.UserDevice
	}
	return c.EnvironmentDevice
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.EnvironmentDevice < 0 || c.UserDevice < 0 {
		return fmt.Errorf("camera: device index must not be negative")
	}
	if _, err := ParseFacing(string(c.Facing)); err != nil {
		return err
	}
	return nil
}
