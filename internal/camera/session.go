package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"medcapture/internal/frame"
	"medcapture/internal/logger"
)

var (
	// ErrNotStarted is returned by Capture on a stopped session.
	ErrNotStarted = errors.New("camera: session not started")

	// ErrEmptyFrame is returned when the device delivered no pixels.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Device is an open camera.
type Device interface {
	Read() (frame.Frame, error)
	Close() error
}

// Opener opens the camera with the given device index.
type Opener func(deviceID int, cfg Config) (Device, error)

// Session is an open (or openable) camera handle. It replaces a process-wide
// stream variable: whoever drives the UI owns the Session and passes it to
// the pipeline.
type Session struct {
	cfg    Config
	open   Opener
	logger logger.Logger

	mu     sync.Mutex
	facing Facing
	device Device
}

func NewSession(cfg Config, open Opener, log logger.Logger) *Session {
	if log == nil {
		log = logger.Nop()
	}
	facing := cfg.Facing
	if facing == "" {
		facing = FacingEnvironment
	}
	return &Session{cfg: cfg, open: open, logger: log, facing: facing}
}

// Start opens the device for the current facing mode. Starting an active
// session is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startLocked(ctx)
}

func (s *Session) startLocked(ctx context.Context) error {
	if s.device != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	id := s.cfg.DeviceFor(s.facing)
	dev, err := s.open(id, s.cfg)
	if err != nil {
		s.logger.Error("CameraSession", err, map[string]interface{}{
			"device": id,
			"facing": string(s.facing),
		})
		return fmt.Errorf("camera: open device %d: %w", id, err)
	}
	s.device = dev

	s.logger.Info("CameraSession", "camera started", map[string]interface{}{
		"device": id,
		"facing": string(s.facing),
	})
	return nil
}

// Stop releases the device. Stopping a stopped session is a no-op.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopLocked()
}

func (s *Session) stopLocked() error {
	if s.device == nil {
		return nil
	}
	err := s.device.Close()
	s.device = nil

	s.logger.Info("CameraSession", "camera stopped", map[string]interface{}{
		"facing": string(s.facing),
	})
	if err != nil {
		return fmt.Errorf("camera: close device: %w", err)
	}
	return nil
}

// Toggle switches between the front and rear camera. If the session was
// active it is restarted on the other device.
func (s *Session) Toggle(ctx context.Context) (Facing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasActive := s.device != nil
	if err := s.stopLocked(); err != nil {
		return s.facing, err
	}
	s.facing = s.facing.Opposite()

	if wasActive {
		if err := s.startLocked(ctx); err != nil {
			return s.facing, err
		}
	}
	return s.facing, nil
}

// Capture grabs a single frame.
func (s *Session) Capture() (frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.device == nil {
		return frame.Frame{}, ErrNotStarted
	}

	f, err := s.device.Read()
	if err != nil {
		return frame.Frame{}, fmt.Errorf("camera: read frame: %w", err)
	}
	if f.PixelCount() == 0 {
		return frame.Frame{}, ErrEmptyFrame
	}
	return f, nil
}

func (s *Session) Facing() Facing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.facing
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device != nil
}

// Shutdown lets a Session be registered with the shutdown manager.
func (s *Session) Shutdown() {
	if err := s.Stop(); err != nil {
		s.logger.Error("CameraSession", err, nil)
	}
}
