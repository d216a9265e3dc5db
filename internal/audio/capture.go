package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// FrameFunc receives one captured audio frame. It runs on the audio driver's
// callback thread and must return quickly: no blocking I/O, no heavy locks.
// Ownership of the frame transfers to the callee.
type FrameFunc func(frame []float32)

// CaptureConfig holds microphone capture parameters.
type CaptureConfig struct {
	SampleRate      int
	FramesPerBuffer int
}

// Capture records mono float32 audio from the default input device and
// pushes fixed-size frames to a callback.
type Capture struct {
	cfg     CaptureConfig
	onFrame FrameFunc
	stream  *portaudio.Stream
}

// Init initializes the audio host layer. Call once per process before
// opening a Capture, paired with Terminate.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the audio host layer.
func Terminate() error {
	return portaudio.Terminate()
}

// NewCapture creates an unopened capture for the default input device.
func NewCapture(cfg CaptureConfig, onFrame FrameFunc) *Capture {
	return &Capture{cfg: cfg, onFrame: onFrame}
}

// Open opens the input stream without starting it.
func (c *Capture) Open() error {
	if c.stream != nil {
		return fmt.Errorf("capture already open")
	}

	stream, err := portaudio.OpenDefaultStream(
		1, 0,
		float64(c.cfg.SampleRate),
		c.cfg.FramesPerBuffer,
		func(in []float32) {
			if len(in) == 0 {
				return
			}
			// The driver reuses its buffer between callbacks; hand the
			// consumer its own copy.
			frame := make([]float32, len(in))
			copy(frame, in)
			c.onFrame(frame)
		},
	)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}

	c.stream = stream
	return nil
}

// Start begins delivering frames to the callback.
func (c *Capture) Start() error {
	if c.stream == nil {
		return fmt.Errorf("capture not open")
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("start input stream: %w", err)
	}
	return nil
}

// Stop halts frame delivery. The stream can be started again.
func (c *Capture) Stop() error {
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("stop input stream: %w", err)
	}
	return nil
}

// Close releases the input stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	return err
}

// InputDeviceName returns the name of the default input device, for logs.
func InputDeviceName() (string, error) {
	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return "", fmt.Errorf("no default input device: %w", err)
	}
	return device.Name, nil
}
