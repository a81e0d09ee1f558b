package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"
)

// Fallback frame size for streams that report an empty picture.
const (
	FallbackWidth  = 640
	FallbackHeight = 480
)

type CameraState int

const (
	StateIdle CameraState = iota
	StateRequesting
	StateActive
	StateErrored
)

func (s CameraState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateActive:
		return "active"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Camera is the live camera entropy source:
//
//	Idle --Start--> Requesting --ok--> Active
//	                           \-fail-> Errored --Retry--> Requesting
//
// Stop (or Close) releases the stream from any state and returns to Idle.
// A failed frame read moves an active camera to Errored and releases the
// stream. Snapshot only succeeds while Active.
type Camera struct {
	mu     sync.Mutex
	dev    Device
	state  CameraState
	err    *DeviceError
	stream Stream
	buf    *image.RGBA
	gen    uint64
	probed bool
	logger *slog.Logger
}

type CameraOption func(*Camera)

func WithLogger(l *slog.Logger) CameraOption {
	return func(c *Camera) { c.logger = l }
}

func NewCamera(dev Device, opts ...CameraOption) *Camera {
	c := &Camera{dev: dev, logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Camera) State() CameraState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err is the classified failure while Errored, nil otherwise.
func (c *Camera) Err() *DeviceError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Start acquires the device. It is only valid from Idle.
func (c *Camera) Start(ctx context.Context) error {
	return c.acquire(ctx, StateIdle)
}

// Retry re-acquires the device after a failure. It is only valid from Errored.
func (c *Camera) Retry(ctx context.Context) error {
	return c.acquire(ctx, StateErrored)
}

func (c *Camera) acquire(ctx context.Context, from CameraState) error {
	c.mu.Lock()
	if c.state != from {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, state)
	}
	c.state = StateRequesting
	c.err = nil
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.logger.Info("camera requesting")
	stream, err := c.open(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gen != gen || c.state != StateRequesting {
		if stream != nil {
			stream.Close()
		}
		return ErrClosed
	}
	if err != nil {
		c.state = StateErrored
		c.err = Classify(err)
		c.logger.Warn("camera acquisition failed", "kind", c.err.Kind.String(), "error", err)
		return c.err
	}

	c.state = StateActive
	c.stream = stream
	c.probed = false
	c.logger.Info("camera active")
	return nil
}

func (c *Camera) open(ctx context.Context) (Stream, error) {
	stream, err := c.dev.Open(ctx, PreferredConstraints)
	if err == nil {
		return stream, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}
	c.logger.Debug("camera preferred constraints failed, using defaults", "error", err)
	return c.dev.Open(ctx, Constraints{})
}

// Stop releases the stream and returns the camera to Idle.
func (c *Camera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.releaseLocked(StateIdle)
}

// Close is Stop; it is safe to call more than once.
func (c *Camera) Close() error { return c.Stop() }

func (c *Camera) releaseLocked(next CameraState) error {
	var err error
	if c.stream != nil {
		err = c.stream.Close()
		c.stream = nil
	}
	if c.state != next {
		c.logger.Debug("camera state", "from", c.state.String(), "to", next.String())
	}
	c.state = next
	if next == StateIdle {
		c.err = nil
		c.gen++
	}
	c.buf = nil
	return err
}

// Snapshot draws the current video frame into an off-screen buffer of the
// stream's native size and returns a copy of its pixels.
func (c *Camera) Snapshot() (FrameSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive {
		return FrameSnapshot{}, fmt.Errorf("%w: camera %s", ErrSourceUnavailable, c.state)
	}

	frame, err := c.stream.Frame()
	if err != nil {
		de := Classify(err)
		c.releaseLocked(StateErrored)
		c.err = de
		c.logger.Warn("camera frame read failed", "error", err)
		return FrameSnapshot{}, errors.Join(ErrSourceUnavailable, de)
	}

	fb := frame.Bounds()
	w, h := fb.Dx(), fb.Dy()
	if w == 0 || h == 0 {
		w, h = FallbackWidth, FallbackHeight
	}
	if c.buf == nil || c.buf.Bounds().Dx() != w || c.buf.Bounds().Dy() != h {
		c.buf = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	xdraw.Draw(c.buf, c.buf.Bounds(), frame, fb.Min, xdraw.Src)

	pix := make([]byte, len(c.buf.Pix))
	copy(pix, c.buf.Pix)

	if !c.probed {
		c.probed = true
		if meanBrightness(pix) < 1 {
			c.logger.Warn("camera frame is completely black", "width", w, "height", h)
		}
	}

	return FrameSnapshot{
		Pix:        pix,
		Width:      w,
		Height:     h,
		CapturedAt: time.Now(),
		Source:     "camera",
	}, nil
}

func meanBrightness(pix []byte) float64 {
	if len(pix) < 4 {
		return 0
	}
	total := 0.0
	for i := 0; i+3 < len(pix); i += 4 {
		total += (float64(pix[i]) + float64(pix[i+1]) + float64(pix[i+2])) / 3
	}
	return total / float64(len(pix)/4)
}
