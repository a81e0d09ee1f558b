package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"sync"
	"syscall"
	"testing"
)

type fakeStream struct {
	mu     sync.Mutex
	img    image.Image
	err    error
	closed bool
}

func (s *fakeStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.img, nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDevice struct {
	mu      sync.Mutex
	img     image.Image
	errs    []error
	opens   []Constraints
	streams []*fakeStream
	block   chan struct{}
}

func (d *fakeDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens = append(d.opens, c)
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	s := &fakeStream{img: d.img}
	d.streams = append(d.streams, s)
	return s, nil
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCameraUnavailableUntilActive(t *testing.T) {
	cam := NewCamera(&fakeDevice{img: solid(2, 2, color.RGBA{1, 2, 3, 255})}, WithLogger(quietLogger()))

	if cam.State() != StateIdle {
		t.Fatalf("expected idle, got %s", cam.State())
	}
	if _, err := cam.Snapshot(); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestCameraLifecycle(t *testing.T) {
	dev := &fakeDevice{img: solid(4, 3, color.RGBA{10, 20, 30, 255})}
	cam := NewCamera(dev, WithLogger(quietLogger()))

	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if cam.State() != StateActive {
		t.Fatalf("expected active, got %s", cam.State())
	}
	if len(dev.opens) != 1 || dev.opens[0] != PreferredConstraints {
		t.Errorf("expected one open with preferred constraints, got %v", dev.opens)
	}

	snap, err := cam.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.Width != 4 || snap.Height != 3 || len(snap.Pix) != 4*3*4 {
		t.Fatalf("unexpected snapshot %dx%d (%d bytes)", snap.Width, snap.Height, len(snap.Pix))
	}
	if snap.Pix[0] != 10 || snap.Pix[1] != 20 || snap.Pix[2] != 30 || snap.Pix[3] != 255 {
		t.Errorf("unexpected first pixel %v", snap.Pix[:4])
	}
	if snap.Source != "camera" {
		t.Errorf("unexpected source %q", snap.Source)
	}

	if err := cam.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start while active should be invalid, got %v", err)
	}

	if err := cam.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !dev.streams[0].isClosed() {
		t.Error("stream not released on stop")
	}
	if cam.State() != StateIdle {
		t.Errorf("expected idle after stop, got %s", cam.State())
	}
	if _, err := cam.Snapshot(); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected unavailable after stop, got %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("second close should be a no-op, got %v", err)
	}
}

func TestCameraFallbackConstraints(t *testing.T) {
	dev := &fakeDevice{
		img:  solid(2, 2, color.RGBA{}),
		errs: []error{ErrConstraintsUnsatisfied, nil},
	}
	cam := NewCamera(dev, WithLogger(quietLogger()))

	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(dev.opens) != 2 {
		t.Fatalf("expected 2 open attempts, got %d", len(dev.opens))
	}
	if dev.opens[0] != PreferredConstraints || dev.opens[1] != (Constraints{}) {
		t.Errorf("unexpected constraint sequence %v", dev.opens)
	}
}

func TestCameraErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want DeviceErrorKind
	}{
		{"sentinel permission", ErrPermissionDenied, KindPermissionDenied},
		{"os permission", fmt.Errorf("open /dev/video0: %w", os.ErrPermission), KindPermissionDenied},
		{"sentinel not found", ErrDeviceNotFound, KindDeviceNotFound},
		{"os not exist", fmt.Errorf("open: %w", os.ErrNotExist), KindDeviceNotFound},
		{"sentinel busy", ErrDeviceBusy, KindDeviceBusy},
		{"ebusy", fmt.Errorf("ioctl: %w", syscall.EBUSY), KindDeviceBusy},
		{"other", errors.New("video load timeout"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &fakeDevice{errs: []error{tt.err, tt.err}}
			cam := NewCamera(dev, WithLogger(quietLogger()))

			err := cam.Start(context.Background())
			var de *DeviceError
			if !errors.As(err, &de) {
				t.Fatalf("expected DeviceError, got %v", err)
			}
			if de.Kind != tt.want {
				t.Errorf("kind = %s, want %s", de.Kind, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Error("DeviceError should unwrap to the device error")
			}
			if de.Message() == "" {
				t.Error("empty user message")
			}
			if cam.State() != StateErrored {
				t.Errorf("expected errored, got %s", cam.State())
			}
			if cam.Err() == nil || cam.Err().Kind != tt.want {
				t.Errorf("Err() = %v", cam.Err())
			}
			if _, err := cam.Snapshot(); !errors.Is(err, ErrSourceUnavailable) {
				t.Errorf("expected unavailable while errored, got %v", err)
			}
		})
	}
}

func TestCameraRetryOnlyFromErrored(t *testing.T) {
	dev := &fakeDevice{
		img:  solid(2, 2, color.RGBA{}),
		errs: []error{ErrDeviceBusy, ErrDeviceBusy},
	}
	cam := NewCamera(dev, WithLogger(quietLogger()))

	if err := cam.Retry(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("retry from idle should be invalid, got %v", err)
	}

	if err := cam.Start(context.Background()); err == nil {
		t.Fatal("expected busy error")
	}
	if err := cam.Start(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("start from errored should be invalid, got %v", err)
	}

	if err := cam.Retry(context.Background()); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if cam.State() != StateActive || cam.Err() != nil {
		t.Errorf("expected active with no error, got %s / %v", cam.State(), cam.Err())
	}
}

func TestCameraFrameErrorReleasesStream(t *testing.T) {
	dev := &fakeDevice{img: solid(2, 2, color.RGBA{})}
	cam := NewCamera(dev, WithLogger(quietLogger()))
	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	dev.streams[0].err = errors.New("stream ended")

	_, err := cam.Snapshot()
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	var de *DeviceError
	if !errors.As(err, &de) || de.Kind != KindUnknown {
		t.Errorf("expected unknown device error, got %v", err)
	}
	if cam.State() != StateErrored {
		t.Errorf("expected errored, got %s", cam.State())
	}
	if !dev.streams[0].isClosed() {
		t.Error("stream must be released after a read failure")
	}
}

func TestCameraEmptyFrameUsesFallbackSize(t *testing.T) {
	dev := &fakeDevice{img: image.NewRGBA(image.Rect(0, 0, 0, 0))}
	cam := NewCamera(dev, WithLogger(quietLogger()))
	if err := cam.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	snap, err := cam.Snapshot()
	if err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}
	if snap.Width != FallbackWidth || snap.Height != FallbackHeight {
		t.Errorf("expected %dx%d, got %dx%d", FallbackWidth, FallbackHeight, snap.Width, snap.Height)
	}
}

func TestCameraStopWhileRequesting(t *testing.T) {
	dev := &fakeDevice{img: solid(2, 2, color.RGBA{}), block: make(chan struct{})}
	cam := NewCamera(dev, WithLogger(quietLogger()))

	done := make(chan error, 1)
	go func() { done <- cam.Start(context.Background()) }()

	for cam.State() != StateRequesting {
	}
	if err := cam.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	close(dev.block)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if cam.State() != StateIdle {
		t.Errorf("expected idle, got %s", cam.State())
	}
	if len(dev.streams) != 1 || !dev.streams[0].isClosed() {
		t.Error("stream opened after stop must be released")
	}
}

func TestMeanBrightness(t *testing.T) {
	if got := meanBrightness([]byte{0, 0, 0, 255, 30, 60, 90, 255}); got != 30 {
		t.Errorf("expected 30, got %f", got)
	}
	if got := meanBrightness(nil); got != 0 {
		t.Errorf("expected 0 for empty buffer, got %f", got)
	}
}
