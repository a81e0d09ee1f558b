package capture

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

var (
	// ErrSourceUnavailable means no snapshot can be taken right now: the
	// surface was never sized, or the camera is not streaming.
	ErrSourceUnavailable = errors.New("capture: source unavailable")

	// ErrInvalidTransition is returned when a camera call does not apply to
	// its current state, e.g. Retry on a camera that never failed.
	ErrInvalidTransition = errors.New("capture: invalid camera state transition")

	// ErrClosed is returned by Start when the camera was stopped while the
	// device was still being opened.
	ErrClosed = errors.New("capture: camera closed")

	// Device-level causes. Device implementations wrap these (or the
	// matching os/syscall errors) so the camera can classify failures.
	ErrPermissionDenied = errors.New("capture: permission denied")
	ErrDeviceNotFound   = errors.New("capture: no camera device found")
	ErrDeviceBusy       = errors.New("capture: camera in use")

	// ErrConstraintsUnsatisfied is returned by a device that cannot meet the
	// requested constraints; the camera then retries with defaults.
	ErrConstraintsUnsatisfied = errors.New("capture: constraints unsatisfied")
)

type DeviceErrorKind int

const (
	KindUnknown DeviceErrorKind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
)

func (k DeviceErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission denied"
	case KindDeviceNotFound:
		return "device not found"
	case KindDeviceBusy:
		return "device busy"
	default:
		return "unknown"
	}
}

// DeviceError is a classified camera acquisition failure. It is
// recoverable only through an explicit Camera.Retry.
type DeviceError struct {
	Kind DeviceErrorKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("capture: camera %s", e.Kind)
	}
	return fmt.Sprintf("capture: camera %s: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// Message is a user-facing explanation of the failure.
func (e *DeviceError) Message() string {
	switch e.Kind {
	case KindPermissionDenied:
		return "Permission denied. Allow camera access for this program and in your system privacy settings."
	case KindDeviceNotFound:
		return "No camera device found."
	case KindDeviceBusy:
		return "Camera is in use by another app."
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return "Unknown camera error."
	}
}

// Classify maps a device error onto a DeviceError kind.
func Classify(err error) *DeviceError {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}

	kind := KindUnknown
	switch {
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, os.ErrPermission):
		kind = KindPermissionDenied
	case errors.Is(err, ErrDeviceNotFound), errors.Is(err, os.ErrNotExist):
		kind = KindDeviceNotFound
	case errors.Is(err, ErrDeviceBusy), errors.Is(err, syscall.EBUSY):
		kind = KindDeviceBusy
	}
	return &DeviceError{Kind: kind, Err: err}
}
