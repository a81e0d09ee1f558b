package capture

import (
	"context"
	"image"
	"io"
)

// Constraints describe the stream a camera asks a device for. Zero fields
// mean "no preference".
type Constraints struct {
	Width, Height       int
	MinWidth, MinHeight int
	FrameRate           int
}

// PreferredConstraints are tried first; on failure the camera falls back to
// the zero Constraints.
var PreferredConstraints = Constraints{
	Width: 640, Height: 480,
	MinWidth: 320, MinHeight: 240,
	FrameRate: 30,
}

// Device opens camera streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera. Frame returns the current picture at the
// stream's native resolution.
type Stream interface {
	io.Closer
	Frame() (image.Image, error)
}
