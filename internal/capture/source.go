package capture

import (
	"fmt"
	"time"

	"github.com/san-kum/lavarand/internal/render"
)

// FrameSnapshot is one captured frame: RGBA samples, 4 bytes per pixel.
// It is handed to exactly one derivation and must not be modified.
type FrameSnapshot struct {
	Pix        []byte
	Width      int
	Height     int
	CapturedAt time.Time
	Source     string
}

// Source is anything that can hand out the current entropy surface.
// Implementations return ErrSourceUnavailable (possibly wrapped) when no
// frame can be produced; they never retry on their own.
type Source interface {
	Snapshot() (FrameSnapshot, error)
}

// Simulated reads back the rendered lava lamp.
type Simulated struct {
	surface *render.Surface
}

func NewSimulated(surface *render.Surface) *Simulated {
	return &Simulated{surface: surface}
}

func (s *Simulated) Snapshot() (FrameSnapshot, error) {
	pix, w, h, ok := s.surface.Pixels()
	if !ok {
		return FrameSnapshot{}, fmt.Errorf("%w: surface not sized", ErrSourceUnavailable)
	}
	return FrameSnapshot{
		Pix:        pix,
		Width:      w,
		Height:     h,
		CapturedAt: time.Now(),
		Source:     "simulated",
	}, nil
}
