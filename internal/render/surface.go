package render

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/lavarand/internal/physics"
)

// Background is the lamp's dark backdrop (zinc-900).
const Background = "#18181b"

var (
	backdrop = mustHex(Background)
	palette  = func() map[string]colorful.Color {
		m := make(map[string]colorful.Color, len(physics.Palette))
		for _, hex := range physics.Palette {
			m[hex] = mustHex(hex)
		}
		return m
	}()
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(fmt.Sprintf("render: bad color %q: %v", s, err))
	}
	return c
}

// Surface is the rendered lamp: it owns the lamp, steps it and keeps the
// RGBA pixels of the latest frame. Paint and step happen under the write
// lock; readers get copies under the read lock.
type Surface struct {
	mu   sync.RWMutex
	lamp *physics.Lamp
	img  *image.RGBA
}

func NewSurface(lamp *physics.Lamp) *Surface {
	return &Surface{lamp: lamp}
}

// Resize reallocates the pixel buffer, sizes the lamp (creating its blobs on
// the first call) and paints a frame.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("render: invalid surface size %dx%d", width, height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	s.lamp.Resize(float64(width), float64(height))
	composite(s.img, s.lamp.Blobs())
	return nil
}

// Tick advances the lamp one step and repaints. It implements sim.Stepper.
func (s *Surface) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return
	}
	s.lamp.Step()
	composite(s.img, s.lamp.Blobs())
}

// Sized reports whether Resize has succeeded at least once.
func (s *Surface) Sized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.img != nil
}

// Pixels copies the current frame. ok is false until the surface is sized.
func (s *Surface) Pixels() (pix []byte, width, height int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.img == nil {
		return nil, 0, 0, false
	}
	b := s.img.Bounds()
	pix = make([]byte, len(s.img.Pix))
	copy(pix, s.img.Pix)
	return pix, b.Dx(), b.Dy(), true
}

// View runs fn with read access to the current frame. fn must not retain img.
func (s *Surface) View(fn func(img *image.RGBA)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.img != nil {
		fn(s.img)
	}
}

func (s *Surface) Blobs() []physics.Blob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lamp.Blobs()
}

func (s *Surface) Energy() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lamp.Energy()
}

func (s *Surface) Ticks() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lamp.Ticks()
}

// composite paints the backdrop and then screen-blends one radial gradient
// per blob, fading from the blob color at the center to transparent at its
// radius. With an opaque backdrop, screen over source-over reduces to
// c' = c + a*s*(1-c) per channel.
func composite(img *image.RGBA, blobs []physics.Blob) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	parallelRows(h, 32, func(y0, y1 int) {
		row := make([][3]float64, w)
		for y := y0; y < y1; y++ {
			for x := range row {
				row[x] = [3]float64{backdrop.R, backdrop.G, backdrop.B}
			}
			py := float64(y) + 0.5

			for _, blob := range blobs {
				r := blob.Radius()
				dy := py - blob.Y
				if math.Abs(dy) >= r {
					continue
				}
				src, ok := palette[blob.Color]
				if !ok {
					src = mustHex(blob.Color)
				}

				xmin := int(math.Max(0, math.Floor(blob.X-r)))
				xmax := int(math.Min(float64(w), math.Ceil(blob.X+r)))
				for x := xmin; x < xmax; x++ {
					dx := float64(x) + 0.5 - blob.X
					d := math.Sqrt(dx*dx+dy*dy) / r
					if d >= 1 {
						continue
					}
					a := 1 - d
					c := &row[x]
					c[0] += a * src.R * (1 - c[0])
					c[1] += a * src.G * (1 - c[1])
					c[2] += a * src.B * (1 - c[2])
				}
			}

			off := img.PixOffset(b.Min.X, b.Min.Y+y)
			for x, c := range row {
				p := img.Pix[off+x*4 : off+x*4+4 : off+x*4+4]
				p[0] = channel(c[0])
				p[1] = channel(c[1])
				p[2] = channel(c[2])
				p[3] = 0xff
			}
		}
	})
}

func channel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}
