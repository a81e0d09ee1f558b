package physics

import "math"

const (
	// BlobCount is the size of the lamp arena.
	BlobCount = 20

	MinRadius = 40.0
	MaxRadius = 100.0

	// MaxDriftX bounds the horizontal velocity to [-MaxDriftX, MaxDriftX).
	MaxDriftX = 0.75
)

// Palette holds the neon colors blobs are drawn with.
var Palette = [8]string{
	"#ef4444", "#f97316", "#eab308", "#22c55e",
	"#06b6d4", "#3b82f6", "#a855f7", "#ec4899",
}

// Blob is one chaotic particle. Velocities are per-tick deltas.
type Blob struct {
	X, Y   float64
	VX, VY float64
	Color  string
	radius float64
}

// NewBlob builds a blob with a fixed radius.
func NewBlob(x, y, vx, vy, radius float64, color string) Blob {
	return Blob{X: x, Y: y, VX: vx, VY: vy, Color: color, radius: radius}
}

func (b Blob) Radius() float64 { return b.radius }

// Lamp is the lava simulation: a fixed arena of blobs drifting over a
// width x height surface. Blobs wrap horizontally and re-enter vertically
// with their vertical velocity pointed away from the edge they crossed.
//
// Lamp is not safe for concurrent use; render.Surface serializes access.
type Lamp struct {
	Width, Height float64

	blobs  [BlobCount]Blob
	ready  bool
	ticks  uint64
	random *RNG
}

func NewLamp(rng *RNG) *Lamp {
	if rng == nil {
		rng = NewRNG(0)
	}
	return &Lamp{random: rng}
}

// Resize sets the surface bounds. The blobs are created on the first call
// only; later calls keep the existing blobs and just move the bounds.
func (l *Lamp) Resize(width, height float64) {
	l.Width, l.Height = width, height
	if !l.ready {
		l.seed()
		l.ready = true
	}
}

// Ready reports whether the lamp has been sized at least once.
func (l *Lamp) Ready() bool { return l.ready }

// Ticks is the number of steps taken since creation.
func (l *Lamp) Ticks() uint64 { return l.ticks }

func (l *Lamp) seed() {
	r := l.random
	for i := range l.blobs {
		l.blobs[i] = Blob{
			X:      r.Float64() * l.Width,
			Y:      r.Float64() * l.Height,
			VX:     (r.Float64() - 0.5) * 2 * MaxDriftX,
			VY:     l.verticalVelocity(),
			Color:  Palette[r.IntN(len(Palette))],
			radius: MinRadius + r.Float64()*(MaxRadius-MinRadius),
		}
	}
}

// a [-1,1) draw pushed one unit up or down by a coin flip; zero is redrawn
func (l *Lamp) verticalVelocity() float64 {
	for {
		push := 1.0
		if l.random.Bool() {
			push = -1.0
		}
		vy := (l.random.Float64()-0.5)*2 + push
		if vy != 0 {
			return vy
		}
	}
}

// Step advances every blob by one tick. A lamp that was never sized is left
// untouched.
func (l *Lamp) Step() {
	if !l.ready {
		return
	}
	for i := range l.blobs {
		b := &l.blobs[i]
		b.X += b.VX
		b.Y += b.VY

		if b.X < -b.radius {
			b.X = l.Width + b.radius
		}
		if b.X > l.Width+b.radius {
			b.X = -b.radius
		}

		if b.Y < -b.radius {
			b.Y = l.Height + b.radius
			b.VY = -math.Abs(b.VY)
		}
		if b.Y > l.Height+b.radius {
			b.Y = -b.radius
			b.VY = math.Abs(b.VY)
		}
	}
	l.ticks++
}

// Blobs returns a copy of the arena.
func (l *Lamp) Blobs() []Blob {
	out := make([]Blob, len(l.blobs))
	copy(out, l.blobs[:])
	return out
}

// Energy is the kinetic energy of the lamp, treating r² as blob mass.
func (l *Lamp) Energy() float64 {
	if !l.ready {
		return 0
	}
	e := 0.0
	for _, b := range l.blobs {
		e += 0.5 * b.radius * b.radius * (b.VX*b.VX + b.VY*b.VY)
	}
	return e
}
