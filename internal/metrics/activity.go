package metrics

import "sync"

// EnergySource is anything that reports a kinetic energy, e.g. render.Surface.
type EnergySource interface {
	Energy() float64
}

// Activity tracks a smoothed kinetic energy of the lamp as a rough
// "how much is moving" gauge for display. It is an observer of the
// simulation loop and carries no statistical meaning.
type Activity struct {
	mu      sync.Mutex
	name    string
	source  EnergySource
	alpha   float64
	value   float64
	peak    float64
	samples int
}

// NewActivity smooths with an exponential moving average of weight alpha
// in (0, 1]; out-of-range values fall back to 0.1.
func NewActivity(source EnergySource, alpha float64) *Activity {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &Activity{name: "activity", source: source, alpha: alpha}
}

func (a *Activity) Name() string { return a.name }

// OnTick samples the source. It implements sim.Observer.
func (a *Activity) OnTick(uint64) {
	e := a.source.Energy()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.samples == 0 {
		a.value = e
	} else {
		a.value += a.alpha * (e - a.value)
	}
	if e > a.peak {
		a.peak = e
	}
	a.samples++
}

func (a *Activity) Value() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.value
}

// Level is the smoothed energy relative to the highest sample seen, in [0, 1].
func (a *Activity) Level() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.peak == 0 {
		return 0
	}
	return a.value / a.peak
}

func (a *Activity) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.value, a.peak, a.samples = 0, 0, 0
}
