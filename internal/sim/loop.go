package sim

import (
	"context"
	"sync"
	"time"
)

// Loop is a cooperative tick scheduler. Each tick runs every stepper in
// registration order and then notifies observers; a tick is never
// interrupted half way. Hosts with their own frame clock call Tick
// directly, everyone else calls Run.
type Loop struct {
	mu        sync.Mutex
	steppers  []Stepper
	observers []Observer
	interval  time.Duration
	ticks     uint64
}

func New(cfg Config, steppers ...Stepper) (*Loop, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Loop{
		steppers:  steppers,
		observers: make([]Observer, 0),
		interval:  time.Second / time.Duration(cfg.FPS),
	}, nil
}

func (l *Loop) AddObserver(o Observer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Interval is the time between ticks when driven by Run.
func (l *Loop) Interval() time.Duration { return l.interval }

// Ticks is the number of completed ticks.
func (l *Loop) Ticks() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ticks
}

// Tick advances exactly one tick.
func (l *Loop) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.steppers {
		s.Tick()
	}
	l.ticks++
	for _, o := range l.observers {
		o.OnTick(l.ticks)
	}
}

// Advance runs n ticks back to back, stopping early if ctx is done.
func (l *Loop) Advance(ctx context.Context, n int) error {
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Tick()
	}
	return nil
}

// Run ticks at the configured rate until ctx is cancelled and returns the
// context error. Cancellation is checked between ticks only.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		l.Tick()
	}
}
