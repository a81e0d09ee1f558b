package sim

import "fmt"

// Stepper advances some piece of simulation state by one tick.
type Stepper interface {
	Tick()
}

// StepperFunc adapts a plain function to Stepper.
type StepperFunc func()

func (f StepperFunc) Tick() { f() }

// Observer is notified after every completed tick.
type Observer interface {
	OnTick(tick uint64)
}

type Config struct {
	FPS int
}

func DefaultConfig() Config {
	return Config{FPS: 60}
}

func (c Config) validate() error {
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	return nil
}
