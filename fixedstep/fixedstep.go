// Package fixedstep turns variable frame deltas into a bounded number of
// constant-size simulation steps.
package fixedstep

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidStep     = errors.New("fixedstep: step must be positive")
	ErrInvalidMaxSteps = errors.New("fixedstep: max steps must be positive")
	ErrInvalidMaxFrame = errors.New("fixedstep: max frame must be at least one step")
	ErrMissingMapping  = errors.New("fixedstep: step mapping is required")
)

// Compute adds the clamped delta to the carried time and takes whole steps out of
// it, at most maxSteps of them. When the cap is hit and a full step is still
// left over, the whole remainder is dropped instead of carried into later frames.
func Compute(step float64, maxSteps int, maxFrame, acc, delta float64) (newAcc float64, steps int, dropped bool) {
	if math.IsNaN(delta) || delta < 0 {
		delta = 0
	}
	if delta > maxFrame {
		delta = maxFrame
	}
	if math.IsNaN(acc) || acc < 0 {
		acc = 0
	}

	acc += delta
	for acc >= step && steps < maxSteps {
		acc -= step
		steps++
	}

	if steps == maxSteps && acc >= step {
		return 0, steps, true
	}
	if acc < 0 {
		acc = 0
	}
	return acc, steps, false
}

// Config describes a fixed-step simulation. Times are in seconds.
type Config[Msg any] struct {
	Step     float64
	MaxSteps int
	MaxFrame float64
	ToMsg    func(step float64) Msg
}

// DefaultConfig is a 60 Hz simulation that tolerates a quarter second hitch.
func DefaultConfig[Msg any](toMsg func(step float64) Msg) Config[Msg] {
	return Config[Msg]{
		Step:     1.0 / 60.0,
		MaxSteps: 5,
		MaxFrame: 0.25,
		ToMsg:    toMsg,
	}
}

func (c Config[Msg]) Validate() error {
	switch {
	case !(c.Step > 0) || math.IsInf(c.Step, 1):
		return fmt.Errorf("%w: %v", ErrInvalidStep, c.Step)
	case c.MaxSteps <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidMaxSteps, c.MaxSteps)
	case math.IsNaN(c.MaxFrame) || c.MaxFrame < c.Step:
		return fmt.Errorf("%w: %v < %v", ErrInvalidMaxFrame, c.MaxFrame, c.Step)
	case c.ToMsg == nil:
		return ErrMissingMapping
	}
	return nil
}

// Accumulator carries leftover time between frames for one Config.
type Accumulator[Msg any] struct {
	cfg     Config[Msg]
	acc     float64
	dropped uint64
}

func NewAccumulator[Msg any](cfg Config[Msg]) (*Accumulator[Msg], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Accumulator[Msg]{cfg: cfg}, nil
}

// Advance consumes delta seconds and returns how many steps to run this frame.
func (a *Accumulator[Msg]) Advance(delta float64) (steps int, dropped bool) {
	a.acc, steps, dropped = Compute(a.cfg.Step, a.cfg.MaxSteps, a.cfg.MaxFrame, a.acc, delta)
	if dropped {
		a.dropped++
	}
	return steps, dropped
}

// StepMsg is the message for one step, always built from the constant step size.
func (a *Accumulator[Msg]) StepMsg() Msg {
	return a.cfg.ToMsg(a.cfg.Step)
}

// Alpha is the fraction of a step carried into the next frame, useful for
// interpolating rendered state between the last two simulated states.
func (a *Accumulator[Msg]) Alpha() float64 {
	return a.acc / a.cfg.Step
}

func (a *Accumulator[Msg]) Carry() float64 {
	return a.acc
}

// Drops counts frames whose backlog was discarded.
func (a *Accumulator[Msg]) Drops() uint64 {
	return a.dropped
}

func (a *Accumulator[Msg]) Config() Config[Msg] {
	return a.cfg
}

func (a *Accumulator[Msg]) Reset() {
	a.acc = 0
}
