package main

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/delaneyj/framemvu/internal/arena"
	"gopkg.in/yaml.v3"
)

var ErrEventFrame = errors.New("scenario: event frame must be at least 1")

// Scenario scripts input for a demo run. Events are injected at the start of
// their frame and stalls replace that frame's elapsed time.
type Scenario struct {
	Frames int     `yaml:"frames"`
	FPS    float64 `yaml:"fps"`
	Events []Event `yaml:"events"`
	Stalls []Stall `yaml:"stalls"`
}

type Event struct {
	Frame         uint64 `yaml:"frame"`
	Spawn         int    `yaml:"spawn,omitempty"`
	Pause         *bool  `yaml:"pause,omitempty"`
	AddEmitter    string `yaml:"add_emitter,omitempty"`
	RemoveEmitter string `yaml:"remove_emitter,omitempty"`
	Quit          bool   `yaml:"quit,omitempty"`
}

type Stall struct {
	Frame   uint64  `yaml:"frame"`
	Seconds float64 `yaml:"seconds"`
}

func LoadScenario(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	return ParseScenario(b)
}

func ParseScenario(b []byte) (*Scenario, error) {
	sc := &Scenario{}
	if err := yaml.Unmarshal(b, sc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	for _, e := range sc.Events {
		if e.Frame == 0 {
			return nil, ErrEventFrame
		}
	}
	slices.SortStableFunc(sc.Events, func(a, b Event) int { return cmp.Compare(a.Frame, b.Frame) })
	slices.SortStableFunc(sc.Stalls, func(a, b Stall) int { return cmp.Compare(a.Frame, b.Frame) })
	return sc, nil
}

// Msgs lists the messages an event stands for, in a fixed order.
func (e Event) Msgs() []arena.Msg {
	var msgs []arena.Msg
	if e.AddEmitter != "" {
		msgs = append(msgs, arena.AddEmitter{Name: e.AddEmitter})
	}
	if e.RemoveEmitter != "" {
		msgs = append(msgs, arena.RemoveEmitter{Name: e.RemoveEmitter})
	}
	if e.Pause != nil {
		msgs = append(msgs, arena.SetPaused{Paused: *e.Pause})
	}
	if e.Spawn > 0 {
		msgs = append(msgs, arena.Spawn{Count: e.Spawn})
	}
	if e.Quit {
		msgs = append(msgs, arena.Quit{})
	}
	return msgs
}

// Stall returns the scripted elapsed time for frame, if any.
func (sc *Scenario) Stall(frame uint64) (float64, bool) {
	i, ok := slices.BinarySearchFunc(sc.Stalls, frame, func(s Stall, f uint64) int { return cmp.Compare(s.Frame, f) })
	if !ok {
		return 0, false
	}
	return sc.Stalls[i].Seconds, true
}

// scenarioPoller replays events as the frames they name begin. It counts frames
// itself because the program polls exactly once per frame.
type scenarioPoller struct {
	events []Event
	next   int
	frame  uint64
}

func (sp *scenarioPoller) Poll(dispatch func(arena.Msg)) {
	sp.frame++
	for sp.next < len(sp.events) && sp.events[sp.next].Frame <= sp.frame {
		for _, msg := range sp.events[sp.next].Msgs() {
			dispatch(msg)
		}
		sp.next++
	}
}
