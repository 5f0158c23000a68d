package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"github.com/delaneyj/framemvu/cmd/demo/templates"
	"github.com/delaneyj/framemvu/internal/arena"
	"github.com/delaneyj/framemvu/mvu"
	"github.com/delaneyj/framemvu/queue"
	"gopkg.in/yaml.v3"
)

// Frames the host keeps running after the last scripted frame while it waits
// for the save to land. Simulated frames sleep a millisecond each.
const drainFrames = 500

type hostConfig struct {
	mode        queue.Mode
	fps         float64
	frames      int
	step        float64
	maxSteps    int
	maxFrame    float64
	maxMessages int
	jitter      float64
	realtime    bool
	seed        uint64
}

func run(ctx context.Context, hc hostConfig, ac arena.Config, env arena.Env, sc *Scenario, logger *log.Logger) (*templates.Summary, error) {
	if !(hc.fps > 0) {
		return nil, fmt.Errorf("demo: fps must be positive, got %v", hc.fps)
	}

	g := arena.New(ac, env)
	cfg := g.ProgramConfig(hc.mode, logger)
	cfg.FixedStep.Step = hc.step
	cfg.FixedStep.MaxSteps = hc.maxSteps
	cfg.FixedStep.MaxFrame = hc.maxFrame
	cfg.MaxMessagesPerFrame = hc.maxMessages
	cfg.OnError = func(err error) {
		logger.Printf("subscription error: %v", err)
	}

	if sc != nil {
		cfg.Pollers = append(cfg.Pollers, &scenarioPoller{events: sc.Events})
	}

	p, err := mvu.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := p.Start(ctx); err != nil {
		return nil, err
	}
	defer p.Shutdown()

	h := &host{
		cfg:    hc,
		sc:     sc,
		p:      p,
		rng:    rand.New(rand.NewPCG(hc.seed, hc.seed^0x5851f42d4c957f2d)),
		period: 1 / hc.fps,
	}
	if hc.realtime {
		h.ticker = time.NewTicker(time.Duration(h.period * float64(time.Second)))
		defer h.ticker.Stop()
		h.last = time.Now()
	}

	for i := 0; i < hc.frames; i++ {
		if err := h.frame(ctx); err != nil {
			return nil, err
		}
		if p.Model().Saved {
			break
		}
		if i > 0 && i%int(max(hc.fps, 1)) == 0 {
			m := p.Model()
			logger.Printf("frame %d: %d particles, %d subscriptions", p.Frame(), len(m.Particles), p.Subscriptions())
		}
	}

	if m := p.Model(); !m.Quitting {
		p.Dispatch(arena.Quit{})
	}
	for i := 0; i < drainFrames && !h.settled(); i++ {
		if h.ticker == nil {
			time.Sleep(time.Millisecond)
		}
		if err := h.frame(ctx); err != nil {
			return nil, err
		}
	}

	return h.summary(), nil
}

type host struct {
	cfg    hostConfig
	sc     *Scenario
	p      *mvu.Program[arena.Model, arena.Msg]
	rng    *rand.Rand
	period float64
	ticker *time.Ticker
	last   time.Time
	peak   int
}

func (h *host) frame(ctx context.Context) error {
	elapsed, err := h.elapsed(ctx)
	if err != nil {
		return err
	}
	if err := h.p.AdvanceFrame(elapsed); err != nil {
		return err
	}
	h.peak = max(h.peak, h.p.LastFrame().Messages)
	return nil
}

func (h *host) elapsed(ctx context.Context) (float64, error) {
	if h.sc != nil {
		if s, ok := h.sc.Stall(h.p.Frame() + 1); ok {
			return s, nil
		}
	}
	if h.ticker == nil {
		return h.period * (1 + h.cfg.jitter*(2*h.rng.Float64()-1)), nil
	}
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case now := <-h.ticker.C:
		elapsed := now.Sub(h.last).Seconds()
		h.last = now
		return elapsed, nil
	}
}

// settled reports whether the quit has been saved or has failed and nothing
// is left to process.
func (h *host) settled() bool {
	m := h.p.Model()
	if !m.Saved && m.SaveErr == "" {
		return false
	}
	msgs, deferred := h.p.Pending()
	return msgs == 0 && deferred == 0
}

func (h *host) summary() *templates.Summary {
	m := h.p.Model()
	t := h.p.Totals()
	emitters := m.Emitters.ToSlice()
	slices.Sort(emitters)
	return &templates.Summary{
		Mode:            h.cfg.mode.String(),
		Frames:          t.Frames,
		WallTime:        m.WallTime,
		SimTime:         m.SimTime,
		Messages:        t.Messages,
		PeakMessages:    h.peak,
		Steps:           t.Steps,
		DroppedFrames:   t.DroppedFrames,
		TruncatedFrames: t.TruncatedFrames,
		Deferred:        t.Deferred,
		SubsStarted:     t.SubsStarted,
		SubsStopped:     t.SubsStopped,
		SubsFailed:      t.SubsFailed,
		Particles:       len(m.Particles),
		Spawned:         m.Spawned,
		Expired:         m.Expired,
		Bounces:         m.Bounces,
		Emitters:        emitters,
		Announcements:   m.Announcements,
		Saved:           m.Saved,
		SavedParticles:  m.SavedN,
		SaveErr:         m.SaveErr,
	}
}

type snapshot struct {
	SimTime   float64         `yaml:"sim_time"`
	Steps     uint64          `yaml:"steps"`
	Particles []snapshotPoint `yaml:"particles"`
}

type snapshotPoint struct {
	ID uint64  `yaml:"id"`
	X  float64 `yaml:"x"`
	Y  float64 `yaml:"y"`
}

// snapshotWriter returns a save collaborator that writes the model as YAML.
func snapshotWriter(path string) func(arena.Model) (int, error) {
	return func(m arena.Model) (int, error) {
		snap := snapshot{
			SimTime:   m.SimTime,
			Steps:     m.Steps,
			Particles: make([]snapshotPoint, len(m.Particles)),
		}
		for i, pt := range m.Particles {
			snap.Particles[i] = snapshotPoint{ID: pt.ID, X: pt.X, Y: pt.Y}
		}
		b, err := yaml.Marshal(snap)
		if err != nil {
			return 0, err
		}
		if err := os.WriteFile(path, b, 0644); err != nil {
			return 0, err
		}
		return len(snap.Particles), nil
	}
}
