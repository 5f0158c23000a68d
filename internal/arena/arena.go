// Package arena is a small particle game used by the demo and benchmark hosts.
package arena

import (
	"fmt"
	"log"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/fixedstep"
	"github.com/delaneyj/framemvu/mvu"
	"github.com/delaneyj/framemvu/queue"
	"github.com/delaneyj/framemvu/sub"
)

const maxAnnouncements = 8

type Config struct {
	Width, Height float64
	// Lifetime is how long a particle lives in simulated seconds.
	Lifetime     float64
	MaxParticles int
	// SpawnEvery drives the emitter subscriptions. Zero disables them.
	SpawnEvery time.Duration
	Burst      int
	Emitters   []string
	Seed       uint64
}

func DefaultConfig() Config {
	return Config{
		Width:        640,
		Height:       480,
		Lifetime:     3,
		MaxParticles: 4096,
		SpawnEvery:   250 * time.Millisecond,
		Burst:        8,
		Emitters:     []string{"north"},
		Seed:         0x9e3779b97f4a7c15,
	}
}

// Env holds the host collaborators reachable from subscriptions and commands.
type Env struct {
	// Input, when set, is forwarded into the program as a subscription.
	Input <-chan Msg
	// Save persists a snapshot and returns how many particles it wrote.
	Save func(Model) (int, error)
}

type Particle struct {
	ID       uint64
	X, Y     float64
	VX, VY   float64
	Lifetime float64
}

// Model is owned by the program. Update mutates Particles, Live and Emitters
// in place, so anything that outlives the update call gets its own copies.
type Model struct {
	Particles []Particle
	Live      mapset.Set[uint64]
	Emitters  mapset.Set[string]

	Paused   bool
	Quitting bool
	Saved    bool
	SavedN   int
	SaveErr  string

	SimTime  float64
	WallTime float64
	Steps    uint64
	Ticks    uint64

	Spawned int
	Expired int
	Bounces int
	Waves   int

	Announcements []string

	rng    uint64
	nextID uint64
}

type Game struct {
	cfg Config
	env Env
}

func New(cfg Config, env Env) *Game {
	return &Game{cfg: cfg, env: env}
}

// ProgramConfig wires the game into an mvu program running in mode.
func (g *Game) ProgramConfig(mode queue.Mode, logger *log.Logger) mvu.Config[Model, Msg] {
	fs := fixedstep.DefaultConfig(func(dt float64) Msg { return Step{DT: dt} })
	return mvu.Config[Model, Msg]{
		Init:      g.Init,
		Update:    g.Update,
		Subscribe: g.Subscribe,
		Mode:      mode,
		FixedStep: &fs,
		Tick:      func(elapsed float64) Msg { return Tick{Elapsed: elapsed} },
		Logger:    logger,
		Env:       g.env,
	}
}

func (g *Game) Init(ctx mvu.Context[Msg]) (Model, command.Cmd[Msg]) {
	m := Model{
		Particles: make([]Particle, 0, 64),
		Live:      mapset.NewThreadUnsafeSet[uint64](),
		Emitters:  mapset.NewThreadUnsafeSet[string](),
		rng:       g.cfg.Seed | 1,
	}
	for _, name := range g.cfg.Emitters {
		m.Emitters.Add(name)
	}
	return m, command.None[Msg]()
}

func (g *Game) Update(msg Msg, m Model) (Model, command.Cmd[Msg]) {
	switch msg := msg.(type) {
	case Step:
		if !m.Paused {
			g.integrate(&m, msg.DT)
		}
	case Tick:
		m.WallTime += msg.Elapsed
		m.Ticks++
	case Spawn:
		if m.Quitting || msg.Count <= 0 {
			break
		}
		n := g.spawn(&m, msg.Count)
		if n == 0 {
			break
		}
		m.Waves++
		text := fmt.Sprintf("wave %d: %d particles", m.Waves, n)
		return m, command.DeferNextFrame(command.OfMsg[Msg](Announce{Text: text}))
	case SetPaused:
		m.Paused = msg.Paused
	case AddEmitter:
		m.Emitters.Add(msg.Name)
	case RemoveEmitter:
		m.Emitters.Remove(msg.Name)
	case Announce:
		m.Announcements = append(m.Announcements, msg.Text)
		if over := len(m.Announcements) - maxAnnouncements; over > 0 {
			m.Announcements = slices.Delete(m.Announcements, 0, over)
		}
	case Quit:
		if m.Quitting {
			break
		}
		m.Quitting = true
		return m, g.save(m)
	case Saved:
		m.Saved = true
		m.SavedN = msg.Particles
	case SaveFailed:
		m.SaveErr = msg.Err.Error()
	}
	return m, command.None[Msg]()
}

func (g *Game) Subscribe(ctx mvu.Context[Msg], m Model) sub.Sub[Msg] {
	if m.Quitting {
		return sub.None[Msg]()
	}

	var subs []sub.Sub[Msg]
	if env, ok := ctx.Env().(Env); ok && env.Input != nil {
		subs = append(subs, sub.FromChan(sub.NewID("input"), env.Input, func(msg Msg) Msg { return msg }))
	}

	if !m.Paused && g.cfg.SpawnEvery > 0 {
		names := m.Emitters.ToSlice()
		slices.Sort(names)
		burst := Spawn{Count: max(g.cfg.Burst, 1)}
		for _, name := range names {
			subs = append(subs, sub.Every(sub.NewID("emitter", name), g.cfg.SpawnEvery, func(time.Time) Msg {
				return burst
			}))
		}
	}
	return sub.Batch(subs...)
}

func (g *Game) save(m Model) command.Cmd[Msg] {
	if g.env.Save == nil {
		return command.OfMsg[Msg](Saved{Particles: len(m.Particles)})
	}
	snapshot := m
	snapshot.Particles = slices.Clone(m.Particles)
	snapshot.Live = m.Live.Clone()
	snapshot.Emitters = m.Emitters.Clone()
	return command.OfAsync(
		func() (int, error) { return g.env.Save(snapshot) },
		func(n int) Msg { return Saved{Particles: n} },
		func(err error) Msg { return SaveFailed{Err: err} },
	)
}

func (g *Game) spawn(m *Model, count int) int {
	room := g.cfg.MaxParticles - len(m.Particles)
	if g.cfg.MaxParticles <= 0 {
		room = count
	}
	n := min(count, room)
	for i := 0; i < n; i++ {
		m.nextID++
		p := Particle{
			ID:       m.nextID,
			X:        g.cfg.Width / 2,
			Y:        g.cfg.Height / 2,
			VX:       (m.random() - 0.5) * 400,
			VY:       (m.random() - 0.5) * 400,
			Lifetime: g.cfg.Lifetime,
		}
		m.Particles = append(m.Particles, p)
		m.Live.Add(p.ID)
	}
	m.Spawned += n
	return n
}

func (g *Game) integrate(m *Model, dt float64) {
	m.SimTime += dt
	m.Steps++

	live := m.Particles[:0]
	for _, p := range m.Particles {
		p.Lifetime -= dt
		if p.Lifetime <= 0 {
			m.Live.Remove(p.ID)
			m.Expired++
			continue
		}
		p.X += p.VX * dt
		p.Y += p.VY * dt
		if p.X < 0 || p.X > g.cfg.Width {
			p.VX = -p.VX
			p.X = clamp(p.X, 0, g.cfg.Width)
			m.Bounces++
		}
		if p.Y < 0 || p.Y > g.cfg.Height {
			p.VY = -p.VY
			p.Y = clamp(p.Y, 0, g.cfg.Height)
			m.Bounces++
		}
		live = append(live, p)
	}
	clear(m.Particles[len(live):])
	m.Particles = live
}

// random is xorshift64*, enough to scatter particles deterministically.
func (m *Model) random() float64 {
	m.rng ^= m.rng >> 12
	m.rng ^= m.rng << 25
	m.rng ^= m.rng >> 27
	return float64((m.rng*0x2545f4914f6cdd1d)>>11) / (1 << 53)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
