package arena

import "fmt"

// Msg is everything the arena's update understands.
type Msg interface {
	isArenaMsg()
}

type (
	// Step advances the simulation by DT seconds.
	Step struct{ DT float64 }

	// Tick carries the raw frame time, used only for the wall clock.
	Tick struct{ Elapsed float64 }

	Spawn     struct{ Count int }
	SetPaused struct{ Paused bool }

	// AddEmitter starts a named spawner that fires a Spawn every SpawnEvery.
	AddEmitter    struct{ Name string }
	RemoveEmitter struct{ Name string }

	// Announce is delivered one frame after a spawn wave.
	Announce struct{ Text string }

	Quit       struct{}
	Saved      struct{ Particles int }
	SaveFailed struct{ Err error }
)

func (Step) isArenaMsg()          {}
func (Tick) isArenaMsg()          {}
func (Spawn) isArenaMsg()         {}
func (SetPaused) isArenaMsg()     {}
func (AddEmitter) isArenaMsg()    {}
func (RemoveEmitter) isArenaMsg() {}
func (Announce) isArenaMsg()      {}
func (Quit) isArenaMsg()          {}
func (Saved) isArenaMsg()         {}
func (SaveFailed) isArenaMsg()    {}

func Describe(msg Msg) string {
	switch m := msg.(type) {
	case Step:
		return fmt.Sprintf("step(%.4f)", m.DT)
	case Tick:
		return fmt.Sprintf("tick(%.4f)", m.Elapsed)
	case Spawn:
		return fmt.Sprintf("spawn(%d)", m.Count)
	case SetPaused:
		return fmt.Sprintf("paused(%t)", m.Paused)
	case AddEmitter:
		return "add-emitter(" + m.Name + ")"
	case RemoveEmitter:
		return "remove-emitter(" + m.Name + ")"
	case Announce:
		return "announce(" + m.Text + ")"
	case Quit:
		return "quit"
	case Saved:
		return fmt.Sprintf("saved(%d)", m.Particles)
	case SaveFailed:
		return "save-failed(" + m.Err.Error() + ")"
	default:
		return fmt.Sprintf("%T", msg)
	}
}
