package mvu

import (
	"context"
	"log"

	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/fixedstep"
	"github.com/delaneyj/framemvu/queue"
	"github.com/delaneyj/framemvu/sub"
)

type (
	InitFunc[Model, Msg any]      func(ctx Context[Msg]) (Model, command.Cmd[Msg])
	UpdateFunc[Model, Msg any]    func(msg Msg, model Model) (Model, command.Cmd[Msg])
	SubscribeFunc[Model, Msg any] func(ctx Context[Msg], model Model) sub.Sub[Msg]
	OnErrorFunc                   func(err error)
)

// Context is the per-program handle given to Init and Subscribe.
type Context[Msg any] struct {
	ctx      context.Context
	dispatch func(Msg)
	env      any
}

// Ctx is canceled when the program shuts down.
func (c Context[Msg]) Ctx() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

func (c Context[Msg]) Dispatch(msg Msg) {
	c.dispatch(msg)
}

// Env is the value passed as Config.Env, typically the host's collaborators.
func (c Context[Msg]) Env() any {
	return c.env
}

// Poller is an external component that gets a chance to inject messages at the
// very start of every frame, before deferred effects are flushed.
type Poller[Msg any] interface {
	Poll(dispatch func(Msg))
}

type PollerFunc[Msg any] func(dispatch func(Msg))

func (f PollerFunc[Msg]) Poll(dispatch func(Msg)) {
	f(dispatch)
}

// Config wires user code into a Program. Init and Update are required.
type Config[Model, Msg any] struct {
	Init      InitFunc[Model, Msg]
	Update    UpdateFunc[Model, Msg]
	Subscribe SubscribeFunc[Model, Msg]

	Mode queue.Mode
	// FixedStep, when set, dispatches one message per simulated step before the tick.
	FixedStep *fixedstep.Config[Msg]
	// Tick, when set, dispatches one message per frame carrying the raw elapsed seconds.
	Tick func(elapsed float64) Msg

	Pollers []Poller[Msg]

	// MaxMessagesPerFrame stops a drain pass after that many messages and leaves
	// the rest queued for the next frame. Zero means no limit.
	MaxMessagesPerFrame int
	// QueueCapacity pre-sizes the message buffers.
	QueueCapacity int

	// OnError receives recovered subscription failures. They are logged either way.
	OnError OnErrorFunc
	Logger  *log.Logger
	Env     any
}

const DefaultQueueCapacity = 64
