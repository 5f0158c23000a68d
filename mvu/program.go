// Package mvu runs a model-view-update program from a host's frame loop.
//
// The host calls AdvanceFrame once per frame. Each frame runs, in order:
//  1. the configured pollers,
//  2. the effects deferred by the previous frame,
//  3. one message per fixed simulation step,
//  4. the per-frame tick message,
//  5. a drain pass handing every queued message to update and running the
//     now effects of the commands it returns,
//  6. a subscription refresh, if any message was processed.
//
// Dispatch may be called from any goroutine. Everything else, AdvanceFrame
// included, belongs to the goroutine driving the frames.
package mvu

import (
	"context"
	"fmt"
	"log"

	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/fixedstep"
	"github.com/delaneyj/framemvu/queue"
	"github.com/delaneyj/framemvu/sub"
)

type state uint8

const (
	stateNew state = iota
	stateRunning
	stateFailed
	stateShutdown
)

type Program[Model, Msg any] struct {
	cfg    Config[Model, Msg]
	logger *log.Logger

	q        *queue.Queue[Msg]
	differ   *sub.Differ[Msg]
	fixed    *fixedstep.Accumulator[Msg]
	dispatch func(Msg)

	model    Model
	deferred []command.Effect[Msg]
	flushing []command.Effect[Msg]

	ctx    Context[Msg]
	cancel context.CancelFunc
	state  state

	frame  uint64
	last   FrameStats
	totals Totals
}

func New[Model, Msg any](cfg Config[Model, Msg]) (*Program[Model, Msg], error) {
	switch {
	case cfg.Init == nil:
		return nil, ErrMissingInit
	case cfg.Update == nil:
		return nil, ErrMissingUpdate
	case cfg.Mode != queue.Immediate && cfg.Mode != queue.FrameBounded:
		return nil, fmt.Errorf("%w: %v", ErrInvalidMode, cfg.Mode)
	case cfg.MaxMessagesPerFrame < 0:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, cfg.MaxMessagesPerFrame)
	}

	p := &Program[Model, Msg]{
		cfg:    cfg,
		logger: cfg.Logger,
	}
	if p.logger == nil {
		p.logger = log.Default()
	}

	if cfg.FixedStep != nil {
		acc, err := fixedstep.NewAccumulator(*cfg.FixedStep)
		if err != nil {
			return nil, fmt.Errorf("mvu: fixed step: %w", err)
		}
		p.fixed = acc
	}

	capacity := cfg.QueueCapacity
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	p.q = queue.New[Msg](cfg.Mode, capacity)
	p.dispatch = p.q.Dispatch
	p.differ = sub.NewDiffer[Msg](p.reportError)
	p.deferred = make([]command.Effect[Msg], 0, capacity)
	p.flushing = make([]command.Effect[Msg], 0, capacity)

	return p, nil
}

// Start runs init and its command, then starts the initial subscriptions.
// Messages dispatched by init are processed by the first frame.
func (p *Program[Model, Msg]) Start(ctx context.Context) error {
	if p.state != stateNew {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.ctx = Context[Msg]{ctx: runCtx, dispatch: p.dispatch, env: p.cfg.Env}

	finished := false
	defer p.failUnless(&finished)

	model, cmd := p.cfg.Init(p.ctx)
	p.model = model
	p.runCommand(cmd)
	p.totals.addSubs(p.refreshSubscriptions())

	p.state = stateRunning
	finished = true
	return nil
}

// Dispatch enqueues msg. It is safe to call from any goroutine.
func (p *Program[Model, Msg]) Dispatch(msg Msg) {
	p.dispatch(msg)
}

// AdvanceFrame runs one frame. A panic from user code anywhere in the frame
// passes through to the caller and leaves the program failed.
func (p *Program[Model, Msg]) AdvanceFrame(elapsed float64) error {
	switch p.state {
	case stateNew:
		return ErrNotStarted
	case stateFailed:
		return ErrFailed
	case stateShutdown:
		return ErrShutdown
	}

	finished := false
	defer p.failUnless(&finished)

	p.frame++
	stats := FrameStats{Frame: p.frame, Elapsed: elapsed}

	for _, poller := range p.cfg.Pollers {
		poller.Poll(p.dispatch)
	}

	stats.Deferred = p.flushDeferred()

	if p.fixed != nil {
		stats.Steps, stats.Dropped = p.fixed.Advance(elapsed)
		for i := 0; i < stats.Steps; i++ {
			p.dispatch(p.fixed.StepMsg())
		}
	}

	if p.cfg.Tick != nil {
		p.dispatch(p.cfg.Tick(elapsed))
	}

	stats.Messages, stats.Truncated = p.drain()

	if stats.Messages > 0 {
		stats.Subs = p.refreshSubscriptions()
	}

	p.last = stats
	p.totals.add(stats)
	finished = true
	return nil
}

// Shutdown releases every running subscription, cancels the program context and
// drops queued messages and deferred effects. It returns how many subscriptions
// were released.
func (p *Program[Model, Msg]) Shutdown() int {
	if p.state == stateShutdown {
		return 0
	}
	p.state = stateShutdown

	if p.cancel != nil {
		p.cancel()
	}
	n := p.differ.Close()
	p.totals.SubsStopped += uint64(n)

	p.q.Clear()
	clear(p.deferred)
	p.deferred = p.deferred[:0]
	return n
}

func (p *Program[Model, Msg]) Model() Model {
	return p.model
}

func (p *Program[Model, Msg]) Frame() uint64 {
	return p.frame
}

func (p *Program[Model, Msg]) LastFrame() FrameStats {
	return p.last
}

func (p *Program[Model, Msg]) Totals() Totals {
	return p.totals
}

// Pending counts queued messages and effects deferred to the next frame.
func (p *Program[Model, Msg]) Pending() (messages, deferred int) {
	return p.q.Len(), len(p.deferred)
}

func (p *Program[Model, Msg]) Subscriptions() int {
	return p.differ.Len()
}

// FixedStep exposes the accumulator so hosts can interpolate with Alpha.
// It is nil when no fixed step is configured.
func (p *Program[Model, Msg]) FixedStep() *fixedstep.Accumulator[Msg] {
	return p.fixed
}

func (p *Program[Model, Msg]) drain() (n int, truncated bool) {
	limit := p.cfg.MaxMessagesPerFrame

	p.q.Begin()
	defer p.q.End()

	for {
		if limit > 0 && n >= limit {
			truncated = p.q.Ready() > 0
			break
		}
		msg, ok := p.q.Pop()
		if !ok {
			break
		}
		model, cmd := p.cfg.Update(msg, p.model)
		p.model = model
		n++
		p.runCommand(cmd)
	}
	return n, truncated
}

func (p *Program[Model, Msg]) runCommand(cmd command.Cmd[Msg]) {
	if cmd.IsNone() {
		return
	}
	cmd.RunNow(p.dispatch)
	p.deferred = cmd.AppendDeferred(p.deferred)
}

// flushDeferred swaps the two effect buffers so effects deferred while flushing
// could never run in the same pass. If an effect panics, the ones after it go
// back to the deferred buffer so Pending still reports them.
func (p *Program[Model, Msg]) flushDeferred() int {
	if len(p.deferred) == 0 {
		return 0
	}
	p.flushing, p.deferred = p.deferred, p.flushing[:0]

	n := len(p.flushing)
	next := 0
	defer func() {
		if next < n {
			p.deferred = append(p.deferred, p.flushing[next:n]...)
		}
		clear(p.flushing)
		p.flushing = p.flushing[:0]
	}()

	for next < n {
		e := p.flushing[next]
		p.flushing[next] = nil
		next++
		e(p.dispatch)
	}
	return n
}

// failUnless marks the program failed when the guarded call unwinds before
// setting *finished, which only happens on a panic.
func (p *Program[Model, Msg]) failUnless(finished *bool) {
	if !*finished {
		p.state = stateFailed
	}
}

func (p *Program[Model, Msg]) refreshSubscriptions() sub.DiffResult {
	if p.cfg.Subscribe == nil {
		return sub.DiffResult{}
	}
	return p.differ.Apply(p.cfg.Subscribe(p.ctx, p.model), p.dispatch)
}

func (p *Program[Model, Msg]) reportError(err error) {
	p.logger.Printf("mvu: %v", err)
	if p.cfg.OnError != nil {
		p.cfg.OnError(err)
	}
}
