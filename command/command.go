// Package command describes side effects returned from init and update.
//
// A Cmd is plain data. Its effects are split into two partitions: effects that
// run now, while the message that produced them is still being processed, and
// effects deferred to the start of the next frame.
package command

// Cmd is an immutable set of effects. The zero value is the no-op command.
type Cmd[Msg any] struct {
	now      effects[Msg]
	deferred effects[Msg]
}

func None[Msg any]() Cmd[Msg] {
	return Cmd[Msg]{}
}

// OfEffect wraps a single effect that runs now. A nil effect yields None.
func OfEffect[Msg any](e Effect[Msg]) Cmd[Msg] {
	if e == nil {
		return Cmd[Msg]{}
	}
	return Cmd[Msg]{now: single(e)}
}

// OfMsg dispatches msg as soon as the command runs.
func OfMsg[Msg any](msg Msg) Cmd[Msg] {
	return OfEffect(func(dispatch Dispatch[Msg]) {
		dispatch(msg)
	})
}

// Perform calls fn synchronously when the command runs and dispatches its result.
func Perform[Msg any](fn func() Msg) Cmd[Msg] {
	if fn == nil {
		return Cmd[Msg]{}
	}
	return OfEffect(func(dispatch Dispatch[Msg]) {
		dispatch(fn())
	})
}

// Map translates every message the command's effects dispatch through f.
// The now/deferred partition is kept as is.
func Map[A, B any](f func(A) B, c Cmd[A]) Cmd[B] {
	if c.IsNone() {
		return Cmd[B]{}
	}
	return Cmd[B]{
		now:      mapEffects(c.now, f),
		deferred: mapEffects(c.deferred, f),
	}
}

// DeferNextFrame moves every effect of c into the deferred partition,
// now effects first. Deferring an already deferred command returns it unchanged.
func DeferNextFrame[Msg any](c Cmd[Msg]) Cmd[Msg] {
	if c.now.len() == 0 {
		return c
	}
	return Cmd[Msg]{deferred: concat(c.now, c.deferred)}
}

// Batch concatenates the now effects and the deferred effects of cmds, keeping order.
func Batch[Msg any](cmds ...Cmd[Msg]) Cmd[Msg] {
	switch len(cmds) {
	case 0:
		return Cmd[Msg]{}
	case 1:
		return cmds[0]
	}

	nowLen, deferredLen := 0, 0
	for _, c := range cmds {
		nowLen += c.now.len()
		deferredLen += c.deferred.len()
	}

	return Cmd[Msg]{
		now:      gather(cmds, nowLen, func(c Cmd[Msg]) effects[Msg] { return c.now }),
		deferred: gather(cmds, deferredLen, func(c Cmd[Msg]) effects[Msg] { return c.deferred }),
	}
}

func gather[Msg any](cmds []Cmd[Msg], total int, part func(Cmd[Msg]) effects[Msg]) effects[Msg] {
	switch total {
	case 0:
		return effects[Msg]{}
	case 1:
		for _, c := range cmds {
			if es := part(c); es.len() == 1 {
				return es
			}
		}
	}
	many := make([]Effect[Msg], 0, total)
	for _, c := range cmds {
		many = part(c).appendTo(many)
	}
	return effects[Msg]{many: many}
}

func (c Cmd[Msg]) IsNone() bool {
	return c.now.len() == 0 && c.deferred.len() == 0
}

func (c Cmd[Msg]) NowLen() int {
	return c.now.len()
}

func (c Cmd[Msg]) DeferredLen() int {
	return c.deferred.len()
}

// RunNow invokes the now effects in order. Deferred effects are ignored.
func (c Cmd[Msg]) RunNow(dispatch Dispatch[Msg]) {
	if c.now.many != nil {
		for _, e := range c.now.many {
			e(dispatch)
		}
		return
	}
	if c.now.one != nil {
		c.now.one(dispatch)
	}
}

// AppendDeferred appends the deferred effects to buf and returns the extended slice.
func (c Cmd[Msg]) AppendDeferred(buf []Effect[Msg]) []Effect[Msg] {
	return c.deferred.appendTo(buf)
}

// EachNow and EachDeferred visit the effects of a partition in order.
func (c Cmd[Msg]) EachNow(fn func(Effect[Msg])) {
	c.now.each(fn)
}

func (c Cmd[Msg]) EachDeferred(fn func(Effect[Msg])) {
	c.deferred.each(fn)
}
