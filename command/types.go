package command

// Dispatch hands a message back to the runtime. It is safe to call from any goroutine.
type Dispatch[Msg any] func(msg Msg)

// Effect performs work and reports back through dispatch zero or more times,
// synchronously or later from another goroutine.
type Effect[Msg any] func(dispatch Dispatch[Msg])

// effects holds the common zero and one cases inline, many only exists for two or more.
type effects[Msg any] struct {
	one  Effect[Msg]
	many []Effect[Msg]
}

func single[Msg any](e Effect[Msg]) effects[Msg] {
	return effects[Msg]{one: e}
}

func (es effects[Msg]) len() int {
	if es.many != nil {
		return len(es.many)
	}
	if es.one != nil {
		return 1
	}
	return 0
}

func (es effects[Msg]) each(fn func(Effect[Msg])) {
	if es.many != nil {
		for _, e := range es.many {
			fn(e)
		}
		return
	}
	if es.one != nil {
		fn(es.one)
	}
}

func (es effects[Msg]) appendTo(buf []Effect[Msg]) []Effect[Msg] {
	if es.many != nil {
		return append(buf, es.many...)
	}
	if es.one != nil {
		return append(buf, es.one)
	}
	return buf
}

// concat never aliases the inputs' backing arrays.
func concat[Msg any](a, b effects[Msg]) effects[Msg] {
	la, lb := a.len(), b.len()
	switch {
	case lb == 0:
		return a
	case la == 0:
		return b
	}
	many := make([]Effect[Msg], 0, la+lb)
	many = a.appendTo(many)
	many = b.appendTo(many)
	return effects[Msg]{many: many}
}

func mapEffects[A, B any](es effects[A], f func(A) B) effects[B] {
	if es.many != nil {
		many := make([]Effect[B], len(es.many))
		for i, e := range es.many {
			many[i] = mapEffect(e, f)
		}
		return effects[B]{many: many}
	}
	if es.one != nil {
		return single(mapEffect(es.one, f))
	}
	return effects[B]{}
}

func mapEffect[A, B any](e Effect[A], f func(A) B) Effect[B] {
	return func(dispatch Dispatch[B]) {
		e(func(a A) {
			dispatch(f(a))
		})
	}
}
