// Package sub describes the external listeners a model wants and reconciles
// those descriptions against the listeners that are already running.
package sub

// Dispatch hands a message back to the runtime. It is safe to call from any goroutine.
type Dispatch[Msg any] func(msg Msg)

// Disposer releases the resource acquired by a StartFunc. The Differ calls it exactly once.
type Disposer func()

// StartFunc acquires a listener that feeds messages into dispatch.
type StartFunc[Msg any] func(dispatch Dispatch[Msg]) (Disposer, error)

type kind uint8

const (
	kindNone kind = iota
	kindOne
	kindBatch
)

// Sub is an immutable description of desired listeners. The zero value is None.
type Sub[Msg any] struct {
	kind  kind
	id    ID
	start StartFunc[Msg]
	subs  []Sub[Msg]
}

func None[Msg any]() Sub[Msg] {
	return Sub[Msg]{}
}

// On declares a single listener. A nil start yields None.
func On[Msg any](id ID, start StartFunc[Msg]) Sub[Msg] {
	if start == nil {
		return Sub[Msg]{}
	}
	return Sub[Msg]{kind: kindOne, id: id, start: start}
}

func Batch[Msg any](subs ...Sub[Msg]) Sub[Msg] {
	n, last := 0, -1
	for i, s := range subs {
		if s.kind != kindNone {
			n++
			last = i
		}
	}
	switch n {
	case 0:
		return Sub[Msg]{}
	case 1:
		return subs[last]
	}
	kept := make([]Sub[Msg], 0, n)
	for _, s := range subs {
		if s.kind != kindNone {
			kept = append(kept, s)
		}
	}
	return Sub[Msg]{kind: kindBatch, subs: kept}
}

func (s Sub[Msg]) IsNone() bool {
	return s.kind == kindNone
}

// Map namespaces every identifier in s under prefix and translates the messages
// its listeners dispatch through f. The result is flat, in declaration order.
func Map[A, B any](prefix string, f func(A) B, s Sub[A]) Sub[B] {
	leaves, _ := flatten(s, nil, nil)
	switch len(leaves) {
	case 0:
		return Sub[B]{}
	case 1:
		return mapLeaf(prefix, f, leaves[0])
	}
	mapped := make([]Sub[B], len(leaves))
	for i, l := range leaves {
		mapped[i] = mapLeaf(prefix, f, l)
	}
	return Sub[B]{kind: kindBatch, subs: mapped}
}

func mapLeaf[A, B any](prefix string, f func(A) B, leaf Sub[A]) Sub[B] {
	start := leaf.start
	return Sub[B]{
		kind: kindOne,
		id:   leaf.id.Prefix(prefix),
		start: func(dispatch Dispatch[B]) (Disposer, error) {
			return start(func(a A) {
				dispatch(f(a))
			})
		},
	}
}

// flatten appends the leaves of s to leaves using stack as an explicit worklist,
// so arbitrarily deep batches never grow the goroutine stack. Both slices are
// returned to the caller for reuse; leaves keeps declaration order.
func flatten[Msg any](s Sub[Msg], leaves, stack []Sub[Msg]) ([]Sub[Msg], []Sub[Msg]) {
	stack = append(stack[:0], s)
	for len(stack) > 0 {
		top := len(stack) - 1
		cur := stack[top]
		stack[top] = Sub[Msg]{}
		stack = stack[:top]

		switch cur.kind {
		case kindOne:
			leaves = append(leaves, cur)
		case kindBatch:
			for i := len(cur.subs) - 1; i >= 0; i-- {
				stack = append(stack, cur.subs[i])
			}
		}
	}
	return leaves, stack
}
