package sub

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

type OnErrorFunc func(err error)

// DiffResult counts what one Apply did.
type DiffResult struct {
	Started int
	Stopped int
	Kept    int
	Failed  int
}

func (r DiffResult) Changed() bool {
	return r.Started != 0 || r.Stopped != 0
}

type entry struct {
	id      ID
	dispose Disposer
}

// Differ owns the running listeners of one program. It is not safe for
// concurrent use; only the goroutine driving frames may call it.
type Differ[Msg any] struct {
	active   map[uint64]entry
	declared mapset.Set[uint64]
	leaves   []Sub[Msg]
	stack    []Sub[Msg]
	onError  OnErrorFunc
}

func NewDiffer[Msg any](onError OnErrorFunc) *Differ[Msg] {
	return &Differ[Msg]{
		active:   map[uint64]entry{},
		declared: mapset.NewThreadUnsafeSet[uint64](),
		onError:  onError,
	}
}

// Apply reconciles the running listeners against the complete declaration s.
// Newly declared IDs are started, IDs no longer declared are disposed, and IDs
// present on both sides keep their running resource untouched.
func (d *Differ[Msg]) Apply(s Sub[Msg], dispatch Dispatch[Msg]) (res DiffResult) {
	d.leaves, d.stack = flatten(s, d.leaves[:0], d.stack)
	defer d.resetLeaves()

	d.declared.Clear()
	for i := range d.leaves {
		leaf := &d.leaves[i]
		key := leaf.id.key

		if !d.declared.Add(key) {
			res.Failed++
			d.report(&StartError{ID: leaf.id, Err: d.conflict(i)})
			continue
		}

		if e, ok := d.active[key]; ok {
			if e.id.Equal(leaf.id) {
				res.Kept++
				continue
			}
			res.Failed++
			d.report(&StartError{ID: leaf.id, Err: fmt.Errorf("%w with running %q", ErrKeyCollision, e.id.String())})
			continue
		}

		dispose, err := startGuarded(leaf.start, dispatch)
		if err != nil {
			res.Failed++
			d.report(&StartError{ID: leaf.id, Err: err})
			continue
		}
		d.active[key] = entry{id: leaf.id, dispose: dispose}
		res.Started++
	}

	for key, e := range d.active {
		if d.declared.Contains(key) {
			continue
		}
		delete(d.active, key)
		d.release(e)
		res.Stopped++
	}
	return res
}

// Close disposes every running listener and returns how many there were.
func (d *Differ[Msg]) Close() int {
	n := len(d.active)
	for key, e := range d.active {
		delete(d.active, key)
		d.release(e)
	}
	d.declared.Clear()
	return n
}

func (d *Differ[Msg]) Len() int {
	return len(d.active)
}

func (d *Differ[Msg]) Has(id ID) bool {
	e, ok := d.active[id.key]
	return ok && e.id.Equal(id)
}

func (d *Differ[Msg]) conflict(i int) error {
	leaf := d.leaves[i]
	if e, ok := d.active[leaf.id.key]; ok && e.id.Equal(leaf.id) {
		return ErrDuplicateID
	}
	for _, earlier := range d.leaves[:i] {
		if earlier.id.key != leaf.id.key {
			continue
		}
		if earlier.id.Equal(leaf.id) {
			return ErrDuplicateID
		}
		return fmt.Errorf("%w with %q", ErrKeyCollision, earlier.id.String())
	}
	return ErrDuplicateID
}

func (d *Differ[Msg]) release(e entry) {
	if e.dispose == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.report(fmt.Errorf("sub: dispose %q: %w", e.id.String(), &PanicError{Value: r}))
		}
	}()
	e.dispose()
}

func (d *Differ[Msg]) report(err error) {
	if d.onError != nil {
		d.onError(err)
	}
}

func (d *Differ[Msg]) resetLeaves() {
	clear(d.leaves)
	d.leaves = d.leaves[:0]
}

func startGuarded[Msg any](start StartFunc[Msg], dispatch Dispatch[Msg]) (dispose Disposer, err error) {
	defer func() {
		if r := recover(); r != nil {
			dispose, err = nil, &PanicError{Value: r}
		}
	}()
	return start(dispatch)
}
