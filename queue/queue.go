// Package queue is the message inbox of a program: many producers, one consumer.
package queue

import (
	"fmt"
	"sync"
)

// Mode selects where messages dispatched during a drain pass end up.
type Mode uint8

const (
	// Immediate drains messages dispatched during a pass in that same pass.
	Immediate Mode = iota
	// FrameBounded holds messages dispatched during a pass until the next pass.
	FrameBounded
)

func (m Mode) String() string {
	switch m {
	case Immediate:
		return "immediate"
	case FrameBounded:
		return "frame-bounded"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode accepts the names produced by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "immediate":
		return Immediate, nil
	case "frame-bounded", "framebounded", "bounded":
		return FrameBounded, nil
	default:
		return Immediate, fmt.Errorf("queue: unknown mode %q", s)
	}
}

// Queue is safe for concurrent Dispatch. Begin, Pop and End belong to the
// single consumer goroutine.
type Queue[Msg any] struct {
	mu         sync.Mutex
	mode       Mode
	processing bool

	current []Msg
	head    int
	next    []Msg
}

func New[Msg any](mode Mode, capacity int) *Queue[Msg] {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue[Msg]{
		mode:    mode,
		current: make([]Msg, 0, capacity),
		next:    make([]Msg, 0, capacity),
	}
}

func (q *Queue[Msg]) Mode() Mode {
	return q.mode
}

// Dispatch enqueues msg. In FrameBounded mode a message dispatched while a pass
// is running is held for the next pass.
func (q *Queue[Msg]) Dispatch(msg Msg) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.processing && q.mode == FrameBounded {
		q.next = append(q.next, msg)
		return
	}
	q.current = append(q.current, msg)
}

// Begin marks the start of a drain pass.
func (q *Queue[Msg]) Begin() {
	q.mu.Lock()
	q.processing = true
	q.mu.Unlock()
}

// Pop removes the oldest message of the current pass.
func (q *Queue[Msg]) Pop() (msg Msg, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.current) {
		q.compact()
		return msg, false
	}
	msg = q.current[q.head]
	var zero Msg
	q.current[q.head] = zero
	q.head++
	if q.head == len(q.current) {
		q.compact()
	}
	return msg, true
}

// End closes the drain pass. In FrameBounded mode the held messages become the
// start of the next pass, behind anything the pass left undrained.
func (q *Queue[Msg]) End() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.processing = false
	if len(q.next) == 0 {
		return
	}
	q.compact()
	if len(q.current) == 0 {
		q.current, q.next = q.next, q.current
		return
	}
	q.current = append(q.current, q.next...)
	clear(q.next)
	q.next = q.next[:0]
}

func (q *Queue[Msg]) Processing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.processing
}

// Len counts every queued message, including those held for the next pass.
func (q *Queue[Msg]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.current) - q.head + len(q.next)
}

// Ready counts the messages the running pass can still pop. Messages held for
// the next pass are not included.
func (q *Queue[Msg]) Ready() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.current) - q.head
}

// Clear drops every queued message.
func (q *Queue[Msg]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	clear(q.current)
	clear(q.next)
	q.current = q.current[:0]
	q.next = q.next[:0]
	q.head = 0
	q.processing = false
}

// compact rewinds current once everything before head has been consumed,
// so the backing array is reused instead of grown. Caller holds mu.
func (q *Queue[Msg]) compact() {
	if q.head == 0 {
		return
	}
	if q.head >= len(q.current) {
		q.current = q.current[:0]
		q.head = 0
		return
	}
	n := copy(q.current, q.current[q.head:])
	clear(q.current[n:])
	q.current = q.current[:n]
	q.head = 0
}
