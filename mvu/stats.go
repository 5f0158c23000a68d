package mvu

import "github.com/delaneyj/framemvu/sub"

// FrameStats describes one AdvanceFrame call.
type FrameStats struct {
	Frame   uint64
	Elapsed float64

	Deferred  int  // deferred effects flushed from the previous frame
	Steps     int  // fixed-step messages dispatched
	Dropped   bool // fixed-step backlog discarded
	Messages  int  // messages handed to update
	Truncated bool // drain stopped at MaxMessagesPerFrame
	Subs      sub.DiffResult
}

// Totals accumulates FrameStats over the life of a program.
type Totals struct {
	Frames          uint64
	Elapsed         float64
	Deferred        uint64
	Steps           uint64
	DroppedFrames   uint64
	Messages        uint64
	TruncatedFrames uint64
	SubsStarted     uint64
	SubsStopped     uint64
	SubsFailed      uint64
}

func (t *Totals) add(s FrameStats) {
	t.Frames++
	t.Elapsed += s.Elapsed
	t.Deferred += uint64(s.Deferred)
	t.Steps += uint64(s.Steps)
	t.Messages += uint64(s.Messages)
	if s.Dropped {
		t.DroppedFrames++
	}
	if s.Truncated {
		t.TruncatedFrames++
	}
	t.addSubs(s.Subs)
}

func (t *Totals) addSubs(r sub.DiffResult) {
	t.SubsStarted += uint64(r.Started)
	t.SubsStopped += uint64(r.Stopped)
	t.SubsFailed += uint64(r.Failed)
}
