package mvu_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/delaneyj/framemvu/command"
	"github.com/delaneyj/framemvu/fixedstep"
	"github.com/delaneyj/framemvu/mvu"
	"github.com/delaneyj/framemvu/queue"
	"github.com/delaneyj/framemvu/sub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60.0

var quiet = log.New(io.Discard, "", 0)

type counterMsg int

const increment counterMsg = iota

func counterProgram(t *testing.T, mode queue.Mode, limit int) *mvu.Program[int, counterMsg] {
	t.Helper()
	p, err := mvu.New(mvu.Config[int, counterMsg]{
		Mode: mode,
		Init: func(mvu.Context[counterMsg]) (int, command.Cmd[counterMsg]) {
			return 0, command.None[counterMsg]()
		},
		Update: func(msg counterMsg, n int) (int, command.Cmd[counterMsg]) {
			n++
			if n < 3 {
				return n, command.OfMsg(increment)
			}
			return n, command.None[counterMsg]()
		},
		MaxMessagesPerFrame: limit,
		Logger:              quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	return p
}

func TestImmediateCascadeDrainsInOneFrame(t *testing.T) {
	p := counterProgram(t, queue.Immediate, 0)
	p.Dispatch(increment)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 3, p.Model())
	assert.Equal(t, 3, p.LastFrame().Messages)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 3, p.Model())
	assert.Zero(t, p.LastFrame().Messages)
}

func TestFrameBoundedCascadeAdvancesOncePerFrame(t *testing.T) {
	p := counterProgram(t, queue.FrameBounded, 0)
	p.Dispatch(increment)

	for want := 1; want <= 3; want++ {
		require.NoError(t, p.AdvanceFrame(frame))
		assert.Equal(t, want, p.Model())
		assert.Equal(t, 1, p.LastFrame().Messages)
	}

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 3, p.Model())
	assert.Zero(t, p.LastFrame().Messages)
	assert.Equal(t, uint64(3), p.Totals().Messages)
}

func TestMaxMessagesPerFrame(t *testing.T) {
	p := counterProgram(t, queue.Immediate, 2)
	p.Dispatch(increment)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 2, p.Model())
	assert.True(t, p.LastFrame().Truncated)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 3, p.Model())
	assert.False(t, p.LastFrame().Truncated)
	assert.Equal(t, uint64(1), p.Totals().TruncatedFrames)
}

func TestFrameOrdering(t *testing.T) {
	var frames [][]string
	cur := -1
	nextFrame := func() {
		frames = append(frames, nil)
		cur++
	}

	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.None[string]()
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			frames[cur] = append(frames[cur], msg)
			if msg == "start" {
				return n + 1, command.Batch(
					command.OfMsg("now"),
					command.DeferNextFrame(command.OfMsg("later")),
				)
			}
			return n + 1, command.None[string]()
		},
		Pollers: []mvu.Poller[string]{
			mvu.PollerFunc[string](func(dispatch func(string)) {
				if cur == 0 {
					dispatch("poll")
				}
			}),
		},
		FixedStep: &fixedstep.Config[string]{
			Step:     0.1,
			MaxSteps: 3,
			MaxFrame: 1,
			ToMsg:    func(step float64) string { return fmt.Sprintf("step:%.1f", step) },
		},
		Tick:   func(elapsed float64) string { return fmt.Sprintf("tick:%.2f", elapsed) },
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	p.Dispatch("start")
	nextFrame()
	require.NoError(t, p.AdvanceFrame(0.25))
	assert.Equal(t, []string{"start", "poll", "step:0.1", "step:0.1", "tick:0.25", "now"}, frames[0])
	assert.Equal(t, 2, p.LastFrame().Steps)
	assert.Zero(t, p.LastFrame().Deferred)

	nextFrame()
	require.NoError(t, p.AdvanceFrame(0.06))
	assert.Equal(t, []string{"later", "step:0.1", "tick:0.06"}, frames[1])
	assert.Equal(t, 1, p.LastFrame().Deferred)

	nextFrame()
	require.NoError(t, p.AdvanceFrame(5))
	assert.Equal(t, []string{"step:0.1", "step:0.1", "step:0.1", "tick:5.00"}, frames[2])
	assert.True(t, p.LastFrame().Dropped)
	assert.Zero(t, p.FixedStep().Carry())

	totals := p.Totals()
	assert.Equal(t, uint64(3), totals.Frames)
	assert.Equal(t, uint64(6), totals.Steps)
	assert.Equal(t, uint64(1), totals.DroppedFrames)
	assert.Equal(t, uint64(1), totals.Deferred)
}

func TestDeferredEffectsNeverRunInTheirOwnFrame(t *testing.T) {
	ran := 0
	p, err := mvu.New(mvu.Config[int, string]{
		Mode: queue.Immediate,
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.None[string]()
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			return n + 1, command.DeferNextFrame(command.OfEffect(func(dispatch command.Dispatch[string]) {
				ran++
			}))
		},
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	p.Dispatch("a")
	p.Dispatch("b")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Zero(t, ran)
	_, deferred := p.Pending()
	assert.Equal(t, 2, deferred)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 2, ran)
	_, deferred = p.Pending()
	assert.Zero(t, deferred)
}

func TestInitCommand(t *testing.T) {
	var seen []string
	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(ctx mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.Batch(
				command.OfMsg("boot"),
				command.DeferNextFrame(command.OfMsg("deferred-boot")),
			)
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			seen = append(seen, msg)
			return n + 1, command.None[string]()
		},
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	assert.Empty(t, seen)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, []string{"boot", "deferred-boot"}, seen)
}

type phaseModel struct {
	phase string
}

type tracker struct {
	mu       sync.Mutex
	starts   map[string]int
	disposes map[string]int
	failures map[string]int
}

func newTracker() *tracker {
	return &tracker{starts: map[string]int{}, disposes: map[string]int{}, failures: map[string]int{}}
}

func (tr *tracker) listener(name string) sub.Sub[string] {
	return sub.On(sub.NewID(name), func(dispatch sub.Dispatch[string]) (sub.Disposer, error) {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		if tr.failures[name] > 0 {
			tr.failures[name]--
			return nil, errors.New("not ready")
		}
		tr.starts[name]++
		return func() {
			tr.mu.Lock()
			defer tr.mu.Unlock()
			tr.disposes[name]++
		}, nil
	})
}

func phaseProgram(t *testing.T, tr *tracker, onError mvu.OnErrorFunc) *mvu.Program[phaseModel, string] {
	t.Helper()
	p, err := mvu.New(mvu.Config[phaseModel, string]{
		Init: func(mvu.Context[string]) (phaseModel, command.Cmd[string]) {
			return phaseModel{phase: "menu"}, command.None[string]()
		},
		Update: func(msg string, m phaseModel) (phaseModel, command.Cmd[string]) {
			if msg != "noop" {
				m.phase = msg
			}
			return m, command.None[string]()
		},
		Subscribe: func(ctx mvu.Context[string], m phaseModel) sub.Sub[string] {
			switch m.phase {
			case "menu":
				return sub.Batch(tr.listener("keys"), tr.listener("music"))
			case "play":
				return sub.Batch(tr.listener("keys"), tr.listener("timer"), tr.listener("flaky"))
			}
			return sub.None[string]()
		},
		OnError: onError,
		Logger:  quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))
	return p
}

func TestSubscriptionsFollowModel(t *testing.T) {
	tr := newTracker()
	p := phaseProgram(t, tr, nil)
	assert.Equal(t, 2, p.Subscriptions())

	p.Dispatch("play")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 1, tr.starts["keys"])
	assert.Zero(t, tr.disposes["keys"])
	assert.Equal(t, 1, tr.disposes["music"])
	assert.Equal(t, 1, tr.starts["timer"])
	assert.Equal(t, sub.DiffResult{Started: 2, Stopped: 1, Kept: 1}, p.LastFrame().Subs)

	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, sub.DiffResult{}, p.LastFrame().Subs)

	p.Dispatch("noop")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, sub.DiffResult{Kept: 3}, p.LastFrame().Subs)
	assert.Equal(t, 1, tr.starts["timer"])

	assert.Equal(t, 3, p.Shutdown())
	for _, name := range []string{"keys", "timer", "flaky"} {
		assert.Equal(t, tr.starts[name], tr.disposes[name], name)
	}
	assert.Zero(t, p.Shutdown())
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrShutdown)
}

func TestSubscriptionStartFailureRetriesOnNextDiff(t *testing.T) {
	tr := newTracker()
	tr.failures["flaky"] = 2

	var errs []error
	p := phaseProgram(t, tr, func(err error) { errs = append(errs, err) })

	p.Dispatch("play")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Equal(t, 1, p.LastFrame().Subs.Failed)
	assert.Equal(t, 2, p.Subscriptions())
	require.Len(t, errs, 1)
	var se *sub.StartError
	require.ErrorAs(t, errs[0], &se)
	assert.Equal(t, "flaky", se.ID.String())

	// No messages, no diff, no retry.
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Len(t, errs, 1)

	p.Dispatch("noop")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Len(t, errs, 2)

	p.Dispatch("noop")
	require.NoError(t, p.AdvanceFrame(frame))
	assert.Len(t, errs, 2)
	assert.Equal(t, 3, p.Subscriptions())
	assert.Equal(t, 1, tr.starts["flaky"])
	assert.Equal(t, uint64(2), p.Totals().SubsFailed)
}

func TestUpdatePanicFailsProgram(t *testing.T) {
	tr := newTracker()
	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.None[string]()
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			if msg == "boom" {
				panic("invariant violated")
			}
			return n + 1, command.None[string]()
		},
		Subscribe: func(mvu.Context[string], int) sub.Sub[string] {
			return tr.listener("input")
		},
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	p.Dispatch("ok")
	p.Dispatch("boom")
	assert.PanicsWithValue(t, "invariant violated", func() {
		_ = p.AdvanceFrame(frame)
	})
	assert.Equal(t, 1, p.Model())
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrFailed)

	assert.Equal(t, 1, p.Shutdown())
	assert.Equal(t, 1, tr.disposes["input"])
}

func TestDeferredEffectPanicFailsProgram(t *testing.T) {
	ran := 0
	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.DeferNextFrame(command.Batch(
				command.OfEffect(func(command.Dispatch[string]) { panic("effect failed") }),
				command.OfEffect(func(command.Dispatch[string]) { ran++ }),
			))
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			return n + 1, command.None[string]()
		},
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	assert.PanicsWithValue(t, "effect failed", func() {
		_ = p.AdvanceFrame(frame)
	})
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrFailed)
	assert.Zero(t, ran)
	_, deferred := p.Pending()
	assert.Equal(t, 1, deferred)
}

func TestPollerPanicFailsProgram(t *testing.T) {
	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.None[string]()
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			return n + 1, command.None[string]()
		},
		Pollers: []mvu.Poller[string]{
			mvu.PollerFunc[string](func(func(string)) { panic("device lost") }),
		},
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	assert.PanicsWithValue(t, "device lost", func() {
		_ = p.AdvanceFrame(frame)
	})
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrFailed)
}

func TestInitPanicFailsProgram(t *testing.T) {
	p, err := mvu.New(mvu.Config[int, string]{
		Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
			return 0, command.OfEffect(func(command.Dispatch[string]) { panic("bad init") })
		},
		Update: func(msg string, n int) (int, command.Cmd[string]) {
			return n + 1, command.None[string]()
		},
		Logger: quiet,
	})
	require.NoError(t, err)

	assert.PanicsWithValue(t, "bad init", func() {
		_ = p.Start(context.Background())
	})
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrFailed)
	assert.ErrorIs(t, p.Start(context.Background()), mvu.ErrAlreadyStarted)
	p.Shutdown()
}

func TestFrameBoundedHeldMessagesAreNotTruncation(t *testing.T) {
	p := counterProgram(t, queue.FrameBounded, 1)
	p.Dispatch(increment)

	for want := 1; want <= 3; want++ {
		require.NoError(t, p.AdvanceFrame(frame))
		assert.Equal(t, want, p.Model())
		assert.False(t, p.LastFrame().Truncated)
	}
	assert.Zero(t, p.Totals().TruncatedFrames)

	p.Dispatch(increment)
	p.Dispatch(increment)
	require.NoError(t, p.AdvanceFrame(frame))
	assert.True(t, p.LastFrame().Truncated)
	assert.Equal(t, uint64(1), p.Totals().TruncatedFrames)
}

func TestLifecycleErrors(t *testing.T) {
	_, err := mvu.New(mvu.Config[int, string]{})
	assert.ErrorIs(t, err, mvu.ErrMissingInit)

	initFn := func(mvu.Context[string]) (int, command.Cmd[string]) { return 0, command.None[string]() }
	updateFn := func(msg string, n int) (int, command.Cmd[string]) { return n, command.None[string]() }

	_, err = mvu.New(mvu.Config[int, string]{Init: initFn})
	assert.ErrorIs(t, err, mvu.ErrMissingUpdate)

	_, err = mvu.New(mvu.Config[int, string]{Init: initFn, Update: updateFn, Mode: queue.Mode(9)})
	assert.ErrorIs(t, err, mvu.ErrInvalidMode)

	_, err = mvu.New(mvu.Config[int, string]{Init: initFn, Update: updateFn, MaxMessagesPerFrame: -1})
	assert.ErrorIs(t, err, mvu.ErrInvalidLimit)

	_, err = mvu.New(mvu.Config[int, string]{
		Init:      initFn,
		Update:    updateFn,
		FixedStep: &fixedstep.Config[string]{Step: -1, MaxSteps: 1, MaxFrame: 1},
	})
	assert.ErrorIs(t, err, fixedstep.ErrInvalidStep)

	p, err := mvu.New(mvu.Config[int, string]{Init: initFn, Update: updateFn, Logger: quiet})
	require.NoError(t, err)
	assert.ErrorIs(t, p.AdvanceFrame(frame), mvu.ErrNotStarted)
	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), mvu.ErrAlreadyStarted)
}

func TestContextIsPerProgram(t *testing.T) {
	type env struct{ name string }

	var captured []mvu.Context[string]
	mk := func(name string) *mvu.Program[int, string] {
		p, err := mvu.New(mvu.Config[int, string]{
			Init: func(ctx mvu.Context[string]) (int, command.Cmd[string]) {
				captured = append(captured, ctx)
				return 0, command.None[string]()
			},
			Update: func(msg string, n int) (int, command.Cmd[string]) { return n + 1, command.None[string]() },
			Env:    env{name: name},
			Logger: quiet,
		})
		require.NoError(t, err)
		require.NoError(t, p.Start(context.Background()))
		return p
	}

	a, b := mk("a"), mk("b")
	require.Len(t, captured, 2)
	assert.Equal(t, env{name: "a"}, captured[0].Env())
	assert.Equal(t, env{name: "b"}, captured[1].Env())

	captured[0].Dispatch("hello")
	require.NoError(t, a.AdvanceFrame(frame))
	require.NoError(t, b.AdvanceFrame(frame))
	assert.Equal(t, 1, a.Model())
	assert.Zero(t, b.Model())

	a.Shutdown()
	assert.Error(t, captured[0].Ctx().Err())
	assert.NoError(t, captured[1].Ctx().Err())
	b.Shutdown()
}

func TestAsyncResultsArriveInLaterFrames(t *testing.T) {
	p, err := mvu.New(mvu.Config[[]string, string]{
		Init: func(mvu.Context[string]) ([]string, command.Cmd[string]) {
			return nil, command.None[string]()
		},
		Update: func(msg string, m []string) ([]string, command.Cmd[string]) {
			m = append(m, msg)
			if msg == "fetch" {
				return m, command.OfAsync(
					func() (int, error) { return 42, nil },
					func(v int) string { return fmt.Sprintf("got:%d", v) },
					func(err error) string { return "failed:" + err.Error() },
				)
			}
			return m, command.None[string]()
		},
		Mode:   queue.FrameBounded,
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	p.Dispatch("fetch")
	deadline := time.Now().Add(time.Second)
	for len(p.Model()) < 2 && time.Now().Before(deadline) {
		require.NoError(t, p.AdvanceFrame(frame))
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, []string{"fetch", "got:42"}, p.Model())
}

func TestConcurrentDispatchWhileAdvancing(t *testing.T) {
	for _, mode := range []queue.Mode{queue.Immediate, queue.FrameBounded} {
		t.Run(mode.String(), func(t *testing.T) {
			p, err := mvu.New(mvu.Config[int, string]{
				Mode: mode,
				Init: func(mvu.Context[string]) (int, command.Cmd[string]) {
					return 0, command.None[string]()
				},
				Update: func(msg string, n int) (int, command.Cmd[string]) {
					return n + 1, command.None[string]()
				},
				Logger: quiet,
			})
			require.NoError(t, err)
			require.NoError(t, p.Start(context.Background()))

			const (
				producers = 4
				each      = 250
			)
			var wg sync.WaitGroup
			wg.Add(producers)
			for i := 0; i < producers; i++ {
				go func() {
					defer wg.Done()
					for j := 0; j < each; j++ {
						p.Dispatch("inc")
					}
				}()
			}

			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()

		loop:
			for {
				select {
				case <-done:
					break loop
				default:
					require.NoError(t, p.AdvanceFrame(frame))
				}
			}
			require.NoError(t, p.AdvanceFrame(frame))
			require.NoError(t, p.AdvanceFrame(frame))

			assert.Equal(t, producers*each, p.Model())
		})
	}
}
