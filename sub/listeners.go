package sub

import (
	"errors"
	"sync"
	"time"
)

var ErrInvalidInterval = errors.New("sub: interval must be positive")

// Every dispatches f(now) on each tick of a ticker running at interval.
// Disposing stops the ticker and waits for its goroutine to exit.
func Every[Msg any](id ID, interval time.Duration, f func(time.Time) Msg) Sub[Msg] {
	return On(id, func(dispatch Dispatch[Msg]) (Disposer, error) {
		if interval <= 0 {
			return nil, ErrInvalidInterval
		}
		ticker := time.NewTicker(interval)
		stop := make(chan struct{})
		done := make(chan struct{})

		go func() {
			defer close(done)
			for {
				select {
				case <-stop:
					return
				case now := <-ticker.C:
					dispatch(f(now))
				}
			}
		}()

		return onceDisposer(func() {
			ticker.Stop()
			close(stop)
			<-done
		}), nil
	})
}

// FromChan forwards every value received on ch through f until disposed or ch is closed.
func FromChan[T, Msg any](id ID, ch <-chan T, f func(T) Msg) Sub[Msg] {
	return On(id, func(dispatch Dispatch[Msg]) (Disposer, error) {
		stop := make(chan struct{})
		done := make(chan struct{})

		go func() {
			defer close(done)
			for {
				select {
				case <-stop:
					return
				case v, ok := <-ch:
					if !ok {
						return
					}
					dispatch(f(v))
				}
			}
		}()

		return onceDisposer(func() {
			close(stop)
			<-done
		}), nil
	})
}

func onceDisposer(fn func()) Disposer {
	var once sync.Once
	return func() {
		once.Do(fn)
	}
}
