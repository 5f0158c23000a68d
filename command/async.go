package command

import (
	"fmt"
	"runtime/debug"
)

// AsyncPanicError is handed to the error mapping of OfAsync when the operation panics.
type AsyncPanicError struct {
	Value any
	Stack []byte
}

func (e *AsyncPanicError) Error() string {
	return fmt.Sprintf("async operation panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it was an error.
func (e *AsyncPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// OfAsync starts op on its own goroutine when the command runs and dispatches
// onSuccess or onError with the outcome. The calling goroutine never blocks on op.
func OfAsync[T, Msg any](op func() (T, error), onSuccess func(T) Msg, onError func(error) Msg) Cmd[Msg] {
	if op == nil {
		return Cmd[Msg]{}
	}
	return OfEffect(func(dispatch Dispatch[Msg]) {
		go func() {
			v, err := runGuarded(op)
			if err != nil {
				if onError != nil {
					dispatch(onError(err))
				}
				return
			}
			if onSuccess != nil {
				dispatch(onSuccess(v))
			}
		}()
	})
}

func runGuarded[T any](op func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &AsyncPanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return op()
}
