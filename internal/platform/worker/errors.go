package worker

import "errors"

// ErrPanic wraps a value recovered from a panicking iteration.
var ErrPanic = errors.New("worker iteration panicked")
