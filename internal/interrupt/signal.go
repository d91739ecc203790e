// Package interrupt provides per-run cooperative cancellation. Each
// in-flight execution carries its own Signal; long-running loops observe
// it at bounded intervals and exit between safe checkpoints, never
// mid-write. The lifecycle manager brackets its use (assert, wait,
// clear) when interrupting a run, so stopping one run never disturbs
// another.
package interrupt

import (
	"errors"
	"sync/atomic"
)

// ErrInterrupted marks an execution that stopped because the signal was
// asserted. It is not a failure; interrupted runs are always resumable.
var ErrInterrupted = errors.New("execution interrupted")

// Signal is a single boolean flag, default false.
type Signal struct {
	flag atomic.Bool
}

// NewSignal returns a cleared signal.
func NewSignal() *Signal {
	return &Signal{}
}

// Set asserts or clears the signal.
func (s *Signal) Set(v bool) {
	s.flag.Store(v)
}

// Interrupted reports whether the signal is asserted.
func (s *Signal) Interrupted() bool {
	return s.flag.Load()
}

// Err returns ErrInterrupted when the signal is asserted, nil otherwise.
// Suspension points use it as a one-line check.
func (s *Signal) Err() error {
	if s.flag.Load() {
		return ErrInterrupted
	}
	return nil
}

// IsInterrupted reports whether err is (or wraps) an interruption.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}
