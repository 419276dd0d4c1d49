package pipeline

import "sync/atomic"

// StopSignal is the shared cancellation flag observed between target
// claims. Once set it stays set until Reset is called, so a stopped
// run cannot be resumed accidentally by a new Run with the same
// signal.
type StopSignal struct {
	flag atomic.Bool
}

// NewStopSignal creates an unset stop signal
func NewStopSignal() *StopSignal {
	return &StopSignal{}
}

// Set requests a cooperative stop
func (s *StopSignal) Set() {
	s.flag.Store(true)
}

// IsSet reports whether a stop was requested
func (s *StopSignal) IsSet() bool {
	return s.flag.Load()
}

// Reset clears the signal for a new run
func (s *StopSignal) Reset() {
	s.flag.Store(false)
}
