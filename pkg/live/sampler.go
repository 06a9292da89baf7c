package live

import "time"

// Sampler throttles classifier invocations: at most one sample per interval,
// measured between the starts of accepted samples, and never while a sample is
// still in flight. Rejected ticks are dropped, never queued.
type Sampler struct {
	interval time.Duration

	busy    bool
	started bool
	last    time.Time
	seq     uint64
}

// NewSampler creates a Sampler.
func NewSampler(interval time.Duration) *Sampler {
	return &Sampler{interval: interval}
}

// TryBegin reports whether a sample may start at now and, if so, marks it in
// flight and returns its sequence number.
func (s *Sampler) TryBegin(now time.Time) (uint64, bool) {
	if s.busy {
		return 0, false
	}
	if s.started && now.Sub(s.last) < s.interval {
		return 0, false
	}
	s.busy = true
	s.started = true
	s.last = now
	s.seq++
	return s.seq, true
}

// Complete ends the sample seq. It returns false for a sample that is not the
// newest one, whose result must then be discarded.
func (s *Sampler) Complete(seq uint64) bool {
	if seq != s.seq || !s.busy {
		return false
	}
	s.busy = false
	return true
}

// Busy reports whether a sample is in flight.
func (s *Sampler) Busy() bool {
	return s.busy
}

// Reset forgets the in-flight sample and the interval history. Sequence
// numbers keep increasing so results from before the reset stay stale.
func (s *Sampler) Reset() {
	s.busy = false
	s.started = false
	s.last = time.Time{}
}
