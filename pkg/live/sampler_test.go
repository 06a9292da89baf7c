package live

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestSampler_IntervalAndBusy(t *testing.T) {
	is := is.New(t)
	t0 := time.Unix(0, 0)
	s := NewSampler(400 * time.Millisecond)

	seq, ok := s.TryBegin(t0)
	is.True(ok)
	is.Equal(seq, uint64(1))

	_, ok = s.TryBegin(t0.Add(500 * time.Millisecond))
	is.True(!ok) // in flight, no queuing

	is.True(s.Complete(seq))
	is.True(!s.Busy())

	_, ok = s.TryBegin(t0.Add(399 * time.Millisecond))
	is.True(!ok) // interval measured from the previous start

	seq, ok = s.TryBegin(t0.Add(400 * time.Millisecond))
	is.True(ok)
	is.Equal(seq, uint64(2))
}

func TestSampler_DisplayCadenceYieldsOneSamplePerInterval(t *testing.T) {
	is := is.New(t)
	t0 := time.Unix(0, 0)
	s := NewSampler(400 * time.Millisecond)

	started := 0
	for now := t0; now.Before(t0.Add(2 * time.Second)); now = now.Add(16 * time.Millisecond) {
		if seq, ok := s.TryBegin(now); ok {
			started++
			s.Complete(seq)
		}
	}
	is.Equal(started, 5) // 0, 400, 800, 1200, 1600
}

func TestSampler_StaleCompletion(t *testing.T) {
	is := is.New(t)
	s := NewSampler(time.Millisecond)

	old, _ := s.TryBegin(time.Unix(0, 0))
	s.Reset()
	seq, ok := s.TryBegin(time.Unix(0, 0))
	is.True(ok)

	is.True(!s.Complete(old)) // result from before the reset
	is.True(s.Busy())
	is.True(s.Complete(seq))
}
