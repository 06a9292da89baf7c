package live

import (
	"expvar"
	"fmt"
)

// Metrics holds the loop counters. They are not registered globally; call
// Publish to expose them under /debug/vars.
type Metrics struct {
	SamplesStarted     *expvar.Int
	SamplesCompleted   *expvar.Int
	SkippedTicks       *expvar.Int
	StaleResults       *expvar.Int
	ClassifierFailures *expvar.Int
	Announcements      *expvar.Int
	Dispatches         *expvar.Int
	Suppressed         *expvar.Int
	LastConfidence     *expvar.Float
	StateTransitions   *expvar.Map
}

func newMetrics() *Metrics {
	transitions := &expvar.Map{}
	transitions.Init()
	return &Metrics{
		SamplesStarted:     &expvar.Int{},
		SamplesCompleted:   &expvar.Int{},
		SkippedTicks:       &expvar.Int{},
		StaleResults:       &expvar.Int{},
		ClassifierFailures: &expvar.Int{},
		Announcements:      &expvar.Int{},
		Dispatches:         &expvar.Int{},
		Suppressed:         &expvar.Int{},
		LastConfidence:     &expvar.Float{},
		StateTransitions:   transitions,
	}
}

// Publish registers the metrics as one expvar map under name. expvar panics on
// duplicate names, so Publish returns an error instead when name is taken.
func (m *Metrics) Publish(name string) error {
	if expvar.Get(name) != nil {
		return fmt.Errorf("expvar %q already published", name)
	}
	root := &expvar.Map{}
	root.Init()
	root.Set("samples_started", m.SamplesStarted)
	root.Set("samples_completed", m.SamplesCompleted)
	root.Set("skipped_ticks", m.SkippedTicks)
	root.Set("stale_results", m.StaleResults)
	root.Set("classifier_failures", m.ClassifierFailures)
	root.Set("announcements", m.Announcements)
	root.Set("dispatches", m.Dispatches)
	root.Set("suppressed_dispatches", m.Suppressed)
	root.Set("last_confidence", m.LastConfidence)
	root.Set("state_transitions", m.StateTransitions)
	expvar.Publish(name, root)
	return nil
}

func (m *Metrics) transition(from, to LoopState) {
	m.StateTransitions.Add(fmt.Sprintf("%s->%s", from, to), 1)
}
