package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	clsfake "github.com/chriscow/eco-go/pkg/ai/classify/fake"
	srcfake "github.com/chriscow/eco-go/pkg/source/fake"
	spkfake "github.com/chriscow/eco-go/pkg/speech/fake"
	"github.com/matryer/is"
)

// harness drives a Controller with a manual ticker and clock.
type harness struct {
	t   *testing.T
	c   *Controller
	cls *clsfake.FakeClassifier
	src *srcfake.FakeSource
	spk *spkfake.FakeSpeaker

	ticks chan time.Time

	mu       sync.Mutex
	clock    time.Time
	verdicts []Verdict
}

func newHarness(t *testing.T, cls *clsfake.FakeClassifier, caps Capabilities) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		cls:   cls,
		src:   srcfake.NewFakeSource(),
		spk:   spkfake.NewFakeSpeaker(),
		ticks: make(chan time.Time),
		clock: time.Unix(1_000, 0),
	}
	c, err := New(Config{
		Classifier:          cls,
		Source:              h.src,
		Speaker:             h.spk,
		Capabilities:        caps,
		ConfidenceThreshold: 0.5,
	})
	if err != nil {
		t.Fatal(err)
	}
	c.newTicker = func(time.Duration) (<-chan time.Time, func()) { return h.ticks, func() {} }
	c.now = func() time.Time {
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.clock
	}
	c.OnVerdict(func(v Verdict) {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.verdicts = append(h.verdicts, v)
	})
	h.c = c
	t.Cleanup(c.Stop)
	return h
}

// step advances the clock past the sample interval, fires one tick and waits
// for the sample to be applied.
func (h *harness) step() {
	h.t.Helper()
	h.mu.Lock()
	h.clock = h.clock.Add(DefaultSampleInterval)
	now := h.clock
	h.mu.Unlock()

	before := h.c.Metrics().SamplesCompleted.Value()
	h.ticks <- now
	deadline := time.Now().Add(2 * time.Second)
	for h.c.Metrics().SamplesCompleted.Value() == before {
		if time.Now().After(deadline) {
			h.t.Fatal("sample was not applied")
		}
		time.Sleep(time.Millisecond)
	}
}

// advance moves the clock without ticking.
func (h *harness) advance(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clock = h.clock.Add(d)
}

func (h *harness) announcements() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	var idx []int
	for i, v := range h.verdicts {
		if v.ShouldAnnounce {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func repeat(r classify.Result, n int) []clsfake.Step {
	steps := make([]clsfake.Step, n)
	for i := range steps {
		steps[i] = clsfake.Step{Result: r}
	}
	return steps
}

func TestController_AnnouncesOnThirdTickOnly(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.9), 4)...), speechOn)

	is.NoErr(h.c.Start(context.Background()))
	for i := 0; i < 4; i++ {
		h.step()
	}

	is.Equal(h.announcements(), []int{3})
	is.Equal(h.spk.Spoken(), []string{"This is Organic."})
	is.Equal(h.c.Snapshot().Stability.ConsecutiveCount, 4)
	is.Equal(h.c.Metrics().Dispatches.Value(), int64(1))
}

func TestController_FailedCallLeavesStateUnchanged(t *testing.T) {
	is := is.New(t)
	steps := []clsfake.Step{
		{Result: clsfake.Single("Inorganic", 0.8)},
		{Result: clsfake.Single("Inorganic", 0.8)},
		{Err: errors.New("inference timeout")},
		{Result: clsfake.Single("Inorganic", 0.8)},
	}
	h := newHarness(t, clsfake.NewFakeClassifier(steps...), speechOn)
	is.NoErr(h.c.Start(context.Background()))

	h.step()
	h.step()
	before := h.c.Snapshot().Stability

	h.step() // failing call
	is.Equal(h.c.Snapshot().Stability, before)
	is.Equal(h.c.Metrics().ClassifierFailures.Value(), int64(1))

	h.step()
	is.Equal(h.c.Snapshot().Stability.ConsecutiveCount, 3)
	is.Equal(h.announcements(), []int{3}) // third verdict; the failure produced none
}

func TestController_RestartResetsStability(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.9), 1)...), speechOn)
	ctx := context.Background()

	is.NoErr(h.c.Start(ctx))
	firstSession := h.c.Snapshot().SessionID
	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.c.Snapshot().Stability.LastSpokenLabel, "Organic")

	h.c.Stop()
	is.Equal(h.c.State(), StateIdle)
	is.NoErr(h.c.Start(ctx))

	snap := h.c.Snapshot()
	is.Equal(snap.Stability, StabilityState{}) // fresh state
	is.True(snap.SessionID != firstSession)

	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.announcements(), []int{3, 6}) // announced again after restart
	is.Equal(len(h.spk.Spoken()), 2)         // cooldown history was reset too
}

func TestController_CooldownSuppressesAnnouncement(t *testing.T) {
	is := is.New(t)
	steps := append(repeat(clsfake.Single("Organic", 0.9), 3), repeat(clsfake.Single("Inorganic", 0.9), 3)...)
	h := newHarness(t, clsfake.NewFakeClassifier(steps...), speechOn)
	is.NoErr(h.c.Start(context.Background()))

	is.True(h.c.Say("Welcome!")) // a Q&A answer shares the cooldown
	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.spk.Spoken(), []string{"Welcome!"}) // 1.2s later, still cooling down

	h.advance(2 * time.Second)
	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.spk.Spoken(), []string{"Welcome!", "This is Inorganic."})
	is.Equal(h.announcements(), []int{3, 6})
}

func TestController_SpeechMutedOrAbsent(t *testing.T) {
	is := is.New(t)

	h := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.9), 1)...), Capabilities{})
	is.NoErr(h.c.Start(context.Background()))
	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.announcements(), []int{3})
	is.Equal(len(h.spk.Spoken()), 0) // announced, never spoken

	h2 := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.9), 1)...), speechOn)
	h2.c.SetSpeechEnabled(false)
	is.NoErr(h2.c.Start(context.Background()))
	for i := 0; i < 3; i++ {
		h2.step()
	}
	is.Equal(len(h2.spk.Spoken()), 0)
	is.True(!h2.c.Snapshot().SpeechEnabled)
}

func TestController_ThresholdChangeAppliesToNextSample(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.6), 1)...), speechOn)
	is.NoErr(h.c.Start(context.Background()))

	h.step()
	is.Equal(h.c.Snapshot().Stability.ConsecutiveCount, 1)

	is.NoErr(h.c.SetConfidenceThreshold(0.7))
	h.step()
	is.Equal(h.c.Snapshot().Stability.ConsecutiveCount, 0) // 0.6 is now below threshold

	is.True(errors.Is(h.c.SetConfidenceThreshold(1.5), ErrInvalidThreshold))
	is.Equal(h.c.ConfidenceThreshold(), 0.7)
}

func TestController_ZeroThresholdAcceptsAnyConfidence(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.05), 1)...), speechOn)
	is.NoErr(h.c.SetConfidenceThreshold(0))
	is.NoErr(h.c.Start(context.Background()))

	for i := 0; i < 3; i++ {
		h.step()
	}
	is.Equal(h.c.ConfidenceThreshold(), 0.0)
	is.Equal(h.announcements(), []int{3})
}

func TestController_StartIsIdempotent(t *testing.T) {
	is := is.New(t)
	h := newHarness(t, clsfake.NewFakeClassifier(), speechOn)
	ctx := context.Background()

	is.NoErr(h.c.Start(ctx))
	is.NoErr(h.c.Start(ctx))
	h.c.Stop()
	h.c.Stop()

	opens, closes, _ := h.src.Counts()
	is.Equal(opens, 1)
	is.Equal(closes, 1)
	is.True(h.cls.Loaded())
	is.Equal(h.c.Metrics().StateTransitions.Get("Idle->Running").String(), "1")
}

func TestController_StartFailures(t *testing.T) {
	is := is.New(t)

	h := newHarness(t, clsfake.NewFakeClassifier().WithLoadError(errors.New("model missing")), speechOn)
	err := h.c.Start(context.Background())
	is.True(errors.Is(err, ai.ErrClassifierUnavailable))
	is.Equal(h.c.State(), StateIdle)
	opens, _, _ := h.src.Counts()
	is.Equal(opens, 0) // source is never acquired for a broken classifier

	h2 := newHarness(t, clsfake.NewFakeClassifier(), speechOn)
	h2.src.OpenErr = errors.New("camera busy")
	err = h2.c.Start(context.Background())
	is.True(errors.Is(err, ai.ErrSourceUnavailable))
	is.Equal(h2.c.State(), StateIdle)
}

func TestController_StopDiscardsInFlightResult(t *testing.T) {
	is := is.New(t)
	cls := clsfake.NewFakeClassifier(repeat(clsfake.Single("Organic", 0.9), 1)...).WithDelay(time.Hour)
	h := newHarness(t, cls, speechOn)
	is.NoErr(h.c.Start(context.Background()))

	h.ticks <- time.Unix(2_000, 0)
	deadline := time.Now().Add(2 * time.Second)
	for cls.Calls() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("classifier was not called")
		}
		time.Sleep(time.Millisecond)
	}

	h.c.Stop()
	is.Equal(h.c.Metrics().SamplesCompleted.Value(), int64(0))
	is.Equal(len(h.announcements()), 0)
	is.True(!h.src.IsOpen())

	calls := cls.Calls()
	time.Sleep(20 * time.Millisecond)
	is.Equal(cls.Calls(), calls) // nothing issued after Stop
}

func TestController_SkipsTicksWhileBusy(t *testing.T) {
	is := is.New(t)
	cls := clsfake.NewFakeClassifier().WithDelay(time.Hour)
	h := newHarness(t, cls, speechOn)
	is.NoErr(h.c.Start(context.Background()))

	t0 := time.Unix(3_000, 0)
	h.ticks <- t0
	h.ticks <- t0.Add(time.Second)
	h.ticks <- t0.Add(2 * time.Second)

	is.Equal(h.c.Metrics().SamplesStarted.Value(), int64(1))
	is.True(h.c.Metrics().SkippedTicks.Value() >= 1)
}

func TestNew_Validation(t *testing.T) {
	is := is.New(t)

	_, err := New(Config{Source: srcfake.NewFakeSource()})
	is.True(errors.Is(err, ai.ErrClassifierUnavailable))

	_, err = New(Config{Classifier: clsfake.NewFakeClassifier()})
	is.True(errors.Is(err, ai.ErrSourceUnavailable))

	_, err = New(Config{Classifier: clsfake.NewFakeClassifier(), Source: srcfake.NewFakeSource(), ConfidenceThreshold: 2})
	is.True(errors.Is(err, ErrInvalidThreshold))

	c, err := New(Config{Classifier: clsfake.NewFakeClassifier(), Source: srcfake.NewFakeSource()})
	is.NoErr(err)
	is.Equal(c.ConfidenceThreshold(), DefaultConfidenceThreshold)
	is.Equal(c.State().String(), "Idle")
}
