// Package live implements the live classification loop: it samples frames from a
// source, classifies them, smooths the noisy per-frame predictions into a stable
// verdict and speaks advice for that verdict without flooding the listener.
//
// The loop runs through a finite state machine Idle → Running → Idle. While
// Running, one goroutine owns the stability state and handles every tick; the
// only work done off that goroutine is the frame grab and classifier call,
// whose result is applied back on the loop goroutine in sample order.
package live

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/chriscow/eco-go/pkg/ai/classify"
	"github.com/chriscow/eco-go/pkg/source"
	"github.com/chriscow/eco-go/pkg/speech"
	"github.com/google/uuid"
)

// Defaults for Config fields left zero.
const (
	DefaultSampleInterval      = 400 * time.Millisecond
	DefaultTickInterval        = 16 * time.Millisecond
	DefaultConfidenceThreshold = 0.75
	DefaultStabilityThreshold  = 3
	DefaultSpeechCooldown      = 2500 * time.Millisecond
	DefaultBackgroundLabel     = "NoWaste"
)

// ErrInvalidThreshold is returned for a confidence threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("confidence threshold must be within [0, 1]")

// LoopState represents the lifecycle state of the loop.
type LoopState int32

const (
	StateIdle LoopState = iota
	StateRunning
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// Announcer produces the spoken text for a stable label.
type Announcer interface {
	Announcement(label string) string
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(label string) string

// Announcement implements Announcer.
func (f AnnouncerFunc) Announcement(label string) string { return f(label) }

// Verdict is published to observers for every applied sample.
type Verdict struct {
	SessionID string    `json:"session_id"`
	At        time.Time `json:"at"`
	StabilityEvent
	Spoken     string `json:"spoken,omitempty"`
	Dispatched bool   `json:"dispatched"`
}

// Config holds configuration for creating a Controller.
type Config struct {
	Classifier   classify.Classifier
	Source       source.Source
	Speaker      speech.Speaker // optional
	Capabilities Capabilities
	Announcer    Announcer // defaults to "This is <label>."

	SampleInterval time.Duration
	TickInterval   time.Duration

	// ConfidenceThreshold of zero selects DefaultConfidenceThreshold. Call
	// SetConfidenceThreshold(0) to accept every prediction.
	ConfidenceThreshold float64
	StabilityThreshold  int
	SpeechCooldown      time.Duration
	BackgroundLabel     string

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.TickInterval <= 0 {
		c.TickInterval = DefaultTickInterval
	}
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.StabilityThreshold <= 0 {
		c.StabilityThreshold = DefaultStabilityThreshold
	}
	if c.SpeechCooldown <= 0 {
		c.SpeechCooldown = DefaultSpeechCooldown
	}
	if c.BackgroundLabel == "" {
		c.BackgroundLabel = DefaultBackgroundLabel
	}
	if c.Announcer == nil {
		c.Announcer = AnnouncerFunc(func(label string) string { return "This is " + label + "." })
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Snapshot is a point-in-time view of the controller.
type Snapshot struct {
	State               string         `json:"state"`
	SessionID           string         `json:"session_id,omitempty"`
	Stability           StabilityState `json:"stability"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	SpeechEnabled       bool           `json:"speech_enabled"`
	SpeechOutput        bool           `json:"speech_output"`
	LastVerdict         *Verdict       `json:"last_verdict,omitempty"`
}

// session is the per-Start state. Only the loop goroutine touches filter and sampler.
type session struct {
	id      string
	filter  *StabilityFilter
	sampler *Sampler
	cancel  context.CancelFunc
	done    chan struct{}
	calls   sync.WaitGroup
}

type sampleResult struct {
	seq    uint64
	result classify.Result
	err    error
}

// Controller orchestrates Sampler → StabilityFilter → DispatchGate.
type Controller struct {
	cfg     Config
	logger  *slog.Logger
	gate    *DispatchGate
	metrics *Metrics

	threshold atomic.Uint64 // math.Float64bits
	state     atomic.Int32

	mu      sync.Mutex // serializes Start and Stop
	session *session

	obsMu     sync.RWMutex
	observers []func(Verdict)

	snapMu      sync.Mutex
	sessionID   string
	stability   StabilityState
	lastVerdict *Verdict

	newTicker func(d time.Duration) (<-chan time.Time, func())
	now       func() time.Time
}

// New creates a new Controller with the given configuration.
func New(cfg Config) (*Controller, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is required: %w", ai.ErrClassifierUnavailable)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("frame source is required: %w", ai.ErrSourceUnavailable)
	}
	cfg.applyDefaults()
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, ErrInvalidThreshold
	}

	logger := cfg.Logger.With("component", "live")
	c := &Controller{
		cfg:     cfg,
		logger:  logger,
		gate:    NewDispatchGate(cfg.Speaker, cfg.Capabilities, cfg.SpeechCooldown, logger),
		metrics: newMetrics(),
		newTicker: func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		},
		now: time.Now,
	}
	c.threshold.Store(math.Float64bits(cfg.ConfidenceThreshold))
	c.state.Store(int32(StateIdle))
	return c, nil
}

// Start acquires the classifier and frame source and enters Running. It is a
// no-op when already Running. ctx bounds startup only; the loop runs until Stop.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateRunning {
		return nil
	}

	if loader, ok := c.cfg.Classifier.(classify.Loader); ok {
		if err := loader.Load(ctx); err != nil {
			c.logger.Error("classifier failed to load", "error", err)
			return fmt.Errorf("load classifier: %w: %w", err, ai.ErrClassifierUnavailable)
		}
	}

	if err := c.cfg.Source.Open(ctx); err != nil {
		c.logger.Error("frame source failed to open", "error", err)
		if errors.Is(err, ai.ErrSourceUnavailable) {
			return fmt.Errorf("open source: %w", err)
		}
		return fmt.Errorf("open source: %w: %w", err, ai.ErrSourceUnavailable)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.NewString(),
		filter:  NewStabilityFilter(c.cfg.StabilityThreshold, c.cfg.BackgroundLabel),
		sampler: NewSampler(c.cfg.SampleInterval),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	c.gate.Reset()
	c.snapMu.Lock()
	c.sessionID, c.stability, c.lastVerdict = s.id, StabilityState{}, nil
	c.snapMu.Unlock()

	c.session = s
	c.setState(StateRunning)
	c.logger.Info("live loop started", "session", s.id,
		"sample_interval", c.cfg.SampleInterval, "threshold", c.ConfidenceThreshold())

	go c.run(runCtx, s)
	return nil
}

// Stop leaves Running, releasing the frame source. It is a no-op when Idle.
// When Stop returns no classifier or speech call will be issued by the loop and
// any in-flight result has been discarded.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() == StateIdle {
		return
	}
	s := c.session
	c.session = nil
	c.setState(StateIdle)

	s.cancel()
	<-s.done
	s.calls.Wait()

	c.snapMu.Lock()
	c.sessionID = ""
	c.snapMu.Unlock()

	if err := c.cfg.Source.Close(); err != nil {
		c.logger.Warn("frame source close failed", "error", err)
	}
	c.logger.Info("live loop stopped", "session", s.id)
}

// State returns the current loop state.
func (c *Controller) State() LoopState {
	return LoopState(c.state.Load())
}

func (c *Controller) setState(next LoopState) {
	prev := LoopState(c.state.Swap(int32(next)))
	if prev != next {
		c.metrics.transition(prev, next)
	}
}

// ConfidenceThreshold returns the current minimum confidence.
func (c *Controller) ConfidenceThreshold() float64 {
	return math.Float64frombits(c.threshold.Load())
}

// SetConfidenceThreshold changes the minimum confidence. It applies from the
// next sample on.
func (c *Controller) SetConfidenceThreshold(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return ErrInvalidThreshold
	}
	c.threshold.Store(math.Float64bits(v))
	c.logger.Debug("confidence threshold changed", "threshold", v)
	return nil
}

// SetSpeechEnabled mutes or unmutes spoken output.
func (c *Controller) SetSpeechEnabled(enabled bool) {
	c.gate.SetEnabled(enabled)
	c.logger.Debug("speech toggled", "enabled", enabled)
}

// Say speaks text through the same cooldown as announcements. It works in any state.
func (c *Controller) Say(text string) bool {
	ok := c.gate.TryDispatch(text, c.now())
	if ok {
		c.metrics.Dispatches.Add(1)
	} else {
		c.metrics.Suppressed.Add(1)
	}
	return ok
}

// Capabilities returns the injected capability set.
func (c *Controller) Capabilities() Capabilities {
	return c.cfg.Capabilities
}

// OnVerdict registers an observer called on the loop goroutine for every
// applied sample. Observers must not block and must not call Stop.
func (c *Controller) OnVerdict(fn func(Verdict)) {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	c.observers = append(c.observers, fn)
}

// Metrics returns the controller's counters.
func (c *Controller) Metrics() *Metrics {
	return c.metrics
}

// Snapshot returns a point-in-time view of the controller.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	snap := Snapshot{
		State:               c.State().String(),
		SessionID:           c.sessionID,
		Stability:           c.stability,
		ConfidenceThreshold: c.ConfidenceThreshold(),
		SpeechEnabled:       c.gate.Enabled(),
		SpeechOutput:        c.gate.CanSpeak(),
	}
	if c.lastVerdict != nil {
		v := *c.lastVerdict
		snap.LastVerdict = &v
	}
	return snap
}

func (c *Controller) run(ctx context.Context, s *session) {
	defer close(s.done)

	ticks, stopTicks := c.newTicker(c.cfg.TickInterval)
	defer stopTicks()

	results := make(chan sampleResult, 1)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticks:
			c.tick(ctx, s, now, results)
		case res := <-results:
			c.apply(ctx, s, res)
		}
	}
}

func (c *Controller) tick(ctx context.Context, s *session, now time.Time, results chan<- sampleResult) {
	if ctx.Err() != nil {
		return
	}
	seq, ok := s.sampler.TryBegin(now)
	if !ok {
		c.metrics.SkippedTicks.Add(1)
		return
	}
	c.metrics.SamplesStarted.Add(1)

	s.calls.Add(1)
	go func() {
		defer s.calls.Done()
		res := sampleResult{seq: seq}
		res.result, res.err = c.sample(ctx)
		select {
		case results <- res:
		case <-ctx.Done():
		}
	}()
}

func (c *Controller) sample(ctx context.Context) (classify.Result, error) {
	frame, err := c.cfg.Source.Grab(ctx)
	if err != nil {
		return nil, fmt.Errorf("grab frame: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result, err := c.cfg.Classifier.Predict(ctx, frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ai.ErrClassifierCallFailed, err)
	}
	return result, nil
}

func (c *Controller) apply(ctx context.Context, s *session, res sampleResult) {
	if ctx.Err() != nil || !s.sampler.Complete(res.seq) {
		c.metrics.StaleResults.Add(1)
		return
	}
	defer c.metrics.SamplesCompleted.Add(1)

	if res.err != nil {
		c.metrics.ClassifierFailures.Add(1)
		c.logger.Warn("sample failed", "session", s.id, "seq", res.seq, "error", res.err)
		return
	}

	ev := s.filter.Observe(res.result, c.ConfidenceThreshold())
	c.metrics.LastConfidence.Set(ev.Confidence)

	v := Verdict{SessionID: s.id, At: c.now(), StabilityEvent: ev}
	if ev.ShouldAnnounce {
		c.metrics.Announcements.Add(1)
		text := c.cfg.Announcer.Announcement(ev.Label)
		v.Dispatched = c.gate.TryDispatch(text, v.At)
		if v.Dispatched {
			v.Spoken = text
			c.metrics.Dispatches.Add(1)
		} else {
			c.metrics.Suppressed.Add(1)
		}
		c.logger.Info("stable label", "session", s.id, "label", ev.Label,
			"confidence", ev.Confidence, "dispatched", v.Dispatched)
	}

	c.snapMu.Lock()
	c.stability, c.lastVerdict = s.filter.State(), &v
	c.snapMu.Unlock()

	c.obsMu.RLock()
	observers := c.observers
	c.obsMu.RUnlock()
	for _, fn := range observers {
		fn(v)
	}
}
