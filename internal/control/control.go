// Package control connects a running loop to a remote control server over a
// websocket. The server sends signals (start, stop, threshold, mute, ask) and
// receives commands (verdicts, status snapshots, answers).
package control

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/live"
)

// Signal types received from the server.
const (
	SignalPing      = "ping"
	SignalStart     = "start"
	SignalStop      = "stop"
	SignalThreshold = "threshold"
	SignalMute      = "mute"
	SignalUnmute    = "unmute"
	SignalAsk       = "ask"
	SignalStatus    = "status"
)

// Command types sent to the server.
const (
	CommandPong    = "pong"
	CommandVerdict = "verdict"
	CommandStatus  = "status"
	CommandAnswer  = "answer"
	CommandError   = "error"
)

const (
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 10 * time.Second
	outboxSize         = 100
)

// Target is the loop being controlled. *live.Controller implements it.
type Target interface {
	Start(ctx context.Context) error
	Stop()
	SetConfidenceThreshold(v float64) error
	SetSpeechEnabled(enabled bool)
	Snapshot() live.Snapshot
}

// Asker answers questions. *advice.Assistant implements it.
type Asker interface {
	Ask(ctx context.Context, question string) (advice.Answer, error)
}

// Config configures a Client.
type Config struct {
	URL         string
	Token       string
	Target      Target
	Asker       Asker // optional
	BackoffBase time.Duration
	BackoffMax  time.Duration
	Logger      *slog.Logger
}

// Client keeps a control connection open, reconnecting with exponential backoff.
type Client struct {
	url    string
	target Target
	asker  Asker
	ws     *WebSocketClient
	logger *slog.Logger
	in     chan *Signal
	out    chan *Command

	backoffBase time.Duration
	backoffMax  time.Duration

	mu             sync.RWMutex
	connected      bool
	backoffAttempt int
}

// New creates a control client.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("control url is required")
	}
	if cfg.Target == nil {
		return nil, fmt.Errorf("control target is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "control"))
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = defaultBackoffBase
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = defaultBackoffMax
	}
	return &Client{
		url:         cfg.URL,
		target:      cfg.Target,
		asker:       cfg.Asker,
		ws:          NewWebSocketClient(cfg.URL, cfg.Token, logger),
		logger:      logger,
		in:          make(chan *Signal, outboxSize),
		out:         make(chan *Command, outboxSize),
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
	}, nil
}

// Run connects and serves signals until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	c.logger.Info("Starting control client")
	for {
		if ctx.Err() != nil {
			c.logger.Info("Control client shutting down")
			return nil
		}
		if err := c.connectAndRun(ctx); err != nil {
			c.logger.Error("Control connection failed", slog.String("error", err.Error()))
			if err := c.backoffDelay(ctx); err != nil {
				return nil
			}
		}
	}
}

// Publish queues a verdict for the server. It never blocks, so it can be
// registered with live.Controller.OnVerdict. Only announced verdicts are sent.
func (c *Client) Publish(v live.Verdict) {
	if !v.ShouldAnnounce || !c.IsConnected() {
		return
	}
	c.send(&Command{Type: CommandVerdict, Data: v})
}

// IsConnected reports whether a connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) connectAndRun(ctx context.Context) error {
	if err := c.ws.Connect(ctx); err != nil {
		return err
	}
	defer c.ws.Close()

	c.setConnected(true)
	defer c.setConnected(false)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errCh := make(chan error, 2)

	wg.Add(4)
	// closing the socket is the only way to unblock a pending read
	go func() {
		defer wg.Done()
		<-runCtx.Done()
		c.ws.Close()
	}()
	go func() {
		defer wg.Done()
		if err := c.readSignals(runCtx); err != nil {
			errCh <- fmt.Errorf("read signals: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := c.writeCommands(runCtx); err != nil {
			errCh <- fmt.Errorf("write commands: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		c.processSignals(runCtx)
	}()

	c.send(c.status())

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
	}
	cancel()
	wg.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (c *Client) readSignals(ctx context.Context) error {
	for {
		signal, err := c.ws.ReadSignal()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case c.in <- signal:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Client) writeCommands(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-c.out:
			if err := c.ws.WriteCommand(cmd); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}

func (c *Client) processSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case signal := <-c.in:
			c.handleSignal(ctx, signal)
		}
	}
}

func (c *Client) handleSignal(ctx context.Context, signal *Signal) {
	c.logger.Debug("Processing signal", slog.String("type", signal.Type))

	switch signal.Type {
	case SignalPing:
		c.send(&Command{Type: CommandPong, Data: signal.Data})

	case SignalStart:
		if err := c.target.Start(ctx); err != nil {
			c.sendError(signal, err)
			return
		}
		c.send(c.status())

	case SignalStop:
		c.target.Stop()
		c.send(c.status())

	case SignalThreshold:
		value, ok := signal.Data["value"].(float64)
		if !ok {
			c.sendError(signal, fmt.Errorf("threshold signal needs a numeric value"))
			return
		}
		if err := c.target.SetConfidenceThreshold(value); err != nil {
			c.sendError(signal, err)
			return
		}
		c.send(c.status())

	case SignalMute, SignalUnmute:
		c.target.SetSpeechEnabled(signal.Type == SignalUnmute)
		c.send(c.status())

	case SignalStatus:
		c.send(c.status())

	case SignalAsk:
		question, _ := signal.Data["question"].(string)
		if c.asker == nil || strings.TrimSpace(question) == "" {
			c.sendError(signal, fmt.Errorf("ask signal needs a question and an assistant"))
			return
		}
		answer, err := c.asker.Ask(ctx, question)
		if err != nil {
			c.sendError(signal, err)
			return
		}
		c.send(&Command{Type: CommandAnswer, Data: answer})

	default:
		c.logger.Warn("Unknown signal type", slog.String("type", signal.Type))
	}
}

func (c *Client) status() *Command {
	return &Command{Type: CommandStatus, Data: c.target.Snapshot()}
}

func (c *Client) sendError(signal *Signal, err error) {
	c.logger.Warn("Signal failed", slog.String("type", signal.Type), slog.String("error", err.Error()))
	c.send(&Command{Type: CommandError, Data: map[string]any{
		"signal": signal.Type,
		"error":  err.Error(),
	}})
}

func (c *Client) send(cmd *Command) {
	select {
	case c.out <- cmd:
	default:
		c.logger.Warn("Control outbox full, dropping command", slog.String("type", cmd.Type))
	}
}

// backoff returns the delay before reconnect attempt n (1-based):
// base, 2*base, 4*base, ... capped at max.
func backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(base) * math.Pow(2, float64(attempt-1))
	if d > float64(max) {
		return max
	}
	return time.Duration(d)
}

func (c *Client) backoffDelay(ctx context.Context) error {
	c.mu.Lock()
	c.backoffAttempt++
	attempt := c.backoffAttempt
	c.mu.Unlock()

	delay := backoff(attempt, c.backoffBase, c.backoffMax)
	c.logger.Info("Reconnecting with backoff",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if connected && !c.connected {
		c.backoffAttempt = 0
	}
	c.connected = connected
}
