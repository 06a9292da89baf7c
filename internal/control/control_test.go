package control

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/live"
	"github.com/gorilla/websocket"
	"github.com/matryer/is"
)

type fakeTarget struct {
	mu        sync.Mutex
	started   int
	stopped   int
	threshold float64
	speech    bool
}

func (f *fakeTarget) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return nil
}

func (f *fakeTarget) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeTarget) SetConfidenceThreshold(v float64) error {
	if v < 0 || v > 1 {
		return errors.New("out of range")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threshold = v
	return nil
}

func (f *fakeTarget) SetSpeechEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.speech = enabled
}

func (f *fakeTarget) Snapshot() live.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return live.Snapshot{State: "idle", ConfidenceThreshold: f.threshold, SpeechEnabled: f.speech}
}

type fakeAsker struct{}

func (fakeAsker) Ask(ctx context.Context, q string) (advice.Answer, error) {
	return advice.Answer{Question: q, Text: "compost it", Source: advice.SourceKeyword}, nil
}

func newTestClient(t *testing.T, url string) (*Client, *fakeTarget) {
	t.Helper()
	target := &fakeTarget{}
	c, err := New(Config{
		URL:         url,
		Target:      target,
		Asker:       fakeAsker{},
		BackoffBase: 5 * time.Millisecond,
		BackoffMax:  20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	return c, target
}

func nextCommand(t *testing.T, c *Client) *Command {
	t.Helper()
	select {
	case cmd := <-c.out:
		return cmd
	case <-time.After(time.Second):
		t.Fatal("no command sent")
		return nil
	}
}

func TestNew_Validation(t *testing.T) {
	is := is.New(t)

	_, err := New(Config{Target: &fakeTarget{}})
	is.True(err != nil) // url required

	_, err = New(Config{URL: "ws://localhost"})
	is.True(err != nil) // target required

	c, err := New(Config{URL: "ws://localhost", Target: &fakeTarget{}})
	is.NoErr(err)
	is.Equal(c.backoffBase, defaultBackoffBase)
	is.Equal(c.backoffMax, defaultBackoffMax)
	is.True(!c.IsConnected())
}

func TestBackoff(t *testing.T) {
	is := is.New(t)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{12, 10 * time.Second},
	}
	for _, tt := range tests {
		is.Equal(backoff(tt.attempt, time.Second, 10*time.Second), tt.want) // backoff for attempt
	}
}

func TestHandleSignal_Ping(t *testing.T) {
	is := is.New(t)
	c, _ := newTestClient(t, "ws://localhost")

	c.handleSignal(context.Background(), &Signal{Type: SignalPing, Data: map[string]any{"id": "p1"}})

	cmd := nextCommand(t, c)
	is.Equal(cmd.Type, CommandPong)
	data, ok := cmd.Data.(map[string]any)
	is.True(ok)
	is.Equal(data["id"], "p1") // pong echoes ping data
}

func TestHandleSignal_Threshold(t *testing.T) {
	is := is.New(t)
	c, target := newTestClient(t, "ws://localhost")
	ctx := context.Background()

	c.handleSignal(ctx, &Signal{Type: SignalThreshold, Data: map[string]any{"value": 0.6}})
	cmd := nextCommand(t, c)
	is.Equal(cmd.Type, CommandStatus)
	is.Equal(cmd.Data.(live.Snapshot).ConfidenceThreshold, 0.6)
	is.Equal(target.Snapshot().ConfidenceThreshold, 0.6)

	c.handleSignal(ctx, &Signal{Type: SignalThreshold, Data: map[string]any{"value": 1.5}})
	is.Equal(nextCommand(t, c).Type, CommandError) // out of range

	c.handleSignal(ctx, &Signal{Type: SignalThreshold, Data: map[string]any{"value": "high"}})
	is.Equal(nextCommand(t, c).Type, CommandError) // not a number
	is.Equal(target.Snapshot().ConfidenceThreshold, 0.6)
}

func TestHandleSignal_Lifecycle(t *testing.T) {
	is := is.New(t)
	c, target := newTestClient(t, "ws://localhost")
	ctx := context.Background()

	c.handleSignal(ctx, &Signal{Type: SignalStart})
	is.Equal(nextCommand(t, c).Type, CommandStatus)
	c.handleSignal(ctx, &Signal{Type: SignalUnmute})
	is.True(nextCommand(t, c).Data.(live.Snapshot).SpeechEnabled)
	c.handleSignal(ctx, &Signal{Type: SignalMute})
	is.True(!nextCommand(t, c).Data.(live.Snapshot).SpeechEnabled)
	c.handleSignal(ctx, &Signal{Type: SignalStop})
	is.Equal(nextCommand(t, c).Type, CommandStatus)

	is.Equal(target.started, 1)
	is.Equal(target.stopped, 1)
}

func TestHandleSignal_Ask(t *testing.T) {
	is := is.New(t)
	c, _ := newTestClient(t, "ws://localhost")
	ctx := context.Background()

	c.handleSignal(ctx, &Signal{Type: SignalAsk, Data: map[string]any{"question": "banana peel?"}})
	cmd := nextCommand(t, c)
	is.Equal(cmd.Type, CommandAnswer)
	is.Equal(cmd.Data.(advice.Answer).Text, "compost it")

	c.handleSignal(ctx, &Signal{Type: SignalAsk, Data: map[string]any{"question": "  "}})
	is.Equal(nextCommand(t, c).Type, CommandError) // blank question
}

func TestPublish(t *testing.T) {
	is := is.New(t)
	c, _ := newTestClient(t, "ws://localhost")

	announced := live.Verdict{StabilityEvent: live.StabilityEvent{Label: "Organic", ShouldAnnounce: true}}

	c.Publish(announced)
	is.Equal(len(c.out), 0) // nothing sent while disconnected

	c.setConnected(true)
	c.Publish(live.Verdict{StabilityEvent: live.StabilityEvent{Label: "Organic"}})
	is.Equal(len(c.out), 0) // unannounced verdicts are not published

	c.Publish(announced)
	cmd := nextCommand(t, c)
	is.Equal(cmd.Type, CommandVerdict)
	is.Equal(cmd.Data.(live.Verdict).Label, "Organic")
}

var upgrader = websocket.Upgrader{}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRun_RoundTrip(t *testing.T) {
	is := is.New(t)

	auth := make(chan string, 1)
	results := make(chan map[string]any, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil { // status on connect
			return
		}
		results <- msg

		conn.WriteJSON(Signal{Type: SignalPing, Data: map[string]any{"id": "x"}})
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		results <- msg

		conn.WriteJSON(Signal{Type: SignalThreshold, Data: map[string]any{"value": 0.5}})
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		results <- msg

		// hold the connection until the client goes away
		conn.ReadJSON(&msg)
	}))
	defer srv.Close()

	target := &fakeTarget{}
	c, err := New(Config{URL: wsURL(srv), Token: "secret", Target: target})
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	is.Equal(<-auth, "Bearer secret")

	want := []string{CommandStatus, CommandPong, CommandStatus}
	for _, typ := range want {
		select {
		case msg := <-results:
			is.Equal(msg["type"], typ)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
	is.Equal(target.Snapshot().ConfidenceThreshold, 0.5)
	is.True(c.IsConnected())

	cancel()
	select {
	case err := <-done:
		is.NoErr(err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	is.True(!c.IsConnected())
}

func TestRun_Reconnects(t *testing.T) {
	is := is.New(t)

	var connections atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connections.Add(1)
		conn.Close() // drop immediately
	}))
	defer srv.Close()

	c, _ := newTestClient(t, wsURL(srv))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for connections.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	is.True(connections.Load() >= 3) // client kept reconnecting
}
