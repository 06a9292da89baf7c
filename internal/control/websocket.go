package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var errNotConnected = errors.New("not connected")

// Signal is a message from the control server.
type Signal struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Command is a message to the control server.
type Command struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// WebSocketClient owns one control connection. Reads and writes may run on
// separate goroutines; Close unblocks a pending read.
type WebSocketClient struct {
	url    string
	token  string
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocketClient creates an unconnected client.
func NewWebSocketClient(serverURL, token string, logger *slog.Logger) *WebSocketClient {
	return &WebSocketClient{
		url:    serverURL,
		token:  token,
		logger: logger,
	}
}

// Connect dials the server, sending the token as a bearer credential.
func (c *WebSocketClient) Connect(ctx context.Context) error {
	u, err := url.Parse(c.url)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid URL scheme %q (want ws or wss)", u.Scheme)
	}

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	c.logger.Info("Control channel connected", slog.String("url", u.Redacted()))
	return nil
}

func (c *WebSocketClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

// ReadSignal blocks until the next signal arrives or the connection closes.
func (c *WebSocketClient) ReadSignal() (*Signal, error) {
	conn := c.current()
	if conn == nil {
		return nil, errNotConnected
	}
	var signal Signal
	if err := conn.ReadJSON(&signal); err != nil {
		return nil, fmt.Errorf("failed to read signal: %w", err)
	}
	c.logger.Debug("Received signal", slog.String("type", signal.Type))
	return &signal, nil
}

// WriteCommand sends a command. Only one goroutine may write at a time.
func (c *WebSocketClient) WriteCommand(cmd *Command) error {
	conn := c.current()
	if conn == nil {
		return errNotConnected
	}
	c.logger.Debug("Sending command", slog.String("type", cmd.Type))
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}
	return nil
}

// Close closes the connection. Safe to call more than once.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	c.logger.Debug("Closing control connection")
	return conn.Close()
}
