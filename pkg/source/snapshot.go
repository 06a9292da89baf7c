package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chriscow/eco-go/pkg/rtc"
	"github.com/chriscow/eco-go/pkg/version"
)

// CacheBustParam is appended to every snapshot request so intermediaries never
// serve a stale still.
const CacheBustParam = "cb"

// maxSnapshotBytes bounds a single still.
const maxSnapshotBytes = 16 << 20

// SnapshotConfig configures a Snapshot source.
type SnapshotConfig struct {
	URL     string
	Timeout time.Duration // per request, default 2s
	Client  *http.Client
	Logger  *slog.Logger
}

// Snapshot polls an HTTP endpoint that serves one still image per request,
// as IP camera apps do at /shot.jpg or /snapshot.
type Snapshot struct {
	base   *url.URL
	client *http.Client
	logger *slog.Logger
	seq    atomic.Uint64

	mu   sync.Mutex
	open bool
}

// NewSnapshot validates the URL and creates a Snapshot source.
func NewSnapshot(cfg SnapshotConfig) (*Snapshot, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid snapshot url %q", cfg.URL)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshot{
		base:   u,
		client: client,
		logger: logger.With("component", "source.snapshot", "url", u.Redacted()),
	}, nil
}

// Open probes the endpoint once so a misconfigured camera fails Start.
func (s *Snapshot) Open(ctx context.Context) error {
	if _, err := s.fetch(ctx); err != nil {
		return unavailable("snapshot probe failed: %v", err)
	}
	s.mu.Lock()
	s.open = true
	s.mu.Unlock()
	s.logger.Info("snapshot source opened")
	return nil
}

// Grab fetches and decodes the current still.
func (s *Snapshot) Grab(ctx context.Context) (rtc.VideoFrame, error) {
	s.mu.Lock()
	open := s.open
	s.mu.Unlock()
	if !open {
		return rtc.VideoFrame{}, ErrNotOpen
	}
	return s.fetch(ctx)
}

// Close implements Source.
func (s *Snapshot) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = false
	return nil
}

// URL returns the request URL for the next snapshot, including a fresh
// cache-busting parameter.
func (s *Snapshot) URL() string {
	u := *s.base
	q := u.Query()
	q.Set(CacheBustParam, strconv.FormatUint(rand.Uint64(), 36))
	u.RawQuery = q.Encode()
	return u.String()
}

func (s *Snapshot) fetch(ctx context.Context) (rtc.VideoFrame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(), nil)
	if err != nil {
		return rtc.VideoFrame{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := s.client.Do(req)
	if err != nil {
		return rtc.VideoFrame{}, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return rtc.VideoFrame{}, fmt.Errorf("snapshot HTTP %d: %s", resp.StatusCode, string(body))
	}

	img, _, err := Decode(io.LimitReader(resp.Body, maxSnapshotBytes))
	if err != nil {
		return rtc.VideoFrame{}, err
	}
	return rtc.VideoFrame{
		Image:    img,
		Captured: time.Now(),
		Source:   s.base.Redacted(),
		Sequence: s.seq.Add(1),
	}, nil
}
