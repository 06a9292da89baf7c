package source

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/chriscow/eco-go/pkg/ai"
	"github.com/matryer/is"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSnapshot_CacheBustAndDecode(t *testing.T) {
	is := is.New(t)
	still := pngBytes(t, 4, 3)

	var mu sync.Mutex
	var seen []url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Query())
		mu.Unlock()
		w.Header().Set("Content-Type", "image/png")
		w.Write(still)
	}))
	defer srv.Close()

	s, err := NewSnapshot(SnapshotConfig{URL: srv.URL + "/shot.jpg?quality=80"})
	is.NoErr(err)

	_, err = s.Grab(context.Background())
	is.Equal(err, ErrNotOpen) // grab before open

	is.NoErr(s.Open(context.Background()))
	frame, err := s.Grab(context.Background())
	is.NoErr(err)
	is.Equal(frame.Bounds().Dx(), 4)
	is.Equal(frame.Sequence, uint64(2)) // the probe counts as the first fetch

	mu.Lock()
	defer mu.Unlock()
	is.Equal(len(seen), 2)
	is.Equal(seen[0].Get("quality"), "80") // existing query is kept
	is.True(seen[0].Get(CacheBustParam) != "")
	is.True(seen[0].Get(CacheBustParam) != seen[1].Get(CacheBustParam)) // every request is unique
}

func TestSnapshot_OpenFailsWhenCameraDown(t *testing.T) {
	is := is.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "camera offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewSnapshot(SnapshotConfig{URL: srv.URL})
	is.NoErr(err)
	err = s.Open(context.Background())
	is.True(errors.Is(err, ai.ErrSourceUnavailable))
}

func TestNewSnapshot_RejectsBadURL(t *testing.T) {
	is := is.New(t)
	for _, raw := range []string{"", "ftp://cam/shot.jpg", "not a url", "http://"} {
		_, err := NewSnapshot(SnapshotConfig{URL: raw})
		is.True(err != nil) // invalid url accepted
	}
}

func TestDir_ReplaysInOrderAndWraps(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	is.NoErr(os.WriteFile(filepath.Join(dir, "b.png"), pngBytes(t, 2, 2), 0o644))
	is.NoErr(os.WriteFile(filepath.Join(dir, "a.png"), pngBytes(t, 1, 1), 0o644))
	is.NoErr(os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	d := NewDir(dir)
	is.NoErr(d.Open(context.Background()))
	defer d.Close()

	var widths []int
	for i := 0; i < 3; i++ {
		f, err := d.Grab(context.Background())
		is.NoErr(err)
		widths = append(widths, f.Bounds().Dx())
	}
	is.Equal(widths, []int{1, 2, 1})
}

func TestDir_EmptyIsUnavailable(t *testing.T) {
	is := is.New(t)
	err := NewDir(t.TempDir()).Open(context.Background())
	is.True(errors.Is(err, ai.ErrSourceUnavailable))

	err = NewDir(filepath.Join(t.TempDir(), "missing")).Open(context.Background())
	is.True(errors.Is(err, ai.ErrSourceUnavailable))
}
