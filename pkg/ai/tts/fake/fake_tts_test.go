package fake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chriscow/eco-go/pkg/ai/tts"
	"github.com/matryer/is"
)

func TestFakeTTS_FrameCountFollowsText(t *testing.T) {
	is := is.New(t)
	f := NewFakeTTS()
	f.FramesPerRune = 2

	frames, err := f.Synthesize(context.Background(), tts.SynthesizeRequest{Text: "hola"})
	is.NoErr(err)

	n := 0
	for frame := range frames {
		is.Equal(frame.SampleRate, 16000)
		is.Equal(frame.SamplesPerChannel, 160)
		is.Equal(len(frame.Data), 320)
		n++
	}
	is.Equal(n, 8)                      // 4 runes * 2 frames
	is.Equal(f.Texts(), []string{"hola"}) // request recorded
}

func TestFakeTTS_Errors(t *testing.T) {
	is := is.New(t)

	_, err := NewFakeTTS().Synthesize(context.Background(), tts.SynthesizeRequest{})
	is.True(err != nil) // empty text

	f := NewFakeTTS()
	f.Err = errors.New("quota")
	_, err = f.Synthesize(context.Background(), tts.SynthesizeRequest{Text: "x"})
	is.Equal(err, f.Err)
}

func TestFakeTTS_CancelStopsStream(t *testing.T) {
	is := is.New(t)
	f := NewFakeTTS()
	f.Realtime = true

	ctx, cancel := context.WithCancel(context.Background())
	frames, err := f.Synthesize(ctx, tts.SynthesizeRequest{Text: "a fairly long sentence to speak"})
	is.NoErr(err)

	<-frames
	cancel()

	done := make(chan struct{})
	go func() {
		for range frames {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not close after cancel")
	}
}
